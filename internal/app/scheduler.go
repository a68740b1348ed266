package app

import "time"

// Timer is a pending scheduled call
type Timer interface {
	Stop() bool
}

// Scheduler runs a function after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the wall clock
type RealScheduler struct{}

// AfterFunc implements Scheduler using time.AfterFunc
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
