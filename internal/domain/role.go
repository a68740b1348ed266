package domain

// Role represents a player's secret role in a game
type Role string

const (
	RoleWolf           Role = "WOLF"
	RoleVillager       Role = "VILLAGER"
	RoleMatchmaker     Role = "MATCHMAKER"
	RoleClairvoyant    Role = "CLAIRVOYANT"
	RoleHealerPoisoner Role = "HEALER_POISONER"
)

// Faction is one of the two competing sides
type Faction string

const (
	FactionWolves    Faction = "WOLVES"
	FactionVillagers Faction = "VILLAGERS"
)

// specialRoles lists the optional roles in assignment precedence.
var specialRoles = []Role{RoleMatchmaker, RoleClairvoyant, RoleHealerPoisoner}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsWolf returns true if this role belongs to the wolf pack
func (r Role) IsWolf() bool {
	return r == RoleWolf
}

// Faction returns the side this role plays for. Every non-wolf role counts
// as a villager.
func (r Role) Faction() Faction {
	if r.IsWolf() {
		return FactionWolves
	}
	return FactionVillagers
}

// displayRank orders roles on the final roster.
func (r Role) displayRank() int {
	switch r {
	case RoleWolf:
		return 0
	case RoleMatchmaker:
		return 1
	case RoleClairvoyant:
		return 2
	case RoleHealerPoisoner:
		return 3
	case RoleVillager:
		return 4
	default:
		return 5
	}
}
