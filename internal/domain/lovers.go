package domain

// LoverCascade returns the lover who dies of a broken heart after the given
// deaths, if any. It fires only when one lover is in the death set and the
// partner is still alive and not in the set.
func LoverCascade(justDied []string, lovers *LoverPair, alive func(string) bool) []string {
	if lovers == nil || len(justDied) == 0 {
		return nil
	}

	died := make(map[string]bool, len(justDied))
	for _, id := range justDied {
		died[id] = true
	}

	for _, pair := range [][2]string{{lovers.First, lovers.Second}, {lovers.Second, lovers.First}} {
		dead, partner := pair[0], pair[1]
		if died[dead] && !died[partner] && alive(partner) {
			return []string{partner}
		}
	}

	return nil
}
