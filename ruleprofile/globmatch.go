package ruleprofile

import "strings"

// GlobMatch reports whether name (a slash-separated file path) matches
// pattern. A "*" inside a path component is a wildcard matching part of that
// component; a "**" component matches zero or more whole path components.
// For example "**/*.sh" matches "scripts/deploy/release.sh". The algorithm
// is the backtracking approach described at https://research.swtch.com/glob.
func GlobMatch(pattern, name string) bool {
	patternComponents := strings.Split(pattern, "/")
	nameComponents := strings.Split(name, "/")
	i, j := 0, 0
	bti, btj := 0, 0 // backtrack indices

	for i < len(patternComponents) || j < len(nameComponents) {
		if i < len(patternComponents) {
			pc := patternComponents[i]
			if pc == "**" {
				bti = i
				btj = j + 1
				i++
				continue
			}
			if j < len(nameComponents) {
				nc := nameComponents[j]
				if componentsMatch(pc, nc) {
					i++
					j++
					continue
				}
			}
		}

		if 0 < btj && btj <= len(nameComponents) {
			i = bti
			j = btj
			continue
		}

		return false
	}

	return true
}

// componentsMatch reports whether pc (one pattern path component, possibly
// containing "*" wildcards) matches nc (one name path component).
func componentsMatch(pc, nc string) bool {
	i, j := 0, 0
	bti, btj := 0, 0

	for i < len(pc) || j < len(nc) {
		if i < len(pc) {
			p := pc[i]
			if p == '*' {
				bti = i
				btj = j + 1
				i++
				continue
			}
			if j < len(nc) && p == nc[j] {
				i++
				j++
				continue
			}
		}

		if 0 < btj && btj <= len(nc) {
			i = bti
			j = btj
			continue
		}

		return false
	}

	return true
}
