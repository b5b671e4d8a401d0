package regions

import (
	"sort"
	"strconv"
	"strings"
)

// SortForAssignment orders regions for sequential auto-assignment.
// Names following the "<major>_<minor>" convention sort numerically by
// (major, minor); any pair involving a non-conforming name falls back
// to lexicographic comparison. The input slice is not modified.
func SortForAssignment(regs []Region) []Region {
	sorted := append([]Region(nil), regs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessByName(sorted[i].Name, sorted[j].Name)
	})
	return sorted
}

func lessByName(a, b string) bool {
	aMajor, aMinor, aOK := parseName(a)
	bMajor, bMinor, bOK := parseName(b)

	if aOK && bOK {
		if aMajor != bMajor {
			return aMajor < bMajor
		}
		return aMinor < bMinor
	}
	return a < b
}

func parseName(name string) (major, minor int, ok bool) {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
