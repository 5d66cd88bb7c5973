package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Fold returns the case-folded form of s, suitable for case-insensitive comparisons.
func Fold(s string) string {
	// casers carry state, so one is made per call
	return cases.Fold().String(s)
}

// NormalizeName folds the case of name and strips all whitespace.
func NormalizeName(name string) string {
	name = Fold(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// ContainsAnyFold reports whether any of the matchers is within s, ignoring case.
func ContainsAnyFold(s string, matchers []string) bool {
	s = Fold(s)
	for _, m := range matchers {
		if strings.Contains(s, Fold(m)) {
			return true
		}
	}
	return false
}

// EqualFold is strings.EqualFold with full unicode folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
