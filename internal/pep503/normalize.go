// Package pep503 implements PEP 503 package name normalization.
package pep503

import (
	"regexp"
	"strings"
)

var separatorRuns = regexp.MustCompile(`[-_.]+`)

// Normalize maps any spelling of a package name to its canonical form:
// lowercase, with runs of '-', '_' and '.' collapsed to a single '-'.
// This is the form used for storage keys, URL matching and uniqueness
// checks, matching what pip does when it looks up a package.
func Normalize(name string) string {
	return separatorRuns.ReplaceAllString(strings.ToLower(name), "-")
}
