package enums

import (
	"fmt"
	"slices"
	"strings"
)

// member covers the string-backed enum types in this package.
type member interface{ ~string }

func known[T member](value T, set []T) bool {
	return slices.Contains(set, value)
}

// parse trims and lowercases raw input before matching it against set.
func parse[T member](kind, raw string, set []T) (T, error) {
	value := T(strings.ToLower(strings.TrimSpace(raw)))
	if known(value, set) {
		return value, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
