// Package version implements the (major, minor) version pairs used to compare
// remote plugin descriptors with locally installed plugins.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Pair is a plugin version. Ordering is lexicographic on Major, then Minor.
type Pair struct {
	Major int `json:"major" yaml:"major"`
	Minor int `json:"minor" yaml:"minor"`
}

// New returns the pair (major, minor).
func New(major, minor int) Pair {
	return Pair{Major: major, Minor: minor}
}

// Newer reports whether p is strictly newer than other. Equal pairs are not
// newer in either direction.
func (p Pair) Newer(other Pair) bool {
	if p.Major != other.Major {
		return p.Major > other.Major
	}
	return p.Minor > other.Minor
}

// Compare returns -1 if p is older than other, 0 if equal, 1 if newer.
func (p Pair) Compare(other Pair) int {
	switch {
	case p.Newer(other):
		return 1
	case other.Newer(p):
		return -1
	default:
		return 0
	}
}

// AtLeast reports whether p is equal to or newer than other.
func (p Pair) AtLeast(other Pair) bool {
	return !other.Newer(p)
}

// String renders the pair as "major.minor".
func (p Pair) String() string {
	return fmt.Sprintf("%d.%d", p.Major, p.Minor)
}

// Parse reads a version string such as "0.2", "v1.3" or "1.3.0". A patch
// component or pre-release suffix is accepted but ignored.
func Parse(s string) (Pair, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Pair{}, fmt.Errorf("parsing version: empty string")
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return Pair{}, fmt.Errorf("parsing version %q: %w", s, err)
	}
	return Pair{Major: int(v.Major()), Minor: int(v.Minor())}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constant tables.
func MustParse(s string) Pair {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}
