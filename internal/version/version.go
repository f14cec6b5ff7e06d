// Package version handles module version tuples and constraints.
//
// A version is a semantic version with an optional fourth numeric segment
// ("1.2.0.4"), the revision. The revision participates in equality and
// ordering but not in constraint matching, which operates on the semver core.
package version

import (
	"fmt"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a module version tuple.
type Version struct {
	v        *mm.Version
	revision uint64
	raw      string
}

// Constraint is a version constraint, e.g. ">=1.2.0 <2.0.0" or "^1.0.0".
type Constraint struct {
	c *mm.Constraints
}

// Parse parses a version string with three or four numeric segments.
func Parse(raw string) (Version, error) {
	core := raw
	var revision uint64
	if parts := strings.Split(raw, "."); len(parts) == 4 {
		r, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("version: parse revision in %q: %w", raw, err)
		}
		core = strings.Join(parts[:3], ".")
		revision = r
	}
	v, err := mm.NewVersion(core)
	if err != nil {
		return Version{}, fmt.Errorf("version: parse %q: %w", raw, err)
	}
	return Version{v: v, revision: revision, raw: raw}, nil
}

func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as originally written.
func (a Version) String() string {
	return a.raw
}

// IsZero reports whether a is the zero Version (never parsed).
func (a Version) IsZero() bool {
	return a.v == nil
}

// Equal reports whether two versions denote the same tuple, revision included.
func (a Version) Equal(b Version) bool {
	return Compare(a, b) == 0
}

// Compare orders a against b, returning -1, 0, or 1. The semver core is
// compared first, then the revision.
func Compare(a, b Version) int {
	if a.v == nil || b.v == nil {
		if a.v == b.v {
			return 0
		}
		if a.v == nil {
			return -1
		}
		return 1
	}
	if cmp := a.v.Compare(b.v); cmp != 0 {
		return cmp
	}
	switch {
	case a.revision < b.revision:
		return -1
	case a.revision > b.revision:
		return 1
	}
	return 0
}

// ParseConstraint parses a constraint expression.
func ParseConstraint(raw string) (Constraint, error) {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("version: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c}, nil
}

func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Satisfies reports whether v's semver core matches c.
func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// MaxSatisfying returns the highest candidate that satisfies c.
func MaxSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, c) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
