package checks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedName indicates a check name that is not "<scope>:<category>:<label>".
var ErrMalformedName = errors.New("malformed check name")

// Well-known categories.
const (
	CategoryLifecycle = "lifecycle"
	CategoryGain      = "gain"
	CategoryRhythm    = "rhythm"
)

// Name is the parsed form of a composite check name.
type Name struct {
	Scope    string
	Category string
	Label    string
}

// ParseName splits a composite name into its parts. The scope itself may
// contain dots (e.g. "exp.training") but not colons.
func ParseName(s string) (Name, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Name{}, fmt.Errorf("%w: %q", ErrMalformedName, s)
	}
	for _, p := range parts {
		if p == "" {
			return Name{}, fmt.Errorf("%w: %q", ErrMalformedName, s)
		}
	}
	return Name{Scope: parts[0], Category: parts[1], Label: parts[2]}, nil
}

// MustName is like ParseName but panics on malformed input. Intended for
// names declared in code.
func MustName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String reassembles the composite name.
func (n Name) String() string {
	return n.Scope + ":" + n.Category + ":" + n.Label
}

// Matches reports whether n matches the pattern p. Empty fields in p match
// anything.
func (n Name) Matches(p Name) bool {
	return (p.Scope == "" || p.Scope == n.Scope) &&
		(p.Category == "" || p.Category == n.Category) &&
		(p.Label == "" || p.Label == n.Label)
}
