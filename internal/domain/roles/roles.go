// internal/domain/roles/roles.go

// Package roles defines the closed set of roles a user may hold inside a
// workgroup. Roles are capability grants, not ranks: holding Manager does not
// imply holding Viewer, and every check asks "does the user hold at least one
// qualifying role" rather than comparing levels.
package roles

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRole is returned when a value is not one of the known roles.
var ErrInvalidRole = errors.New("invalid role")

// Role is a workgroup role. The zero value is not a valid role.
type Role string

const (
	Viewer    Role = "viewer"
	Submitter Role = "submitter"
	Steward   Role = "steward"
	Manager   Role = "manager"
)

// all lists the roles in canonical display order.
var all = []Role{Viewer, Submitter, Steward, Manager}

// All returns every role in canonical order (Viewer, Submitter, Steward, Manager).
func All() []Role {
	out := make([]Role, len(all))
	copy(out, all)
	return out
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.index() >= 0
}

// Label returns the display name ("Viewer", "Steward", ...).
func (r Role) Label() string {
	switch r {
	case Viewer:
		return "Viewer"
	case Submitter:
		return "Submitter"
	case Steward:
		return "Steward"
	case Manager:
		return "Manager"
	}
	return string(r)
}

func (r Role) String() string { return string(r) }

func (r Role) index() int {
	for i, x := range all {
		if x == r {
			return i
		}
	}
	return -1
}

// Parse converts user input to a Role. Matching ignores case and surrounding
// whitespace, so "Steward", " steward " and "STEWARD" are all accepted.
func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// ParseAll parses every value and returns the recognised roles as a set.
// Unrecognised values are dropped and returned separately so callers can
// decide whether to ignore or report them.
func ParseAll(values []string) (Set, []string) {
	set := NewSet()
	var rejected []string
	for _, v := range values {
		r, err := Parse(v)
		if err != nil {
			rejected = append(rejected, v)
			continue
		}
		set.Add(r)
	}
	return set, rejected
}
