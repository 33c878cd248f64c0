// internal/domain/roles/set.go
package roles

import "strings"

// Set is an unordered collection of roles. A nil Set is empty and safe to read.
type Set map[Role]struct{}

// NewSet builds a set from the given roles. Invalid roles are ignored.
func NewSet(rs ...Role) Set {
	s := make(Set, len(rs))
	for _, r := range rs {
		s.Add(r)
	}
	return s
}

// Add inserts r. Invalid roles are ignored.
func (s Set) Add(r Role) {
	if r.Valid() {
		s[r] = struct{}{}
	}
}

// Remove deletes r if present.
func (s Set) Remove(r Role) {
	delete(s, r)
}

// Has reports whether r is in the set.
func (s Set) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether at least one of rs is in the set.
func (s Set) HasAny(rs ...Role) bool {
	for _, r := range rs {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Len returns the number of roles held.
func (s Set) Len() int { return len(s) }

// Empty reports whether the set holds no roles.
func (s Set) Empty() bool { return len(s) == 0 }

// Roles returns the members in canonical order.
func (s Set) Roles() []Role {
	out := make([]Role, 0, len(s))
	for _, r := range all {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Labels returns the display names in canonical order.
func (s Set) Labels() []string {
	rs := s.Roles()
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Label()
	}
	return out
}

// Equal reports whether both sets hold the same roles.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for r := range s {
		if !o.Has(r) {
			return false
		}
	}
	return true
}

// Diff returns the roles that must be added and removed to turn s into want.
func (s Set) Diff(want Set) (add, remove []Role) {
	for _, r := range all {
		switch {
		case want.Has(r) && !s.Has(r):
			add = append(add, r)
		case !want.Has(r) && s.Has(r):
			remove = append(remove, r)
		}
	}
	return add, remove
}

// String renders the set as "Viewer, Steward".
func (s Set) String() string {
	return strings.Join(s.Labels(), ", ")
}
