package models

import (
	"encoding/json"
	"sort"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// RoleSet is an unordered set of roles. It marshals as a sorted JSON list.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

func DefaultRoles() RoleSet { return NewRoleSet(RoleUser) }

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Toggle flips membership of r and reports whether r is now present.
func (s RoleSet) Toggle(r Role) bool {
	if s.Has(r) {
		delete(s, r)
		return false
	}
	s[r] = struct{}{}
	return true
}

func (s RoleSet) Clone() RoleSet {
	c := make(RoleSet, len(s))
	for r := range s {
		c[r] = struct{}{}
	}
	return c
}

func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

func RoleSetFromStrings(ss []string) RoleSet {
	s := make(RoleSet, len(ss))
	for _, v := range ss {
		if v == "" {
			continue
		}
		s[Role(v)] = struct{}{}
	}
	return s
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *RoleSet) UnmarshalJSON(b []byte) error {
	var ss []string
	if err := json.Unmarshal(b, &ss); err != nil {
		return err
	}
	*s = RoleSetFromStrings(ss)
	return nil
}
