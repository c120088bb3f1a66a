package match

import "sort"

// Set is a set of strings.
type Set map[string]struct{}

// NewSet returns a set containing the given values.
func NewSet(vs ...string) Set {
	s := make(Set, len(vs))
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

func (s Set) Add(v string) {
	s[v] = struct{}{}
}

func (s Set) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Update adds all values of another set.
func (s Set) Update(other Set) {
	for v := range other {
		s.Add(v)
	}
}

// Clone returns a copy, safe to modify.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	c.Update(s)
	return c
}

// Sorted returns the values in lexicographic order.
func (s Set) Sorted() []string {
	result := make([]string, 0, len(s))
	for v := range s {
		result = append(result, v)
	}
	sort.Strings(result)
	return result
}
