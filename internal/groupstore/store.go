// Package groupstore holds the current duplicate scan result and applies
// member removals while keeping every group at two or more members.
package groupstore

import (
	"fmt"
	"slices"
	"sync"

	"dupefinder/internal/scanresult"
	"dupefinder/internal/services"
)

// MutationOutcome describes a successful RemoveMember call.
type MutationOutcome struct {
	Path            string
	GroupRemoved    bool
	RemainingGroups int
}

// Store is safe for concurrent use. Mutations are serialized and readers
// observe either the state before or after a mutation.
type Store struct {
	mu     sync.RWMutex
	result scanresult.Result
	loaded bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Load replaces the held result. Groups with fewer than two members are
// discarded.
func (s *Store) Load(result scanresult.Result) {
	result = result.Clone()
	groups := result.Groups[:0:0]
	for _, g := range result.Groups {
		if g.Len() >= 2 {
			groups = append(groups, g)
		}
	}
	result.Groups = groups

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.loaded = true
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = scanresult.Result{}
	s.loaded = false
}

// Loaded reports whether a result is held.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Snapshot returns a deep copy of the held result.
func (s *Store) Snapshot() scanresult.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result.Clone()
}

// Len returns the number of groups.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.result.Groups)
}

// GroupCount is an alias of Len kept for symmetry with scanresult.Result.
func (s *Store) GroupCount() int {
	return s.Len()
}

// TotalDuplicates is recomputed from the live group list.
func (s *Store) TotalDuplicates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result.TotalDuplicates()
}

// Group returns a copy of group g.
func (s *Store) Group(g int) (scanresult.DuplicateGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkGroup(g); err != nil {
		return scanresult.DuplicateGroup{}, err
	}
	return s.result.Groups[g].Clone(), nil
}

// Member returns the path at group g, member m.
func (s *Store) Member(g, m int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkMember(g, m); err != nil {
		return "", err
	}
	return s.result.Groups[g].Files[m], nil
}

// Find locates path, returning its group and member indices.
func (s *Store) Find(path string) (g, m int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for gi, group := range s.result.Groups {
		if mi := slices.Index(group.Files, path); mi >= 0 {
			return gi, mi, true
		}
	}
	return -1, -1, false
}

// RemoveMember removes one path. A group left with fewer than two members is
// removed entirely and later groups shift down by one.
func (s *Store) RemoveMember(g, m int) (MutationOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMember(g, m); err != nil {
		return MutationOutcome{}, err
	}
	return s.removeLocked(g, m), nil
}

// RemoveMemberIf removes member m of group g only while it still holds path.
func (s *Store) RemoveMemberIf(g, m int, path string) (MutationOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMember(g, m); err != nil {
		return MutationOutcome{}, err
	}
	if current := s.result.Groups[g].Files[m]; current != path {
		return MutationOutcome{}, services.Wrap(services.ErrIndexOutOfRange, "groupstore", "remove member",
			fmt.Sprintf("group %d member %d now holds %q, not %q", g, m, current, path), nil)
	}
	return s.removeLocked(g, m), nil
}

// RemovePath removes the first occurrence of path.
func (s *Store) RemovePath(path string) (MutationOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for gi, group := range s.result.Groups {
		if mi := slices.Index(group.Files, path); mi >= 0 {
			return s.removeLocked(gi, mi), nil
		}
	}
	return MutationOutcome{}, services.Wrap(services.ErrIndexOutOfRange, "groupstore", "remove path",
		fmt.Sprintf("%q is not in any duplicate group", path), nil)
}

func (s *Store) removeLocked(g, m int) MutationOutcome {
	group := s.result.Groups[g]
	outcome := MutationOutcome{Path: group.Files[m]}
	files := slices.Delete(slices.Clone(group.Files), m, m+1)
	if len(files) < 2 {
		s.result.Groups = slices.Delete(s.result.Groups, g, g+1)
		outcome.GroupRemoved = true
	} else {
		s.result.Groups[g] = scanresult.DuplicateGroup{Files: files, Hash: group.Hash}
	}
	outcome.RemainingGroups = len(s.result.Groups)
	return outcome
}

func (s *Store) checkGroup(g int) error {
	if g < 0 || g >= len(s.result.Groups) {
		return services.Wrap(services.ErrIndexOutOfRange, "groupstore", "lookup",
			fmt.Sprintf("group %d out of range [0,%d)", g, len(s.result.Groups)), nil)
	}
	return nil
}

func (s *Store) checkMember(g, m int) error {
	if err := s.checkGroup(g); err != nil {
		return err
	}
	if n := len(s.result.Groups[g].Files); m < 0 || m >= n {
		return services.Wrap(services.ErrIndexOutOfRange, "groupstore", "lookup",
			fmt.Sprintf("member %d out of range [0,%d) in group %d", m, n, g), nil)
	}
	return nil
}
