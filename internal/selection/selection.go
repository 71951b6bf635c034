// Package selection holds the operator's bounded choice of studies.
package selection

import (
	"errors"
	"fmt"
	"slices"
)

// ErrLimitExceeded is returned when a selection would exceed the maximum.
var ErrLimitExceeded = errors.New("selection limit reached")

// Set is an insertion-ordered set of StudyInstanceUIDs holding at most Max
// entries; a Max of 0 means unbounded. It is not safe for concurrent use.
type Set struct {
	max  int
	uids []string
}

// New returns an empty Set holding at most limit studies.
func New(limit int) *Set {
	if limit < 0 {
		limit = 0
	}
	return &Set{max: limit}
}

// Max is the selection limit, 0 when unbounded.
func (s *Set) Max() int { return s.max }

// Len is the number of selected studies.
func (s *Set) Len() int { return len(s.uids) }

// Contains reports whether uid is selected.
func (s *Set) Contains(uid string) bool { return slices.Contains(s.uids, uid) }

// UIDs returns the selection in the order studies were added.
func (s *Set) UIDs() []string { return slices.Clone(s.uids) }

// Add selects uid. Adding a selected study is a no-op.
func (s *Set) Add(uid string) error {
	if s.Contains(uid) {
		return nil
	}
	if s.max > 0 && len(s.uids) >= s.max {
		return fmt.Errorf("%w: at most %d", ErrLimitExceeded, s.max)
	}
	s.uids = append(s.uids, uid)
	return nil
}

// Remove deselects uid.
func (s *Set) Remove(uid string) {
	if i := slices.Index(s.uids, uid); i >= 0 {
		s.uids = slices.Delete(s.uids, i, i+1)
	}
}

// Toggle flips uid and reports whether it is now selected.
func (s *Set) Toggle(uid string) (bool, error) {
	if s.Contains(uid) {
		s.Remove(uid)
		return false, nil
	}
	if err := s.Add(uid); err != nil {
		return false, err
	}
	return true, nil
}

// Replace sets the whole selection at once, dropping duplicates. On error
// the previous selection is kept.
func (s *Set) Replace(uids []string) error {
	next := New(s.max)
	for _, uid := range uids {
		if err := next.Add(uid); err != nil {
			return err
		}
	}
	s.uids = next.uids
	return nil
}

// Clear empties the selection.
func (s *Set) Clear() { s.uids = nil }
