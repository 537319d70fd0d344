package domain

// CandidateSet is an ordered collection of unique star identifiers drawn from
// one aperture photometry catalog. It shrinks monotonically under filtering
// and culling; the only growing operation is a full Reset.
type CandidateSet struct {
	order   []int
	present map[int]struct{}
}

// NewCandidateSet builds a set from the given IDs, preserving order and
// dropping duplicates.
func NewCandidateSet(ids []int) *CandidateSet {
	s := &CandidateSet{present: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		if _, ok := s.present[id]; ok {
			continue
		}
		s.present[id] = struct{}{}
		s.order = append(s.order, id)
	}
	return s
}

// Reset replaces the whole set with the given IDs.
func (s *CandidateSet) Reset(ids []int) {
	fresh := NewCandidateSet(ids)
	s.order = fresh.order
	s.present = fresh.present
}

// Has reports whether the ID is in the set.
func (s *CandidateSet) Has(id int) bool {
	_, ok := s.present[id]
	return ok
}

// Remove deletes the ID from the set and reports whether it was present.
func (s *CandidateSet) Remove(id int) bool {
	if _, ok := s.present[id]; !ok {
		return false
	}
	delete(s.present, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveAll deletes every given ID and reports whether any was present.
func (s *CandidateSet) RemoveAll(ids []int) bool {
	removed := false
	for _, id := range ids {
		if s.Remove(id) {
			removed = true
		}
	}
	return removed
}

// Keep retains only the IDs for which keep returns true.
func (s *CandidateSet) Keep(keep func(id int) bool) {
	kept := s.order[:0]
	for _, id := range s.order {
		if keep(id) {
			kept = append(kept, id)
			continue
		}
		delete(s.present, id)
	}
	s.order = kept
}

// IDs returns the IDs in insertion order. The slice is a copy.
func (s *CandidateSet) IDs() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of candidates.
func (s *CandidateSet) Len() int {
	return len(s.order)
}
