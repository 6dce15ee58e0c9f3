package models

import (
	"encoding/json"
	"sort"
)

// TrackSet is a set of track identifiers. Insertion order is irrelevant.
type TrackSet map[TrackID]struct{}

// NewTrackSet builds a set from the given ids, collapsing duplicates.
func NewTrackSet(ids ...TrackID) TrackSet {
	s := make(TrackSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s TrackSet) Add(id TrackID) { s[id] = struct{}{} }

func (s TrackSet) Has(id TrackID) bool {
	_, ok := s[id]
	return ok
}

func (s TrackSet) Len() int { return len(s) }

// AddAll inserts every member of other into s.
func (s TrackSet) AddAll(other TrackSet) {
	for id := range other {
		s.Add(id)
	}
}

// Difference returns s - other.
func (s TrackSet) Difference(other TrackSet) TrackSet {
	out := make(TrackSet)
	for id := range s {
		if !other.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Intersection returns s ∩ other.
func (s TrackSet) Intersection(other TrackSet) TrackSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(TrackSet)
	for id := range small {
		if large.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Union returns s ∪ other.
func (s TrackSet) Union(other TrackSet) TrackSet {
	out := make(TrackSet, len(s)+len(other))
	out.AddAll(s)
	out.AddAll(other)
	return out
}

// SubsetOf reports whether every member of s is in other.
func (s TrackSet) SubsetOf(other TrackSet) bool {
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Equal reports set equality.
func (s TrackSet) Equal(other TrackSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

// Slice returns the members sorted lexically, giving deterministic batching and output.
func (s TrackSet) Slice() []TrackID {
	out := make([]TrackID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s TrackSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *TrackSet) UnmarshalJSON(data []byte) error {
	var ids []TrackID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewTrackSet(ids...)
	return nil
}
