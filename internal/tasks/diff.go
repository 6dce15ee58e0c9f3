package tasks

import "github.com/desertthunder/spotify-inbox/internal/models"

// DiffResult is the minimal change set that brings the inbox up to date.
type DiffResult struct {
	Unsorted    models.TrackSet `json:"unsorted"`      // saved tracks not filed in any owned playlist
	ToBeAdded   models.TrackSet `json:"to_be_added"`   // unsorted tracks missing from the inbox
	ToBeRemoved models.TrackSet `json:"to_be_removed"` // inbox tracks that have since been filed
}

// Diff computes the inbox change set from the saved set S, the owned-playlist set O and the inbox set I.
//
//	unsorted    = S - O
//	toBeAdded   = unsorted - I
//	toBeRemoved = I ∩ O
//
// Inbox tracks that are no longer saved are left in place. Inputs are not modified.
func Diff(saved, owned, inbox models.TrackSet) DiffResult {
	unsorted := saved.Difference(owned)
	return DiffResult{
		Unsorted:    unsorted,
		ToBeAdded:   unsorted.Difference(inbox),
		ToBeRemoved: inbox.Intersection(owned),
	}
}

// Empty reports whether applying the diff would change nothing.
func (d DiffResult) Empty() bool {
	return d.ToBeAdded.Len() == 0 && d.ToBeRemoved.Len() == 0
}
