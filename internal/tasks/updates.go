package tasks

import (
	"fmt"

	"github.com/desertthunder/spotify-inbox/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Sync phase enumeration
type Phase int

const (
	FetchUser Phase = iota
	FetchPlaylists
	FindInboxPlaylist
	FetchSaved
	ResolvePlaylists
	ResolveInbox
	ComputeDiff
	ApplyAdditions
	ApplyRemovals
	Report
)

func (p Phase) String() string {
	switch p {
	case FetchUser:
		return "fetch_user"
	case FetchPlaylists:
		return "fetch_playlists"
	case FindInboxPlaylist:
		return "find_inbox"
	case FetchSaved:
		return "fetch_saved"
	case ResolvePlaylists:
		return "resolve_playlists"
	case ResolveInbox:
		return "resolve_inbox"
	case ComputeDiff:
		return "diff"
	case ApplyAdditions:
		return "apply_additions"
	case ApplyRemovals:
		return "apply_removals"
	case Report:
		return "report"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

func fetchUserUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchUser, Step: 0, Total: 1, Message: "Fetching current user..."}
}

func fetchPlaylistsUpdate(user *models.User) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlists of %s...", user.ID),
	}
}

func foundInboxUpdate(inbox models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FindInboxPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found inbox: %s (%d items)", inbox.Name, inbox.TrackCount),
		Data:    inbox,
	}
}

func fetchSavedUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{Phase: FetchSaved, Step: step, Total: total, Message: "Fetching saved tracks..."}
}

func fetchedSavedUpdate(count int, fromCache bool) ProgressUpdate {
	source := "downloaded"
	if fromCache {
		source = "from cache"
	}
	return ProgressUpdate{
		Phase:   FetchSaved,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d saved tracks (%s)", count, source),
	}
}

func resolveUpdate(phase Phase, step, total int, ref models.PlaylistRef, cached bool) ProgressUpdate {
	marker := "fetched"
	if cached {
		marker = "cached"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%s)", step, total, ref.Name, marker),
	}
}

func diffUpdate(diff DiffResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ComputeDiff,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d unsorted, %d ++ / %d --", diff.Unsorted.Len(), diff.ToBeAdded.Len(), diff.ToBeRemoved.Len()),
		Data:    diff,
	}
}

func batchUpdate(phase Phase, step, total, size int, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   phase,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ batch of %d: %v", step, total, size, err),
		}
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ batch of %d", step, total, size),
	}
}

func reportUpdate(report *SyncReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Report,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sync finished in %s", report.Duration.Round(1e6)),
		Data:    report,
	}
}
