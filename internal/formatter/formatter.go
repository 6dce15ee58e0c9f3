// package formatter renders sync reports, playlists and cache entries as terminal text
package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/repositories"
	"github.com/desertthunder/spotify-inbox/internal/tasks"
)

const rule = "═══════════════════════════════════════"

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Italic(true)
	labelStyle = lipgloss.NewStyle().Width(18)
)

func header(buf *bytes.Buffer, title string) {
	buf.WriteString(rule + "\n")
	buf.WriteString(titleStyle.Render(title) + "\n")
	buf.WriteString(rule + "\n")
}

func field(buf *bytes.Buffer, label string, value any) {
	fmt.Fprintf(buf, "%s%v\n", labelStyle.Render(label+":"), value)
}

// FormatReport renders the summary printed after a sync run.
func FormatReport(report *tasks.SyncReport) []byte {
	var buf bytes.Buffer

	title := "Sync report"
	if report.DryRun {
		title += " (dry run)"
	}
	header(&buf, title)

	field(&buf, "User", userLabel(report.User))
	field(&buf, "Inbox", fmt.Sprintf("%s (%s)", report.Inbox.Name, report.Inbox.ID))

	source := "downloaded"
	if report.SavedFromCache {
		source = "cached"
	}
	field(&buf, "Saved tracks", fmt.Sprintf("%d (%s)", report.SavedCount, source))
	field(&buf, "Owned playlists", fmt.Sprintf("%d (%d tracks)", report.OwnedPlaylists, report.OwnedTrackCount))
	field(&buf, "Playlist cache", fmt.Sprintf("%d hits, %d fetched", report.Resolve.CacheHits, report.Resolve.Fetched))
	field(&buf, "Unsorted", report.Unsorted)
	field(&buf, "Inbox", fmt.Sprintf("%d → %d", report.InboxBefore, report.InboxAfter))
	buf.WriteString("\n")

	if report.Diff.Empty() {
		buf.WriteString(okStyle.Render("✓ Inbox already in sync") + "\n")
	} else {
		writeBatchReport(&buf, "Added", report.Added, report.DryRun)
		writeBatchReport(&buf, "Removed", report.Removed, report.DryRun)
	}

	buf.WriteString("\n")
	buf.WriteString(mutedStyle.Render(fmt.Sprintf("run %s finished in %s", report.RunID, report.Duration.Round(time.Millisecond))) + "\n")
	return buf.Bytes()
}

func writeBatchReport(buf *bytes.Buffer, label string, r tasks.BatchReport, dryRun bool) {
	switch {
	case r.Requested == 0:
		fmt.Fprintf(buf, "%s %s: nothing to do\n", mutedStyle.Render("·"), label)
	case dryRun:
		fmt.Fprintf(buf, "%s %s: %d pending\n", warnStyle.Render("→"), label, r.Requested)
	case r.OK():
		fmt.Fprintf(buf, "%s %s: %d tracks in %d batches\n", okStyle.Render("✓"), label, r.Applied, r.Batches)
	default:
		fmt.Fprintf(buf, "%s %s: %d of %d tracks, %d of %d batches failed\n",
			errStyle.Render("✗"), label, r.Applied, r.Requested, len(r.Failures), r.Batches)
		for _, f := range r.Failures {
			fmt.Fprintf(buf, "    batch %d (%d tracks): %v\n", f.Index+1, f.Size, f.Err)
		}
	}

	if len(r.Skipped) > 0 {
		fmt.Fprintf(buf, "    %s\n", warnStyle.Render(fmt.Sprintf("%d invalid ids skipped", len(r.Skipped))))
	}
}

func userLabel(u models.User) string {
	if u.DisplayName == "" || u.DisplayName == u.ID {
		return u.ID
	}
	return fmt.Sprintf("%s (%s)", u.DisplayName, u.ID)
}

// FormatUser renders the current user profile.
func FormatUser(user *models.User) []byte {
	var buf bytes.Buffer
	header(&buf, userLabel(*user))
	field(&buf, "ID", user.ID)
	if user.Email != "" {
		field(&buf, "Email", user.Email)
	}
	if user.Country != "" {
		field(&buf, "Country", user.Country)
	}
	if user.Product != "" {
		field(&buf, "Product", user.Product)
	}
	return buf.Bytes()
}

// FormatPlaylists renders playlists in the given order, marking the inbox and playlists not owned by userID.
func FormatPlaylists(playlists []models.PlaylistRef, userID, inboxID string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Found %d playlists:\n\n", len(playlists))

	for i, p := range playlists {
		var tags []string
		if p.ID == inboxID {
			tags = append(tags, okStyle.Render("inbox"))
		}
		if !p.OwnedBy(userID) {
			tags = append(tags, mutedStyle.Render("followed"))
		}
		if p.Collaborative {
			tags = append(tags, mutedStyle.Render("collaborative"))
		}

		name := p.Name
		if len(tags) > 0 {
			name = fmt.Sprintf("%s [%s]", name, strings.Join(tags, ", "))
		}
		fmt.Fprintf(&buf, "%d. %s\n", i+1, name)
		fmt.Fprintf(&buf, "   ID: %s\n", p.ID)
		fmt.Fprintf(&buf, "   Tracks: %d\n", p.TrackCount)
	}
	return buf.Bytes()
}

// FormatInbox renders the located inbox playlist.
func FormatInbox(inbox models.PlaylistRef) []byte {
	var buf bytes.Buffer
	header(&buf, "Inbox: "+inbox.Name)
	field(&buf, "ID", inbox.ID)
	field(&buf, "Items", inbox.TrackCount)
	field(&buf, "Snapshot", inbox.SnapshotID)
	return buf.Bytes()
}

// FormatCacheEntries renders the cached playlists found at location.
func FormatCacheEntries(entries []repositories.Entry, location string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d cached playlists in %s\n", len(entries), location)
	if len(entries) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("\n")
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s\n", titleStyle.Render(e.Name), mutedStyle.Render(e.ID))
		fmt.Fprintf(&buf, "   Items: %d  Snapshot: %s  Cached: %s\n", e.Items, e.SnapshotID, e.CachedAt.Local().Format(time.DateTime))
	}
	return buf.Bytes()
}
