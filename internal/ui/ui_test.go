package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
)

var testPlaylists = []models.PlaylistRef{
	{ID: "p1", Name: "Rock", OwnerID: "me", TrackCount: 10},
	{ID: "p2", Name: "Inbox", OwnerID: "me", TrackCount: 3},
	{ID: "p3", Name: "Jazz", OwnerID: "me"},
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func loadedModel(t *testing.T, currentID string) *Model {
	t.Helper()
	fetch := func(ctx context.Context) ([]models.PlaylistRef, error) { return testPlaylists, nil }
	m := NewModel(context.Background(), fetch, currentID)

	msg := m.Init()()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m.Update(msg)
	if m.view != PlaylistListView {
		t.Fatalf("expected list view after load, got %v", m.view)
	}
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestPicker(t *testing.T) {
	t.Run("loading view", func(t *testing.T) {
		m := NewModel(context.Background(), nil, "")
		if !strings.Contains(m.View(), "Loading") {
			t.Errorf("unexpected view %q", m.View())
		}
	})

	t.Run("current inbox is preselected and marked", func(t *testing.T) {
		m := loadedModel(t, "p2")
		item, ok := m.playlistList.SelectedItem().(playlistItem)
		if !ok || item.playlist.ID != "p2" || !item.current {
			t.Errorf("expected p2 selected, got %+v", item)
		}
		if !strings.Contains(m.View(), "Inbox ★") {
			t.Error("current inbox should be marked")
		}
	})

	t.Run("select and confirm", func(t *testing.T) {
		m := loadedModel(t, "")
		m.Update(keyRune('j'))
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != ConfirmView || m.candidate.ID != "p2" {
			t.Fatalf("expected confirm of p2, got view=%v candidate=%s", m.view, m.candidate.ID)
		}
		if !strings.Contains(m.View(), "Use Inbox as your inbox?") {
			t.Errorf("unexpected confirm view %q", m.View())
		}

		_, cmd := m.Update(keyRune('y'))
		if !isQuit(cmd) {
			t.Error("expected quit after confirmation")
		}
		selected, ok := m.Selected()
		if !ok || selected.ID != "p2" {
			t.Errorf("expected p2 selected, got %+v, %v", selected, ok)
		}
	})

	t.Run("decline returns to list", func(t *testing.T) {
		m := loadedModel(t, "")
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(keyRune('n'))
		if m.view != PlaylistListView {
			t.Errorf("expected list view, got %v", m.view)
		}
		if _, ok := m.Selected(); ok {
			t.Error("nothing should be selected")
		}
	})

	t.Run("quit without choice", func(t *testing.T) {
		m := loadedModel(t, "")
		_, cmd := m.Update(keyRune('q'))
		if !isQuit(cmd) {
			t.Error("expected quit")
		}
		if _, ok := m.Selected(); ok {
			t.Error("nothing should be selected")
		}
	})

	t.Run("fetch error ends the picker", func(t *testing.T) {
		boom := errors.New("offline")
		m := NewModel(context.Background(), func(ctx context.Context) ([]models.PlaylistRef, error) { return nil, boom }, "")

		_, cmd := m.Update(m.Init()())
		if !isQuit(cmd) || !errors.Is(m.Err(), boom) {
			t.Errorf("expected quit with error, got %v", m.Err())
		}
		if !strings.Contains(m.View(), "offline") {
			t.Errorf("expected error in view, got %q", m.View())
		}
	})

	t.Run("no playlists", func(t *testing.T) {
		m := NewModel(context.Background(), func(ctx context.Context) ([]models.PlaylistRef, error) { return nil, nil }, "")
		m.Update(m.Init()())
		if !errors.Is(m.Err(), shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", m.Err())
		}
	})
}

func TestPlaylistItem(t *testing.T) {
	items := playlistItems(testPlaylists, "p3")
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	jazz := items[2].(playlistItem)
	if jazz.Title() != "Jazz ★" || !strings.Contains(jazz.Description(), "current inbox") {
		t.Errorf("unexpected current item %q / %q", jazz.Title(), jazz.Description())
	}

	rock := items[0].(playlistItem)
	if rock.FilterValue() != "Rock" || rock.Description() != "10 items • p1" {
		t.Errorf("unexpected item %q / %q", rock.FilterValue(), rock.Description())
	}
}
