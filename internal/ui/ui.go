package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/shared"
)

// ViewState represents the current view in the picker.
type ViewState int

const (
	LoadingView ViewState = iota
	PlaylistListView
	ConfirmView
)

// FetchFunc loads the playlists offered by the picker.
type FetchFunc func(ctx context.Context) ([]models.PlaylistRef, error)

// Model represents the picker state.
type Model struct {
	ctx          context.Context
	view         ViewState
	fetch        FetchFunc
	currentID    string
	width        int
	height       int
	playlistList list.Model
	playlists    []models.PlaylistRef
	candidate    models.PlaylistRef
	selected     *models.PlaylistRef
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a picker that loads its playlists with fetch and marks currentID.
func NewModel(ctx context.Context, fetch FetchFunc, currentID string) *Model {
	return &Model{
		ctx:       ctx,
		view:      LoadingView,
		fetch:     fetch,
		currentID: currentID,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Selected returns the confirmed playlist, false when the picker was quit.
func (m *Model) Selected() (models.PlaylistRef, bool) {
	if m.selected == nil {
		return models.PlaylistRef{}, false
	}
	return *m.selected, true
}

// Err returns the fetch error that ended the picker, if any.
func (m *Model) Err() error {
	return m.err
}

// Init starts loading playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view != LoadingView {
			m.playlistList.SetSize(listSize(m.width, m.height))
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgPlaylistsFetched:
			return m.handlePlaylistsFetched(msg.data.(playlistsFetched))
		}
	}

	if m.view == PlaylistListView {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handlePlaylistsFetched(data playlistsFetched) (tea.Model, tea.Cmd) {
	if data.err != nil {
		m.err = data.err
		return m, tea.Quit
	}
	if len(data.playlists) == 0 {
		m.err = fmt.Errorf("%w: no owned playlists to choose from", shared.ErrPlaylistNotFound)
		return m, tea.Quit
	}

	m.playlists = data.playlists
	m.playlistList = list.New(playlistItems(data.playlists, m.currentID), list.NewDefaultDelegate(), 0, 0)
	m.playlistList.Title = "Choose your inbox playlist"
	m.playlistList.SetShowHelp(false)
	m.playlistList.SetSize(listSize(m.width, m.height))

	for i, p := range data.playlists {
		if p.ID == m.currentID {
			m.playlistList.Select(i)
			break
		}
	}
	m.view = PlaylistListView
	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.candidate = item.playlist
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		selected := m.candidate
		m.selected = &selected
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	switch m.view {
	case LoadingView:
		return styles.help.Render("Loading playlists...") + "\n"
	case PlaylistListView:
		return m.playlistList.View() + "\n" + m.help.View(m.keys)
	case ConfirmView:
		return m.renderConfirm()
	default:
		return ""
	}
}

func (m *Model) renderConfirm() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Confirm inbox") + "\n")
	fmt.Fprintf(&b, "Use %s as your inbox?\n", styles.ok.Render(m.candidate.Name))
	fmt.Fprintf(&b, "%s\n\n", styles.help.Render(fmt.Sprintf("%s • %d items", m.candidate.ID, m.candidate.TrackCount)))
	if m.candidate.TrackCount > 0 && m.candidate.ID != m.currentID {
		b.WriteString(styles.warn.Render("Tracks already filed in other playlists will be removed from it on the next sync.") + "\n\n")
	}
	b.WriteString(m.help.ShortHelpView(m.keys.confirmHelp()))
	return b.String()
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.fetch(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func listSize(width, height int) (int, int) {
	return max(width-4, 20), max(height-4, 10)
}

// Pick runs the picker on the terminal and returns the confirmed playlist.
//
// Quitting without a choice returns [shared.ErrCancelled].
func Pick(ctx context.Context, fetch FetchFunc, currentID string) (models.PlaylistRef, error) {
	model := NewModel(ctx, fetch, currentID)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run(); err != nil {
		return models.PlaylistRef{}, fmt.Errorf("picker failed: %w", err)
	}
	if err := model.Err(); err != nil {
		return models.PlaylistRef{}, err
	}
	selected, ok := model.Selected()
	if !ok {
		return models.PlaylistRef{}, shared.ErrCancelled
	}
	return selected, nil
}
