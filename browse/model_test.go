package browse

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/feed"
)

type pageLoader struct {
	mu    sync.Mutex
	pages map[int]catalog.Result[catalog.FigurePage]
	calls []int
}

func (l *pageLoader) Paginated(_ context.Context, q catalog.PageQuery) catalog.Result[catalog.FigurePage] {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, q.Page)
	if r, ok := l.pages[q.Page]; ok {
		return r
	}
	return catalog.Fail[catalog.FigurePage](catalog.MsgFiguresUnavailable)
}

type detailLoader map[string]catalog.FigureDetails

func (d detailLoader) ByID(_ context.Context, id string) catalog.Result[catalog.FigureDetails] {
	if f, ok := d[id]; ok {
		return catalog.Ok(f)
	}
	return catalog.Fail[catalog.FigureDetails](catalog.MsgFigureNotFound)
}

func page(hasMore bool, cards ...catalog.FigureCard) catalog.Result[catalog.FigurePage] {
	return catalog.Ok(catalog.FigurePage{Figures: cards, Pagination: catalog.Pagination{HasMore: hasMore}})
}

func card(id string, sealed bool) catalog.FigureCard {
	return catalog.FigureCard{ID: id, Name: "Figure " + id, ManufacturerName: "Good Smile", Status: catalog.StatusAvailable, IsSealed: sealed}
}

func newTestModel(t *testing.T, loader *pageLoader, first catalog.FigurePage) Model {
	t.Helper()
	f := feed.New(loader, first, 8, zerolog.Nop())
	return New(Options{
		Feed:      f,
		Details:   detailLoader{"a": {ID: "a", Name: "Figure a", Status: catalog.StatusAvailable}},
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		Logger:    zerolog.Nop(),
	})
}

// send delivers msg and runs the returned command once, feeding its message back
func send(m Model, msg tea.Msg) Model {
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	out := cmd()
	if out == nil {
		return m
	}
	if _, quit := out.(tea.QuitMsg); quit {
		return m
	}
	next, _ = m.Update(out)
	return next.(Model)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_ReachingTheEndLoadsNextPage(t *testing.T) {
	loader := &pageLoader{pages: map[int]catalog.Result[catalog.FigurePage]{
		2: page(false, card("d", false), card("e", false)),
	}}
	first := catalog.FigurePage{
		Figures:    []catalog.FigureCard{card("a", false), card("b", false), card("c", false)},
		Pagination: catalog.Pagination{HasMore: true},
	}
	m := newTestModel(t, loader, first)
	m.showSealed = true

	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 40})
	assert.Equal(t, []int{2}, loader.calls, "a short list shows the last row right away")
	assert.Len(t, m.visible(), 5)
	assert.Contains(t, m.View(), "Loaded page 2")

	m = send(m, keyMsg("G"))
	assert.Equal(t, []int{2}, loader.calls, "exhausted feed is not fetched again")
	assert.Contains(t, m.View(), "Figure e")
}

func TestModel_FarFromEndDoesNotLoad(t *testing.T) {
	cards := make([]catalog.FigureCard, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		cards = append(cards, card(id, false))
	}
	loader := &pageLoader{pages: map[int]catalog.Result[catalog.FigurePage]{2: page(false)}}
	m := newTestModel(t, loader, catalog.FigurePage{Figures: cards, Pagination: catalog.Pagination{HasMore: true}})
	m.showSealed = true

	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 6})
	m = send(m, keyMsg("down"))
	assert.Empty(t, loader.calls)
	assert.Equal(t, 1, m.selected)
}

func TestModel_FailureKeepsListAndShowsMessage(t *testing.T) {
	loader := &pageLoader{pages: map[int]catalog.Result[catalog.FigurePage]{}}
	m := newTestModel(t, loader, catalog.FigurePage{
		Figures:    []catalog.FigureCard{card("a", false)},
		Pagination: catalog.Pagination{HasMore: true},
	})
	m.showSealed = true

	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Len(t, m.visible(), 1)
	assert.True(t, m.failed)
	assert.Contains(t, m.View(), catalog.MsgFiguresUnavailable)
	assert.True(t, m.feed.HasMore())
}

func TestModel_ToggleSealedPersists(t *testing.T) {
	loader := &pageLoader{}
	m := newTestModel(t, loader, catalog.FigurePage{
		Figures:    []catalog.FigureCard{card("a", false), card("b", true)},
		Pagination: catalog.Pagination{HasMore: false},
	})
	require.False(t, m.showSealed, "sealed figures are hidden by default")
	assert.Len(t, m.visible(), 1)

	m = send(m, keyMsg("s"))
	assert.True(t, m.showSealed)
	assert.Len(t, m.visible(), 2)
	assert.Contains(t, m.View(), "sealed")

	assert.True(t, LoadPrefs(m.prefsPath).ShowSealed)

	reopened := New(Options{Feed: m.feed, PrefsPath: m.prefsPath})
	assert.True(t, reopened.showSealed)
}

func TestModel_Detail(t *testing.T) {
	loader := &pageLoader{}
	m := newTestModel(t, loader, catalog.FigurePage{
		Figures: []catalog.FigureCard{card("a", false), card("z", false)},
	})

	m = send(m, keyMsg("enter"))
	require.NotNil(t, m.detail)
	assert.Contains(t, m.View(), "Figure a")

	m = send(m, keyMsg("esc"))
	assert.Nil(t, m.detail)

	m = send(m, keyMsg("down"))
	m = send(m, keyMsg("enter"))
	assert.Nil(t, m.detail)
	assert.Contains(t, m.View(), catalog.MsgFigureNotFound)
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := newTestModel(t, &pageLoader{}, catalog.FigurePage{})

	m = send(m, keyMsg("?"))
	assert.Contains(t, m.View(), "Show/hide sealed")
	m = send(m, keyMsg("x"))
	assert.False(t, m.showHelp)

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")

	assert.Equal(t, Prefs{}, LoadPrefs(path), "missing file yields defaults")

	require.NoError(t, SavePrefs(path, Prefs{ShowSealed: true}))
	assert.Equal(t, Prefs{ShowSealed: true}, LoadPrefs(path))

	t.Setenv("HOME", t.TempDir())
	resolved, err := resolvePath("~/prefs.toml")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))
	assert.Equal(t, "prefs.toml", filepath.Base(resolved))
}
