// Package browse is a terminal browser over the figure collection.
//
// The list grows the way the web page does: once the last row is on screen the
// sentinel counts as visible and the feed is asked for the next page.
package browse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/feed"
)

// DetailLoader fetches one figure
type DetailLoader interface {
	ByID(ctx context.Context, id string) catalog.Result[catalog.FigureDetails]
}

// Options configures the browser
type Options struct {
	Context   context.Context
	Feed      *feed.Feed
	Details   DetailLoader
	PrefsPath string
	Logger    zerolog.Logger
}

// Model is the bubbletea model of the browser
type Model struct {
	ctx       context.Context
	feed      *feed.Feed
	details   DetailLoader
	prefsPath string
	logger    zerolog.Logger
	keys      keyMap
	styles    styles

	width      int
	height     int
	selected   int
	showSealed bool
	showHelp   bool

	status string
	failed bool

	detail      *catalog.FigureDetails
	detailError string
}

// New creates the browser model. The show-sealed preference is read from PrefsPath.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	return Model{
		ctx:        ctx,
		feed:       opts.Feed,
		details:    opts.Details,
		prefsPath:  opts.PrefsPath,
		logger:     opts.Logger,
		keys:       defaultKeyMap(),
		styles:     defaultStyles(),
		showSealed: LoadPrefs(opts.PrefsPath).ShowSealed,
	}
}

// Messages

type batchMsg struct {
	batch feed.Batch
	err   error
}

type detailMsg struct {
	result catalog.Result[catalog.FigureDetails]
}

// Commands

func loadMoreCmd(ctx context.Context, f *feed.Feed) tea.Cmd {
	return func() tea.Msg {
		batch, err := f.Visible(ctx)
		return batchMsg{batch: batch, err: err}
	}
}

func loadDetailCmd(ctx context.Context, loader DetailLoader, id string) tea.Cmd {
	return func() tea.Msg {
		return detailMsg{result: loader.ByID(ctx, id)}
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.sentinelCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case batchMsg:
		return m.handleBatch(msg), nil

	case detailMsg:
		if msg.result.OK() {
			figure := msg.result.Data
			m.detail = &figure
			m.detailError = ""
		} else {
			m.detail = nil
			m.detailError = msg.result.Message
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.detail = nil
		m.detailError = ""
		return m, nil
	}

	if m.detail != nil || m.detailError != "" {
		return m, nil
	}

	items := m.visible()
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(items)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = max(len(items)-1, 0)
	case key.Matches(msg, m.keys.PageDown):
		m.selected = min(m.selected+m.listHeight(), max(len(items)-1, 0))
	case key.Matches(msg, m.keys.ToggleSealed):
		m.showSealed = !m.showSealed
		m.selected = min(m.selected, max(len(m.visible())-1, 0))
		if err := SavePrefs(m.prefsPath, Prefs{ShowSealed: m.showSealed}); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to save browser preferences")
		}
	case key.Matches(msg, m.keys.Open):
		if len(items) == 0 || m.details == nil {
			return m, nil
		}
		return m, loadDetailCmd(m.ctx, m.details, items[m.selected].ID)
	default:
		return m, nil
	}

	return m, m.sentinelCmd()
}

func (m Model) handleBatch(msg batchMsg) Model {
	switch {
	case errors.Is(msg.err, feed.ErrLoading), errors.Is(msg.err, feed.ErrExhausted):
		return m
	case msg.err != nil:
		m.status, m.failed = msg.err.Error(), true
	case msg.batch.Failed():
		m.status, m.failed = msg.batch.Message, true
	default:
		m.status = fmt.Sprintf("Loaded page %d (%d figures)", msg.batch.Page, len(msg.batch.Appended))
		m.failed = false
	}
	return m
}

// sentinelCmd loads the next page when the last row is on screen
func (m Model) sentinelCmd() tea.Cmd {
	if m.feed == nil || m.feed.Loading() || !m.feed.HasMore() {
		return nil
	}
	if m.windowStart()+m.listHeight() < len(m.visible()) {
		return nil
	}
	return loadMoreCmd(m.ctx, m.feed)
}

// windowStart is the first list row on screen; the window follows the cursor
func (m Model) windowStart() int {
	if height := m.listHeight(); m.selected >= height {
		return m.selected - height + 1
	}
	return 0
}

func (m Model) visible() []catalog.FigureCard {
	if m.feed == nil {
		return nil
	}
	return m.feed.Filtered(m.showSealed)
}

func (m Model) listHeight() int {
	// title, blank line, status and help
	return max(m.height-4, 1)
}

// View implements tea.Model
func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}
	if m.detail != nil || m.detailError != "" {
		return m.renderDetail()
	}
	return m.renderList()
}

func (m Model) renderList() string {
	var b strings.Builder

	title := "figureshelf"
	if !m.showSealed {
		title += " (sealed hidden)"
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n")

	items := m.visible()
	if len(items) == 0 {
		b.WriteString(m.styles.Muted.Render("No figures"))
		b.WriteString("\n")
	}

	start := m.windowStart()
	end := min(len(items), start+m.listHeight())

	for i := start; i < end; i++ {
		card := items[i]
		line := fmt.Sprintf("%s · %s [%s]", card.Name, card.ManufacturerName, card.Status)
		if card.IsSealed {
			line += " " + m.styles.Sealed.Render("sealed")
		}
		if i == m.selected {
			b.WriteString(m.styles.Selected.Render("› " + line))
		} else {
			b.WriteString(m.styles.Row.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatus())
	return b.String()
}

func (m Model) renderStatus() string {
	var status string
	switch {
	case m.feed != nil && m.feed.Loading():
		status = m.styles.Muted.Render("Loading…")
	case m.failed:
		status = m.styles.Error.Render(m.status)
	case m.status != "":
		status = m.styles.Status.Render(m.status)
	case m.feed != nil && !m.feed.HasMore():
		status = m.styles.Muted.Render("End of collection")
	}
	return status + "\n" + m.styles.Muted.Render("? help · s sealed · q quit")
}

func (m Model) renderDetail() string {
	var b strings.Builder

	if m.detailError != "" {
		b.WriteString(m.styles.Error.Render(m.detailError))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render("esc back"))
		return b.String()
	}

	f := m.detail
	b.WriteString(m.styles.Title.Render(f.Name))
	b.WriteString("\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(m.styles.Label.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Character", f.CharacterName)
	row("Maker", f.ManufacturerName)
	row("Status", string(f.Status))
	row("Type", f.FigureType)
	if f.ScaleRatio != nil {
		row("Scale", *f.ScaleRatio)
	}
	row("Dimensions", catalog.FormatDimensions(f.Dimensions))
	if f.Description != nil {
		row("About", *f.Description)
	}
	if f.IsSealed {
		b.WriteString(m.styles.Sealed.Render("Sealed"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("esc back"))
	return b.String()
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Keys"))
	b.WriteString("\n")
	for _, binding := range m.keys.helpBindings() {
		h := binding.Help()
		b.WriteString(m.styles.Label.Render(h.Key))
		b.WriteString(h.Desc)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("any key to close"))
	return b.String()
}

// Run starts the browser
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := p.Run()
	return err
}
