package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nudge/internal/prefs"
	"github.com/five82/nudge/internal/reminders"
	"github.com/five82/nudge/internal/remote"
	"github.com/five82/nudge/internal/state"
	"github.com/five82/nudge/internal/syncer"
)

// Editor is the part of the syncer coordinator the UI drives.
type Editor interface {
	View() state.View[reminders.Settings]
	Subscribe() (<-chan state.View[reminders.Settings], func())
	Edit(fn func(reminders.Settings) reminders.Settings, mode syncer.Mode)
	SetToggle(t syncer.Toggle[reminders.Settings], on bool)
	Retry() bool
	DismissError()
	DismissNotice()
}

// Options configures the UI.
type Options struct {
	// Context ends the program when cancelled.
	Context    context.Context
	Editor     Editor
	Prompter   *Prompter
	ThemeName  string
	MinuteStep int
	// Endpoint is shown in the header.
	Endpoint string
	// PrefsPath receives the theme when the user cycles it. Blank disables
	// saving.
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	editor    Editor
	prompter  *Prompter
	keys      keyMap
	step      int
	endpoint  string
	prefsPath string

	// UI state
	theme   Theme
	width   int
	height  int
	ready   bool
	cursor  rowKind
	spinner spinner.Model
	modal   Modal
	prompts []promptRequest

	// Data state
	view        state.View[reminders.Settings]
	updates     <-chan state.View[reminders.Settings]
	unsubscribe func()
}

// New creates the editor model and subscribes to the coordinator.
func New(opts Options) Model {
	step := opts.MinuteStep
	if step <= 0 {
		step = reminders.DefaultMinuteStep
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.DefaultTheme
	}
	theme := GetTheme(themeName)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))

	m := Model{
		editor:    opts.Editor,
		prompter:  opts.Prompter,
		keys:      DefaultKeyMap(),
		step:      step,
		endpoint:  opts.Endpoint,
		prefsPath: opts.PrefsPath,
		theme:     theme,
		spinner:   sp,
		cursor:    rowDailyToggle,
	}
	if m.editor != nil {
		m.view = m.editor.View()
		m.updates, m.unsubscribe = m.editor.Subscribe()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForView(m.updates),
		waitForPrompt(m.prompter),
		m.spinner.Tick,
	)
}

// Messages

type viewMsg state.View[reminders.Settings]

type viewClosedMsg struct{}

// Commands

func waitForView(updates <-chan state.View[reminders.Settings]) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-updates
		if !ok {
			return viewClosedMsg{}
		}
		return viewMsg(v)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case viewMsg:
		m.view = state.View[reminders.Settings](msg)
		m.cursor = settle(m.cursor, m.view.Draft)
		return m, waitForView(m.updates)

	case viewClosedMsg:
		m.view.Closed = true
		return m, nil

	case promptMsg:
		req := promptRequest(msg)
		if m.modal == nil {
			m.modal = promptModal{req: req}
		} else {
			m.prompts = append(m.prompts, req)
		}
		return m, waitForPrompt(m.prompter)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey routes keys to an open modal first, then to the editor.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
			if len(m.prompts) > 0 {
				m.modal = promptModal{req: m.prompts[0]}
				m.prompts = m.prompts[1:]
			}
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}
	if m.view.Closed {
		return m, nil
	}
	draft := m.view.Draft

	switch {
	case key.Matches(msg, m.keys.Help):
		m.modal = helpModal{keys: m.keys}

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefsPath != "" {
			_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name})
		}

	case key.Matches(msg, m.keys.Up):
		m.cursor = move(m.cursor, -1, draft)

	case key.Matches(msg, m.keys.Down):
		m.cursor = move(m.cursor, 1, draft)

	case key.Matches(msg, m.keys.Toggle):
		if t := rows[m.cursor].toggle; t != nil {
			m.editor.SetToggle(*t, !t.Get(draft))
			m.view = m.editor.View()
		}

	case key.Matches(msg, m.keys.Decrease):
		m.shift(-1)

	case key.Matches(msg, m.keys.Increase):
		m.shift(1)

	case key.Matches(msg, m.keys.Retry):
		if m.view.LastError != nil {
			m.editor.Retry()
			m.view = m.editor.View()
		}

	case key.Matches(msg, m.keys.Dismiss):
		switch {
		case m.view.LastError != nil:
			m.editor.DismissError()
		case m.view.Notice != nil:
			m.editor.DismissNotice()
		}
		m.view = m.editor.View()
	}
	m.cursor = settle(m.cursor, m.view.Draft)
	return m, nil
}

// shift applies one picker step as a debounced edit.
func (m *Model) shift(dir int) {
	r := rows[m.cursor]
	if r.shift == nil || !visible(m.cursor, m.view.Draft) {
		return
	}
	m.editor.Edit(r.shift(dir, m.step), syncer.Debounced)
	m.view = m.editor.View()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	// Open questions stay unanswered; Prompter.Close fails them so nothing
	// is recorded.
	m.modal = nil
	m.prompts = nil
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) renderMain() string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(m.renderHeader(styles))
	b.WriteString("\n\n")

	if banner := m.renderBanner(styles); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n\n")
	}

	for _, kind := range visibleRows(m.view.Draft) {
		b.WriteString(m.renderRow(styles, kind))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter(styles))
	return b.String()
}

func (m Model) renderHeader(styles Styles) string {
	title := styles.Logo.Render("nudge") + styles.MutedText.Render("  reminder settings")
	if m.endpoint != "" {
		title += styles.FaintText.Render("  " + m.endpoint)
	}
	return title + "  " + m.renderStatus(styles)
}

// renderStatus reflects the coordinator phase.
func (m Model) renderStatus(styles Styles) string {
	v := m.view
	switch {
	case v.Closed:
		return styles.MutedText.Render("closed")
	case v.Authorizing > 0:
		return m.spinner.View() + styles.InfoText.Render(" checking permission")
	case v.Saving || v.InFlight > 0:
		return m.spinner.View() + styles.InfoText.Render(" saving")
	case v.Phase == state.PhaseDirty:
		return styles.WarningText.Render("• unsaved changes")
	default:
		if v.UpdatedAt.IsZero() || v.Confirmed == 0 {
			return styles.MutedText.Render("up to date")
		}
		return styles.SuccessText.Render("✓ saved ") + styles.MutedText.Render(v.UpdatedAt.Format(time.Kitchen))
	}
}

func (m Model) renderBanner(styles Styles) string {
	if m.view.LastError != nil {
		return styles.ErrorBanner.Render(fmt.Sprintf("Couldn't save: %s", explain(m.view.LastError))) +
			styles.MutedText.Render("  r retry · x dismiss")
	}
	if m.view.Notice != nil {
		return styles.NoticeBanner.Render(m.view.Notice.Message()) +
			styles.MutedText.Render("  x dismiss")
	}
	return ""
}

// explain shortens persist errors for the banner.
func explain(err error) string {
	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	var persistErr *syncer.PersistError
	if errors.As(err, &persistErr) && persistErr.Err != nil {
		return persistErr.Err.Error()
	}
	return err.Error()
}

func (m Model) renderRow(styles Styles, kind rowKind) string {
	r := rows[kind]
	indent := ""
	if r.parent >= 0 {
		indent = "  "
	}
	label := lipgloss.NewStyle().Width(24).Render(indent + r.label)

	value := describe(kind, m.view.Draft)
	valueStyle := styles.Text
	switch {
	case kind == rowTimeZone:
		valueStyle = styles.FaintText
	case r.toggle != nil && r.toggle.Get(m.view.Draft):
		valueStyle = styles.SuccessText
	case r.toggle != nil:
		valueStyle = styles.MutedText
	case r.shift != nil:
		value = "‹ " + value + " ›"
	}

	if kind == m.cursor {
		return styles.Selected.Render("› " + label + value)
	}
	return "  " + styles.Text.Render(label) + valueStyle.Render(value)
}

func (m Model) renderFooter(styles Styles) string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		parts = append(parts, h.Key+" "+strings.ToLower(h.Desc))
	}
	return styles.Footer.Render(strings.Join(parts, " · "))
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context ends.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.unsubscribe != nil {
		fm.unsubscribe()
	}
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
