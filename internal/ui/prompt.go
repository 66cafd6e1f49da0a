package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrPromptClosed is returned by Prompt once the UI has gone away.
var ErrPromptClosed = errors.New("ui: permission prompt closed")

// promptRequest is one question waiting for the user.
type promptRequest struct {
	kind  string
	reply chan bool
}

// Prompter asks capability questions through the editor's modal. It
// satisfies capability.Prompter.
type Prompter struct {
	requests  chan promptRequest
	done      chan struct{}
	closeOnce sync.Once
}

// NewPrompter returns a Prompter. Attach it to the Model via Options.
func NewPrompter() *Prompter {
	return &Prompter{
		requests: make(chan promptRequest),
		done:     make(chan struct{}),
	}
}

// Prompt blocks until the user answers, ctx ends, or the prompter closes.
func (p *Prompter) Prompt(ctx context.Context, kind string) (bool, error) {
	req := promptRequest{kind: kind, reply: make(chan bool, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.done:
		return false, ErrPromptClosed
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.done:
		return false, ErrPromptClosed
	}
}

// Close fails pending and future prompts.
func (p *Prompter) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

type promptMsg promptRequest

// waitForPrompt delivers the next question to the model.
func waitForPrompt(p *Prompter) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case req := <-p.requests:
			return promptMsg(req)
		case <-p.done:
			return nil
		}
	}
}

// promptModal is the permission question overlay.
type promptModal struct {
	req promptRequest
}

// Update answers on y/n. Other keys are swallowed while the modal is open.
func (m promptModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Allow):
		m.req.reply <- true
		return m, nil, true
	case key.Matches(keyMsg, keys.Deny):
		m.req.reply <- false
		return m, nil, true
	}
	return m, nil, false
}

func (m promptModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Permission needed"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(fmt.Sprintf("Allow nudge to use %s?", humanize(m.req.kind))))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Your answer is remembered."))
	b.WriteString("\n\n")
	b.WriteString(styles.SuccessText.Render("y"))
	b.WriteString(styles.Text.Render(" allow   "))
	b.WriteString(styles.DangerText.Render("n"))
	b.WriteString(styles.Text.Render(" don't allow"))

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		styles.Modal.Width(44).Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

func humanize(kind string) string {
	return strings.ReplaceAll(strings.TrimSpace(kind), "_", " ")
}
