package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// helpModal closes on any key.
type helpModal struct {
	keys keyMap
}

func (m helpModal) Update(msg tea.Msg, _ keyMap) (Modal, tea.Cmd, bool) {
	_, isKey := msg.(tea.KeyMsg)
	return m, nil, isKey
}

func (m helpModal) View(theme Theme, width, height int) string {
	return renderHelp(theme, m.keys, width, height)
}
