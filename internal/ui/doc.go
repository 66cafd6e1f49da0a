// Package ui provides the terminal editor for reminder settings.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program over a syncer coordinator. It never talks to
// the settings API itself: every key press becomes a coordinator call (Edit,
// SetToggle, Retry, DismissError, DismissNotice) and every redraw comes from a
// state.View delivered on the coordinator's subscription channel.
//
// # Package Structure
//
//   - model.go: Model, Update/View, the Editor interface and Run
//   - rows.go: the editable lines, their visibility and how they edit settings
//   - prompt.go: Prompter, the interactive capability prompt, and its modal
//   - keys.go: key bindings via bubbles/key
//   - help.go, modal.go: overlays
//   - theme.go: Lipgloss themes
//
// # Rows
//
//	Daily jobs reminder   on/off   (space toggles, saved immediately)
//	  Remind me at        ‹08:00›  (h/l adjust, debounced)
//	Weekly digest         on/off
//	  Send on             ‹Monday›
//	  Send at             ‹09:00›
//	Budget alerts         on/off
//	Time zone             read-only, set by the server
//
// Pickers are hidden while their reminder is off. When a permission denial
// turns a reminder back off, its pickers disappear and the cursor moves to the
// toggle.
//
// # Status And Alerts
//
// The header shows a spinner while a gate check or save is outstanding,
// "unsaved changes" during the quiet period, and the time of the last
// confirmed save otherwise. A failed save shows an error banner (r retries,
// x dismisses); a denial shows a notice banner.
//
// # Permission Prompts
//
// Prompter implements capability.Prompter. Each question is delivered to the
// model as a message and shown as a modal answered with y or n. Quitting with
// a question open leaves it unanswered; closing the Prompter fails it, so no
// answer is recorded.
package ui
