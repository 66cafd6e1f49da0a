// Package logging builds the logrus logger shared by nudge components and
// reads back the tail of its log file for "nudge logs".
//
// While the editor owns the terminal, logs go to a file so they do not tear
// the TUI. Components narrow the logger with WithField("component", ...).
package logging
