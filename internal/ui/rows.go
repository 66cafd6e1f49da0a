package ui

import (
	"fmt"

	"github.com/five82/nudge/internal/reminders"
	"github.com/five82/nudge/internal/syncer"
)

// rowKind identifies one line of the editor.
type rowKind int

const (
	rowDailyToggle rowKind = iota
	rowDailyTime
	rowWeeklyToggle
	rowWeeklyDay
	rowWeeklyTime
	rowBudgetToggle
	rowTimeZone
	rowCount
)

// row describes how a line reads and edits the settings.
type row struct {
	label  string
	toggle *syncer.Toggle[reminders.Settings]
	// parent is the toggle row a picker depends on; -1 for top-level rows.
	parent rowKind
	value  func(reminders.Settings) string
	// shift returns the debounced edit for one step in dir (-1 or +1).
	shift func(dir, step int) func(reminders.Settings) reminders.Settings
}

var rows = [rowCount]row{
	rowDailyToggle: {
		label:  "Daily jobs reminder",
		toggle: &reminders.DailyJobsToggle,
		parent: -1,
	},
	rowDailyTime: {
		label:  "Remind me at",
		parent: rowDailyToggle,
		value:  func(s reminders.Settings) string { return s.DailyJobsAt.String() },
		shift: func(dir, step int) func(reminders.Settings) reminders.Settings {
			return reminders.ShiftDailyJobs(dir * step)
		},
	},
	rowWeeklyToggle: {
		label:  "Weekly digest",
		toggle: &reminders.WeeklyDigestToggle,
		parent: -1,
	},
	rowWeeklyDay: {
		label:  "Send on",
		parent: rowWeeklyToggle,
		value:  func(s reminders.Settings) string { return s.WeeklyDigestDay.String() },
		shift: func(dir, _ int) func(reminders.Settings) reminders.Settings {
			return reminders.ShiftWeeklyDigestDay(dir)
		},
	},
	rowWeeklyTime: {
		label:  "Send at",
		parent: rowWeeklyToggle,
		value:  func(s reminders.Settings) string { return s.WeeklyDigestAt.String() },
		shift: func(dir, step int) func(reminders.Settings) reminders.Settings {
			return reminders.ShiftWeeklyDigest(dir * step)
		},
	},
	rowBudgetToggle: {
		label:  "Budget alerts",
		toggle: &reminders.BudgetAlertsToggle,
		parent: -1,
	},
	rowTimeZone: {
		label:  "Time zone",
		parent: -1,
		value: func(s reminders.Settings) string {
			if s.TimeZone == "" {
				return "(set by server)"
			}
			return s.TimeZone
		},
	},
}

// visible reports whether kind is shown for s. Pickers are hidden while
// their reminder is off.
func visible(kind rowKind, s reminders.Settings) bool {
	r := rows[kind]
	if r.parent < 0 {
		return true
	}
	return rows[r.parent].toggle.Get(s)
}

// visibleRows lists the rows shown for s in display order.
func visibleRows(s reminders.Settings) []rowKind {
	out := make([]rowKind, 0, rowCount)
	for kind := rowKind(0); kind < rowCount; kind++ {
		if visible(kind, s) {
			out = append(out, kind)
		}
	}
	return out
}

// settle moves the cursor off a hidden picker onto its toggle.
func settle(cursor rowKind, s reminders.Settings) rowKind {
	if cursor < 0 || cursor >= rowCount {
		return rowDailyToggle
	}
	if visible(cursor, s) {
		return cursor
	}
	return rows[cursor].parent
}

// move steps the cursor by delta among visible rows, stopping at the ends.
func move(cursor rowKind, delta int, s reminders.Settings) rowKind {
	shown := visibleRows(s)
	idx := 0
	for i, kind := range shown {
		if kind == cursor {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(shown) {
		idx = len(shown) - 1
	}
	return shown[idx]
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// describe renders the value column for kind.
func describe(kind rowKind, s reminders.Settings) string {
	r := rows[kind]
	if r.toggle != nil {
		return onOff(r.toggle.Get(s))
	}
	if r.value != nil {
		return r.value(s)
	}
	return fmt.Sprintf("row(%d)", int(kind))
}
