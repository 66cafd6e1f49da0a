// Package reminders defines the reminder settings edited by nudge.
package reminders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/five82/nudge/internal/syncer"
)

// CapabilityNotifications must be granted before any reminder can be enabled.
const CapabilityNotifications syncer.Capability = "notifications"

// DefaultMinuteStep is the granularity the settings API stores times at.
const DefaultMinuteStep = 5

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	t := TimeOfDay{Hour: h, Minute: m}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: out of range", s)
	}
	return t, nil
}

// Valid reports whether t is within 00:00-23:59.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Add shifts t by minutes, wrapping around midnight in both directions.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	total := ((t.Hour*60+t.Minute+minutes)%minutesPerDay + minutesPerDay) % minutesPerDay
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// Round snaps t to the nearest multiple of step minutes.
func (t TimeOfDay) Round(step int) TimeOfDay {
	if step <= 1 {
		return t
	}
	total := t.Hour*60 + t.Minute
	rounded := (total + step/2) / step * step
	return TimeOfDay{}.Add(rounded)
}

// Settings is one user's reminder configuration. It is a comparable value;
// equality is structural.
type Settings struct {
	DailyJobs   bool
	DailyJobsAt TimeOfDay

	WeeklyDigest    bool
	WeeklyDigestDay time.Weekday
	WeeklyDigestAt  TimeOfDay

	BudgetAlerts bool

	// TimeZone is assigned by the server and read-only in the editor.
	TimeZone string
}

// Defaults returns the settings a new account starts with.
func Defaults() Settings {
	return Settings{
		DailyJobsAt:     TimeOfDay{Hour: 8},
		WeeklyDigestDay: time.Monday,
		WeeklyDigestAt:  TimeOfDay{Hour: 9},
		TimeZone:        "UTC",
	}
}

// Validate reports values no server should accept.
func (s Settings) Validate() error {
	if !s.DailyJobsAt.Valid() {
		return fmt.Errorf("daily jobs time %s out of range", s.DailyJobsAt)
	}
	if !s.WeeklyDigestAt.Valid() {
		return fmt.Errorf("weekly digest time %s out of range", s.WeeklyDigestAt)
	}
	if s.WeeklyDigestDay < time.Sunday || s.WeeklyDigestDay > time.Saturday {
		return fmt.Errorf("weekly digest day %d out of range", int(s.WeeklyDigestDay))
	}
	return nil
}

// Normalize rounds times to step minutes and stamps the time zone, the way
// the settings API stores them.
func Normalize(s Settings, step int, zone string) Settings {
	s.DailyJobsAt = s.DailyJobsAt.Round(step)
	s.WeeklyDigestAt = s.WeeklyDigestAt.Round(step)
	if zone = strings.TrimSpace(zone); zone != "" {
		s.TimeZone = zone
	}
	return s
}

// Toggles. Each reminder needs notification permission to be enabled.
var (
	DailyJobsToggle = syncer.Toggle[Settings]{
		Name:       "Daily jobs reminder",
		Capability: CapabilityNotifications,
		Get:        func(s Settings) bool { return s.DailyJobs },
		Set:        func(s Settings, on bool) Settings { s.DailyJobs = on; return s },
	}
	WeeklyDigestToggle = syncer.Toggle[Settings]{
		Name:       "Weekly digest",
		Capability: CapabilityNotifications,
		Get:        func(s Settings) bool { return s.WeeklyDigest },
		Set:        func(s Settings, on bool) Settings { s.WeeklyDigest = on; return s },
	}
	BudgetAlertsToggle = syncer.Toggle[Settings]{
		Name:       "Budget alerts",
		Capability: CapabilityNotifications,
		Get:        func(s Settings) bool { return s.BudgetAlerts },
		Set:        func(s Settings, on bool) Settings { s.BudgetAlerts = on; return s },
	}
)

// ShiftDailyJobs moves the daily reminder time by minutes.
func ShiftDailyJobs(minutes int) func(Settings) Settings {
	return func(s Settings) Settings {
		s.DailyJobsAt = s.DailyJobsAt.Add(minutes)
		return s
	}
}

// ShiftWeeklyDigest moves the weekly digest time by minutes.
func ShiftWeeklyDigest(minutes int) func(Settings) Settings {
	return func(s Settings) Settings {
		s.WeeklyDigestAt = s.WeeklyDigestAt.Add(minutes)
		return s
	}
}

// ShiftWeeklyDigestDay moves the weekly digest by days, wrapping the week.
func ShiftWeeklyDigestDay(days int) func(Settings) Settings {
	return func(s Settings) Settings {
		s.WeeklyDigestDay = time.Weekday(((int(s.WeeklyDigestDay)+days)%7 + 7) % 7)
		return s
	}
}
