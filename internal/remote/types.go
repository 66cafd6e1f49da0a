package remote

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/nudge/internal/reminders"
)

// SettingsPath is the settings API resource for reminder settings.
const SettingsPath = "/api/settings/reminders"

// RequestIDHeader carries the persist attempt id.
const RequestIDHeader = "X-Request-ID"

// Payload mirrors the JSON body of SettingsPath. The same shape is used for
// the dev server's TOML store.
type Payload struct {
	DailyJobs       bool   `json:"dailyJobs" toml:"daily_jobs"`
	DailyJobsAt     string `json:"dailyJobsAt" toml:"daily_jobs_at"`
	WeeklyDigest    bool   `json:"weeklyDigest" toml:"weekly_digest"`
	WeeklyDigestDay string `json:"weeklyDigestDay" toml:"weekly_digest_day"`
	WeeklyDigestAt  string `json:"weeklyDigestAt" toml:"weekly_digest_at"`
	BudgetAlerts    bool   `json:"budgetAlerts" toml:"budget_alerts"`
	TimeZone        string `json:"timeZone,omitempty" toml:"time_zone"`
}

// ErrorResponse is returned by the API alongside 4xx/5xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromSettings converts settings to their transport form.
func FromSettings(s reminders.Settings) Payload {
	return Payload{
		DailyJobs:       s.DailyJobs,
		DailyJobsAt:     s.DailyJobsAt.String(),
		WeeklyDigest:    s.WeeklyDigest,
		WeeklyDigestDay: strings.ToLower(s.WeeklyDigestDay.String()),
		WeeklyDigestAt:  s.WeeklyDigestAt.String(),
		BudgetAlerts:    s.BudgetAlerts,
		TimeZone:        s.TimeZone,
	}
}

// Settings converts the payload back, validating every field.
func (p Payload) Settings() (reminders.Settings, error) {
	daily, err := reminders.ParseTimeOfDay(p.DailyJobsAt)
	if err != nil {
		return reminders.Settings{}, fmt.Errorf("dailyJobsAt: %w", err)
	}
	weekly, err := reminders.ParseTimeOfDay(p.WeeklyDigestAt)
	if err != nil {
		return reminders.Settings{}, fmt.Errorf("weeklyDigestAt: %w", err)
	}
	day, err := parseWeekday(p.WeeklyDigestDay)
	if err != nil {
		return reminders.Settings{}, fmt.Errorf("weeklyDigestDay: %w", err)
	}
	return reminders.Settings{
		DailyJobs:       p.DailyJobs,
		DailyJobsAt:     daily,
		WeeklyDigest:    p.WeeklyDigest,
		WeeklyDigestDay: day,
		WeeklyDigestAt:  weekly,
		BudgetAlerts:    p.BudgetAlerts,
		TimeZone:        strings.TrimSpace(p.TimeZone),
	}, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if trimmed == name || trimmed == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
