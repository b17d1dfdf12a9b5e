package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for last_showcase_date.
const DateLayout = "2006-01-02"

// ErrInvalidTime is returned when a showcase time is not H:M.
var ErrInvalidTime = errors.New("time must be HH:MM")

// GuildConfig represents the showcase configuration for a single guild.
type GuildConfig struct {
	SubmissionChannelID Snowflake    `json:"submission_channel_id"`
	ShowcaseChannelID   Snowflake    `json:"showcase_channel_id"`
	LastShowcaseDate    Date         `json:"last_showcase_date"`
	ShowcaseTime        ShowcaseTime `json:"showcase_time"`
	DeleteAfterShowcase bool         `json:"delete_after_showcase"`
}

// DefaultGuildConfig returns the configuration a guild starts with.
func DefaultGuildConfig() GuildConfig {
	return GuildConfig{
		ShowcaseTime:        ShowcaseTime{Hour: 12, Minute: 0},
		DeleteAfterShowcase: true,
	}
}

// ChannelsConfigured reports whether both submission and showcase channels are set.
func (c GuildConfig) ChannelsConfigured() bool {
	return !c.SubmissionChannelID.IsZero() && !c.ShowcaseChannelID.IsZero()
}

// Snowflake is a Discord identifier. Zero means unset and is stored as null.
type Snowflake int64

// ParseSnowflake parses a Discord ID string.
func ParseSnowflake(s string) (Snowflake, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing snowflake %q: %w", s, err)
	}
	return Snowflake(id), nil
}

// IsZero reports whether the ID is unset.
func (s Snowflake) IsZero() bool { return s == 0 }

// String returns the ID in the string form discordgo expects.
func (s Snowflake) String() string {
	if s == 0 {
		return ""
	}
	return strconv.FormatInt(int64(s), 10)
}

// MarshalJSON implements json.Marshaler.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	if s == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(int64(s), 10)), nil
}

// UnmarshalJSON accepts numbers, quoted numbers and null.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		*s = 0
		return nil
	}
	id, err := ParseSnowflake(raw)
	if err != nil {
		return err
	}
	*s = id
	return nil
}

// ShowcaseTime is a local wall-clock time of day with minute resolution.
type ShowcaseTime struct {
	Hour   int
	Minute int
}

// ParseShowcaseTime parses an H:M time of day. Hour and minute take one or two digits,
// so "9:5" and "09:05" are the same time.
func ParseShowcaseTime(s string) (ShowcaseTime, error) {
	invalid := fmt.Errorf("%w: %q", ErrInvalidTime, s)

	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ShowcaseTime{}, invalid
	}
	hour, ok := timeField(hh, 23)
	if !ok {
		return ShowcaseTime{}, invalid
	}
	minute, ok := timeField(mm, 59)
	if !ok {
		return ShowcaseTime{}, invalid
	}
	return ShowcaseTime{Hour: hour, Minute: minute}, nil
}

func timeField(s string, max int) (int, bool) {
	if len(s) < 1 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > max {
		return 0, false
	}
	return n, true
}

// TimeOf returns the time of day of t truncated to the minute.
func TimeOf(t time.Time) ShowcaseTime {
	return ShowcaseTime{Hour: t.Hour(), Minute: t.Minute()}
}

// String formats the time as HH:MM.
func (t ShowcaseTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant this time of day falls on the calendar day of ref, in ref's location.
func (t ShowcaseTime) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ref.Location())
}

// MarshalJSON implements json.Marshaler.
func (t ShowcaseTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
// A null value leaves t unchanged.
func (t *ShowcaseTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("showcase_time: %w", err)
	}
	parsed, err := ParseShowcaseTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Date is a calendar date in DateLayout. The empty Date means "never".
type Date string

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("last_showcase_date: %w", err)
	}
	*d = Date(raw)
	return nil
}
