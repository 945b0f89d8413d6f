package services

import (
	"strconv"
	"strings"
	"time"
)

// ReminderInput holds the raw fields of the reminder form.
type ReminderInput struct {
	Year   string `json:"year"`
	Month  string `json:"month"`
	Day    string `json:"day"`
	Hour   string `json:"hour"`
	Minute string `json:"minute"`
}

// Resolve clamps every field into range and builds the reminder time in loc.
// Unparseable fields fall back to their lower bound; the year never goes
// below the current one. Days past the end of the month roll over.
func (in ReminderInput) Resolve(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	year := clampField(in.Year, now.In(loc).Year(), 1<<30)
	month := clampField(in.Month, 1, 12)
	day := clampField(in.Day, 1, 31)
	hour := clampField(in.Hour, 0, 23)
	minute := clampField(in.Minute, 0, 59)
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
}

func clampField(raw string, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
