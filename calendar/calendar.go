// Package calendar turns assignments with reminders into day groups and
// calendar markers. Everything here is a pure function of its inputs.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"taskmate/model"
)

const (
	ColorToday    = "#FFD600"
	ColorOverdue  = "#B71C1C"
	ColorUpcoming = "#6A5ACD"
)

const dateLayout = "2006-01-02"

// DateKey is the zero-padded local calendar date of t.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(location(loc)).Format(dateLayout)
}

// GroupByDay maps each local reminder date to the assignments due that day.
// Assignments without a present reminder are left out. Each day is ordered
// by reminder time, then id.
func GroupByDay(items []model.Assignment, loc *time.Location) map[string][]model.Assignment {
	grouped := make(map[string][]model.Assignment)
	for _, a := range items {
		at, ok := a.Reminder.Time()
		if !ok {
			continue
		}
		key := DateKey(at, loc)
		grouped[key] = append(grouped[key], a)
	}
	for _, day := range grouped {
		sort.SliceStable(day, func(i, j int) bool {
			ti, tj := day[i].Reminder.At, day[j].Reminder.At
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return day[i].ID < day[j].ID
		})
	}
	return grouped
}

// DayColor applies the marker precedence: today, then overdue, then upcoming.
// Dates are compared as civil dates in loc.
func DayColor(day, now time.Time, loc *time.Location) string {
	d := civil(day, loc)
	today := civil(now, loc)
	switch {
	case d.Equal(today):
		return ColorToday
	case d.Before(today):
		return ColorOverdue
	default:
		return ColorUpcoming
	}
}

// Markers builds one marker per grouped day, evaluated once against now.
func Markers(groups map[string][]model.Assignment, now time.Time, loc *time.Location) map[string]model.DayMarker {
	loc = location(loc)
	markers := make(map[string]model.DayMarker, len(groups))
	for key, tasks := range groups {
		day, err := time.ParseInLocation(dateLayout, key, loc)
		if err != nil {
			continue
		}
		color := DayColor(day, now, loc)
		dots := make([]model.Dot, 0, len(tasks))
		for _, t := range tasks {
			dots = append(dots, model.Dot{Key: t.ID, Color: color})
		}
		markers[key] = model.DayMarker{
			Date:          key,
			Marked:        true,
			Dots:          dots,
			Selected:      true,
			SelectedColor: color,
		}
	}
	return markers
}

// TodayWindow is the inclusive [00:00:00, 23:59:59] range of now's local day.
func TodayWindow(now time.Time, loc *time.Location) (start, end time.Time) {
	start = civil(now, loc)
	end = time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, 0, start.Location())
	return start, end
}

func IsDueToday(a model.Assignment, now time.Time, loc *time.Location) bool {
	at, ok := a.Reminder.Time()
	if !ok {
		return false
	}
	start, end := TodayWindow(now, loc)
	return !at.Before(start) && !at.After(end)
}

func DueToday(items []model.Assignment, now time.Time, loc *time.Location) []model.Assignment {
	var due []model.Assignment
	for _, a := range items {
		if IsDueToday(a, now, loc) {
			due = append(due, a)
		}
	}
	return due
}

// Highlight is the banner text shown above the calendar.
func Highlight(dueToday int) string {
	switch dueToday {
	case 0:
		return "No tasks due today"
	case 1:
		return "You have 1 task due today!"
	default:
		return fmt.Sprintf("You have %d tasks due today!", dueToday)
	}
}

// Overview is everything the home screen needs for one snapshot.
type Overview struct {
	Today     string                        `json:"today"`
	Groups    map[string][]model.Assignment `json:"groups"`
	Markers   map[string]model.DayMarker    `json:"markers"`
	DueToday  []model.Assignment            `json:"dueToday"`
	Highlight string                        `json:"highlight"`
}

func Build(items []model.Assignment, now time.Time, loc *time.Location) Overview {
	groups := GroupByDay(items, loc)
	due := DueToday(items, now, loc)
	if due == nil {
		due = []model.Assignment{}
	}
	return Overview{
		Today:     DateKey(now, loc),
		Groups:    groups,
		Markers:   Markers(groups, now, loc),
		DueToday:  due,
		Highlight: Highlight(len(due)),
	}
}

func civil(t time.Time, loc *time.Location) time.Time {
	t = t.In(location(loc))
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
