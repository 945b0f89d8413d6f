package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"taskmate/model"
)

const reminderLength = 30 * time.Minute

// ExportICS renders every assignment with a present reminder as a VEVENT so
// the reminders can be subscribed to from an external calendar app.
func ExportICS(items []model.Assignment, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//taskmate//assignments//EN")

	for _, a := range items {
		at, ok := a.Reminder.Time()
		if !ok {
			continue
		}
		ev := cal.AddEvent(a.ID + "@taskmate")
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(at.UTC())
		ev.SetEndAt(at.Add(reminderLength).UTC())
		ev.SetSummary(a.Title)
		if a.Content != "" {
			ev.SetDescription(a.Content)
		}
		if !a.LastModified.At.IsZero() {
			ev.SetModifiedAt(a.LastModified.At.UTC())
		}
	}
	return cal.Serialize()
}
