package model

import (
	"encoding/json"
	"time"
)

// ReminderState separates a missing reminder from one that is stored but
// cannot be read as a point in time.
type ReminderState int

const (
	ReminderAbsent ReminderState = iota
	ReminderInvalid
	ReminderPresent
)

func (s ReminderState) String() string {
	switch s {
	case ReminderInvalid:
		return "invalid"
	case ReminderPresent:
		return "present"
	default:
		return "absent"
	}
}

type Reminder struct {
	State ReminderState
	At    time.Time
	// Raw keeps the unreadable stored value for Invalid reminders.
	Raw string
}

func NoReminder() Reminder { return Reminder{State: ReminderAbsent} }

func ReminderAt(t time.Time) Reminder { return Reminder{State: ReminderPresent, At: t} }

func InvalidReminder(raw string) Reminder { return Reminder{State: ReminderInvalid, Raw: raw} }

// Time reports the reminder instant; ok is false unless the reminder is present.
func (r Reminder) Time() (time.Time, bool) {
	if r.State != ReminderPresent {
		return time.Time{}, false
	}
	return r.At, true
}

func (r Reminder) Equal(o Reminder) bool {
	return r.State == o.State && r.At.Equal(o.At) && r.Raw == o.Raw
}

// Label is the user-visible description of the reminder.
func (r Reminder) Label(loc *time.Location) string {
	switch r.State {
	case ReminderPresent:
		if loc == nil {
			loc = time.Local
		}
		return r.At.In(loc).Format("Jan 2, 2006, 03:04 PM")
	case ReminderInvalid:
		return "Invalid reminder"
	default:
		return "No reminder set"
	}
}

type reminderJSON struct {
	State string     `json:"state"`
	At    *time.Time `json:"at,omitempty"`
	Raw   string     `json:"raw,omitempty"`
}

func (r Reminder) MarshalJSON() ([]byte, error) {
	out := reminderJSON{State: r.State.String(), Raw: r.Raw}
	if r.State == ReminderPresent {
		at := r.At
		out.At = &at
	}
	return json.Marshal(out)
}

func (r *Reminder) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = NoReminder()
		return nil
	}
	var in reminderJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch {
	case in.State == "present" && in.At != nil:
		*r = ReminderAt(*in.At)
	case in.State == "invalid":
		*r = InvalidReminder(in.Raw)
	default:
		*r = NoReminder()
	}
	return nil
}
