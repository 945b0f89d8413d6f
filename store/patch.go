package store

import (
	"slices"
	"time"

	"taskmate/model"
)

// Patch is a partial merge. Nil fields are left untouched.
type Patch struct {
	Title      *string
	Content    *string
	TextAlign  *model.TextAlign
	TextFormat *model.TextFormat
	// SetReminder selects whether Reminder is written; a nil Reminder clears it.
	SetReminder     bool
	Reminder        *time.Time
	AddCollaborator string
	LastModified    model.LastModified
}

// Apply returns a copy of a with the patch merged in.
func (p Patch) Apply(a model.Assignment) model.Assignment {
	out := a.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.TextAlign != nil {
		out.TextAlign = *p.TextAlign
	}
	if p.TextFormat != nil {
		out.TextFormat = *p.TextFormat
	}
	if p.SetReminder {
		if p.Reminder == nil {
			out.Reminder = model.NoReminder()
		} else {
			out.Reminder = model.ReminderAt(*p.Reminder)
		}
	}
	if p.AddCollaborator != "" && !slices.Contains(out.Collaborators, p.AddCollaborator) {
		out.Collaborators = append(out.Collaborators, p.AddCollaborator)
	}
	if p.LastModified.By != "" {
		out.LastModified = p.LastModified
	}
	return out
}
