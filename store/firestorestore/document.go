package firestorestore

import (
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"taskmate/model"
	"taskmate/store"
)

// assignmentDoc mirrors the persisted document shape. ReminderDate stays
// untyped so a stored string or map can be told apart from a timestamp.
type assignmentDoc struct {
	ID            string             `firestore:"id,omitempty"`
	Title         string             `firestore:"title"`
	Content       string             `firestore:"content"`
	TextAlign     string             `firestore:"textAlign"`
	TextFormat    model.TextFormat   `firestore:"textFormat"`
	ReminderDate  interface{}        `firestore:"reminderDate"`
	Collaborators []string           `firestore:"collaborators"`
	CreatedBy     string             `firestore:"createdBy"`
	LastModified  model.LastModified `firestore:"lastModified"`
}

func toDoc(a model.Assignment) assignmentDoc {
	d := assignmentDoc{
		ID:            a.ID,
		Title:         a.Title,
		Content:       a.Content,
		TextAlign:     string(a.TextAlign),
		TextFormat:    a.TextFormat,
		Collaborators: a.Collaborators,
		CreatedBy:     a.CreatedBy,
		LastModified:  a.LastModified,
	}
	if at, ok := a.Reminder.Time(); ok {
		d.ReminderDate = at
	}
	return d
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (model.Assignment, error) {
	var d assignmentDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Assignment{}, fmt.Errorf("decode assignment %s: %w", snap.Ref.ID, err)
	}
	var parentOwner string
	if snap.Ref.Parent != nil && snap.Ref.Parent.Parent != nil {
		parentOwner = snap.Ref.Parent.Parent.ID
	}
	return fromDoc(snap.Ref.ID, parentOwner, d)
}

// fromDoc builds the assignment stored under id. parentOwner is the user
// document holding it in the per-user layout, empty otherwise.
func fromDoc(id, parentOwner string, d assignmentDoc) (model.Assignment, error) {
	align, err := model.ParseTextAlign(d.TextAlign)
	if err != nil {
		align = model.AlignLeft
	}
	a := model.Assignment{
		ID:            id,
		Title:         d.Title,
		Content:       d.Content,
		TextAlign:     align,
		TextFormat:    d.TextFormat,
		Reminder:      decodeReminder(d.ReminderDate),
		Collaborators: d.Collaborators,
		CreatedBy:     d.CreatedBy,
		LastModified:  d.LastModified,
	}
	// Documents from the per-user layout predate sharing: the owner is the
	// parent user document.
	if a.CreatedBy == "" {
		a.CreatedBy = parentOwner
	}
	if len(a.Collaborators) == 0 && a.CreatedBy != "" {
		a.Collaborators = []string{a.CreatedBy}
	}
	if err := a.Validate(); err != nil {
		return model.Assignment{}, fmt.Errorf("assignment %s: %w", id, err)
	}
	return a, nil
}

func decodeReminder(v interface{}) model.Reminder {
	switch r := v.(type) {
	case nil:
		return model.NoReminder()
	case time.Time:
		return model.ReminderAt(r)
	case string:
		if t, err := time.Parse(time.RFC3339, r); err == nil {
			return model.ReminderAt(t)
		}
		return model.InvalidReminder(r)
	case map[string]interface{}:
		// Timestamps serialized by JS clients as {seconds, nanoseconds}.
		sec, ok := r["seconds"].(int64)
		if !ok {
			return model.InvalidReminder(fmt.Sprint(r))
		}
		nsec, _ := r["nanoseconds"].(int64)
		return model.ReminderAt(time.Unix(sec, nsec))
	default:
		return model.InvalidReminder(fmt.Sprint(r))
	}
}

func patchUpdates(p store.Patch) []firestore.Update {
	var ups []firestore.Update
	if p.Title != nil {
		ups = append(ups, firestore.Update{Path: "title", Value: *p.Title})
	}
	if p.Content != nil {
		ups = append(ups, firestore.Update{Path: "content", Value: *p.Content})
	}
	if p.TextAlign != nil {
		ups = append(ups, firestore.Update{Path: "textAlign", Value: string(*p.TextAlign)})
	}
	if p.TextFormat != nil {
		ups = append(ups, firestore.Update{Path: "textFormat", Value: *p.TextFormat})
	}
	if p.SetReminder {
		var v interface{}
		if p.Reminder != nil {
			v = *p.Reminder
		}
		ups = append(ups, firestore.Update{Path: "reminderDate", Value: v})
	}
	if p.AddCollaborator != "" {
		ups = append(ups, firestore.Update{Path: "collaborators", Value: firestore.ArrayUnion(p.AddCollaborator)})
	}
	if p.LastModified.By != "" {
		ups = append(ups, firestore.Update{Path: "lastModified", Value: p.LastModified})
	}
	return ups
}
