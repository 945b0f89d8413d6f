package model

import (
	"fmt"
	"slices"
	"time"
)

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// ParseTextAlign accepts the stored alignment values. An empty value means left.
func ParseTextAlign(s string) (TextAlign, error) {
	switch TextAlign(s) {
	case "", AlignLeft:
		return AlignLeft, nil
	case AlignCenter, AlignRight:
		return TextAlign(s), nil
	}
	return "", NewValidationError("textAlign", fmt.Sprintf("unsupported alignment %q", s))
}

type TextFormat struct {
	Bold      bool `firestore:"bold" json:"bold"`
	Italic    bool `firestore:"italic" json:"italic"`
	Underline bool `firestore:"underline" json:"underline"`
}

// LastModified is stamped on every mutating write. Mutation carries the id of
// the write so a later snapshot can confirm it.
type LastModified struct {
	By       string    `firestore:"by" json:"by"`
	At       time.Time `firestore:"at" json:"at"`
	Mutation string    `firestore:"mutation,omitempty" json:"mutation,omitempty"`
}

type Assignment struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	TextAlign     TextAlign    `json:"textAlign"`
	TextFormat    TextFormat   `json:"textFormat"`
	Reminder      Reminder     `json:"reminder"`
	Collaborators []string     `json:"collaborators"`
	CreatedBy     string       `json:"createdBy"`
	LastModified  LastModified `json:"lastModified"`
}

// NewAssignment builds a freshly created assignment: empty content, no
// reminder and the owner as the only collaborator.
func NewAssignment(id, ownerID, title string, now time.Time, mutation string) Assignment {
	return Assignment{
		ID:            id,
		Title:         title,
		TextAlign:     AlignLeft,
		Reminder:      NoReminder(),
		Collaborators: []string{ownerID},
		CreatedBy:     ownerID,
		LastModified:  LastModified{By: ownerID, At: now, Mutation: mutation},
	}
}

func (a Assignment) HasCollaborator(uid string) bool {
	return slices.Contains(a.Collaborators, uid)
}

func (a Assignment) IsOwner(uid string) bool {
	return uid != "" && a.CreatedBy == uid
}

// Validate checks the invariants a stored assignment must satisfy.
func (a Assignment) Validate() error {
	if a.ID == "" {
		return NewValidationError("id", "id is required")
	}
	if a.CreatedBy == "" {
		return NewValidationError("createdBy", "creator is required")
	}
	if !a.HasCollaborator(a.CreatedBy) {
		return NewValidationError("collaborators", "creator must be a collaborator")
	}
	return nil
}

func (a Assignment) Clone() Assignment {
	a.Collaborators = slices.Clone(a.Collaborators)
	return a
}

func (a Assignment) Equal(b Assignment) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Content == b.Content &&
		a.TextAlign == b.TextAlign &&
		a.TextFormat == b.TextFormat &&
		a.Reminder.Equal(b.Reminder) &&
		slices.Equal(a.Collaborators, b.Collaborators) &&
		a.CreatedBy == b.CreatedBy &&
		a.LastModified.By == b.LastModified.By &&
		a.LastModified.At.Equal(b.LastModified.At) &&
		a.LastModified.Mutation == b.LastModified.Mutation
}
