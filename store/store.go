// Package store defines the persistence ports the assignment core runs
// against. Implementations live in firestorestore and memstore.
package store

import (
	"context"

	"taskmate/model"
)

const (
	AssignmentsCollection = "assignments"
	UsersCollection       = "users"
)

// Assignments persists assignment documents.
type Assignments interface {
	Create(ctx context.Context, a model.Assignment) error
	Get(ctx context.Context, id string) (model.Assignment, error)
	// ListForCollaborator returns every assignment whose collaborator set
	// contains uid.
	ListForCollaborator(ctx context.Context, uid string) ([]model.Assignment, error)
	// Update reads the current document and applies the patch returned by
	// fn in one transaction. Returning an error from fn aborts the write.
	Update(ctx context.Context, id string, fn func(cur model.Assignment) (Patch, error)) error
	// Delete removes the document if guard accepts the current version.
	Delete(ctx context.Context, id string, guard func(cur model.Assignment) error) error
	// WatchCollaborator opens a live query over the assignments shared with
	// uid. Canceling ctx ends the feed.
	WatchCollaborator(ctx context.Context, uid string) (ListFeed, error)
	// WatchDocument opens a live feed on one assignment.
	WatchDocument(ctx context.Context, id string) (DocumentFeed, error)
}

// Users resolves profiles from the users collection.
type Users interface {
	FindByEmail(ctx context.Context, email string) (model.UserProfile, error)
	Get(ctx context.Context, uid string) (model.UserProfile, error)
	// Save merges the non-empty fields of p into users/{p.UID}.
	Save(ctx context.Context, p model.UserProfile) error
}

// ListFeed delivers complete snapshots of a query. Next blocks until the next
// snapshot; the first call returns the current state.
type ListFeed interface {
	Next() ([]model.Assignment, error)
	Stop()
}

// DocumentFeed delivers snapshots of a single document. Next returns
// model.ErrNotFound once the document no longer exists.
type DocumentFeed interface {
	Next() (model.Assignment, error)
	Stop()
}
