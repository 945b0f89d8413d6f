// Package firestorestore implements the store ports on Cloud Firestore.
package firestorestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmate/model"
	"taskmate/store"
)

// Layout selects where assignment documents live.
type Layout string

const (
	// LayoutShared keeps every assignment in the top-level collection and
	// filters by collaborator membership.
	LayoutShared Layout = "shared"
	// LayoutLegacy keeps assignments under users/{uid}/assignments. Each
	// user only lists their own subcollection, so sharing is rejected with
	// model.ErrSharingUnsupported.
	LayoutLegacy Layout = "legacy"
)

type Assignments struct {
	client *firestore.Client
	layout Layout
}

var _ store.Assignments = (*Assignments)(nil)

func NewAssignments(client *firestore.Client, layout Layout) *Assignments {
	if layout != LayoutLegacy {
		layout = LayoutShared
	}
	return &Assignments{client: client, layout: layout}
}

func (s *Assignments) ownerCollection(uid string) *firestore.CollectionRef {
	if s.layout == LayoutLegacy {
		return s.client.Collection(store.UsersCollection).Doc(uid).Collection(store.AssignmentsCollection)
	}
	return s.client.Collection(store.AssignmentsCollection)
}

// ref resolves the document for id. The legacy layout needs a collection
// group lookup on the stored id field because the owner is not known.
func (s *Assignments) ref(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if s.layout != LayoutLegacy {
		return s.client.Collection(store.AssignmentsCollection).Doc(id), nil
	}
	docs, err := s.client.CollectionGroup(store.AssignmentsCollection).
		Where("id", "==", id).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, model.ErrNotFound
	}
	return docs[0].Ref, nil
}

func (s *Assignments) Create(ctx context.Context, a model.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.ownerCollection(a.CreatedBy).Doc(a.ID).Set(ctx, toDoc(a))
	return err
}

func (s *Assignments) Get(ctx context.Context, id string) (model.Assignment, error) {
	ref, err := s.ref(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return model.Assignment{}, mapNotFound(err)
	}
	return fromSnapshot(snap)
}

func (s *Assignments) query(uid string) firestore.Query {
	if s.layout == LayoutLegacy {
		return s.ownerCollection(uid).Query
	}
	return s.ownerCollection(uid).Where("collaborators", "array-contains", uid)
}

func (s *Assignments) ListForCollaborator(ctx context.Context, uid string) ([]model.Assignment, error) {
	iter := s.query(uid).Documents(ctx)
	defer iter.Stop()

	var out []model.Assignment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		a, err := fromSnapshot(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Assignments) Update(ctx context.Context, id string, fn func(model.Assignment) (store.Patch, error)) error {
	ref, err := s.ref(ctx, id)
	if err != nil {
		return err
	}
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return mapNotFound(err)
		}
		cur, err := fromSnapshot(snap)
		if err != nil {
			return err
		}
		p, err := fn(cur)
		if err != nil {
			return err
		}
		if err := s.checkPatch(p); err != nil {
			return err
		}
		ups := patchUpdates(p)
		if len(ups) == 0 {
			return nil
		}
		return tx.Update(ref, ups)
	})
}

func (s *Assignments) checkPatch(p store.Patch) error {
	if s.layout == LayoutLegacy && p.AddCollaborator != "" {
		return model.ErrSharingUnsupported
	}
	return nil
}

func (s *Assignments) Delete(ctx context.Context, id string, guard func(model.Assignment) error) error {
	ref, err := s.ref(ctx, id)
	if err != nil {
		return err
	}
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return mapNotFound(err)
		}
		if guard != nil {
			cur, err := fromSnapshot(snap)
			if err != nil {
				return err
			}
			if err := guard(cur); err != nil {
				return err
			}
		}
		return tx.Delete(ref)
	})
}

func (s *Assignments) WatchCollaborator(ctx context.Context, uid string) (store.ListFeed, error) {
	return &queryFeed{it: s.query(uid).Snapshots(ctx)}, nil
}

func (s *Assignments) WatchDocument(ctx context.Context, id string) (store.DocumentFeed, error) {
	ref, err := s.ref(ctx, id)
	if err != nil {
		return nil, err
	}
	return &documentFeed{it: ref.Snapshots(ctx)}, nil
}

type queryFeed struct {
	it *firestore.QuerySnapshotIterator
}

func (f *queryFeed) Next() ([]model.Assignment, error) {
	snap, err := f.it.Next()
	if err != nil {
		return nil, feedErr(err)
	}
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]model.Assignment, 0, len(docs))
	for _, d := range docs {
		a, err := fromSnapshot(d)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *queryFeed) Stop() { f.it.Stop() }

type documentFeed struct {
	it *firestore.DocumentSnapshotIterator
}

func (f *documentFeed) Next() (model.Assignment, error) {
	snap, err := f.it.Next()
	if err != nil {
		return model.Assignment{}, feedErr(err)
	}
	if !snap.Exists() {
		return model.Assignment{}, model.ErrNotFound
	}
	return fromSnapshot(snap)
}

func (f *documentFeed) Stop() { f.it.Stop() }

func mapNotFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return model.ErrNotFound
	}
	return err
}

// feedErr normalizes listener errors: canceled streams become
// context.Canceled and missing documents model.ErrNotFound.
func feedErr(err error) error {
	if IsCanceled(err) {
		return context.Canceled
	}
	return mapNotFound(err)
}

// IsCanceled reports whether err comes from a feed whose context was canceled.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled
}
