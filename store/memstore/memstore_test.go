package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"taskmate/model"
	"taskmate/store"
)

func newAssignment(id, owner string) model.Assignment {
	return model.NewAssignment(id, owner, "Assignment "+id, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "m-"+id)
}

func TestListFeed_DeliversFullSnapshots(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newAssignment("a1", "alice")))

	feed, err := s.WatchCollaborator(ctx, "alice")
	require.NoError(t, err)
	defer feed.Stop()

	first, err := feed.Next()
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, s.Create(ctx, newAssignment("a2", "alice")))
	second, err := feed.Next()
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestListFeed_IgnoresUnrelatedWrites(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	feed, err := s.WatchCollaborator(ctx, "alice")
	require.NoError(t, err)
	defer feed.Stop()
	_, err = feed.Next()
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), newAssignment("b1", "bob")))
	_, err = feed.Next()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFeed_StopEndsIteration(t *testing.T) {
	s := New()
	feed, err := s.WatchDocument(context.Background(), "missing")
	require.NoError(t, err)
	feed.Stop()

	_, err = feed.Next()
	assert.ErrorIs(t, err, iterator.Done)
}

func TestDocumentFeed_ReportsDeletion(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newAssignment("a1", "alice")))

	feed, err := s.WatchDocument(ctx, "a1")
	require.NoError(t, err)
	defer feed.Stop()
	_, err = feed.Next()
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a1", nil))
	_, err = feed.Next()
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdate_GuardAbortsWrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newAssignment("a1", "alice")))
	boom := errors.New("rejected")

	err := s.Update(ctx, "a1", func(model.Assignment) (store.Patch, error) { return store.Patch{}, boom })

	assert.ErrorIs(t, err, boom)
	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Assignment a1", got.Title)
}

func TestLatency_HonorsDeadline(t *testing.T) {
	s := New()
	s.SetLatency(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Create(ctx, newAssignment("a1", "alice"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUsers(t *testing.T) {
	s := New()
	s.PutUser(model.UserProfile{UID: "bob", Email: "bob@example.com"})

	p, err := s.Users().FindByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob", p.UID)

	_, err = s.Users().Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUsers_SaveMerges(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.PutUser(model.UserProfile{UID: "bob", Email: "bob@example.com", DisplayName: "Bob"})

	require.NoError(t, s.Users().Save(ctx, model.UserProfile{UID: "bob", PhotoURL: "https://img/bob"}))
	p, err := s.Users().Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.UserProfile{UID: "bob", Email: "bob@example.com", DisplayName: "Bob", PhotoURL: "https://img/bob"}, p)

	require.NoError(t, s.Users().Save(ctx, model.UserProfile{UID: "dave", Email: "dave@example.com"}))
	p, err = s.Users().FindByEmail(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.Equal(t, "dave", p.UID)
}

func TestCreate_RejectsCreatorOutsideCollaborators(t *testing.T) {
	s := New()
	a := newAssignment("a1", "alice")
	a.Collaborators = []string{"bob"}

	err := s.Create(context.Background(), a)

	assert.True(t, model.IsValidationError(err))
	assert.Empty(t, s.Snapshot())
}
