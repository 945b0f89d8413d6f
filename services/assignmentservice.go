package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"taskmate/metrics"
	"taskmate/model"
	"taskmate/session"
	"taskmate/store"
)

const (
	DefaultTitle        = "New Assignment"
	DefaultWriteTimeout = 10 * time.Second
)

type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// Receipt identifies an accepted write. A later snapshot carrying the same
// mutation id, or a version stamped no earlier than At, confirms it. For
// deletes the assignment must be missing instead.
type Receipt struct {
	MutationID   string       `json:"mutationId"`
	AssignmentID string       `json:"assignmentId"`
	Kind         MutationKind `json:"kind"`
	At           time.Time    `json:"at"`
}

// AssignmentService runs every assignment operation for an explicit session.
type AssignmentService struct {
	assignments store.Assignments
	users       store.Users
	log         zerolog.Logger
	timeout     time.Duration
	now         func() time.Time
	newID       func() string
}

type Option func(*AssignmentService)

func WithClock(now func() time.Time) Option {
	return func(s *AssignmentService) { s.now = now }
}

// WithTimeout bounds every store call. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(s *AssignmentService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *AssignmentService) { s.newID = fn }
}

func NewAssignmentService(assignments store.Assignments, users store.Users, log zerolog.Logger, opts ...Option) *AssignmentService {
	s := &AssignmentService{
		assignments: assignments,
		users:       users,
		log:         log.With().Str("component", "assignments").Logger(),
		timeout:     DefaultWriteTimeout,
		now:         time.Now,
		newID:       timeOrderedID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// timeOrderedID returns a UUIDv7 so ids sort by creation time.
func timeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *AssignmentService) stamp(sess session.Session) model.LastModified {
	return model.LastModified{By: sess.UID, At: s.now(), Mutation: uuid.NewString()}
}

// Create persists a new assignment owned by the session user.
func (s *AssignmentService) Create(ctx context.Context, sess session.Session, title string) (model.Assignment, Receipt, error) {
	if !sess.Valid() {
		return model.Assignment{}, Receipt{}, session.ErrNoSession
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	lm := s.stamp(sess)
	a := model.NewAssignment(s.newID(), sess.UID, title, lm.At, lm.Mutation)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.assignments.Create(ctx, a); err != nil {
		return model.Assignment{}, Receipt{}, s.fail("create assignment", a.ID, sess, err)
	}
	s.log.Info().Str("userID", sess.UID).Str("assignmentID", a.ID).Msg("Assignment created")
	return a, Receipt{MutationID: lm.Mutation, AssignmentID: a.ID, Kind: MutationCreate, At: lm.At}, nil
}

func (s *AssignmentService) Get(ctx context.Context, sess session.Session, id string) (model.Assignment, error) {
	if !sess.Valid() {
		return model.Assignment{}, session.ErrNoSession
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	a, err := s.assignments.Get(ctx, id)
	if err != nil {
		return model.Assignment{}, s.fail("get assignment", id, sess, err)
	}
	if !a.HasCollaborator(sess.UID) {
		return model.Assignment{}, model.ErrPermissionDenied
	}
	return a, nil
}

// List is a one-shot read of the assignments shared with the session user.
func (s *AssignmentService) List(ctx context.Context, sess session.Session) ([]model.Assignment, error) {
	if !sess.Valid() {
		return nil, session.ErrNoSession
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	items, err := s.assignments.ListForCollaborator(ctx, sess.UID)
	if err != nil {
		return nil, s.fail("list assignments", "", sess, err)
	}
	return items, nil
}

func (s *AssignmentService) UpdateTitle(ctx context.Context, sess session.Session, id, title string) (Receipt, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Receipt{}, model.NewValidationError("title", "title is required")
	}
	return s.update(ctx, sess, id, "update title", func(model.Assignment) (store.Patch, error) {
		return store.Patch{Title: &title}, nil
	})
}

func (s *AssignmentService) UpdateContent(ctx context.Context, sess session.Session, id, content string, align model.TextAlign, format model.TextFormat) (Receipt, error) {
	align, err := model.ParseTextAlign(string(align))
	if err != nil {
		return Receipt{}, err
	}
	return s.update(ctx, sess, id, "update content", func(model.Assignment) (store.Patch, error) {
		return store.Patch{Content: &content, TextAlign: &align, TextFormat: &format}, nil
	})
}

// UpdateReminder sets the reminder; a nil time clears it.
func (s *AssignmentService) UpdateReminder(ctx context.Context, sess session.Session, id string, at *time.Time) (Receipt, error) {
	return s.update(ctx, sess, id, "update reminder", func(model.Assignment) (store.Patch, error) {
		return store.Patch{SetReminder: true, Reminder: at}, nil
	})
}

// update runs a collaborator-only partial merge and stamps lastModified.
func (s *AssignmentService) update(ctx context.Context, sess session.Session, id, op string, build func(model.Assignment) (store.Patch, error)) (Receipt, error) {
	if !sess.Valid() {
		return Receipt{}, session.ErrNoSession
	}
	var lm model.LastModified

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.assignments.Update(ctx, id, func(cur model.Assignment) (store.Patch, error) {
		// Stamped per attempt so At follows commit order.
		lm = s.stamp(sess)
		if !cur.HasCollaborator(sess.UID) {
			return store.Patch{}, model.ErrPermissionDenied
		}
		p, err := build(cur)
		if err != nil {
			return store.Patch{}, err
		}
		p.LastModified = lm
		return p, nil
	})
	if err != nil {
		return Receipt{}, s.fail(op, id, sess, err)
	}
	return Receipt{MutationID: lm.Mutation, AssignmentID: id, Kind: MutationUpdate, At: lm.At}, nil
}

// Delete removes the assignment. Only its creator may do so.
func (s *AssignmentService) Delete(ctx context.Context, sess session.Session, id string) (Receipt, error) {
	if !sess.Valid() {
		return Receipt{}, session.ErrNoSession
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.assignments.Delete(ctx, id, func(cur model.Assignment) error {
		if !cur.IsOwner(sess.UID) {
			return model.ErrPermissionDenied
		}
		return nil
	})
	if err != nil {
		return Receipt{}, s.fail("delete assignment", id, sess, err)
	}
	s.log.Info().Str("userID", sess.UID).Str("assignmentID", id).Msg("Assignment deleted")
	return Receipt{MutationID: uuid.NewString(), AssignmentID: id, Kind: MutationDelete, At: s.now()}, nil
}

// ShareWith adds the user registered under email to the collaborators.
func (s *AssignmentService) ShareWith(ctx context.Context, sess session.Session, id, email string) (Receipt, error) {
	if !sess.Valid() {
		return Receipt{}, session.ErrNoSession
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return Receipt{}, model.ErrEmptyEmail
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	target, err := s.users.FindByEmail(lookupCtx, email)
	cancel()
	if errors.Is(err, model.ErrNotFound) {
		return Receipt{}, model.ErrShareTargetNotFound
	}
	if err != nil {
		return Receipt{}, s.fail("resolve share target", id, sess, err)
	}
	if target.UID == sess.UID {
		return Receipt{}, model.ErrCannotShareWithSelf
	}

	rcpt, err := s.update(ctx, sess, id, "share assignment", func(cur model.Assignment) (store.Patch, error) {
		if cur.HasCollaborator(target.UID) {
			return store.Patch{}, model.ErrAlreadyCollaborator
		}
		return store.Patch{AddCollaborator: target.UID}, nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.log.Info().Str("userID", sess.UID).Str("assignmentID", id).Str("collaborator", target.UID).Msg("Assignment shared")
	return rcpt, nil
}

// Collaborators resolves the profiles of everyone the assignment is shared
// with. Users without a profile document come back with only their uid.
func (s *AssignmentService) Collaborators(ctx context.Context, sess session.Session, id string) ([]model.UserProfile, error) {
	a, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := make([]model.UserProfile, 0, len(a.Collaborators))
	for _, uid := range a.Collaborators {
		p, err := s.users.Get(ctx, uid)
		switch {
		case errors.Is(err, model.ErrNotFound):
			p = model.UserProfile{UID: uid}
		case err != nil:
			return nil, s.fail("get collaborator", id, sess, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// fail passes domain errors through and turns everything else into a
// persistence error. Nothing is retried.
func (s *AssignmentService) fail(op, id string, sess session.Session, err error) error {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrPermissionDenied) || model.IsValidationError(err) {
		return err
	}
	metrics.WriteFailures.WithLabelValues(op).Inc()
	s.log.Error().Err(err).Str("op", op).Str("userID", sess.UID).Str("assignmentID", id).Msg("Store operation failed")
	return model.NewPersistenceError(op, err)
}
