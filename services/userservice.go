package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskmate/model"
	"taskmate/session"
	"taskmate/store"
)

// UserService keeps the users collection in step with signed-in identities
// so collaborators can be found by email.
type UserService struct {
	users   store.Users
	log     zerolog.Logger
	timeout time.Duration
}

func NewUserService(users store.Users, log zerolog.Logger, timeout time.Duration) *UserService {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &UserService{users: users, log: log, timeout: timeout}
}

// ProfileUpdate carries optional profile overrides.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// Register writes the session identity into users/{uid}, applying upd on
// top. The email always comes from the identity.
func (s *UserService) Register(ctx context.Context, sess session.Session, upd ProfileUpdate) (model.UserProfile, error) {
	if !sess.Valid() {
		return model.UserProfile{}, session.ErrNoSession
	}
	p := sess.Profile()
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" {
			return model.UserProfile{}, model.NewValidationError("displayName", "display name cannot be empty")
		}
		p.DisplayName = name
	}
	if upd.PhotoURL != nil {
		p.PhotoURL = strings.TrimSpace(*upd.PhotoURL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.users.Save(ctx, p); err != nil {
		s.log.Error().Err(err).Str("userID", sess.UID).Msg("Failed to save profile")
		return model.UserProfile{}, model.NewPersistenceError("save profile", err)
	}
	stored, err := s.users.Get(ctx, sess.UID)
	if err != nil {
		return model.UserProfile{}, model.NewPersistenceError("get profile", err)
	}
	s.log.Info().Str("userID", sess.UID).Msg("Profile registered")
	return stored, nil
}

// Profile returns the stored profile, or the identity alone when none exists.
func (s *UserService) Profile(ctx context.Context, sess session.Session) (model.UserProfile, bool, error) {
	if !sess.Valid() {
		return model.UserProfile{}, false, session.ErrNoSession
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.users.Get(ctx, sess.UID)
	switch {
	case err == nil:
		return p, true, nil
	case errors.Is(err, model.ErrNotFound):
		return sess.Profile(), false, nil
	default:
		return model.UserProfile{}, false, model.NewPersistenceError("get profile", err)
	}
}
