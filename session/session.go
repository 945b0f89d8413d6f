// Package session carries the signed-in user explicitly through every call.
package session

import (
	"context"
	"errors"
	"sync"

	"taskmate/model"
)

var ErrNoSession = errors.New("no signed-in user")

// Session is the identity of the local actor.
type Session struct {
	UID         string
	DisplayName string
	PhotoURL    string
	Email       string
}

func (s Session) Valid() bool { return s.UID != "" }

func (s Session) Profile() model.UserProfile {
	return model.UserProfile{UID: s.UID, DisplayName: s.DisplayName, PhotoURL: s.PhotoURL, Email: s.Email}
}

func FromProfile(p model.UserProfile) Session {
	return Session{UID: p.UID, DisplayName: p.DisplayName, PhotoURL: p.PhotoURL, Email: p.Email}
}

// Holder tracks an identity that is still being resolved. It starts in the
// loading state; Set or Fail moves it to ready exactly once.
type Holder struct {
	mu    sync.Mutex
	ready chan struct{}
	sess  Session
	err   error
}

func NewHolder() *Holder {
	return &Holder{ready: make(chan struct{})}
}

func (h *Holder) Set(s Session) { h.finish(s, nil) }

// Fail resolves the holder with no user, e.g. when sign-in was rejected.
func (h *Holder) Fail(err error) {
	if err == nil {
		err = ErrNoSession
	}
	h.finish(Session{}, err)
}

func (h *Holder) finish(s Session, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.ready:
		return
	default:
	}
	h.sess, h.err = s, err
	close(h.ready)
}

func (h *Holder) Loading() bool {
	select {
	case <-h.ready:
		return false
	default:
		return true
	}
}

// Wait blocks until the identity is resolved or ctx is done.
func (h *Holder) Wait(ctx context.Context) (Session, error) {
	select {
	case <-ctx.Done():
		return Session{}, ctx.Err()
	case <-h.ready:
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return Session{}, h.err
	}
	if !h.sess.Valid() {
		return Session{}, ErrNoSession
	}
	return h.sess, nil
}
