// Package memstore is an in-process implementation of the store ports with
// live feeds. It backs the test suites and the --memory dev mode.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/iterator"

	"taskmate/model"
	"taskmate/store"
)

type Store struct {
	mu       sync.RWMutex
	docs     map[string]model.Assignment
	users    map[string]model.UserProfile
	watchers map[*watcher]struct{}

	writeErr error
	latency  time.Duration
}

type watcher struct {
	notify chan struct{}
}

var (
	_ store.Assignments = (*Store)(nil)
	_ store.Users       = userDirectory{}
)

func New() *Store {
	return &Store{
		docs:     make(map[string]model.Assignment),
		users:    make(map[string]model.UserProfile),
		watchers: make(map[*watcher]struct{}),
	}
}

// PutUser seeds a profile in the users collection.
func (s *Store) PutUser(p model.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[p.UID] = p
}

// FailWrites makes every following write return err until it is called with nil.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// SetLatency delays every call by d, honoring context cancellation.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Snapshot returns a copy of every stored assignment ordered by id.
func (s *Store) Snapshot() []model.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(model.Assignment) bool { return true })
}

func (s *Store) Create(ctx context.Context, a model.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.begin(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.docs[a.ID] = a.Clone()
	s.broadcast()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (model.Assignment, error) {
	if err := s.begin(ctx); err != nil {
		return model.Assignment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.docs[id]
	if !ok {
		return model.Assignment{}, model.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *Store) ListForCollaborator(ctx context.Context, uid string) ([]model.Assignment, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(a model.Assignment) bool { return a.HasCollaborator(uid) }), nil
}

func (s *Store) Update(ctx context.Context, id string, fn func(model.Assignment) (store.Patch, error)) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[id]
	if !ok {
		return model.ErrNotFound
	}
	p, err := fn(cur.Clone())
	if err != nil {
		return err
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.docs[id] = p.Apply(cur)
	s.broadcast()
	return nil
}

func (s *Store) Delete(ctx context.Context, id string, guard func(model.Assignment) error) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[id]
	if !ok {
		return model.ErrNotFound
	}
	if guard != nil {
		if err := guard(cur.Clone()); err != nil {
			return err
		}
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	delete(s.docs, id)
	s.broadcast()
	return nil
}

// Users returns the users collection view of the store.
func (s *Store) Users() store.Users { return userDirectory{s} }

type userDirectory struct{ s *Store }

func (u userDirectory) FindByEmail(ctx context.Context, email string) (model.UserProfile, error) {
	if err := u.s.begin(ctx); err != nil {
		return model.UserProfile{}, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, p := range u.s.users {
		if p.Email == email {
			return p, nil
		}
	}
	return model.UserProfile{}, model.ErrNotFound
}

func (u userDirectory) Get(ctx context.Context, uid string) (model.UserProfile, error) {
	if err := u.s.begin(ctx); err != nil {
		return model.UserProfile{}, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	p, ok := u.s.users[uid]
	if !ok {
		return model.UserProfile{}, model.ErrNotFound
	}
	return p, nil
}

func (u userDirectory) Save(ctx context.Context, p model.UserProfile) error {
	if err := u.s.begin(ctx); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.writeErr != nil {
		return u.s.writeErr
	}
	cur := u.s.users[p.UID]
	cur.UID = p.UID
	if p.DisplayName != "" {
		cur.DisplayName = p.DisplayName
	}
	if p.PhotoURL != "" {
		cur.PhotoURL = p.PhotoURL
	}
	if p.Email != "" {
		cur.Email = p.Email
	}
	u.s.users[p.UID] = cur
	return nil
}

// begin applies the configured latency.
func (s *Store) begin(ctx context.Context) error {
	s.mu.RLock()
	d := s.latency
	s.mu.RUnlock()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// filter must be called with s.mu held.
func (s *Store) filter(keep func(model.Assignment) bool) []model.Assignment {
	out := make([]model.Assignment, 0, len(s.docs))
	for _, a := range s.docs {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].ID, out[j].ID) < 0 })
	return out
}

// broadcast must be called with s.mu held.
func (s *Store) broadcast() {
	for w := range s.watchers {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

func (s *Store) watch() *watcher {
	w := &watcher{notify: make(chan struct{}, 1)}
	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()
	return w
}

func (s *Store) unwatch(w *watcher) {
	s.mu.Lock()
	delete(s.watchers, w)
	s.mu.Unlock()
}

func (s *Store) WatchCollaborator(ctx context.Context, uid string) (store.ListFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &listFeed{s: s, ctx: ctx, uid: uid, w: s.watch()}, nil
}

func (s *Store) WatchDocument(ctx context.Context, id string) (store.DocumentFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &documentFeed{s: s, ctx: ctx, id: id, w: s.watch()}, nil
}

// listFeed only yields when the query result changed, like a Firestore
// query listener.
type listFeed struct {
	s   *Store
	ctx context.Context
	uid string
	w   *watcher

	mu      sync.Mutex
	stopped bool
	started bool
	last    []model.Assignment
}

func (f *listFeed) Next() ([]model.Assignment, error) {
	for {
		f.mu.Lock()
		stopped, started := f.stopped, f.started
		f.mu.Unlock()
		if stopped {
			return nil, iterator.Done
		}
		if started {
			select {
			case <-f.ctx.Done():
				return nil, f.ctx.Err()
			case <-f.w.notify:
			}
		} else if err := f.ctx.Err(); err != nil {
			return nil, err
		}

		f.s.mu.RLock()
		cur := f.s.filter(func(a model.Assignment) bool { return a.HasCollaborator(f.uid) })
		f.s.mu.RUnlock()

		f.mu.Lock()
		changed := !f.started || !sameList(f.last, cur)
		f.started = true
		f.last = cur
		f.mu.Unlock()
		if changed {
			return cur, nil
		}
	}
}

func (f *listFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.stopped = true
	f.s.unwatch(f.w)
}

type documentFeed struct {
	s   *Store
	ctx context.Context
	id  string
	w   *watcher

	mu      sync.Mutex
	stopped bool
	started bool
	last    model.Assignment
}

func (f *documentFeed) Next() (model.Assignment, error) {
	for {
		f.mu.Lock()
		stopped, started := f.stopped, f.started
		f.mu.Unlock()
		if stopped {
			return model.Assignment{}, iterator.Done
		}
		if started {
			select {
			case <-f.ctx.Done():
				return model.Assignment{}, f.ctx.Err()
			case <-f.w.notify:
			}
		} else if err := f.ctx.Err(); err != nil {
			return model.Assignment{}, err
		}

		f.s.mu.RLock()
		cur, ok := f.s.docs[f.id]
		f.s.mu.RUnlock()
		if !ok {
			return model.Assignment{}, model.ErrNotFound
		}

		f.mu.Lock()
		changed := !f.started || !f.last.Equal(cur)
		f.started = true
		f.last = cur.Clone()
		f.mu.Unlock()
		if changed {
			return cur.Clone(), nil
		}
	}
}

func (f *documentFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.stopped = true
	f.s.unwatch(f.w)
}

func sameList(a, b []model.Assignment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
