// Package livesync keeps a session's view of its assignments in step with the
// store. It owns the list subscription, at most one detail subscription, and
// the confirmation of submitted writes.
package livesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"taskmate/metrics"
	"taskmate/model"
	"taskmate/services"
	"taskmate/session"
	"taskmate/store"
)

const DefaultNoticeDuration = 3 * time.Second

type State int

const (
	Unsubscribed State = iota
	Subscribing
	Active
	Errored
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	case Errored:
		return "error"
	default:
		return "unsubscribed"
	}
}

// RemoteEdit tells the viewer that another collaborator changed the open
// assignment. It is raised only when a snapshot after the first one carries a
// new lastModified version whose editor is not the session user.
type RemoteEdit struct {
	AssignmentID string        `json:"assignmentId"`
	By           string        `json:"by"`
	At           time.Time     `json:"at"`
	DismissAfter time.Duration `json:"dismissAfter"`
}

// Handlers receive controller events. Calls are serialized and made from the
// subscription goroutines; a handler must not call back into the controller
// synchronously. Nil handlers are skipped.
type Handlers struct {
	OnList         func(ListUpdate)
	OnDetail       func(model.Assignment)
	OnRemoteEdit   func(RemoteEdit)
	OnDetailClosed func(id string, err error)
	OnListError    func(err error)
}

type subscription struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

type Controller struct {
	store  store.Assignments
	sess   session.Session
	h      Handlers
	log    zerolog.Logger
	notice time.Duration

	// deliverMu serializes handler calls. It is taken before mu.
	deliverMu sync.Mutex

	mu          sync.Mutex
	listState   State
	listErr     error
	items       []model.Assignment
	list        *subscription
	detail      *subscription
	detailState State
	detailErr   error
	pending     map[string]*Pending
	confirmed   map[string]uint64
	seq         uint64
	stopped     bool
}

type Option func(*Controller)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithNoticeDuration sets how long remote-edit notices stay visible.
func WithNoticeDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.notice = d
		}
	}
}

func NewController(st store.Assignments, sess session.Session, h Handlers, opts ...Option) *Controller {
	c := &Controller{
		store:     st,
		sess:      sess,
		h:         h,
		log:       zerolog.Nop(),
		notice:    DefaultNoticeDuration,
		pending:   make(map[string]*Pending),
		confirmed: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("uid", sess.UID).Logger()
	return c
}

// Start opens the list subscription for the session's assignments.
func (c *Controller) Start(ctx context.Context) error {
	if !c.sess.Valid() {
		return session.ErrNoSession
	}
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.list != nil {
		c.mu.Unlock()
		return nil
	}
	sctx, cancel := context.WithCancel(ctx)
	l := &subscription{id: c.sess.UID, cancel: cancel, done: make(chan struct{})}
	c.list = l
	c.listState = Subscribing
	c.listErr = nil
	c.mu.Unlock()

	feed, err := c.store.WatchCollaborator(sctx, c.sess.UID)
	if err != nil {
		cancel()
		close(l.done)
		err = &model.SubscriptionError{Target: metrics.KindList, Err: err}
		c.mu.Lock()
		if c.list == l {
			c.list = nil
			c.listState = Errored
			c.listErr = err
		}
		c.mu.Unlock()
		metrics.SubscriptionErrors.WithLabelValues(metrics.KindList).Inc()
		c.log.Error().Err(err).Msg("list subscription failed")
		return err
	}
	metrics.ActiveSubscriptions.WithLabelValues(metrics.KindList).Inc()
	go c.runList(sctx, l, feed)
	return nil
}

func (c *Controller) runList(ctx context.Context, l *subscription, feed store.ListFeed) {
	defer close(l.done)
	defer metrics.ActiveSubscriptions.WithLabelValues(metrics.KindList).Dec()
	defer feed.Stop()

	first := true
	for {
		items, err := feed.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.failList(l, err)
			return
		}
		metrics.Snapshots.WithLabelValues(metrics.KindList).Inc()
		if !c.applyList(l, items, first) {
			return
		}
		first = false
	}
}

// applyList reconciles one snapshot and delivers its effects. It reports
// false once l is no longer the live list subscription.
func (c *Controller) applyList(l *subscription, items []model.Assignment, first bool) bool {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.list != l {
		c.mu.Unlock()
		return false
	}
	c.listState = Active
	next, upd := Reconcile(c.items, items)
	c.items = next
	settled := c.settleLocked(next)
	var gone *subscription
	if d := c.detail; d != nil && indexOf(next, d.id) < 0 {
		gone = d
		c.detail = nil
		c.detailState = Errored
		c.detailErr = model.ErrDocumentGone
	}
	c.mu.Unlock()

	c.log.Debug().
		Int("items", len(next)).
		Int("added", len(upd.Added)).
		Int("modified", len(upd.Modified)).
		Int("removed", len(upd.Removed)).
		Msg("list snapshot")
	if (first || !upd.Empty()) && c.h.OnList != nil {
		upd.Items = cloneAll(next)
		c.h.OnList(upd)
	}
	for _, p := range settled {
		p.resolve(nil)
	}
	if gone != nil {
		gone.cancel()
		c.log.Info().Str("assignment", gone.id).Msg("open assignment left the list")
		if c.h.OnDetailClosed != nil {
			c.h.OnDetailClosed(gone.id, model.ErrDocumentGone)
		}
	}
	return true
}

func (c *Controller) failList(l *subscription, err error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	err = &model.SubscriptionError{Target: metrics.KindList, Err: err}
	c.mu.Lock()
	if c.list != l {
		c.mu.Unlock()
		return
	}
	c.list = nil
	c.listState = Errored
	c.listErr = err
	c.mu.Unlock()

	metrics.SubscriptionErrors.WithLabelValues(metrics.KindList).Inc()
	c.log.Error().Err(err).Msg("list subscription ended")
	if c.h.OnListError != nil {
		c.h.OnListError(err)
	}
}

// OpenDetail subscribes to one assignment, replacing any open detail.
func (c *Controller) OpenDetail(ctx context.Context, id string) error {
	c.CloseDetail()

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	sctx, cancel := context.WithCancel(ctx)
	d := &subscription{id: id, cancel: cancel, done: make(chan struct{})}
	c.detail = d
	c.detailState = Subscribing
	c.detailErr = nil
	c.mu.Unlock()

	feed, err := c.store.WatchDocument(sctx, id)
	if err != nil {
		cancel()
		close(d.done)
		if errors.Is(err, model.ErrNotFound) {
			err = model.ErrDocumentGone
		}
		err = &model.SubscriptionError{Target: id, Err: err}
		c.mu.Lock()
		if c.detail == d {
			c.detail = nil
			c.detailState = Errored
			c.detailErr = err
		}
		c.mu.Unlock()
		metrics.SubscriptionErrors.WithLabelValues(metrics.KindDetail).Inc()
		c.log.Warn().Err(err).Str("assignment", id).Msg("detail subscription failed")
		return err
	}
	metrics.ActiveSubscriptions.WithLabelValues(metrics.KindDetail).Inc()
	go c.runDetail(sctx, d, feed)
	return nil
}

func (c *Controller) runDetail(ctx context.Context, d *subscription, feed store.DocumentFeed) {
	defer close(d.done)
	defer metrics.ActiveSubscriptions.WithLabelValues(metrics.KindDetail).Dec()
	defer feed.Stop()

	var last *model.LastModified
	for {
		a, err := feed.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.failDetail(d, err)
			return
		}
		metrics.Snapshots.WithLabelValues(metrics.KindDetail).Inc()

		var notice *RemoteEdit
		if last != nil && !sameVersion(*last, a.LastModified) && a.LastModified.By != c.sess.UID {
			notice = &RemoteEdit{
				AssignmentID: a.ID,
				By:           a.LastModified.By,
				At:           a.LastModified.At,
				DismissAfter: c.notice,
			}
		}
		lm := a.LastModified
		last = &lm

		if !c.deliverDetail(d, a, notice) {
			return
		}
	}
}

func (c *Controller) deliverDetail(d *subscription, a model.Assignment, notice *RemoteEdit) bool {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	current := c.detail == d
	if current {
		c.detailState = Active
	}
	c.mu.Unlock()
	if !current {
		return false
	}
	if c.h.OnDetail != nil {
		c.h.OnDetail(a)
	}
	if notice != nil {
		metrics.RemoteEdits.Inc()
		c.log.Debug().Str("assignment", a.ID).Str("by", notice.By).Msg("remote edit")
		if c.h.OnRemoteEdit != nil {
			c.h.OnRemoteEdit(*notice)
		}
	}
	return true
}

// failDetail force-closes the detail view. A missing document and a broken
// feed both surface as ErrDocumentGone.
func (c *Controller) failDetail(d *subscription, err error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.detail != d {
		c.mu.Unlock()
		return
	}
	c.detail = nil
	c.detailState = Errored
	c.detailErr = model.ErrDocumentGone
	c.mu.Unlock()

	if errors.Is(err, model.ErrNotFound) {
		c.log.Info().Str("assignment", d.id).Msg("open assignment was deleted")
	} else {
		metrics.SubscriptionErrors.WithLabelValues(metrics.KindDetail).Inc()
		c.log.Error().Err(err).Str("assignment", d.id).Msg("detail subscription ended")
	}
	if c.h.OnDetailClosed != nil {
		c.h.OnDetailClosed(d.id, model.ErrDocumentGone)
	}
}

// CloseDetail tears down the detail subscription. No detail handler runs
// after it returns.
func (c *Controller) CloseDetail() {
	c.mu.Lock()
	d := c.detail
	c.detail = nil
	if d != nil {
		c.detailState = Unsubscribed
		c.detailErr = nil
	}
	c.mu.Unlock()

	// Wait out a delivery that may have started before the swap.
	c.deliverMu.Lock()
	c.deliverMu.Unlock()

	if d != nil {
		d.cancel()
		<-d.done
	}
}

// Submit runs write in the background and returns a handle that resolves
// when a list snapshot reflects it.
func (c *Controller) Submit(ctx context.Context, write Write) *Pending {
	c.mu.Lock()
	c.seq++
	p := newPending(c.seq)
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		p.resolve(ErrStopped)
		return p
	}

	go func() {
		r, err := write(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("write failed")
			p.resolve(err)
			return
		}
		p.setReceipt(r)
		c.track(p, r)
	}()
	return p
}

// track registers p, settling it at once if the latest list state already
// reflects the write.
func (c *Controller) track(p *Pending, r services.Receipt) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		p.resolve(ErrStopped)
		return
	}
	c.pending[r.MutationID] = p
	var settled []*Pending
	if c.listState == Active {
		settled = c.settleLocked(c.items)
	}
	c.mu.Unlock()
	for _, s := range settled {
		s.resolve(nil)
	}
}

// Stop tears down both subscriptions and fails unconfirmed writes.
func (c *Controller) Stop() {
	c.CloseDetail()

	c.mu.Lock()
	c.stopped = true
	l := c.list
	c.list = nil
	if l != nil {
		c.listState = Unsubscribed
	}
	pending := c.pending
	c.pending = make(map[string]*Pending)
	c.mu.Unlock()

	c.deliverMu.Lock()
	c.deliverMu.Unlock()

	if l != nil {
		l.cancel()
		<-l.done
	}
	for _, p := range pending {
		p.resolve(ErrStopped)
	}
}

func (c *Controller) ListState() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listState, c.listErr
}

// DetailState returns the state of the detail view and the id it shows.
func (c *Controller) DetailState() (State, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := ""
	if c.detail != nil {
		id = c.detail.id
	}
	return c.detailState, id, c.detailErr
}

// Items returns a copy of the reconciled list.
func (c *Controller) Items() []model.Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.items)
}

func sameVersion(a, b model.LastModified) bool {
	return a.By == b.By && a.Mutation == b.Mutation && a.At.Equal(b.At)
}

func cloneAll(items []model.Assignment) []model.Assignment {
	out := make([]model.Assignment, len(items))
	for i, a := range items {
		out[i] = a.Clone()
	}
	return out
}
