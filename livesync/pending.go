package livesync

import (
	"context"
	"errors"
	"sync"

	"taskmate/metrics"
	"taskmate/model"
	"taskmate/services"
)

// ErrStopped resolves writes still unconfirmed when the controller stops.
var ErrStopped = errors.New("live sync stopped before the write was confirmed")

// Write performs one store mutation and returns its receipt.
type Write func(ctx context.Context) (services.Receipt, error)

// Pending tracks a submitted write until a snapshot reflects it.
type Pending struct {
	seq  uint64
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	receipt services.Receipt
	err     error
}

func newPending(seq uint64) *Pending {
	return &Pending{seq: seq, done: make(chan struct{})}
}

func (p *Pending) resolve(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		outcome := "confirmed"
		if err != nil {
			outcome = "failed"
		}
		metrics.Confirmations.WithLabelValues(outcome).Inc()
		close(p.done)
	})
}

func (p *Pending) setReceipt(r services.Receipt) {
	p.mu.Lock()
	p.receipt = r
	p.mu.Unlock()
}

// Done is closed once the write is confirmed or has failed.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Receipt returns the write receipt. It is zero until the write returns.
func (p *Pending) Receipt() services.Receipt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.receipt
}

// Err returns the write error after Done is closed.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until the write is confirmed by a snapshot, fails, or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reflected reports whether items show the effect of r. A version stamped no
// earlier than r was committed after it, so it carries r's effect even when a
// collaborator overwrote the mutation id first.
func reflected(items []model.Assignment, r services.Receipt) bool {
	i := indexOf(items, r.AssignmentID)
	if r.Kind == services.MutationDelete {
		return i < 0
	}
	if i < 0 {
		return false
	}
	lm := items[i].LastModified
	if lm.Mutation == r.MutationID {
		return true
	}
	return !r.At.IsZero() && !lm.At.Before(r.At)
}

// settleLocked resolves the pendings reflected by items. Writes to one
// assignment are taken to apply in submission order, so a confirmed write
// also settles every earlier write to the same assignment. Callers hold c.mu.
func (c *Controller) settleLocked(items []model.Assignment) []*Pending {
	for _, p := range c.pending {
		r := p.Receipt()
		if reflected(items, r) && p.seq > c.confirmed[r.AssignmentID] {
			c.confirmed[r.AssignmentID] = p.seq
		}
	}
	var out []*Pending
	for id, p := range c.pending {
		if p.seq <= c.confirmed[p.Receipt().AssignmentID] {
			out = append(out, p)
			delete(c.pending, id)
		}
	}
	return out
}
