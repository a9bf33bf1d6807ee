package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// ResolverPolicy decides what happens to a waiter when another request for
// the same operation is issued before the first is acknowledged.
type ResolverPolicy int

const (
	// PolicyQueue keeps every waiter; acknowledgements resolve them in
	// request order.
	PolicyQueue ResolverPolicy = iota

	// PolicyReplace keeps only the newest waiter. The replaced waiter fails
	// with domain.ErrResolverSuperseded, and the first acknowledgement to
	// arrive resolves the newest waiter.
	PolicyReplace
)

// String returns the policy name used in configuration.
func (p ResolverPolicy) String() string {
	switch p {
	case PolicyReplace:
		return "replace"
	default:
		return "queue"
	}
}

// ParseResolverPolicy parses "queue" or "replace".
func ParseResolverPolicy(s string) (ResolverPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queue":
		return PolicyQueue, nil
	case "replace":
		return PolicyReplace, nil
	}
	return PolicyQueue, domain.NewValidationError("resolverPolicy", s, "expected queue or replace")
}

// Future is a single-shot completion handle for one render request.
type Future struct {
	op   domain.Operation
	once sync.Once
	done chan struct{}
	ack  domain.Ack
	err  error
}

func newFuture(op domain.Operation) *Future {
	return &Future{op: op, done: make(chan struct{})}
}

// resolvedFuture returns a future that has already completed.
func resolvedFuture(op domain.Operation, ack domain.Ack, err error) *Future {
	f := newFuture(op)
	f.resolve(ack, err)
	return f
}

// resolve completes the future. Later calls are no-ops.
func (f *Future) resolve(ack domain.Ack, err error) {
	f.once.Do(func() {
		f.ack, f.err = ack, err
		close(f.done)
	})
}

// Op returns the operation the future waits for.
func (f *Future) Op() domain.Operation {
	return f.op
}

// Done is closed once the future completes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the acknowledgement arrives or ctx is done.
// Giving up on the wait does not cancel the render.
func (f *Future) Wait(ctx context.Context) (domain.Ack, error) {
	select {
	case <-f.done:
		return f.ack, f.err
	case <-ctx.Done():
		return domain.Ack{}, fmt.Errorf("waiting for %s: %w", f.op, ctx.Err())
	}
}

// resolvers tracks pending waiters per operation for one instance.
// Not safe for concurrent use; the coordinator guards it.
type resolvers struct {
	policy  ResolverPolicy
	pending map[domain.Operation][]*Future
}

func newResolvers(policy ResolverPolicy) *resolvers {
	return &resolvers{policy: policy, pending: make(map[domain.Operation][]*Future)}
}

// add registers a waiter for op.
func (r *resolvers) add(op domain.Operation) *Future {
	f := newFuture(op)
	if r.policy == PolicyReplace {
		for _, old := range r.pending[op] {
			old.resolve(domain.Ack{}, domain.ErrResolverSuperseded)
		}
		r.pending[op] = []*Future{f}
		return f
	}
	r.pending[op] = append(r.pending[op], f)
	return f
}

// remove withdraws a waiter whose request was never sent.
func (r *resolvers) remove(f *Future) {
	list := r.pending[f.op]
	for i, p := range list {
		if p == f {
			r.pending[f.op] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.pending[f.op]) == 0 {
		delete(r.pending, f.op)
	}
}

// resolve completes the oldest waiter for op. It reports false when nobody
// was waiting.
func (r *resolvers) resolve(op domain.Operation, ack domain.Ack, err error) bool {
	list := r.pending[op]
	if len(list) == 0 {
		return false
	}
	f := list[0]
	if len(list) == 1 {
		delete(r.pending, op)
	} else {
		r.pending[op] = list[1:]
	}
	f.resolve(ack, err)
	return true
}

// rejectAll fails every pending waiter with err.
func (r *resolvers) rejectAll(err error) {
	for op, list := range r.pending {
		for _, f := range list {
			f.resolve(domain.Ack{}, err)
		}
		delete(r.pending, op)
	}
}

// count returns the number of waiters for op.
func (r *resolvers) count(op domain.Operation) int {
	return len(r.pending[op])
}
