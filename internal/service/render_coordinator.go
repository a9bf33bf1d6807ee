package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// InstanceState is the lifecycle state of a render instance.
type InstanceState int

// Instance states.
const (
	StateUninitialized InstanceState = iota
	StateInitialized
	StateRendering
	StateIdle
	StateDeleted
)

// String returns a readable state name.
func (s InstanceState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRendering:
		return "rendering"
	case StateIdle:
		return "idle"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RenderCoordinator sends render requests for many instances to one render
// worker and routes the worker's acknowledgements back to the waiting
// futures.
//
// Acknowledgements are matched to waiters by instance and operation. Replies
// for unknown instances or operations are logged and dropped.
//
// Thread-safety: This implementation is thread-safe.
type RenderCoordinator struct {
	// Dependencies (injected)
	logger   *slog.Logger
	worker   ports.RenderWorker
	registry *Registry
	bus      ports.EventBus
	policy   ResolverPolicy

	// State
	mu        sync.Mutex
	instances map[domain.InstanceID]*Instance
	closed    bool

	dispatchDone chan struct{}
	closeOnce    sync.Once
}

// NewRenderCoordinator starts routing replies from worker. The coordinator
// owns the worker and closes it on Close.
func NewRenderCoordinator(
	logger *slog.Logger,
	worker ports.RenderWorker,
	registry *Registry,
	bus ports.EventBus,
	policy ResolverPolicy,
) *RenderCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	c := &RenderCoordinator{
		logger:       logger.With(slog.String("component", "render_coordinator")),
		worker:       worker,
		registry:     registry,
		bus:          bus,
		policy:       policy,
		instances:    make(map[domain.InstanceID]*Instance),
		dispatchDone: make(chan struct{}),
	}

	go c.dispatch()

	c.logger.Debug("render coordinator initialized", slog.String("policy", policy.String()))
	return c
}

// NewInstance registers a new uninitialized instance.
func (c *RenderCoordinator) NewInstance() (*Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domain.ErrCoordinatorClosed
	}

	in := &Instance{
		c:         c,
		id:        c.registry.Register(),
		resolvers: newResolvers(c.policy),
	}
	c.instances[in.id] = in
	c.logger.Debug("instance registered", slog.String("id", string(in.id)))
	return in, nil
}

// Instance looks up a live instance.
func (c *RenderCoordinator) Instance(id domain.InstanceID) (*Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	in, ok := c.instances[id]
	return in, ok
}

// Len returns the number of live instances.
func (c *RenderCoordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances)
}

// Close stops the worker and fails every outstanding waiter with
// domain.ErrCoordinatorClosed.
func (c *RenderCoordinator) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		err = c.worker.Close()
		<-c.dispatchDone

		c.mu.Lock()
		for id, in := range c.instances {
			in.resolvers.rejectAll(domain.ErrCoordinatorClosed)
			in.state = StateDeleted
			c.registry.Release(id)
			delete(c.instances, id)
		}
		c.mu.Unlock()

		c.logger.Debug("render coordinator closed")
	})
	return err
}

func (c *RenderCoordinator) dispatch() {
	defer close(c.dispatchDone)
	for rep := range c.worker.Replies() {
		c.handleReply(rep)
	}
}

func (c *RenderCoordinator) handleReply(rep domain.Reply) {
	if !rep.Op.Known() {
		c.logger.Warn("dropping reply",
			slog.String("op", string(rep.Op)),
			slog.String("id", string(rep.ID)),
			slog.Any("error", domain.ErrUnknownOperation))
		return
	}

	c.mu.Lock()
	in, ok := c.instances[rep.ID]
	if !ok {
		c.mu.Unlock()
		c.logger.Warn("reply for unknown instance", slog.String("op", string(rep.Op)), slog.String("id", string(rep.ID)))
		rep.Bitmap.Close()
		return
	}

	ack := domain.Ack{ID: rep.ID, Op: rep.Op, Duration: rep.Duration, Bitmap: rep.Bitmap}
	var published domain.Event

	switch rep.Op {
	case domain.OpInit:
		if rep.Err == nil && in.state == StateUninitialized {
			in.state = StateInitialized
		}
	case domain.OpForegroundRender, domain.OpBackgroundRender, domain.OpRender:
		in.settleRender()
		if rep.Err == nil {
			in.lastRender = rep.Duration
			published = domain.NewFrameRenderedEvent(rep.ID, rep.Op, rep.Duration)
		}
	case domain.OpDelete:
		delete(c.instances, rep.ID)
		c.registry.Release(rep.ID)
		published = domain.NewInstanceClosedEvent(rep.ID)
	}

	resolved := in.resolvers.resolve(rep.Op, ack, rep.Err)
	if rep.Op == domain.OpDelete {
		in.resolvers.rejectAll(domain.ErrInstanceDeleted)
	}
	autoComposite := rep.Op == domain.OpRender && in.alwaysComposite
	c.mu.Unlock()

	if !resolved {
		// Composites triggered by always-composite mode have no waiter.
		if !autoComposite {
			c.logger.Debug("reply without waiter", slog.String("op", string(rep.Op)), slog.String("id", string(rep.ID)))
		}
		rep.Bitmap.Close()
	}
	if rep.Err != nil {
		c.logger.Warn("render request failed",
			slog.String("op", string(rep.Op)),
			slog.String("id", string(rep.ID)),
			slog.Any("error", rep.Err))
	}
	if published != nil && c.bus != nil {
		c.bus.Publish(published)
	}
}

// Instance is one visualizer's view of the render worker.
//
// Each request method returns a Future resolved by the worker's
// acknowledgement. Requests of the same instance reach the worker in the
// order they were issued; callers that need a foreground render to land
// before a composite wait for the first future before issuing the second.
//
// Thread-safety: This implementation is thread-safe.
type Instance struct {
	c  *RenderCoordinator
	id domain.InstanceID

	// sendMu serialises waiter registration with posting so waiters queue
	// in the same order as their requests.
	sendMu sync.Mutex

	// Guarded by c.mu.
	state           InstanceState
	resolvers       *resolvers
	alwaysComposite bool
	inflight        int
	lastRender      time.Duration
}

// ID returns the instance identifier.
func (in *Instance) ID() domain.InstanceID {
	return in.id
}

// State returns the lifecycle state.
func (in *Instance) State() InstanceState {
	in.c.mu.Lock()
	defer in.c.mu.Unlock()
	return in.state
}

// LastRenderTime returns the duration reported by the latest render
// acknowledgement.
func (in *Instance) LastRenderTime() time.Duration {
	in.c.mu.Lock()
	defer in.c.mu.Unlock()
	return in.lastRender
}

// Pending returns the number of waiters for op.
func (in *Instance) Pending(op domain.Operation) int {
	in.c.mu.Lock()
	defer in.c.mu.Unlock()
	return in.resolvers.count(op)
}

// settleRender accounts for one render acknowledgement. Callers hold c.mu.
func (in *Instance) settleRender() {
	if in.inflight > 0 {
		in.inflight--
	}
	if in.inflight == 0 && in.state == StateRendering {
		in.state = StateIdle
	}
}

// Init creates the instance's surfaces. Render requests fail with
// domain.ErrNotInitialized until the returned future resolves.
func (in *Instance) Init(ctx context.Context, surface domain.SurfaceSpec, alwaysComposite bool) (*Future, error) {
	return in.send(ctx, domain.Request{
		Op:   domain.OpInit,
		ID:   in.id,
		Init: &domain.InitPayload{Surface: surface, AlwaysComposite: alwaysComposite},
	})
}

// RequestForegroundRender draws bars, mask and overlays on the foreground
// surface. In always-composite mode the worker composites right after.
func (in *Instance) RequestForegroundRender(ctx context.Context, p domain.ForegroundPayload) (*Future, error) {
	return in.send(ctx, domain.Request{Op: domain.OpForegroundRender, ID: in.id, Foreground: &p})
}

// RequestBackgroundRender hands a bitmap to the background surface. The
// bitmap must not be used after the call.
func (in *Instance) RequestBackgroundRender(ctx context.Context, bitmap *domain.Bitmap, stretch bool) (*Future, error) {
	return in.send(ctx, domain.Request{
		Op:         domain.OpBackgroundRender,
		ID:         in.id,
		Background: &domain.BackgroundPayload{Bitmap: bitmap, Stretch: stretch},
	})
}

// RequestComposite draws background and foreground onto the main surface.
func (in *Instance) RequestComposite(ctx context.Context) (*Future, error) {
	return in.send(ctx, domain.Request{Op: domain.OpRender, ID: in.id})
}

// RequestBitmap detaches a surface; the acknowledgement carries the bitmap.
func (in *Instance) RequestBitmap(ctx context.Context, layer domain.Layer) (*Future, error) {
	return in.send(ctx, domain.Request{Op: domain.OpBitmap, ID: in.id, Layer: layer})
}

// Delete frees the instance's surfaces and releases its identifier once the
// worker acknowledges. Later requests fail with domain.ErrInstanceDeleted.
func (in *Instance) Delete(ctx context.Context) (*Future, error) {
	return in.send(ctx, domain.Request{Op: domain.OpDelete, ID: in.id})
}

// resolverOp returns the waiter name for a request.
func resolverOp(req domain.Request) domain.Operation {
	if req.Op == domain.OpBitmap {
		return req.Layer.BitmapOperation()
	}
	return req.Op
}

func (in *Instance) send(ctx context.Context, req domain.Request) (*Future, error) {
	in.sendMu.Lock()
	defer in.sendMu.Unlock()

	c := in.c
	op := resolverOp(req)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrCoordinatorClosed
	}
	prev := in.state
	switch {
	case prev == StateDeleted:
		c.mu.Unlock()
		return nil, domain.NewRenderError(op, in.id, "instance deleted", domain.ErrInstanceDeleted)

	case req.Op == domain.OpDelete && prev == StateUninitialized && in.resolvers.count(domain.OpInit) == 0:
		// Nothing was ever sent to the worker.
		in.state = StateDeleted
		delete(c.instances, in.id)
		c.registry.Release(in.id)
		c.mu.Unlock()
		c.logger.Debug("uninitialized instance deleted", slog.String("id", string(in.id)))
		return resolvedFuture(op, domain.Ack{ID: in.id, Op: op}, nil), nil

	case req.Op != domain.OpInit && req.Op != domain.OpDelete && prev == StateUninitialized:
		c.mu.Unlock()
		return nil, domain.NewRenderError(op, in.id, "init not acknowledged", domain.ErrNotInitialized)
	}

	f := in.resolvers.add(op)
	added := 0
	switch req.Op {
	case domain.OpInit:
		in.alwaysComposite = req.Init.AlwaysComposite
	case domain.OpForegroundRender, domain.OpBackgroundRender, domain.OpRender:
		added = 1
		if req.Op == domain.OpForegroundRender && in.alwaysComposite {
			added = 2
		}
		in.inflight += added
		in.state = StateRendering
	case domain.OpDelete:
		in.state = StateDeleted
	}
	c.mu.Unlock()

	if err := c.worker.Post(ctx, req); err != nil {
		c.mu.Lock()
		in.resolvers.remove(f)
		if added > 0 {
			in.inflight -= added
			if in.inflight == 0 && in.state == StateRendering {
				in.state = prev
				if prev == StateRendering {
					in.state = StateIdle
				}
			}
		} else {
			in.state = prev
		}
		c.mu.Unlock()
		c.logger.Warn("failed to post render request",
			slog.String("op", string(req.Op)),
			slog.String("id", string(in.id)),
			slog.Any("error", err))
		return nil, domain.NewRenderError(op, in.id, "post failed", err)
	}
	return f, nil
}
