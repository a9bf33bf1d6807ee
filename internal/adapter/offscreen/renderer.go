// Package offscreen implements the render worker: an isolated goroutine that
// owns every render surface and talks to the rest of the program only through
// request and reply messages.
package offscreen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// DefaultQueueSize is the request buffer of a worker.
const DefaultQueueSize = 16

// Renderer is the offscreen render worker.
//
// Requests are handled one at a time in posting order. Each recognised
// request produces one reply, except a foreground render on an
// always-composite instance, which is followed by a composite reply.
// Unknown operations are logged and dropped without a reply.
//
// Replies must be drained; the worker blocks when the reply buffer is full.
//
// Thread-safety: Post and Close may be called from any goroutine.
type Renderer struct {
	logger   *slog.Logger
	requests chan domain.Request
	replies  chan domain.Reply
	done     chan struct{}

	mu     sync.RWMutex
	closed bool

	// Owned by the worker goroutine.
	instances map[domain.InstanceID]*instance
}

var _ ports.RenderWorker = (*Renderer)(nil)

// Option configures a Renderer.
type Option func(*Renderer)

// WithQueueSize sets the request buffer size.
func WithQueueSize(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.requests = make(chan domain.Request, n)
			r.replies = make(chan domain.Reply, 2*n)
		}
	}
}

// New starts a render worker.
func New(logger *slog.Logger, opts ...Option) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		logger:    logger.With(slog.String("component", "offscreen")),
		requests:  make(chan domain.Request, DefaultQueueSize),
		replies:   make(chan domain.Reply, 2*DefaultQueueSize),
		done:      make(chan struct{}),
		instances: make(map[domain.InstanceID]*instance),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.run()
	return r
}

// Post implements ports.RenderWorker.
func (r *Renderer) Post(ctx context.Context, req domain.Request) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return domain.ErrWorkerClosed
	}

	select {
	case r.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replies implements ports.RenderWorker.
func (r *Renderer) Replies() <-chan domain.Reply {
	return r.replies
}

// Close implements ports.RenderWorker.
func (r *Renderer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	close(r.requests)
	r.mu.Unlock()

	<-r.done
	return nil
}

func (r *Renderer) run() {
	defer close(r.done)
	defer close(r.replies)

	for req := range r.requests {
		r.handle(req)
	}

	for id, in := range r.instances {
		in.free()
		delete(r.instances, id)
	}
	r.logger.Debug("render worker stopped")
}

func (r *Renderer) handle(req domain.Request) {
	if !req.Op.Known() {
		r.logger.Warn("dropping render request",
			slog.String("op", string(req.Op)),
			slog.String("id", string(req.ID)),
			slog.Any("error", domain.ErrUnknownOperation))
		return
	}

	if req.Op == domain.OpInit {
		r.init(req)
		return
	}

	in, ok := r.instances[req.ID]
	if !ok {
		op := req.Op
		if op == domain.OpBitmap {
			op = req.Layer.BitmapOperation()
		}
		r.reply(domain.Reply{
			Op:  op,
			ID:  req.ID,
			Err: domain.NewRenderError(op, req.ID, "no surfaces", domain.ErrInstanceNotFound),
		})
		return
	}

	switch req.Op {
	case domain.OpForegroundRender:
		var p domain.ForegroundPayload
		if req.Foreground != nil {
			p = *req.Foreground
		}
		start := time.Now()
		in.drawForeground(p)
		r.reply(domain.Reply{Op: req.Op, ID: req.ID, Duration: time.Since(start)})

		if in.alwaysComposite {
			r.composite(in)
		}

	case domain.OpBackgroundRender:
		var p domain.BackgroundPayload
		if req.Background != nil {
			p = *req.Background
		}
		start := time.Now()
		reply := domain.Reply{Op: req.Op, ID: req.ID}
		if err := in.drawBackground(p); err != nil {
			reply.Err = domain.NewRenderError(req.Op, req.ID, "background bitmap unusable", err)
		}
		reply.Duration = time.Since(start)
		r.reply(reply)

	case domain.OpRender:
		r.composite(in)

	case domain.OpBitmap, domain.OpForegroundBitmap, domain.OpBackgroundBitmap:
		layer := req.Layer
		switch req.Op {
		case domain.OpForegroundBitmap:
			layer = domain.LayerForeground
		case domain.OpBackgroundBitmap:
			layer = domain.LayerBackground
		}
		r.reply(domain.Reply{Op: layer.BitmapOperation(), ID: req.ID, Bitmap: in.extract(layer)})

	case domain.OpDelete:
		in.free()
		delete(r.instances, req.ID)
		r.logger.Debug("instance deleted", slog.String("id", string(req.ID)))
		r.reply(domain.Reply{Op: req.Op, ID: req.ID})
	}
}

func (r *Renderer) init(req domain.Request) {
	if req.Init == nil || req.Init.Surface.Width <= 0 || req.Init.Surface.Height <= 0 {
		r.reply(domain.Reply{
			Op:  req.Op,
			ID:  req.ID,
			Err: domain.NewRenderError(req.Op, req.ID, "invalid surface", nil),
		})
		return
	}

	if old, ok := r.instances[req.ID]; ok {
		old.free()
	}
	r.instances[req.ID] = newInstance(req.ID, *req.Init)

	r.logger.Debug("instance initialized",
		slog.String("id", string(req.ID)),
		slog.Int("width", req.Init.Surface.Width),
		slog.Int("height", req.Init.Surface.Height),
		slog.Bool("always_composite", req.Init.AlwaysComposite))
	r.reply(domain.Reply{Op: req.Op, ID: req.ID})
}

func (r *Renderer) composite(in *instance) {
	start := time.Now()
	in.composite()
	r.reply(domain.Reply{Op: domain.OpRender, ID: in.id, Duration: time.Since(start)})
}

func (r *Renderer) reply(rep domain.Reply) {
	r.replies <- rep
}
