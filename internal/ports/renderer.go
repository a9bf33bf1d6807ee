package ports

import (
	"context"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// RenderWorker is the isolated render context.
//
// The worker owns every render surface. Callers communicate with it only
// through messages: requests are processed strictly in the order they are
// posted, and each recognised request produces exactly one reply on the
// Replies channel (an always-composite foreground render produces two).
// Bitmaps travel with their messages and change owner on the way.
type RenderWorker interface {
	// Post queues a request for the worker.
	// Blocks while the queue is full, until ctx is done.
	//
	// Returns domain.ErrWorkerClosed after Close.
	Post(ctx context.Context, req domain.Request) error

	// Replies returns the acknowledgement stream. It is closed when the worker stops.
	Replies() <-chan domain.Reply

	// Close stops the worker after draining queued requests and frees every surface.
	Close() error
}
