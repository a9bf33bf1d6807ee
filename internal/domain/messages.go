package domain

import "time"

// Operation names a render protocol message and the resolver that waits for its acknowledgement.
type Operation string

// Render protocol operations.
const (
	OpInit             Operation = "init"
	OpForegroundRender Operation = "fgRender"
	OpBackgroundRender Operation = "bgRender"
	OpRender           Operation = "render" // composite
	OpBitmap           Operation = "bitmap" // main surface extraction
	OpForegroundBitmap Operation = "fgBitmap"
	OpBackgroundBitmap Operation = "bgBitmap"
	OpDelete           Operation = "delete"
)

// Known reports whether op is part of the protocol.
func (op Operation) Known() bool {
	switch op {
	case OpInit, OpForegroundRender, OpBackgroundRender, OpRender,
		OpBitmap, OpForegroundBitmap, OpBackgroundBitmap, OpDelete:
		return true
	}
	return false
}

// InitPayload carries the surface description for OpInit.
type InitPayload struct {
	Surface         SurfaceSpec
	AlwaysComposite bool
}

// ForegroundPayload carries the draw commands for OpForegroundRender.
type ForegroundPayload struct {
	Bars []BarPrimitive

	// Mask, when set, replaces the instance's cached mask. The renderer takes
	// ownership of it.
	Mask *Bitmap

	// ReuseMask composites the cached mask when Mask is nil.
	ReuseMask bool

	// Stretch scales the mask to the surface size.
	Stretch bool

	// MotionBlur draws fading trails for bars whose height changed since the previous frame.
	MotionBlur bool

	Overlays []TextOverlay
}

// BackgroundPayload carries the imagery for OpBackgroundRender.
type BackgroundPayload struct {
	// Bitmap is transferred to the renderer.
	Bitmap *Bitmap

	// Stretch scales the bitmap to the surface size.
	Stretch bool
}

// Request is a message sent to the render worker.
// Exactly one payload is set, matching Op.
type Request struct {
	Op Operation
	ID InstanceID

	Init       *InitPayload
	Foreground *ForegroundPayload
	Background *BackgroundPayload
	Layer      Layer // OpBitmap only
}

// Reply is the acknowledgement sent back by the render worker.
type Reply struct {
	Op       Operation
	ID       InstanceID
	Duration time.Duration // render and composite acks
	Bitmap   *Bitmap       // bitmap acks
	Err      error
}

// Ack is what a resolved waiter receives.
type Ack struct {
	ID       InstanceID
	Op       Operation
	Duration time.Duration
	Bitmap   *Bitmap
}
