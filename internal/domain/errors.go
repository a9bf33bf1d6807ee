// Package domain defines domain-specific errors.
// These errors represent pipeline failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services and adapters can return.
var (
	// ErrLengthMismatch is returned when two magnitude frames of unequal length are interpolated.
	// Frames are backed by fixed-capacity buffers, so this signals a buffer-management bug upstream.
	ErrLengthMismatch = errors.New("frame length mismatch")

	// ErrUnknownOperation is returned when a render message carries an unrecognised operation.
	ErrUnknownOperation = errors.New("unknown render operation")

	// ErrInstanceNotFound is returned when an instance identifier is not registered.
	ErrInstanceNotFound = errors.New("visualizer instance not found")

	// ErrInstanceDeleted is returned when a request targets an instance that is being or has been deleted.
	ErrInstanceDeleted = errors.New("visualizer instance deleted")

	// ErrNotInitialized is returned when a render request is issued before init.
	ErrNotInitialized = errors.New("visualizer instance not initialized")

	// ErrResolverSuperseded is returned to a waiter that was replaced by a newer request
	// for the same operation.
	ErrResolverSuperseded = errors.New("resolver superseded by a newer request")

	// ErrCoordinatorClosed is returned when the render coordinator has shut down.
	ErrCoordinatorClosed = errors.New("render coordinator closed")

	// ErrWorkerClosed is returned when posting to a closed render worker.
	ErrWorkerClosed = errors.New("render worker closed")

	// ErrEventBusClosed is returned when closing an event bus twice.
	ErrEventBusClosed = errors.New("event bus closed")

	// ErrBitmapClosed is returned when a closed or detached bitmap is used.
	ErrBitmapClosed = errors.New("bitmap closed")

	// ErrNotPlaying is returned by media elements when an operation requires active playback.
	ErrNotPlaying = errors.New("media not playing")

	// ErrUnsupportedFormat is returned when a media or image file format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNoArtwork is returned when a media file carries no embedded picture.
	ErrNoArtwork = errors.New("no embedded artwork")
)

// RenderError represents a failure on the render side of the pipeline.
type RenderError struct {
	Op      Operation  // Operation that failed
	ID      InstanceID // Instance the request targeted
	Message string     // Error message
	Err     error      // Underlying error (if any)
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render %s failed for %s: %s: %v", e.Op, e.ID, e.Message, e.Err)
	}
	return fmt.Sprintf("render %s failed for %s: %s", e.Op, e.ID, e.Message)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError.
func NewRenderError(op Operation, id InstanceID, message string, err error) *RenderError {
	return &RenderError{
		Op:      op,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "AnalysisController", "RenderCoordinator")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// MediaError represents an error from a media element adapter.
type MediaError struct {
	Op      string // Operation that failed (e.g., "open", "decode")
	Path    string // File path (if applicable)
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *MediaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("media %s failed for '%s': %s", e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("media %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewMediaError creates a new MediaError.
func NewMediaError(op, path, message string, err error) *MediaError {
	return &MediaError{
		Op:      op,
		Path:    path,
		Message: message,
		Err:     err,
	}
}
