package session

import "errors"

// Executor and registry errors
var (
	// ErrQueueFull is returned when a session's work queue has no free slot.
	ErrQueueFull = errors.New("session queue is full")

	// ErrExecutorStopped is returned for work submitted to, or still queued
	// on, a stopped executor.
	ErrExecutorStopped = errors.New("session executor is stopped")

	// ErrSessionExists is returned when creating a session with an id that is
	// already registered.
	ErrSessionExists = errors.New("session already exists")

	// ErrRegistryClosed is returned after Shutdown.
	ErrRegistryClosed = errors.New("session registry is shut down")
)
