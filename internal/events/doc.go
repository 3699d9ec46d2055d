// Package events carries background job progress from invite jobs to the
// components that observe it.
//
// Jobs publish JobEvents through an EventEmitter without knowing who
// listens. The in-memory emitter fans events out to registered handlers:
// the StatusBoard, which keeps the latest progress per session for status
// queries and progress streams, and the LoggingHandler.
package events
