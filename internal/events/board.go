package events

import (
	"context"
	"sync"
)

// DefaultBoardCapacity is the number of sessions a StatusBoard remembers.
const DefaultBoardCapacity = 256

// MaxInvitedHistory caps the invited members remembered per session.
const MaxInvitedHistory = 1000

type boardEntry struct {
	seen    bool
	latest  JobEvent
	invited []CandidateOutcome
	updates chan struct{}
}

// StatusBoard keeps the latest job event of each session, including
// sessions that were already torn down, so callers can read the outcome of
// a finished job. The oldest session is evicted once capacity is reached.
type StatusBoard struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*boardEntry
	order    []string
}

// NewStatusBoard creates a board remembering up to capacity sessions.
func NewStatusBoard(capacity int) *StatusBoard {
	if capacity < 1 {
		capacity = DefaultBoardCapacity
	}
	return &StatusBoard{
		capacity: capacity,
		entries:  make(map[string]*boardEntry),
	}
}

// HandleEvent implements EventHandler.
func (b *StatusBoard) HandleEvent(_ context.Context, event *JobEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := b.entry(event.SessionID)
	if event.Type == JobStarted && entry.latest.JobID != event.JobID {
		entry.invited = entry.invited[:0]
	}
	entry.seen = true
	entry.latest = *event
	if c := event.Candidate; c != nil && c.Status == "invited" {
		entry.invited = append(entry.invited, *c)
		if over := len(entry.invited) - MaxInvitedHistory; over > 0 {
			entry.invited = entry.invited[over:]
		}
	}

	close(entry.updates)
	entry.updates = make(chan struct{})
	return nil
}

// Latest returns the most recent event of the session.
func (b *StatusBoard) Latest(sessionID string) (JobEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[sessionID]
	if !ok || !entry.seen {
		return JobEvent{}, false
	}
	return entry.latest, true
}

// Invited returns the members invited by the latest job of the session.
func (b *StatusBoard) Invited(sessionID string) []CandidateOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[sessionID]
	if !ok {
		return nil
	}
	return append([]CandidateOutcome(nil), entry.invited...)
}

// Watch returns the latest event of the session and a channel that is
// closed when the next event arrives. The channel is nil when the session
// has no events yet.
func (b *StatusBoard) Watch(sessionID string) (JobEvent, <-chan struct{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[sessionID]
	if !ok || !entry.seen {
		return JobEvent{}, nil, false
	}
	return entry.latest, entry.updates, true
}

// Subscribe works like Watch but also returns a channel for a session that
// has no events yet. The bool reports whether the event is set.
func (b *StatusBoard) Subscribe(sessionID string) (JobEvent, <-chan struct{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry := b.entry(sessionID)
	return entry.latest, entry.updates, entry.seen
}

func (b *StatusBoard) entry(sessionID string) *boardEntry {
	entry, ok := b.entries[sessionID]
	if !ok {
		entry = &boardEntry{updates: make(chan struct{})}
		b.entries[sessionID] = entry
		b.order = append(b.order, sessionID)
		b.evict()
	}
	return entry
}

func (b *StatusBoard) evict() {
	for len(b.order) > b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.entries, oldest)
	}
}
