package chat

import (
	"log/slog"
	"sync"

	"KISChat/internal/store"
)

// Log holds every session's ordered message history. All writes go
// through Apply, which serializes transforms and hands each one the
// freshest committed sequence for its session.
type Log struct {
	mu     sync.Mutex
	byID   map[string][]Message
	store  store.Store
	logger *slog.Logger
}

// NewLog loads persisted message history, falling back to an empty log
// on missing or unreadable state.
func NewLog(st store.Store, logger *slog.Logger) *Log {
	l := &Log{
		byID:   make(map[string][]Message),
		store:  st,
		logger: logger,
	}

	byID := make(map[string][]Message)
	ok, err := st.Get(store.KeyMessages, &byID)
	if err != nil {
		logger.Warn("failed to load message history, starting empty", "error", err)
	} else if ok {
		l.byID = byID
	}
	return l
}

// Apply commits the transform against the current sequence for the
// session and persists the result.
func (l *Log) Apply(sessionID string, t Transform) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[sessionID] = t(l.byID[sessionID])
	l.save()
}

// Messages returns a copy of the session's message sequence.
func (l *Log) Messages(sessionID string) []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]Message, len(l.byID[sessionID]))
	copy(msgs, l.byID[sessionID])
	return msgs
}

// Len returns the number of messages in the session's log.
func (l *Log) Len(sessionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID[sessionID])
}

// CountByRole returns how many messages with the given role the
// session's log holds.
func (l *Log) CountByRole(sessionID, role string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, m := range l.byID[sessionID] {
		if m.Role == role {
			count++
		}
	}
	return count
}

// Drop removes a session's entire log. Individual messages are never
// deleted.
func (l *Log) Drop(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byID, sessionID)
	l.save()
}

// save persists the full history. Callers must hold l.mu. Persistence
// failures are non-fatal.
func (l *Log) save() {
	if err := l.store.Put(store.KeyMessages, l.byID); err != nil {
		l.logger.Warn("failed to persist message history", "error", err)
	}
}
