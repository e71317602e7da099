package chat

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"KISChat/internal/store"
)

// DefaultTitle is the placeholder title a session carries until its
// first user message.
const DefaultTitle = "새 대화"

// titleMaxRunes bounds the title preview taken from the first message.
const titleMaxRunes = 30

// Store owns the ordered session list and the active-session pointer.
// Exactly one session is active at all times and the list is never
// empty.
type Store struct {
	mu       sync.Mutex
	sessions []Session
	activeID string
	log      *Log
	store    store.Store
	logger   *slog.Logger
}

// NewStore loads persisted sessions, falling back to a single default
// session on missing or unreadable state.
func NewStore(st store.Store, log *Log, logger *slog.Logger) *Store {
	s := &Store{
		log:    log,
		store:  st,
		logger: logger,
	}

	var sessions []Session
	if ok, err := st.Get(store.KeySessions, &sessions); err != nil {
		logger.Warn("failed to load sessions, starting fresh", "error", err)
	} else if ok {
		s.sessions = sessions
	}

	var activeID string
	if ok, err := st.Get(store.KeyActiveSession, &activeID); err != nil {
		logger.Warn("failed to load active session id", "error", err)
	} else if ok {
		s.activeID = activeID
	}

	if len(s.sessions) == 0 {
		s.sessions = []Session{{ID: uuid.NewString(), Title: DefaultTitle}}
	}
	if s.indexOf(s.activeID) < 0 {
		s.activeID = s.sessions[0].ID
	}
	s.save()
	return s
}

// CreateSession inserts a fresh session at the front of the list and
// activates it.
func (s *Store) CreateSession() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.createLocked()
	s.save()
	s.logger.Info("created new session", "session_id", sess.ID)
	return sess
}

func (s *Store) createLocked() Session {
	sess := Session{ID: uuid.NewString(), Title: DefaultTitle}
	s.sessions = append([]Session{sess}, s.sessions...)
	s.activeID = sess.ID
	return sess
}

// SelectSession activates the session with the given id. Unknown ids
// are ignored.
func (s *Store) SelectSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return
	}
	s.activeID = id
	s.save()
}

// DeleteSession removes the session and its message log. If it was
// active, another session is activated; when none remain a fresh
// default session is created and activated in the same step.
func (s *Store) DeleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)

	if s.activeID == id {
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		} else {
			s.createLocked()
		}
	} else if len(s.sessions) == 0 {
		s.createLocked()
	}
	s.save()

	s.log.Drop(id)
	s.logger.Info("deleted session", "session_id", id)
}

// RecordFirstMessagePreview rewrites the session's title from the text
// of its first user message. First-ness is the caller's judgment, made
// from the log being empty before the message is appended.
func (s *Store) RecordFirstMessagePreview(id, text string) {
	title := previewTitle(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.sessions[i].Title = title
	s.save()
}

// Touch recomputes the session's message count from its log.
func (s *Store) Touch(id string) {
	count := s.log.CountByRole(id, RoleUser)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.sessions[i].MessageCount = count
	s.save()
}

// Sessions returns a copy of the ordered session list.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]Session, len(s.sessions))
	copy(sessions, s.sessions)
	return sessions
}

// ActiveID returns the id of the active session.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns the active session.
func (s *Store) Active() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[s.indexOf(s.activeID)]
}

// indexOf returns the position of the session with the given id, or -1.
// Callers must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// save persists the session list and active pointer. Callers must hold
// s.mu. Persistence failures are non-fatal.
func (s *Store) save() {
	if err := s.store.Put(store.KeySessions, s.sessions); err != nil {
		s.logger.Warn("failed to persist sessions", "error", err)
	}
	if err := s.store.Put(store.KeyActiveSession, s.activeID); err != nil {
		s.logger.Warn("failed to persist active session id", "error", err)
	}
}

// previewTitle trims text to at most titleMaxRunes runes, falling back
// to the placeholder when nothing remains.
func previewTitle(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > titleMaxRunes {
		runes = runes[:titleMaxRunes]
	}
	title := strings.TrimSpace(string(runes))
	if title == "" {
		return DefaultTitle
	}
	return title
}
