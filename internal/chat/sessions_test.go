package chat

import (
	"strings"
	"testing"

	"KISChat/internal/store"
)

// testState returns a fresh session store and log over shared storage.
func testState(t *testing.T) (*Store, *Log, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	l := NewLog(st, testLogger())
	s := NewStore(st, l, testLogger())
	return s, l, st
}

// countInvariant checks that every session's MessageCount equals the
// number of user messages in its log.
func countInvariant(t *testing.T, s *Store, l *Log) {
	t.Helper()
	for _, sess := range s.Sessions() {
		if want := l.CountByRole(sess.ID, RoleUser); sess.MessageCount != want {
			t.Errorf("session %s: MessageCount = %d, want %d", sess.ID, sess.MessageCount, want)
		}
	}
}

func TestNewStoreDefaults(t *testing.T) {
	s, _, _ := testState(t)

	sessions := s.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 default session, got %d", len(sessions))
	}
	if sessions[0].Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", sessions[0].Title, DefaultTitle)
	}
	if s.ActiveID() != sessions[0].ID {
		t.Error("default session not active")
	}
}

func TestCreateSession(t *testing.T) {
	s, _, _ := testState(t)
	first := s.ActiveID()

	sess := s.CreateSession()
	if s.ActiveID() != sess.ID {
		t.Error("new session not activated")
	}
	if got := s.Sessions(); got[0].ID != sess.ID {
		t.Error("new session not at the front of the list")
	}
	if sess.ID == first {
		t.Error("session ids must be unique")
	}
	if sess.Title != DefaultTitle || sess.MessageCount != 0 {
		t.Errorf("fresh session state: %+v", sess)
	}
}

func TestSelectSession(t *testing.T) {
	s, _, _ := testState(t)
	first := s.ActiveID()
	second := s.CreateSession()

	t.Run("unknown id is a no-op", func(t *testing.T) {
		s.SelectSession("missing")
		if s.ActiveID() != second.ID {
			t.Error("active session changed on unknown id")
		}
	})

	t.Run("known id activates", func(t *testing.T) {
		s.SelectSession(first)
		if s.ActiveID() != first {
			t.Error("session not selected")
		}
	})
}

func TestDeleteSession(t *testing.T) {
	t.Run("deleting the active session re-activates another", func(t *testing.T) {
		s, _, _ := testState(t)
		keep := s.ActiveID()
		doomed := s.CreateSession()

		s.DeleteSession(doomed.ID)

		if len(s.Sessions()) != 1 {
			t.Fatalf("expected 1 session, got %d", len(s.Sessions()))
		}
		if s.ActiveID() != keep {
			t.Errorf("active = %s, want %s", s.ActiveID(), keep)
		}
	})

	t.Run("deleting the last session creates a fresh default", func(t *testing.T) {
		s, _, _ := testState(t)
		old := s.ActiveID()

		s.DeleteSession(old)

		sessions := s.Sessions()
		if len(sessions) != 1 {
			t.Fatalf("session list may never be empty, got %d", len(sessions))
		}
		if sessions[0].ID == old {
			t.Error("deleted session still present")
		}
		if s.ActiveID() != sessions[0].ID {
			t.Error("active id points at a non-existent session")
		}
	})

	t.Run("deleting an inactive session keeps the active one", func(t *testing.T) {
		s, _, _ := testState(t)
		inactive := s.ActiveID()
		active := s.CreateSession()

		s.DeleteSession(inactive)

		if s.ActiveID() != active.ID {
			t.Error("active session changed")
		}
	})

	t.Run("the session's log is dropped", func(t *testing.T) {
		s, l, _ := testState(t)
		id := s.ActiveID()
		l.Apply(id, AppendTurn(Message{Role: RoleUser}, assistantPlaceholder()))

		s.DeleteSession(id)

		if l.Len(id) != 0 {
			t.Error("deleted session's messages survived")
		}
	})
}

func TestRecordFirstMessagePreview(t *testing.T) {
	t.Run("sets a trimmed title", func(t *testing.T) {
		s, _, _ := testState(t)
		id := s.ActiveID()
		s.RecordFirstMessagePreview(id, "  삼성전자 현재가  ")
		if got := s.Sessions()[0].Title; got != "삼성전자 현재가" {
			t.Errorf("Title = %q", got)
		}
	})

	t.Run("truncates to 30 runes", func(t *testing.T) {
		s, _, _ := testState(t)
		id := s.ActiveID()
		s.RecordFirstMessagePreview(id, strings.Repeat("가", 40))
		got := []rune(s.Sessions()[0].Title)
		if len(got) != 30 {
			t.Errorf("title length = %d runes, want 30", len(got))
		}
	})

	t.Run("falls back to the placeholder on empty preview", func(t *testing.T) {
		s, _, _ := testState(t)
		id := s.ActiveID()
		s.RecordFirstMessagePreview(id, "   ")
		if got := s.Sessions()[0].Title; got != DefaultTitle {
			t.Errorf("Title = %q, want placeholder", got)
		}
	})

	t.Run("unknown session id is a no-op", func(t *testing.T) {
		s, _, _ := testState(t)
		s.RecordFirstMessagePreview("missing", "title")
		if got := s.Sessions()[0].Title; got != DefaultTitle {
			t.Errorf("Title = %q", got)
		}
	})
}

func TestTouch(t *testing.T) {
	s, l, _ := testState(t)
	id := s.ActiveID()

	l.Apply(id, AppendTurn(Message{Role: RoleUser}, assistantPlaceholder()))
	s.Touch(id)
	countInvariant(t, s, l)

	if got := s.Sessions()[0].MessageCount; got != 1 {
		t.Errorf("MessageCount = %d, want 1", got)
	}

	// Touch self-heals after bulk mutation.
	l.Drop(id)
	s.Touch(id)
	countInvariant(t, s, l)
	if got := s.Sessions()[0].MessageCount; got != 0 {
		t.Errorf("MessageCount after drop = %d, want 0", got)
	}
}

func TestStorePersistence(t *testing.T) {
	st := store.NewMemoryStore()
	l := NewLog(st, testLogger())
	s := NewStore(st, l, testLogger())

	sess := s.CreateSession()
	s.RecordFirstMessagePreview(sess.ID, "잔고 조회")

	reloaded := NewStore(st, NewLog(st, testLogger()), testLogger())
	sessions := reloaded.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 persisted sessions, got %d", len(sessions))
	}
	if sessions[0].Title != "잔고 조회" {
		t.Errorf("Title = %q", sessions[0].Title)
	}
	if reloaded.ActiveID() != sess.ID {
		t.Error("active session not persisted")
	}
}

func TestStoreLoadFallback(t *testing.T) {
	st := store.NewMemoryStore()
	// A stale active pointer must fall back to an existing session.
	if err := st.Put(store.KeySessions, []Session{{ID: "s1", Title: DefaultTitle}}); err != nil {
		t.Fatal(err)
	}
	if err := st.Put(store.KeyActiveSession, "gone"); err != nil {
		t.Fatal(err)
	}

	s := NewStore(st, NewLog(st, testLogger()), testLogger())
	if s.ActiveID() != "s1" {
		t.Errorf("ActiveID = %q, want s1", s.ActiveID())
	}
}
