package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds per-session conversation transcripts in process memory.
// Sessions are created lazily on first append and live until cleared;
// there is no eviction and no size cap.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

func NewStore() *Store {
	return &Store{sessions: make(map[string][]Turn)}
}

// Append adds a turn to the session's transcript, creating the session if
// needed, and returns the transcript length after the append.
func (s *Store) Append(sessionID string, turn Turn) int {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return len(s.sessions[sessionID])
}

// History returns the session's turns in append order. Unknown sessions
// yield an empty slice; a read never creates an entry.
func (s *Store) History(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.sessions[sessionID]
	if len(arr) == 0 {
		return nil
	}
	out := make([]Turn, len(arr))
	copy(out, arr)
	return out
}

// Len reports the number of turns stored for the session.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}

// Clear removes the session's transcript. Clearing an unknown session is a
// no-op; it reports whether a transcript existed.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

// SessionCount reports how many sessions currently hold a transcript.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
