package services

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// RatingStore is the storage seam the core consumes. Persistence is
// best-effort: a failed write is logged, never retried synchronously, and
// never reopens a match.
type RatingStore interface {
	GetStats(userID string) (*PlayerRecord, error)
	MarkActive(userID string, matchID uuid.UUID) error
	ClearActive(userID string) error
	CommitMatch(m CompletedMatch) error
}

// PlayerRecord is the rating/record view the core reads from storage.
type PlayerRecord struct {
	UserID   string
	Username string
	Elo      int64
	Wins     int64
	Draws    int64
	Losses   int64
}

// SessionRegistry tracks all live match sessions by match id, creates and
// destroys them, and routes the completed-match hand-off to storage.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*MatchSession
	store    RatingStore
	cfg      SessionConfig
}

func NewSessionRegistry(store RatingStore, cfg SessionConfig) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[uuid.UUID]*MatchSession),
		store:    store,
		cfg:      cfg,
	}
}

// CreateSession spins up a session for a fresh pairing and marks both players
// as active participants, which is what the match stream endpoint authorizes
// joins against. The marker write is asynchronous; it never delays the match.
func (r *SessionRegistry) CreateSession(p1, p2 PlayerInfo) uuid.UUID {
	matchID := uuid.New()
	session := newMatchSession(matchID, p1, p2, r, r.cfg)
	r.mu.Lock()
	r.sessions[matchID] = session
	r.mu.Unlock()
	go func() {
		for _, p := range []PlayerInfo{p1, p2} {
			if err := r.store.MarkActive(p.UserID, matchID); err != nil {
				log.Printf("⚠️ [REGISTRY] failed to mark %s active in %s: %v", p.UserID, matchID, err)
			}
		}
	}()
	return matchID
}

// Lookup returns the live session for a match id, if any.
func (r *SessionRegistry) Lookup(matchID uuid.UUID) (*MatchSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[matchID]
	return session, ok
}

// Sessions snapshots the live sessions (used by the idle-session reaper).
func (r *SessionRegistry) Sessions() []*MatchSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MatchSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Dispose consumes a terminal session's CompletedMatch: the session is
// dropped from the registry immediately, then the active markers are cleared
// and the outcome committed off the hot path. Storage failures are logged;
// the result stands for the players regardless.
func (r *SessionRegistry) Dispose(m CompletedMatch) {
	r.mu.Lock()
	delete(r.sessions, m.MatchID)
	r.mu.Unlock()
	go func() {
		for _, userID := range []string{m.Player1.UserID, m.Player2.UserID} {
			if err := r.store.ClearActive(userID); err != nil {
				log.Printf("⚠️ [REGISTRY] failed to clear active marker for %s: %v", userID, err)
			}
		}
		if err := r.store.CommitMatch(m); err != nil {
			log.Printf("⚠️ [REGISTRY] failed to persist match %s: %v — result stands for the players", m.MatchID, err)
		}
	}()
}
