package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records RatingStore calls in memory.
type fakeStore struct {
	mu        sync.Mutex
	active    map[string]uuid.UUID
	committed []CompletedMatch
}

func newFakeStore() *fakeStore {
	return &fakeStore{active: make(map[string]uuid.UUID)}
}

func (s *fakeStore) GetStats(userID string) (*PlayerRecord, error) {
	return &PlayerRecord{UserID: userID, Username: userID, Elo: 1000}, nil
}

func (s *fakeStore) MarkActive(userID string, matchID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[userID] = matchID
	return nil
}

func (s *fakeStore) ClearActive(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, userID)
	return nil
}

func (s *fakeStore) CommitMatch(m CompletedMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, m)
	return nil
}

func (s *fakeStore) activeMatch(userID string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[userID]
	return id, ok
}

func (s *fakeStore) commits() []CompletedMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompletedMatch(nil), s.committed...)
}

func registryPlayers() (PlayerInfo, PlayerInfo) {
	return PlayerInfo{UserID: "p1", Username: "alice", Elo: 1000},
		PlayerInfo{UserID: "p2", Username: "bob", Elo: 1100}
}

func TestCreateSessionMakesLookupWork(t *testing.T) {
	store := newFakeStore()
	registry := NewSessionRegistry(store, fastConfig())
	p1, p2 := registryPlayers()

	matchID := registry.CreateSession(p1, p2)
	session, ok := registry.Lookup(matchID)
	require.True(t, ok)
	assert.Equal(t, matchID, session.ID())
	defer session.Abort()

	_, missing := registry.Lookup(uuid.New())
	assert.False(t, missing)
}

func TestCreateSessionMarksBothPlayersActive(t *testing.T) {
	store := newFakeStore()
	registry := NewSessionRegistry(store, fastConfig())
	p1, p2 := registryPlayers()

	matchID := registry.CreateSession(p1, p2)
	session, _ := registry.Lookup(matchID)
	defer session.Abort()

	require.Eventually(t, func() bool {
		id1, ok1 := store.activeMatch("p1")
		id2, ok2 := store.activeMatch("p2")
		return ok1 && ok2 && id1 == matchID && id2 == matchID
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDisposeRemovesSessionAndCommits(t *testing.T) {
	store := newFakeStore()
	registry := NewSessionRegistry(store, fastConfig())
	p1, p2 := registryPlayers()

	matchID := registry.CreateSession(p1, p2)
	session, ok := registry.Lookup(matchID)
	require.True(t, ok)

	session.Abort()

	require.Eventually(t, func() bool {
		_, alive := registry.Lookup(matchID)
		return !alive
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(store.commits()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	record := store.commits()[0]
	assert.Equal(t, matchID, record.MatchID)
	assert.Empty(t, record.WinnerID, "an aborted match is recorded as a draw")

	require.Eventually(t, func() bool {
		_, ok1 := store.activeMatch("p1")
		_, ok2 := store.activeMatch("p2")
		return !ok1 && !ok2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSessionsSnapshot(t *testing.T) {
	store := newFakeStore()
	registry := NewSessionRegistry(store, fastConfig())
	p1, p2 := registryPlayers()

	assert.Empty(t, registry.Sessions())
	matchID := registry.CreateSession(p1, p2)
	assert.Len(t, registry.Sessions(), 1)

	session, _ := registry.Lookup(matchID)
	session.Abort()
	require.Eventually(t, func() bool {
		return len(registry.Sessions()) == 0
	}, 2*time.Second, 5*time.Millisecond)
}
