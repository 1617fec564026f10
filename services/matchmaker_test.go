package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	mu    sync.Mutex
	pairs [][2]string
}

func (c *fakeCreator) CreateSession(p1, p2 PlayerInfo) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs = append(c.pairs, [2]string{p1.UserID, p2.UserID})
	return uuid.New()
}

func (c *fakeCreator) pairCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pairs)
}

type fakeQueueConn struct {
	matched chan uuid.UUID
}

func newFakeQueueConn() *fakeQueueConn {
	return &fakeQueueConn{matched: make(chan uuid.UUID, 1)}
}

func (c *fakeQueueConn) MatchFound(matchID uuid.UUID) { c.matched <- matchID }

func TestRatingWindow(t *testing.T) {
	cases := []struct {
		wait   time.Duration
		window int64
	}{
		{0, 1},
		{9 * time.Second, 1},
		{10 * time.Second, 50},
		{19 * time.Second, 50},
		{20 * time.Second, 500},
		{30 * time.Second, 500},
		{10 * time.Minute, 500},
	}
	for _, c := range cases {
		assert.Equal(t, c.window, ratingWindow(c.wait), "wait %v", c.wait)
	}
}

// poolMatchmaker builds a matchmaker whose run loop is not started, so tests
// can drive findMatches directly against a hand-built pool.
func poolMatchmaker(creator *fakeCreator, now time.Time) *Matchmaker {
	return &Matchmaker{
		registry: creator,
		index:    make(map[string]*waitingEntry),
		now:      func() time.Time { return now },
	}
}

func (m *Matchmaker) addWaiter(userID string, elo int64, waited time.Duration) {
	entry := &waitingEntry{
		info:       PlayerInfo{UserID: userID, Username: userID, Elo: elo},
		enqueuedAt: m.now().Add(-waited),
	}
	m.pool = append(m.pool, entry)
	m.index[userID] = entry
}

func TestFindMatchesRequiresMutualWindow(t *testing.T) {
	creator := &fakeCreator{}
	m := poolMatchmaker(creator, time.Now())

	// a's window has opened to 500, but b just arrived and accepts only 1
	m.addWaiter("a", 1000, 25*time.Second)
	m.addWaiter("b", 1300, 0)

	m.findMatches()
	assert.Zero(t, creator.pairCount())
	assert.Len(t, m.pool, 2)

	// once b has also waited long enough, the same pair goes through
	m.index["b"].enqueuedAt = m.now().Add(-25 * time.Second)
	m.findMatches()
	require.Equal(t, 1, creator.pairCount())
	assert.Empty(t, m.pool)
	assert.Empty(t, m.index)
}

func TestFindMatchesPrefersLongestWaiting(t *testing.T) {
	creator := &fakeCreator{}
	m := poolMatchmaker(creator, time.Now())

	m.addWaiter("a", 1000, 30*time.Second)
	m.addWaiter("late", 1000, 5*time.Second)
	m.addWaiter("early", 1000, 25*time.Second)

	m.findMatches()
	require.Equal(t, 1, creator.pairCount())
	assert.Equal(t, [2]string{"a", "early"}, creator.pairs[0])
	// the third waiter stays queued
	assert.Len(t, m.pool, 1)
	assert.Equal(t, "late", m.pool[0].info.UserID)
}

func TestFindMatchesPairsCloseRatingsImmediately(t *testing.T) {
	creator := &fakeCreator{}
	m := poolMatchmaker(creator, time.Now())

	m.addWaiter("a", 1000, 0)
	m.addWaiter("b", 1001, 0)

	m.findMatches()
	assert.Equal(t, 1, creator.pairCount())
}

func TestFindMatchesSkipsDistantRatings(t *testing.T) {
	creator := &fakeCreator{}
	m := poolMatchmaker(creator, time.Now())

	// 600 apart exceeds even the saturated window
	m.addWaiter("a", 1000, time.Hour)
	m.addWaiter("b", 1600, time.Hour)

	m.findMatches()
	assert.Zero(t, creator.pairCount())
}

func TestFindMatchesPairsManyWaitersOnce(t *testing.T) {
	creator := &fakeCreator{}
	m := poolMatchmaker(creator, time.Now())

	for _, id := range []string{"a", "b", "c", "d"} {
		m.addWaiter(id, 1000, time.Minute)
	}

	m.findMatches()
	assert.Equal(t, 2, creator.pairCount())
	assert.Empty(t, m.pool)

	seen := map[string]bool{}
	for _, pair := range creator.pairs {
		for _, id := range pair {
			assert.False(t, seen[id], "user %s paired twice", id)
			seen[id] = true
		}
	}
}

func TestEnqueuePairsEqualRatingsEagerly(t *testing.T) {
	creator := &fakeCreator{}
	m := NewMatchmaker(creator, time.Hour)
	defer m.Stop()

	c1, c2 := newFakeQueueConn(), newFakeQueueConn()
	require.NoError(t, m.Enqueue(PlayerInfo{UserID: "a", Elo: 1000}, c1))
	require.NoError(t, m.Enqueue(PlayerInfo{UserID: "b", Elo: 1000}, c2))

	var id1, id2 uuid.UUID
	select {
	case id1 = <-c1.matched:
	case <-time.After(2 * time.Second):
		t.Fatal("a never got matched")
	}
	select {
	case id2 = <-c2.matched:
	case <-time.After(2 * time.Second):
		t.Fatal("b never got matched")
	}
	assert.Equal(t, id1, id2)
}

func TestEnqueueRejectsDuplicateUser(t *testing.T) {
	creator := &fakeCreator{}
	m := NewMatchmaker(creator, time.Hour)
	defer m.Stop()

	require.NoError(t, m.Enqueue(PlayerInfo{UserID: "a", Elo: 1000}, newFakeQueueConn()))
	assert.ErrorIs(t, m.Enqueue(PlayerInfo{UserID: "a", Elo: 1000}, newFakeQueueConn()), ErrAlreadyQueued)
}

func TestDequeueIsIdempotent(t *testing.T) {
	creator := &fakeCreator{}
	m := NewMatchmaker(creator, time.Hour)
	defer m.Stop()

	require.NoError(t, m.Enqueue(PlayerInfo{UserID: "a", Elo: 1000}, newFakeQueueConn()))
	m.Dequeue("a")
	m.Dequeue("a")
	m.Dequeue("never-queued")

	// the slot is free again
	require.NoError(t, m.Enqueue(PlayerInfo{UserID: "a", Elo: 1000}, newFakeQueueConn()))
}
