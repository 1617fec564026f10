package services

import (
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// ErrAlreadyQueued is returned when a user tries to enter the waiting pool
// twice; the caller should close the second connection.
var ErrAlreadyQueued = errors.New("user already in matchmaking queue")

// QueueConn is the matchmaker's outbound handle to a waiting player's stream.
type QueueConn interface {
	// MatchFound delivers the terminal pairing notification, after which the
	// stream closes.
	MatchFound(matchID uuid.UUID)
}

type sessionCreator interface {
	CreateSession(p1, p2 PlayerInfo) uuid.UUID
}

// waitingEntry lives in the pool from enqueue until paired or removed.
type waitingEntry struct {
	info       PlayerInfo
	enqueuedAt time.Time
	conn       QueueConn
}

type mmMsgKind int

const (
	mmEnqueue mmMsgKind = iota
	mmDequeue
	mmFindMatches
)

type mmMsg struct {
	kind   mmMsgKind
	info   PlayerInfo
	conn   QueueConn
	userID string
	reply  chan error
}

// Matchmaker owns the waiting pool: an ordered-by-enqueue-time slice plus a
// user-id index, kept in sync on every insert/remove. Like the sessions and
// timers it is a single-goroutine message unit; the periodic pairing pass is
// just one more message in its mailbox.
type Matchmaker struct {
	registry sessionCreator
	interval time.Duration
	inbox    chan mmMsg
	done     chan struct{}
	pool     []*waitingEntry
	index    map[string]*waitingEntry
	now      func() time.Time
}

func NewMatchmaker(registry sessionCreator, interval time.Duration) *Matchmaker {
	m := &Matchmaker{
		registry: registry,
		interval: interval,
		inbox:    make(chan mmMsg),
		done:     make(chan struct{}),
		index:    make(map[string]*waitingEntry),
		now:      time.Now,
	}
	go m.run()
	return m
}

// StartPairingJob registers the periodic pairing pass. The inbox send is
// non-blocking: a tick that lands while the previous pass (or any other
// message) is still being processed is skipped, never queued, so passes
// cannot pile up behind a slow one.
func (m *Matchmaker) StartPairingJob(sched gocron.Scheduler) error {
	_, err := sched.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(func() {
			select {
			case m.inbox <- mmMsg{kind: mmFindMatches}:
			default:
			}
		}),
	)
	return err
}

// Enqueue adds a player to the waiting pool. The rating snapshot travels with
// the entry so the pairing pass itself performs no storage I/O. Fails with
// ErrAlreadyQueued if the user id is already waiting.
func (m *Matchmaker) Enqueue(info PlayerInfo, conn QueueConn) error {
	reply := make(chan error, 1)
	select {
	case m.inbox <- mmMsg{kind: mmEnqueue, info: info, conn: conn, reply: reply}:
		return <-reply
	case <-m.done:
		return errors.New("matchmaker stopped")
	}
}

// Dequeue removes a player from the pool. Removing an absent user id is a
// no-op; disconnect paths call this unconditionally.
func (m *Matchmaker) Dequeue(userID string) {
	select {
	case m.inbox <- mmMsg{kind: mmDequeue, userID: userID}:
	case <-m.done:
	}
}

// Stop shuts the matchmaker down. Only used by tests and shutdown paths.
func (m *Matchmaker) Stop() {
	close(m.done)
}

func (m *Matchmaker) run() {
	log.Println("🤝 [MATCHMAKING] worker is alive")
	for {
		select {
		case msg := <-m.inbox:
			m.handle(msg)
		case <-m.done:
			log.Println("🤝 [MATCHMAKING] worker stopped")
			return
		}
	}
}

func (m *Matchmaker) handle(msg mmMsg) {
	switch msg.kind {
	case mmEnqueue:
		if _, queued := m.index[msg.info.UserID]; queued {
			msg.reply <- ErrAlreadyQueued
			return
		}
		entry := &waitingEntry{info: msg.info, enqueuedAt: m.now(), conn: msg.conn}
		m.pool = append(m.pool, entry)
		m.index[msg.info.UserID] = entry
		msg.reply <- nil
		log.Printf("🤝 [MATCHMAKING] %s entered the pool (elo %d, %d waiting)", msg.info.UserID, msg.info.Elo, len(m.pool))
		m.findMatches()
	case mmDequeue:
		if m.remove(msg.userID) {
			log.Printf("🤝 [MATCHMAKING] %s left the pool", msg.userID)
		}
	case mmFindMatches:
		m.findMatches()
	}
}

// findMatches is one pairing pass: scan waiters in enqueue order and, for
// each still-unpaired entry, pick the longest-waiting opponent whose rating
// distance fits inside both players' windows.
func (m *Matchmaker) findMatches() {
	now := m.now()
	queue := append([]*waitingEntry(nil), m.pool...)
	for _, entry := range queue {
		if m.index[entry.info.UserID] != entry {
			continue // already paired earlier in this pass
		}
		window := ratingWindow(now.Sub(entry.enqueuedAt))
		var best *waitingEntry
		for _, opp := range m.pool {
			if opp == entry {
				continue
			}
			diff := entry.info.Elo - opp.info.Elo
			if diff < 0 {
				diff = -diff
			}
			// mutual compatibility: the distance must fit both windows
			if diff > window || diff > ratingWindow(now.Sub(opp.enqueuedAt)) {
				continue
			}
			if best == nil ||
				opp.enqueuedAt.Before(best.enqueuedAt) ||
				(opp.enqueuedAt.Equal(best.enqueuedAt) && opp.info.UserID < best.info.UserID) {
				best = opp
			}
		}
		if best == nil {
			continue
		}
		// both entries leave the pool before the session is requested; if
		// either is already gone the pairing aborts with no side effects
		if !m.remove(entry.info.UserID) || !m.remove(best.info.UserID) {
			continue
		}
		matchID := m.registry.CreateSession(entry.info, best.info)
		log.Printf("🤝 [MATCHMAKING] paired %s and %s into match %s", entry.info.UserID, best.info.UserID, matchID)
		if entry.conn != nil {
			entry.conn.MatchFound(matchID)
		}
		if best.conn != nil {
			best.conn.MatchFound(matchID)
		}
	}
}

func (m *Matchmaker) remove(userID string) bool {
	entry, ok := m.index[userID]
	if !ok {
		return false
	}
	delete(m.index, userID)
	for i, e := range m.pool {
		if e == entry {
			m.pool = append(m.pool[:i], m.pool[i+1:]...)
			break
		}
	}
	return true
}

const maxRatingWindow = 500

// ratingWindow is the rating distance a waiter accepts, growing with time in
// queue: min(50^floor(wait/10s), 500), saturating instead of overflowing.
func ratingWindow(wait time.Duration) int64 {
	steps := int(wait.Seconds()) / 10
	window := int64(1)
	for i := 0; i < steps; i++ {
		window *= 50
		if window >= maxRatingWindow {
			return maxRatingWindow
		}
	}
	return window
}
