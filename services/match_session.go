package services

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Response is one outbound frame on a match stream.
type Response struct {
	Cmd string `json:"cmd"`
	Msg string `json:"msg"`
}

func NewResponse(cmd, msg string) Response {
	return Response{Cmd: cmd, Msg: msg}
}

// MatchConn is the session's outbound handle to one player's stream. Sends
// are fire-and-forget; implementations must never block the caller.
type MatchConn interface {
	Send(Response)
}

// CommandOp values mirror the wire opcodes (see handlers.parseCommand).
type CommandOp int

const (
	OpPlay          CommandOp = 0
	OpHover         CommandOp = 1
	OpUnhover       CommandOp = 2
	OpGetTurnPlayer CommandOp = 3
	OpGetGameState  CommandOp = 4
	OpGetTimers     CommandOp = 5
	OpResign        CommandOp = 6
)

// ClientCommand is a validated client command. Out-of-range cells and unknown
// opcodes are rejected by the protocol layer and never reach a session.
type ClientCommand struct {
	Op   CommandOp
	Cell int
}

// SessionConfig holds the pacing knobs of a match session.
type SessionConfig struct {
	StartDelay time.Duration // Created -> Starting grace period
	ReadyDelay time.Duration // Starting -> Running delay
	TurnTime   float64       // seconds on each player's clock
	TimerTick  time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		StartDelay: 3 * time.Second,
		ReadyDelay: 3 * time.Second,
		TurnTime:   60,
		TimerTick:  50 * time.Millisecond,
	}
}

// CompletedMatch is produced exactly once per terminal session and consumed
// exactly once by the persistence path. Player elos are pre-match snapshots.
type CompletedMatch struct {
	MatchID   uuid.UUID
	Player1   PlayerInfo
	Player2   PlayerInfo
	WinnerID  string // empty = draw
	StartedAt time.Time
	EndedAt   time.Time
}

// disposer receives the completed-match hand-off (SessionRegistry in
// production).
type disposer interface {
	Dispose(CompletedMatch)
}

// SessionInfo is a point-in-time snapshot used by the idle-session reaper.
type SessionInfo struct {
	State     MatchState
	Connected int
	Age       time.Duration
}

type sessionMsgKind int

const (
	msgJoin sessionMsgKind = iota
	msgLeave
	msgCommand
	msgTimeExpired
	msgPhase
	msgAbort
	msgInfo
)

type sessionMsg struct {
	kind   sessionMsgKind
	userID string
	conn   MatchConn
	cmd    ClientCommand
	phase  MatchState
	info   chan SessionInfo
}

// MatchSession is the state machine of one live match. All mutable state is
// owned by its run loop, which processes one message to completion before the
// next; callers talk to it only through the mailbox.
type MatchSession struct {
	id        uuid.UUID
	game      *GameState
	conns     map[string]MatchConn
	timers    map[string]*Timer
	owner     disposer
	cfg       SessionConfig
	inbox     chan sessionMsg
	done      chan struct{}
	startedAt time.Time
	ended     bool
}

func newMatchSession(id uuid.UUID, p1, p2 PlayerInfo, owner disposer, cfg SessionConfig) *MatchSession {
	s := &MatchSession{
		id:        id,
		game:      NewGameState(p1, p2),
		conns:     make(map[string]MatchConn, 2),
		timers:    make(map[string]*Timer, 2),
		owner:     owner,
		cfg:       cfg,
		inbox:     make(chan sessionMsg, 64),
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	for _, p := range []Player{s.game.X, s.game.O} {
		s.timers[p.UserID] = NewTimer(p.UserID, cfg.TurnTime, cfg.TimerTick, func(loserID string) {
			s.post(sessionMsg{kind: msgTimeExpired, userID: loserID})
		})
	}
	go s.run()
	time.AfterFunc(cfg.StartDelay, func() {
		s.post(sessionMsg{kind: msgPhase, phase: StateStarting})
	})
	log.Printf("🎮 [MATCH] session %s created (%s vs %s)", id, p1.UserID, p2.UserID)
	return s
}

func (s *MatchSession) ID() uuid.UUID { return s.id }

// Join registers (or replaces) a player's outbound handle and immediately
// sends them the full state from their perspective. Supports reconnects at
// any point before termination.
func (s *MatchSession) Join(userID string, conn MatchConn) {
	s.post(sessionMsg{kind: msgJoin, userID: userID, conn: conn})
}

// Leave drops a player's outbound handle. The match keeps running; the player
// may reconnect later.
func (s *MatchSession) Leave(userID string) {
	s.post(sessionMsg{kind: msgLeave, userID: userID})
}

// Command delivers a validated client command to the state machine.
func (s *MatchSession) Command(userID string, cmd ClientCommand) {
	s.post(sessionMsg{kind: msgCommand, userID: userID, cmd: cmd})
}

// Abort force-terminates the session, recording a draw. Used by the
// idle-session reaper; a no-op once the session has ended.
func (s *MatchSession) Abort() {
	s.post(sessionMsg{kind: msgAbort})
}

// Info snapshots the session for cross-cutting checks.
func (s *MatchSession) Info() SessionInfo {
	reply := make(chan SessionInfo, 1)
	select {
	case s.inbox <- sessionMsg{kind: msgInfo, info: reply}:
		select {
		case info := <-reply:
			return info
		case <-s.done:
			return SessionInfo{State: StateEnded}
		}
	case <-s.done:
		return SessionInfo{State: StateEnded}
	}
}

func (s *MatchSession) post(msg sessionMsg) {
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

func (s *MatchSession) run() {
	for msg := range s.inbox {
		if s.handle(msg) {
			return
		}
	}
}

// handle processes one message to completion; it returns true once the
// session has terminated and the loop should exit.
func (s *MatchSession) handle(msg sessionMsg) bool {
	switch msg.kind {
	case msgJoin:
		s.conns[msg.userID] = msg.conn
		msg.conn.Send(NewResponse("game_state", s.game.Render(msg.userID).Serialize()))
		log.Printf("👤 [MATCH] user %s joined session %s", msg.userID, s.id)
	case msgLeave:
		delete(s.conns, msg.userID)
		log.Printf("👤 [MATCH] user %s left session %s", msg.userID, s.id)
	case msgPhase:
		return s.advance(msg.phase)
	case msgCommand:
		return s.handleCommand(msg.userID, msg.cmd)
	case msgTimeExpired:
		if s.game.State == StateEnded {
			return false
		}
		s.game.Winner = s.game.Opponent(msg.userID).UserID
		log.Printf("⏰ [MATCH] %s ran out of time in session %s", msg.userID, s.id)
		return s.endgame()
	case msgAbort:
		return s.endgame()
	case msgInfo:
		msg.info <- SessionInfo{
			State:     s.game.State,
			Connected: len(s.conns),
			Age:       time.Since(s.startedAt),
		}
	}
	return false
}

// advance walks the Created -> Starting -> Running ramp. States never move
// backwards; a stale phase message is dropped.
func (s *MatchSession) advance(phase MatchState) bool {
	switch phase {
	case StateStarting:
		if s.game.State != StateCreated {
			return false
		}
		s.game.State = StateStarting
		s.broadcast(NewResponse("starting", "Game starting soon"))
		time.AfterFunc(s.cfg.ReadyDelay, func() {
			s.post(sessionMsg{kind: msgPhase, phase: StateRunning})
		})
	case StateRunning:
		if s.game.State != StateStarting {
			return false
		}
		s.game.State = StateRunning
		s.game.TurnPlayer = s.game.X.UserID
		s.timers[s.game.TurnPlayer].Start()
		for userID, conn := range s.conns {
			conn.Send(NewResponse("started", "Game started"))
			conn.Send(NewResponse("game_state", s.game.Render(userID).Serialize()))
		}
		log.Printf("🏁 [MATCH] session %s running, %s to move", s.id, s.game.TurnPlayer)
	}
	return false
}

func (s *MatchSession) handleCommand(userID string, cmd ClientCommand) bool {
	if _, ok := s.game.PlayerByID(userID); !ok {
		// the gateway authorizes membership before the stream opens
		return false
	}
	opp := s.game.Opponent(userID)
	conn := s.conns[userID]
	oppConn := s.conns[opp.UserID]

	switch cmd.Op {
	case OpPlay:
		switch s.game.State {
		case StateCreated, StateStarting:
			s.sendTo(conn, NewResponse("error", "Game not started yet"))
		case StateEnded:
			s.sendTo(conn, NewResponse("error", "Game ended"))
		case StateRunning:
			if s.game.TurnPlayer == "" || s.game.TurnPlayer != userID {
				s.sendTo(conn, NewResponse("error", "Not your turn"))
				return false
			}
			if !s.game.Play(userID, cmd.Cell) {
				s.sendTo(conn, NewResponse("error", "Cell already occupied"))
				return false
			}
			s.game.TurnPlayer = opp.UserID
			s.timers[userID].Pause()
			s.timers[opp.UserID].Start()
			cell := strconv.Itoa(cmd.Cell)
			s.sendTo(conn, NewResponse("you_play", cell))
			s.sendTo(conn, s.turnPlayerResponse(userID))
			s.sendTo(oppConn, NewResponse("opp_play", cell))
			s.sendTo(oppConn, s.turnPlayerResponse(opp.UserID))
			if s.game.CheckEndgame() {
				return s.endgame()
			}
		}
	case OpHover:
		s.sendTo(oppConn, NewResponse("opp_hover", strconv.Itoa(cmd.Cell)))
	case OpUnhover:
		s.sendTo(oppConn, NewResponse("opp_unhover", strconv.Itoa(cmd.Cell)))
	case OpGetTurnPlayer:
		s.sendTo(conn, s.turnPlayerResponse(userID))
	case OpGetGameState:
		s.sendTo(conn, NewResponse("game_state", s.game.Render(userID).Serialize()))
	case OpGetTimers:
		payload, _ := json.Marshal(struct {
			You float64 `json:"you"`
			Opp float64 `json:"opp"`
		}{
			You: s.timers[userID].Query(),
			Opp: s.timers[opp.UserID].Query(),
		})
		s.sendTo(conn, NewResponse("timers", string(payload)))
	case OpResign:
		s.game.Winner = opp.UserID
		log.Printf("🏳️ [MATCH] %s resigned session %s", userID, s.id)
		return s.endgame()
	}
	return false
}

func (s *MatchSession) turnPlayerResponse(userID string) Response {
	return NewResponse("turn_player", strconv.Itoa(int(s.game.Render(userID).TurnPlayer)))
}

func (s *MatchSession) sendTo(conn MatchConn, r Response) {
	if conn != nil {
		conn.Send(r)
	}
}

func (s *MatchSession) broadcast(r Response) {
	for _, conn := range s.conns {
		conn.Send(r)
	}
}

// endgame is the single termination path (win, draw, resign, timeout, abort).
// It runs at most once per session.
func (s *MatchSession) endgame() bool {
	if s.ended {
		return true
	}
	s.ended = true
	s.game.State = StateEnded
	for userID, conn := range s.conns {
		msg := "Draw"
		if s.game.Winner != "" {
			if userID == s.game.Winner {
				msg = "Victory!"
			} else {
				msg = "Defeat"
			}
		}
		conn.Send(NewResponse("result", msg))
	}
	for _, t := range s.timers {
		t.Stop()
	}
	record := CompletedMatch{
		MatchID:   s.id,
		Player1:   PlayerInfo{UserID: s.game.X.UserID, Username: s.game.X.Username, Elo: s.game.X.Elo},
		Player2:   PlayerInfo{UserID: s.game.O.UserID, Username: s.game.O.Username, Elo: s.game.O.Elo},
		WinnerID:  s.game.Winner,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
	close(s.done)
	s.owner.Dispose(record)
	log.Printf("🏆 [MATCH] session %s ended (winner: %s)", s.id, winnerLabel(record.WinnerID))
	return true
}

func winnerLabel(winnerID string) string {
	if winnerID == "" {
		return "draw"
	}
	return winnerID
}
