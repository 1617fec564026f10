package services

import (
	"encoding/json"
	"math/rand"
)

// Sign is one of the two marks a player places on the board.
type Sign int16

const (
	SignX Sign = 0
	SignO Sign = 1
)

// MatchState is the session lifecycle. It only ever moves forward.
type MatchState int16

const (
	StateCreated  MatchState = 0
	StateStarting MatchState = 1
	StateRunning  MatchState = 2
	StateEnded    MatchState = 3
)

// Player is one side of a match, immutable once assigned.
type Player struct {
	UserID   string `json:"-"`
	Username string `json:"username"`
	Elo      int64  `json:"elo"`
	Sign     Sign   `json:"sign"`
}

// PlayerInfo is the identity + rating snapshot matchmaking carries for a
// queued player.
type PlayerInfo struct {
	UserID   string
	Username string
	Elo      int64
}

var winningTriples = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// GameState is the authoritative board and turn state of one match. It is
// owned exclusively by the session's dispatch loop; nothing else touches it.
type GameState struct {
	Board      [9]*Sign
	State      MatchState
	TurnPlayer string // user id; empty until Running
	Winner     string // user id; empty means none yet (or draw once the board is full)
	X          Player
	O          Player
}

// NewGameState assigns signs with an unbiased coin flip. X always moves
// first, so the flip decides turn order; it is not observable by either
// player until the session reaches Running.
func NewGameState(p1, p2 PlayerInfo) *GameState {
	first, second := p1, p2
	if rand.Intn(2) == 1 {
		first, second = p2, p1
	}
	return &GameState{
		State: StateCreated,
		X:     Player{UserID: first.UserID, Username: first.Username, Elo: first.Elo, Sign: SignX},
		O:     Player{UserID: second.UserID, Username: second.Username, Elo: second.Elo, Sign: SignO},
	}
}

func (g *GameState) PlayerByID(userID string) (Player, bool) {
	switch userID {
	case g.X.UserID:
		return g.X, true
	case g.O.UserID:
		return g.O, true
	}
	return Player{}, false
}

func (g *GameState) Opponent(userID string) Player {
	if userID == g.X.UserID {
		return g.O
	}
	return g.X
}

// Play marks a cell with the caller's sign. It returns false when the cell is
// already occupied; occupied cells are never overwritten or cleared.
func (g *GameState) Play(userID string, cell int) bool {
	if g.Board[cell] != nil {
		return false
	}
	p, ok := g.PlayerByID(userID)
	if !ok {
		return false
	}
	sign := p.Sign
	g.Board[cell] = &sign
	return true
}

// CheckEndgame reports whether the match is over, setting Winner when one of
// the eight triples is complete. A full board with no triple is a draw
// (Winner stays empty).
func (g *GameState) CheckEndgame() bool {
	for _, t := range winningTriples {
		a, b, c := g.Board[t[0]], g.Board[t[1]], g.Board[t[2]]
		if a == nil || b == nil || c == nil {
			continue
		}
		if *a == *b && *b == *c {
			if *a == SignX {
				g.Winner = g.X.UserID
			} else {
				g.Winner = g.O.UserID
			}
			return true
		}
	}
	return g.full()
}

func (g *GameState) full() bool {
	for _, cell := range g.Board {
		if cell == nil {
			return false
		}
	}
	return true
}

// UserPlayer is a turn owner rendered from one recipient's perspective.
type UserPlayer int16

const (
	UserYou      UserPlayer = 0
	UserOpponent UserPlayer = 1
	UserNone     UserPlayer = -1
)

// UserWinner is an outcome rendered from one recipient's perspective.
type UserWinner int16

const (
	WinnerYou      UserWinner = 0
	WinnerOpponent UserWinner = 1
	WinnerDraw     UserWinner = 2
	WinnerNone     UserWinner = -1
)

// UserGameState is the per-recipient view of a match. Clients never see
// absolute player ids, only you/opponent framing.
type UserGameState struct {
	Winner     UserWinner `json:"winner"`
	State      MatchState `json:"state"`
	Board      [9]*Sign   `json:"board"`
	TurnPlayer UserPlayer `json:"turn_player"`
	YourData   Player     `json:"your_data"`
	OppData    Player     `json:"opp_data"`
}

// Render derives the recipient's view of the current state.
func (g *GameState) Render(userID string) UserGameState {
	you, _ := g.PlayerByID(userID)
	opp := g.Opponent(userID)
	turn := UserNone
	if g.TurnPlayer != "" {
		if g.TurnPlayer == userID {
			turn = UserYou
		} else {
			turn = UserOpponent
		}
	}
	winner := WinnerNone
	if g.Winner != "" {
		if g.Winner == userID {
			winner = WinnerYou
		} else {
			winner = WinnerOpponent
		}
	} else if g.full() {
		winner = WinnerDraw
	}
	return UserGameState{
		Winner:     winner,
		State:      g.State,
		Board:      g.Board,
		TurnPlayer: turn,
		YourData:   you,
		OppData:    opp,
	}
}

func (s UserGameState) Serialize() string {
	b, _ := json.Marshal(s)
	return string(b)
}
