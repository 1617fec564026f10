package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGame() *GameState {
	return &GameState{
		State: StateRunning,
		X:     Player{UserID: "alice", Username: "alice", Elo: 1000, Sign: SignX},
		O:     Player{UserID: "bob", Username: "bob", Elo: 1000, Sign: SignO},
	}
}

func TestNewGameStateAssignsBothSigns(t *testing.T) {
	g := NewGameState(
		PlayerInfo{UserID: "alice", Username: "alice", Elo: 1000},
		PlayerInfo{UserID: "bob", Username: "bob", Elo: 1100},
	)
	assert.Equal(t, SignX, g.X.Sign)
	assert.Equal(t, SignO, g.O.Sign)
	assert.NotEqual(t, g.X.UserID, g.O.UserID)
	assert.Equal(t, StateCreated, g.State)
	assert.Empty(t, g.TurnPlayer)
}

func TestPlayRejectsOccupiedCell(t *testing.T) {
	g := testGame()
	require.True(t, g.Play("alice", 4))
	assert.False(t, g.Play("bob", 4))
	// the original mark survives
	assert.Equal(t, SignX, *g.Board[4])
}

func TestPlayRejectsUnknownUser(t *testing.T) {
	g := testGame()
	assert.False(t, g.Play("mallory", 0))
	assert.Nil(t, g.Board[0])
}

func TestCheckEndgameRowWin(t *testing.T) {
	g := testGame()
	g.Play("alice", 0)
	g.Play("bob", 3)
	g.Play("alice", 1)
	g.Play("bob", 4)
	require.False(t, g.CheckEndgame())
	g.Play("alice", 2)
	require.True(t, g.CheckEndgame())
	assert.Equal(t, "alice", g.Winner)
}

func TestCheckEndgameColumnWinForO(t *testing.T) {
	g := testGame()
	g.Play("alice", 0)
	g.Play("bob", 2)
	g.Play("alice", 1)
	g.Play("bob", 5)
	g.Play("alice", 4)
	g.Play("bob", 8)
	require.True(t, g.CheckEndgame())
	assert.Equal(t, "bob", g.Winner)
}

func TestCheckEndgameDraw(t *testing.T) {
	g := testGame()
	// X: 0 1 5 6 7, O: 2 3 4 8 — full board, no triple
	moves := []struct {
		user string
		cell int
	}{
		{"alice", 0}, {"bob", 2},
		{"alice", 1}, {"bob", 3},
		{"alice", 5}, {"bob", 4},
		{"alice", 6}, {"bob", 8},
	}
	for _, m := range moves {
		require.True(t, g.Play(m.user, m.cell))
		require.False(t, g.CheckEndgame(), "premature endgame after %s plays %d", m.user, m.cell)
	}
	require.True(t, g.Play("alice", 7))
	require.True(t, g.CheckEndgame())
	assert.Empty(t, g.Winner)
}

func TestRenderPerspective(t *testing.T) {
	g := testGame()
	g.TurnPlayer = "alice"

	forAlice := g.Render("alice")
	assert.Equal(t, UserYou, forAlice.TurnPlayer)
	assert.Equal(t, WinnerNone, forAlice.Winner)
	assert.Equal(t, "alice", forAlice.YourData.Username)
	assert.Equal(t, "bob", forAlice.OppData.Username)

	forBob := g.Render("bob")
	assert.Equal(t, UserOpponent, forBob.TurnPlayer)
	assert.Equal(t, "bob", forBob.YourData.Username)
}

func TestRenderWinnerAndDraw(t *testing.T) {
	g := testGame()
	g.Winner = "alice"
	assert.Equal(t, WinnerYou, g.Render("alice").Winner)
	assert.Equal(t, WinnerOpponent, g.Render("bob").Winner)

	drawn := testGame()
	for _, m := range []struct {
		user string
		cell int
	}{
		{"alice", 0}, {"bob", 2}, {"alice", 1}, {"bob", 3}, {"alice", 5},
		{"bob", 4}, {"alice", 6}, {"bob", 8}, {"alice", 7},
	} {
		require.True(t, drawn.Play(m.user, m.cell))
	}
	assert.Equal(t, WinnerDraw, drawn.Render("alice").Winner)
	assert.Equal(t, WinnerDraw, drawn.Render("bob").Winner)
}

func TestRenderNoTurnBeforeRunning(t *testing.T) {
	g := testGame()
	assert.Equal(t, UserNone, g.Render("alice").TurnPlayer)
}

func TestSerializeHidesUserIDs(t *testing.T) {
	g := &GameState{
		State: StateRunning,
		X:     Player{UserID: "user-77", Username: "alice", Sign: SignX},
		O:     Player{UserID: "user-88", Username: "bob", Sign: SignO},
	}
	payload := g.Render("user-77").Serialize()
	assert.NotContains(t, payload, "user-77")
	assert.NotContains(t, payload, "user-88")
	assert.Contains(t, payload, "alice")
}
