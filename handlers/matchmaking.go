package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"game-match-system/middleware"
	"game-match-system/services"
)

// SetupMatchmakingRoutes wires the matchmaking stream. The Gateway forwards
// an authenticated upgrade; entering the queue happens on connect, leaving on
// disconnect (or an explicit "0" cancel frame). The stream's only payload is
// the terminal {"match_id": …} message.
func SetupMatchmakingRoutes(app *fiber.App, matchmaker *services.Matchmaker, stats *services.StatsService) {
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Use("/matchmaking", WebSocketUpgrader)
	secured.Get("/matchmaking", websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("user_id").(string)
		username, _ := conn.Locals("username").(string)

		playerStats, err := stats.EnsureStats(userID, username)
		if err != nil {
			log.Printf("❌ [MATCHMAKING] failed to load stats for %s: %v", userID, err)
			client := newWSClient(conn)
			client.close(websocket.CloseInternalServerErr)
			return
		}

		client := newWSClient(conn)
		info := services.PlayerInfo{
			UserID:   userID,
			Username: playerStats.Username,
			Elo:      playerStats.Elo,
		}
		if err := matchmaker.Enqueue(info, client); err != nil {
			log.Printf("🚫 [MATCHMAKING] %s rejected: %v", userID, err)
			client.close(websocket.ClosePolicyViolation)
			return
		}
		log.Printf("👤 [MATCHMAKING] user %s entered matchmaking", userID)

		configureHeartbeat(conn)
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if mt == websocket.TextMessage && strings.TrimSpace(string(data)) == "0" {
				// explicit cancel
				client.close(websocket.CloseNormalClosure)
				break
			}
		}
		matchmaker.Dequeue(userID)
		client.close(websocket.CloseNormalClosure)
	}))
}
