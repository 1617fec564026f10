package handlers

import (
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"game-match-system/middleware"
	"game-match-system/services"
)

// SetupMatchRoutes wires the match stream. Joining requires the caller's
// active-match marker to point at the requested match; the session survives
// disconnects, so reconnecting through this endpoint is always allowed while
// the match lives.
func SetupMatchRoutes(app *fiber.App, registry *services.SessionRegistry, stats *services.StatsService) {
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Use("/match/:match_id", WebSocketUpgrader)
	secured.Get("/match/:match_id", websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("user_id").(string)
		client := newWSClient(conn)

		matchID, err := uuid.Parse(conn.Params("match_id"))
		if err != nil {
			client.close(websocket.ClosePolicyViolation)
			return
		}
		participant, err := stats.IsParticipant(userID, matchID)
		if err != nil {
			log.Printf("❌ [MATCH] membership check failed for %s in %s: %v", userID, matchID, err)
			client.close(websocket.CloseInternalServerErr)
			return
		}
		if !participant {
			log.Printf("🚫 [MATCH] user %s is not a participant of %s", userID, matchID)
			client.close(websocket.ClosePolicyViolation)
			return
		}
		session, ok := registry.Lookup(matchID)
		if !ok {
			log.Printf("🚫 [MATCH] session %s not found for %s", matchID, userID)
			client.close(websocket.ClosePolicyViolation)
			return
		}

		session.Join(userID, client)
		configureHeartbeat(conn)
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if mt != websocket.TextMessage {
				continue
			}
			cmd, perr := parseCommand(string(data))
			if perr != "" {
				// protocol errors are answered locally; the session never
				// sees the malformed command
				client.Send(services.NewResponse("error", perr))
				continue
			}
			session.Command(userID, cmd)
		}
		session.Leave(userID)
		client.close(websocket.CloseNormalClosure)
	}))
}
