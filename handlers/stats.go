package handlers

import (
	"github.com/gofiber/fiber/v2"

	"game-match-system/middleware"
	"game-match-system/services"
)

// SetupStatsRoutes exposes the authenticated player's rating and record.
func SetupStatsRoutes(app *fiber.App, stats *services.StatsService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		username, _ := c.Locals("username").(string)

		playerStats, err := stats.EnsureStats(userID, username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load player stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"username": playerStats.Username,
			"elo":      playerStats.Elo,
			"wins":     playerStats.Wins,
			"draws":    playerStats.Draws,
			"losses":   playerStats.Losses,
			"in_match": playerStats.ActiveMatchID != nil,
		})
	})

	secured.Get("/user/elo", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		playerStats, err := stats.EnsureStats(userID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load player stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(playerStats.Elo)
	})
}
