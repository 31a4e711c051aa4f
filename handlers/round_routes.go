// handlers/round_routes.go
package handlers

import (
	"game-economy-system/middleware"
	"game-economy-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRoundRoutes wires the prize round surface: public round views plus the
// player claim/withdraw flow.
func SetupRoundRoutes(app *fiber.App, rounds *services.RoundService) {
	app.Get("/rounds", func(c *fiber.Ctx) error {
		list, err := rounds.ListRounds()
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(list)
	})

	app.Get("/rounds/:id", func(c *fiber.Ctx) error {
		round, err := rounds.GetRound(c.Params("id"))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(round)
	})

	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/rounds/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			Amount int64    `json:"amount"`
			Proof  []string `json:"proof"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		claim, err := rounds.ClaimPrize(c.Params("id"), userID, req.Amount, req.Proof)
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	})

	secured.Get("/rounds/:id/vested", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		vested, withdrawable, err := rounds.VestedAmount(c.Params("id"), userID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{
			"round_id":     c.Params("id"),
			"vested":       vested,
			"withdrawable": withdrawable,
		})
	})

	secured.Post("/rounds/:id/withdraw", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		paid, err := rounds.WithdrawVested(c.Params("id"), userID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"round_id": c.Params("id"), "paid": paid})
	})
}
