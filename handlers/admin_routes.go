// handlers/admin_routes.go
package handlers

import (
	"strconv"

	"game-economy-system/middleware"
	"game-economy-system/services"
	"game-economy-system/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes wires the operator surface: the capped mint path, one-time
// market wiring, asset registration, round administration, and the season
// clock. All of it sits behind the operator role forwarded by the Gateway.
func SetupAdminRoutes(app *fiber.App, ledger *services.CreditLedgerService, accrual *services.AccrualService, rounds *services.RoundService, clock *services.ClockService) {
	app.Get("/clock", func(c *fiber.Ctx) error {
		state, err := clock.State()
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(state)
	})

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("operator"))

	admin.Post("/mint", func(c *fiber.Ctx) error {
		var req struct {
			PlayerID string `json:"player_id"`
			Amount   int64  `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil || req.PlayerID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := ledger.OperatorMint(req.PlayerID, req.Amount); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Minted", "player_id": req.PlayerID, "amount": req.Amount})
	})

	admin.Post("/market", func(c *fiber.Ctx) error {
		var req struct {
			Address string `json:"address"`
		}
		if err := c.BodyParser(&req); err != nil || req.Address == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := ledger.SetMarketAddress(req.Address); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Market address registered", "address": req.Address})
	})

	// Push-style registration for the minting collaborator; the polling worker
	// covers the same ground when the registry can't call us.
	admin.Post("/assets/:id/register", func(c *fiber.Ctx) error {
		assetID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID"})
		}
		if err := accrual.Register(assetID); err != nil {
			return domainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Asset registered for accrual", "asset_id": assetID})
	})

	// --- Rounds ---

	admin.Post("/rounds", func(c *fiber.Ctx) error {
		var req struct {
			Title string `json:"title"`
			Pool  int64  `json:"pool"`
		}
		if err := c.BodyParser(&req); err != nil || req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		round, err := rounds.StartRound(req.Title, req.Pool)
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(round)
	})

	admin.Post("/rounds/:id/funds", func(c *fiber.Ctx) error {
		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := rounds.AddFunds(c.Params("id"), req.Amount); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Funds added", "amount": req.Amount})
	})

	admin.Post("/rounds/:id/finalize", func(c *fiber.Ctx) error {
		var req struct {
			Root    string                 `json:"root"`
			Entries []utils.AllowlistEntry `json:"entries"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		round, err := rounds.FinalizeRound(c.Params("id"), req.Root, req.Entries)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(round)
	})

	admin.Post("/rounds/:id/sweep", func(c *fiber.Ctx) error {
		var req struct {
			Recipient string `json:"recipient"`
		}
		if err := c.BodyParser(&req); err != nil || req.Recipient == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		recovered, err := rounds.SweepUnclaimed(c.Params("id"), req.Recipient)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Round swept", "recovered": recovered})
	})

	// --- Season clock ---

	admin.Post("/clock/start", func(c *fiber.Ctx) error {
		var req struct {
			StartTime int64 `json:"start_time"` // Unix seconds; 0 = now
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := clock.Start(req.StartTime); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Clock started"})
	})

	admin.Post("/clock/pause", func(c *fiber.Ctx) error {
		if err := clock.Pause(); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Clock paused"})
	})

	admin.Post("/clock/resume", func(c *fiber.Ctx) error {
		if err := clock.Resume(); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Clock resumed"})
	})

	admin.Post("/clock/end", func(c *fiber.Ctx) error {
		if err := clock.End(); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Clock ended"})
	})
}
