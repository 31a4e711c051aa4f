// handlers/economy_routes.go
package handlers

import (
	"strconv"

	"game-economy-system/middleware"
	"game-economy-system/services"

	"github.com/gofiber/fiber/v2"
)

func assetIDParam(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

// SetupEconomyRoutes wires the player-facing balance/tier/yield surface plus
// the public enforcement endpoint.
func SetupEconomyRoutes(app *fiber.App, ledger *services.CreditLedgerService, tiers *services.TierService, accrual *services.AccrualService) {
	// 🔐 Secured routes — require user context (userID, roles)
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/user/account", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		acct, err := ledger.GetAccount(userID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(acct)
	})

	secured.Get("/user/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := ledger.History(userID, limit)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(entries)
	})

	secured.Get("/user/effective-value", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		amount, err := strconv.ParseInt(c.Query("amount", "0"), 10, 64)
		if err != nil || amount < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid amount"})
		}
		value, err := ledger.EffectiveValue(userID, amount)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"amount": amount, "effective_value": value})
	})

	secured.Post("/user/transfer", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			To     string `json:"to"`
			Amount int64  `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil || req.To == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := ledger.Transfer(userID, req.To, req.Amount); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Transfer complete", "to": req.To, "amount": req.Amount})
	})

	secured.Post("/user/burn", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := ledger.Burn(userID, req.Amount); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Burned", "amount": req.Amount})
	})

	// --- Yield ---

	secured.Get("/assets/:id/yield", func(c *fiber.Ctx) error {
		assetID, err := assetIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID"})
		}
		pending, err := accrual.PendingYield(assetID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"asset_id": assetID, "pending_yield": pending})
	})

	secured.Post("/assets/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		assetID, err := assetIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID"})
		}
		paid, err := accrual.Claim(assetID, userID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"asset_id": assetID, "claimed": paid})
	})

	secured.Post("/assets/claim-batch", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			AssetIDs []uint64 `json:"asset_ids"`
		}
		if err := c.BodyParser(&req); err != nil || len(req.AssetIDs) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		total, err := accrual.ClaimMultiple(req.AssetIDs, userID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"assets": len(req.AssetIDs), "claimed": total})
	})

	// --- Tiers ---

	secured.Get("/assets/:id/tier", func(c *fiber.Ctx) error {
		assetID, err := assetIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID"})
		}
		rec, effective, err := tiers.GetRecord(assetID)
		if err != nil {
			return domainError(c, err)
		}
		stored := 0
		var lastMaintenance int64
		if rec != nil {
			stored = rec.StoredTier
			lastMaintenance = rec.LastMaintenanceTime
		}
		return c.JSON(fiber.Map{
			"asset_id":         assetID,
			"stored_tier":      stored,
			"effective_tier":   effective,
			"last_maintenance": lastMaintenance,
		})
	})

	secured.Post("/assets/:id/upgrade", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		assetID, err := assetIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID"})
		}
		receipt, err := tiers.Upgrade(assetID, userID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(receipt)
	})

	secured.Post("/assets/:id/maintenance", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		assetID, err := assetIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID"})
		}
		rec, err := tiers.PayMaintenance(assetID, userID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"asset_id": assetID, "tier": rec.StoredTier, "maintained_at": rec.LastMaintenanceTime})
	})

	// --- Public ---

	// Anyone may materialize a lapsed tier; there is nothing to gain from it
	// beyond keeping the books honest.
	app.Post("/assets/:id/enforce-downgrade", func(c *fiber.Ctx) error {
		assetID, err := assetIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID"})
		}
		from, to, err := tiers.EnforceDowngrade(assetID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"asset_id": assetID, "from_tier": from, "to_tier": to})
	})

	app.Get("/assets/:id/collection", func(c *fiber.Ctx) error {
		assetID, err := assetIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID"})
		}
		return c.JSON(fiber.Map{"asset_id": assetID, "collection": services.CollectionOf(assetID)})
	})
}
