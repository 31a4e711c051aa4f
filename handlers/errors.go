// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"game-economy-system/services"

	"github.com/gofiber/fiber/v2"
)

// domainError maps a service error onto the HTTP surface. Every failure is a
// rejected transition, never a crash: conflicts for lifecycle violations,
// 404s for unknown entities, 400s for everything the caller can fix by
// waiting or resubmitting.
func domainError(c *fiber.Ctx, err error) error {
	var locked *services.CreditsLockedError
	if errors.As(err, &locked) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":        locked.Error(),
			"locked_until": locked.Until,
		})
	}

	switch {
	case errors.Is(err, services.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, services.ErrAssetUnknown),
		errors.Is(err, services.ErrRoundNotFound),
		errors.Is(err, services.ErrNoClaim):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrAlreadyClaimed),
		errors.Is(err, services.ErrRoundFinalized),
		errors.Is(err, services.ErrRoundNotFinalized),
		errors.Is(err, services.ErrMarketAlreadySet),
		errors.Is(err, services.ErrMaintenanceOwed),
		errors.Is(err, services.ErrMaxTier),
		errors.Is(err, services.ErrClockAlreadyStarted),
		errors.Is(err, services.ErrClockNotStarted),
		errors.Is(err, services.ErrClockNotPaused),
		errors.Is(err, services.ErrClockNotActive),
		errors.Is(err, services.ErrClockEnded):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInsufficientCredits),
		errors.Is(err, services.ErrMintCapExceeded),
		errors.Is(err, services.ErrNothingToClaim),
		errors.Is(err, services.ErrNothingToMaintain),
		errors.Is(err, services.ErrNoDowngradeNeeded),
		errors.Is(err, services.ErrNothingToWithdraw),
		errors.Is(err, services.ErrNothingToRecover),
		errors.Is(err, services.ErrPoolExhausted),
		errors.Is(err, services.ErrPoolTooSmall),
		errors.Is(err, services.ErrBatchTooLarge),
		errors.Is(err, services.ErrEmptyRoot),
		errors.Is(err, services.ErrInvalidProof),
		errors.Is(err, services.ErrSweepTooEarly),
		errors.Is(err, services.ErrStartTimeInPast):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	log.Printf("Unexpected service error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
