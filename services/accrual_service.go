// services/accrual_service.go
package services

import (
	"errors"
	"fmt"
	"log"

	"game-economy-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

var (
	ErrAlreadyRegistered = errors.New("accrual engine: asset already registered")
	ErrNothingToClaim    = errors.New("accrual engine: nothing to claim")
	ErrBatchTooLarge     = errors.New("accrual engine: claim batch too large")
)

// AccrualService settles per-asset continuous yield lazily: the only stored
// state is a per-asset checkpoint, pending yield is a pure function of
// "now minus checkpoint", and a claim snapshots that value and advances the
// checkpoint. O(1) per call regardless of elapsed time.
type AccrualService struct {
	DB        *gorm.DB
	Clock     clockwork.Clock
	Ledger    *CreditLedgerService
	Tiers     *TierService
	GameClock *ClockService
	Registry  *RegistryServiceClient
}

func NewAccrualService(db *gorm.DB, ledger *CreditLedgerService, tiers *TierService, gameClock *ClockService, registry *RegistryServiceClient) *AccrualService {
	return &AccrualService{
		DB:        db,
		Clock:     clockwork.NewRealClock(),
		Ledger:    ledger,
		Tiers:     tiers,
		GameClock: gameClock,
		Registry:  registry,
	}
}

func (s *AccrualService) now() int64 {
	return s.Clock.Now().Unix()
}

// Register sets up the asset's accrual checkpoint. Called once per asset at
// mint time (by the registry push endpoint or the sync worker).
//
// If the game clock has a future start time the checkpoint is pinned to it, so
// nothing accrues before the game formally begins.
func (s *AccrualService) Register(assetID uint64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.AccrualRecord
		err := tx.Where("asset_id = ?", assetID).First(&existing).Error
		if err == nil {
			return ErrAlreadyRegistered
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		start := s.now()
		clock, err := s.GameClock.stateTx(tx)
		if err != nil {
			return err
		}
		if clock.StartTime > start {
			start = clock.StartTime
		}

		rec := models.AccrualRecord{
			ID:            uuid.NewString(),
			AssetID:       assetID,
			LastClaimTime: start,
		}
		return tx.Create(&rec).Error
	})
}

// pendingTx computes the claimable yield for one asset inside a transaction.
// Returns 0 (never an error) for unregistered assets, an inactive clock, or a
// game that has not started yet.
func (s *AccrualService) pendingTx(tx *gorm.DB, assetID uint64, now int64) (int64, error) {
	var rec models.AccrualRecord
	if err := tx.Where("asset_id = ?", assetID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	clock, err := s.GameClock.stateTx(tx)
	if err != nil {
		return 0, err
	}
	if !clock.Active || now < clock.StartTime {
		return 0, nil
	}

	// Time spent paused never accrues: the window before the last resume is
	// skipped no matter how stale the asset's own checkpoint is.
	effectiveStart := rec.LastClaimTime
	if clock.LastResumeTime > effectiveStart {
		effectiveStart = clock.LastResumeTime
	}
	if now <= effectiveStart {
		return 0, nil
	}
	elapsed := now - effectiveStart

	tierRec, err := s.Tiers.recordTx(tx, assetID)
	if err != nil {
		return 0, err
	}
	mult := TierMultipliers[effectiveOf(tierRec, now)]

	return elapsed * BaseYieldPerDay * mult / (100 * SecondsPerDay), nil
}

// PendingYield is the read-only view of what a claim would pay right now.
func (s *AccrualService) PendingYield(assetID uint64) (int64, error) {
	return s.pendingTx(s.DB, assetID, s.now())
}

// settleTx advances the asset's checkpoint and returns the settled amount.
// The checkpoint moves before any mint happens (effects before interactions).
func (s *AccrualService) settleTx(tx *gorm.DB, assetID uint64, now int64) (int64, error) {
	amount, err := s.pendingTx(tx, assetID, now)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, nil
	}
	res := tx.Model(&models.AccrualRecord{}).
		Where("asset_id = ?", assetID).
		Update("last_claim_time", now)
	if res.Error != nil {
		return 0, res.Error
	}
	return amount, nil
}

// Claim settles one asset's accrued yield and mints it to the caller.
func (s *AccrualService) Claim(assetID uint64, callerID string) (int64, error) {
	var paid int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		owner, err := ownerOfAsset(tx, s.Registry, assetID)
		if err != nil {
			return err
		}
		if owner != callerID {
			return ErrNotOwner
		}

		amount, err := s.settleTx(tx, assetID, s.now())
		if err != nil {
			return err
		}
		if amount == 0 {
			return ErrNothingToClaim
		}

		if err := s.Ledger.mintTx(tx, callerID, amount, fmt.Sprintf("yield_asset_%d", assetID)); err != nil {
			return err
		}
		paid = amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("💰 Yield claimed: asset %d → %s (%d)", assetID, callerID, paid)
	return paid, nil
}

// ClaimMultiple settles up to MaxClaimBatch assets in one transition. Assets
// with nothing pending contribute zero; the call only fails when the whole
// batch sums to zero. All-or-nothing: either every settlement commits or none.
func (s *AccrualService) ClaimMultiple(assetIDs []uint64, callerID string) (int64, error) {
	if len(assetIDs) > MaxClaimBatch {
		return 0, ErrBatchTooLarge
	}
	var total int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := s.now()
		for _, assetID := range assetIDs {
			owner, err := ownerOfAsset(tx, s.Registry, assetID)
			if err != nil {
				return err
			}
			if owner != callerID {
				return ErrNotOwner
			}
			amount, err := s.settleTx(tx, assetID, now)
			if err != nil {
				return err
			}
			total += amount
		}
		if total == 0 {
			return ErrNothingToClaim
		}
		return s.Ledger.mintTx(tx, callerID, total, fmt.Sprintf("yield_batch_%d_assets", len(assetIDs)))
	})
	if err != nil {
		return 0, err
	}
	log.Printf("💰 Batch yield claimed: %d asset(s) → %s (%d)", len(assetIDs), callerID, total)
	return total, nil
}

// IsRegistered reports whether the asset has an accrual checkpoint.
func (s *AccrualService) IsRegistered(assetID uint64) (bool, error) {
	var count int64
	err := s.DB.Model(&models.AccrualRecord{}).Where("asset_id = ?", assetID).Count(&count).Error
	return count > 0, err
}
