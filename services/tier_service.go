// services/tier_service.go
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
	ErrNotOwner          = errors.New("tier engine: caller does not own asset")
	ErrMaintenanceOwed   = errors.New("tier engine: maintenance owed, settle before upgrading")
	ErrMaxTier           = errors.New("tier engine: asset already at max tier")
	ErrNothingToMaintain = errors.New("tier engine: nothing to maintain")
	ErrNoDowngradeNeeded = errors.New("tier engine: no downgrade needed")
)

// UpgradeReceipt reports how an upgrade was paid for.
type UpgradeReceipt struct {
	AssetID     uint64 `json:"asset_id"`
	NewTier     int    `json:"new_tier"`
	Cost        int64  `json:"cost"`
	CreditsUsed int64  `json:"credits_used"`
	Burned      int64  `json:"burned"`
}

// TierService is the per-asset tier state machine: lazy time-based decay,
// explicit upgrades, and the credit-discount arithmetic.
//
// StoredTier never changes as a by-product of a read; decay only materializes
// through PayMaintenance or EnforceDowngrade.
type TierService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Ledger   *CreditLedgerService
	Registry *RegistryServiceClient
}

func NewTierService(db *gorm.DB, ledger *CreditLedgerService, registry *RegistryServiceClient) *TierService {
	return &TierService{DB: db, Clock: clockwork.NewRealClock(), Ledger: ledger, Registry: registry}
}

func (s *TierService) now() int64 {
	return s.Clock.Now().Unix()
}

// effectiveOf derives the decayed tier from a record at the given time.
// Missing maintenance for one full period costs one tier; miss enough periods
// and the effective tier floors at 0.
func effectiveOf(rec *models.TierRecord, now int64) int {
	if rec == nil || rec.StoredTier == 0 {
		return 0
	}
	missed := int((now - rec.LastMaintenanceTime) / MaintenancePeriod)
	if missed >= rec.StoredTier {
		return 0
	}
	return rec.StoredTier - missed
}

func (s *TierService) recordTx(tx *gorm.DB, assetID uint64) (*models.TierRecord, error) {
	var rec models.TierRecord
	err := tx.Where("asset_id = ?", assetID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // tier 0, no record yet
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// EffectiveTier is the pure read the accrual engine keys off. Repeated calls
// without an intervening mutation return the same value.
func (s *TierService) EffectiveTier(assetID uint64) (int, error) {
	rec, err := s.recordTx(s.DB, assetID)
	if err != nil {
		return 0, err
	}
	return effectiveOf(rec, s.now()), nil
}

// GetRecord returns the stored record plus the derived effective tier.
func (s *TierService) GetRecord(assetID uint64) (*models.TierRecord, int, error) {
	rec, err := s.recordTx(s.DB, assetID)
	if err != nil {
		return nil, 0, err
	}
	return rec, effectiveOf(rec, s.now()), nil
}

// Upgrade advances the asset one tier, burning the (possibly credit-discounted)
// upgrade cost from the caller.
//
// Maintenance must be fully current (effective == stored) — upgrading while
// owing back maintenance would launder the debt away. Tier state is committed
// before the ledger burn/consume calls; keep that ordering, it is the
// effects-before-interactions invariant, not an accident.
func (s *TierService) Upgrade(assetID uint64, callerID string) (*UpgradeReceipt, error) {
	var receipt *UpgradeReceipt
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		owner, err := ownerOfAsset(tx, s.Registry, assetID)
		if err != nil {
			return err
		}
		if owner != callerID {
			return ErrNotOwner
		}

		now := s.now()
		rec, err := s.recordTx(tx, assetID)
		if err != nil {
			return err
		}

		stored := 0
		if rec != nil {
			stored = rec.StoredTier
		}
		effective := effectiveOf(rec, now)
		if effective != stored {
			return ErrMaintenanceOwed
		}
		if effective >= MaxTier {
			return ErrMaxTier
		}

		cost := UpgradeCosts[effective+1]

		acct, err := s.Ledger.ensureAccountTx(tx, callerID)
		if err != nil {
			return err
		}
		credits := acct.DiscountCredits

		// Credits cover cost at 1.5× face value; whatever gap remains is paid
		// at face value, and the credits spent burn at face value too. Integer
		// floor division throughout — numeric parity matters here.
		neededForFull := cost * creditValueDen / creditValueNum
		var creditsUsed, burn int64
		if credits >= neededForFull {
			creditsUsed = neededForFull
			burn = neededForFull
		} else {
			creditsUsed = credits
			covered := credits * creditValueNum / creditValueDen
			burn = cost - covered + creditsUsed
		}

		if creditsUsed > 0 && now < acct.CreditUnlockTime {
			return &CreditsLockedError{Until: acct.CreditUnlockTime}
		}

		// Effects first: the tier row is committed before any ledger call.
		if rec == nil {
			rec = &models.TierRecord{
				ID:      uuid.NewString(),
				AssetID: assetID,
			}
		}
		rec.StoredTier = stored + 1
		rec.LastMaintenanceTime = now
		rec.TierUpgradeTime = now
		if err := tx.Save(rec).Error; err != nil {
			return err
		}

		ref := fmt.Sprintf("upgrade_asset_%d_tier_%d", assetID, rec.StoredTier)
		if err := s.Ledger.burnTx(tx, callerID, burn, ref); err != nil {
			return err
		}
		if creditsUsed > 0 {
			if err := s.Ledger.consumeCreditsTx(tx, callerID, creditsUsed, ref); err != nil {
				return err
			}
		}

		log.Printf("⬆️  Asset %d upgraded to tier %d (cost=%d, credits=%d, burned=%d)",
			assetID, rec.StoredTier, cost, creditsUsed, burn)

		receipt = &UpgradeReceipt{
			AssetID:     assetID,
			NewTier:     rec.StoredTier,
			Cost:        cost,
			CreditsUsed: creditsUsed,
			Burned:      burn,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// PayMaintenance settles any lazy decay (snapping the stored tier down to the
// effective one), then burns the upkeep for the surviving tier and restarts
// the maintenance window.
func (s *TierService) PayMaintenance(assetID uint64, callerID string) (*models.TierRecord, error) {
	var out *models.TierRecord
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		owner, err := ownerOfAsset(tx, s.Registry, assetID)
		if err != nil {
			return err
		}
		if owner != callerID {
			return ErrNotOwner
		}

		now := s.now()
		rec, err := s.recordTx(tx, assetID)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNothingToMaintain
		}

		effective := effectiveOf(rec, now)
		if effective < rec.StoredTier {
			log.Printf("⬇️  Asset %d downgraded %d → %d (maintenance settle)", assetID, rec.StoredTier, effective)
			rec.StoredTier = effective
		}
		if rec.StoredTier == 0 {
			// Rolls the snap back with the transaction — a failed transition
			// commits nothing.
			return ErrNothingToMaintain
		}

		rec.LastMaintenanceTime = now
		if err := tx.Save(rec).Error; err != nil {
			return err
		}

		ref := fmt.Sprintf("maintenance_asset_%d_tier_%d", assetID, rec.StoredTier)
		if err := s.Ledger.burnTx(tx, callerID, MaintenanceCosts[rec.StoredTier], ref); err != nil {
			return err
		}

		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EnforceDowngrade materializes a lapsed tier. Callable by anyone.
//
// The maintenance timer is deliberately NOT reset here: the snapped tier is
// still judged against the stale timer, so the very next read can decay it
// further. PayMaintenance is the only path that restarts the window. This
// asymmetry between the two downgrade paths is observable behavior we keep.
func (s *TierService) EnforceDowngrade(assetID uint64) (int, int, error) {
	var fromTier, toTier int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := s.now()
		rec, err := s.recordTx(tx, assetID)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNoDowngradeNeeded
		}
		effective := effectiveOf(rec, now)
		if effective == rec.StoredTier {
			return ErrNoDowngradeNeeded
		}
		fromTier, toTier = rec.StoredTier, effective
		rec.StoredTier = effective
		return tx.Save(rec).Error
	})
	if err != nil {
		return 0, 0, err
	}
	log.Printf("⬇️  Asset %d downgrade enforced %d → %d", assetID, fromTier, toTier)
	return fromTier, toTier, nil
}

// DelinquentAssetIDs lists assets whose effective tier has fallen behind their
// stored tier. Used by the scheduler's enforcement sweep.
func (s *TierService) DelinquentAssetIDs(limit int) ([]uint64, error) {
	if limit <= 0 {
		limit = 500
	}
	cutoff := s.now() - MaintenancePeriod
	var ids []uint64
	err := s.DB.Model(&models.TierRecord{}).
		Where("stored_tier > 0 AND last_maintenance_time <= ?", cutoff).
		Limit(limit).
		Pluck("asset_id", &ids).Error
	return ids, err
}
