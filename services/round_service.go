// services/round_service.go
package services

import (
	"encoding/json"
	"errors"
	"log"

	"game-economy-system/models"
	"game-economy-system/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

var (
	ErrRoundNotFound     = errors.New("round vesting: round not found")
	ErrPoolTooSmall      = errors.New("round vesting: pool below minimum")
	ErrRoundFinalized    = errors.New("round vesting: round already finalized")
	ErrRoundNotFinalized = errors.New("round vesting: round not finalized")
	ErrEmptyRoot         = errors.New("round vesting: allowlist root must not be empty")
	ErrAlreadyClaimed    = errors.New("round vesting: prize already claimed for this round")
	ErrInvalidProof      = errors.New("round vesting: allowlist proof invalid")
	ErrNoClaim           = errors.New("round vesting: no claim opened for this round")
	ErrNothingToWithdraw = errors.New("round vesting: nothing to withdraw yet")
	ErrPoolExhausted     = errors.New("round vesting: round pool exhausted")
	ErrSweepTooEarly     = errors.New("round vesting: recovery delay not elapsed")
	ErrNothingToRecover  = errors.New("round vesting: nothing to recover")
)

// RoundService runs prize rounds: Open → Finalized → (optionally) Swept.
// Claims are merkle-gated and one-time per (round, player); withdrawals vest
// linearly and are clamped to the round's own remaining pool, so a bad
// allow-list can at worst exhaust its own round, never a neighbor's.
//
// Nothing here checks that the tree behind a root allocates ≤ the round's
// pool. Solvency of the allow-list is the off-chain builder's responsibility;
// the per-round clamp only bounds the blast radius of a mistake.
type RoundService struct {
	DB     *gorm.DB
	Clock  clockwork.Clock
	Ledger *CreditLedgerService
}

func NewRoundService(db *gorm.DB, ledger *CreditLedgerService) *RoundService {
	return &RoundService{DB: db, Clock: clockwork.NewRealClock(), Ledger: ledger}
}

func (s *RoundService) now() int64 {
	return s.Clock.Now().Unix()
}

func (s *RoundService) roundTx(tx *gorm.DB, roundID string) (*models.Round, error) {
	var round models.Round
	if err := tx.Where("id = ?", roundID).First(&round).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

// StartRound opens a new round with its initial pool funding.
func (s *RoundService) StartRound(title string, pool int64) (*models.Round, error) {
	if pool < MinPool {
		return nil, ErrPoolTooSmall
	}
	id := uuid.NewString()

	roundSlug := slug.Make(title)
	if roundSlug == "" {
		roundSlug = "round"
	}
	roundSlug = roundSlug + "-" + id[:8]

	round := &models.Round{
		ID:       id,
		Title:    title,
		Slug:     roundSlug,
		Pool:     pool,
		OpenedAt: s.now(),
	}
	if err := s.DB.Create(round).Error; err != nil {
		return nil, err
	}
	log.Printf("🏆 Round opened: %s (%s) pool=%d", round.Title, round.ID, round.Pool)
	return round, nil
}

// AddFunds tops up an open round. Finalized rounds are frozen.
func (s *RoundService) AddFunds(roundID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		round, err := s.roundTx(tx, roundID)
		if err != nil {
			return err
		}
		if round.Finalized {
			return ErrRoundFinalized
		}
		round.Pool += amount
		return tx.Save(round).Error
	})
}

// FinalizeRound freezes the round with its allow-list root. One-way. If the
// full entry list is supplied the root may be derived from it, and the list is
// published to R2 after commit so claimants can fetch their proofs — a failed
// upload is logged and retried by re-publishing, it never unwinds the finalize.
func (s *RoundService) FinalizeRound(roundID, root string, entries []utils.AllowlistEntry) (*models.Round, error) {
	if root == "" && len(entries) > 0 {
		root = utils.BuildAllowlistRoot(roundID, entries)
	}
	if root == "" {
		return nil, ErrEmptyRoot
	}

	var round *models.Round
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		round, err = s.roundTx(tx, roundID)
		if err != nil {
			return err
		}
		if round.Finalized {
			return ErrRoundFinalized
		}
		round.AllowlistRoot = root
		round.Finalized = true
		round.ClosedAt = s.now()
		return tx.Save(round).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🔒 Round finalized: %s root=%s", round.ID, root)

	if len(entries) > 0 {
		payload, err := json.Marshal(map[string]interface{}{
			"round_id": round.ID,
			"root":     root,
			"entries":  entries,
		})
		if err == nil {
			url, upErr := utils.PublishAllowlist("allowlists/"+round.Slug+".json", payload)
			if upErr != nil {
				log.Printf("⚠️  Allowlist publish failed for round %s: %v", round.ID, upErr)
			} else if dbErr := s.DB.Model(round).Update("allowlist_url", url).Error; dbErr == nil {
				round.AllowlistURL = url
			}
		}
	}
	return round, nil
}

// ClaimPrize verifies the caller's allow-list proof and opens their vesting
// schedule. Usable at most once per (round, player); the amount is fixed by
// that first successful call.
func (s *RoundService) ClaimPrize(roundID, playerID string, amount int64, proof []string) (*models.PrizeClaim, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var claim *models.PrizeClaim
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		round, err := s.roundTx(tx, roundID)
		if err != nil {
			return err
		}
		if !round.Finalized {
			return ErrRoundNotFinalized
		}

		var existing models.PrizeClaim
		err = tx.Where("round_id = ? AND player_id = ?", roundID, playerID).First(&existing).Error
		if err == nil {
			return ErrAlreadyClaimed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		leaf := utils.LeafHash(roundID, playerID, amount)
		if !utils.VerifyProof(round.AllowlistRoot, leaf, proof) {
			return ErrInvalidProof
		}

		claim = &models.PrizeClaim{
			ID:           uuid.NewString(),
			RoundID:      roundID,
			PlayerID:     playerID,
			TotalAmount:  amount,
			VestingStart: s.now(),
		}
		return tx.Create(claim).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🎫 Prize claimed: round %s player %s amount=%d (vesting opened)", roundID, playerID, claim.TotalAmount)
	return claim, nil
}

func vestedOf(claim *models.PrizeClaim, now int64) int64 {
	elapsed := now - claim.VestingStart
	if elapsed >= VestingDuration {
		return claim.TotalAmount
	}
	if elapsed <= 0 {
		return 0
	}
	return claim.TotalAmount * elapsed / VestingDuration
}

// VestedAmount reports how much of the claim has unlocked and how much of
// that is still unwithdrawn. Pure read.
func (s *RoundService) VestedAmount(roundID, playerID string) (vested, withdrawable int64, err error) {
	var claim models.PrizeClaim
	if err := s.DB.Where("round_id = ? AND player_id = ?", roundID, playerID).First(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrNoClaim
		}
		return 0, 0, err
	}
	vested = vestedOf(&claim, s.now())
	return vested, vested - claim.ClaimedAmount, nil
}

// WithdrawVested pays out whatever has vested since the last withdrawal,
// clamped to the round's own remaining pool. Fund isolation lives here: a
// withdrawal from round A can never touch round B's balance.
func (s *RoundService) WithdrawVested(roundID, playerID string) (int64, error) {
	var paid int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		round, err := s.roundTx(tx, roundID)
		if err != nil {
			return err
		}

		var claim models.PrizeClaim
		if err := tx.Where("round_id = ? AND player_id = ?", roundID, playerID).First(&claim).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoClaim
			}
			return err
		}

		withdrawable := vestedOf(&claim, s.now()) - claim.ClaimedAmount
		if withdrawable <= 0 {
			return ErrNothingToWithdraw
		}
		remaining := round.Pool - round.PaidOut
		if remaining <= 0 {
			return ErrPoolExhausted
		}
		if withdrawable > remaining {
			withdrawable = remaining
		}

		claim.ClaimedAmount += withdrawable
		round.PaidOut += withdrawable
		if err := tx.Save(&claim).Error; err != nil {
			return err
		}
		if err := tx.Save(round).Error; err != nil {
			return err
		}

		if err := s.Ledger.prizePayoutTx(tx, models.LedgerEntryPrizePayout, playerID, withdrawable, roundID); err != nil {
			return err
		}
		paid = withdrawable
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("💸 Vested withdrawal: round %s player %s paid=%d", roundID, playerID, paid)
	return paid, nil
}

// SweepUnclaimed recovers whatever the round never paid out, once the
// recovery delay past finalization has fully elapsed. Marks the round fully
// disposed so it can never be swept twice.
func (s *RoundService) SweepUnclaimed(roundID, recipientID string) (int64, error) {
	var recovered int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		round, err := s.roundTx(tx, roundID)
		if err != nil {
			return err
		}
		if !round.Finalized {
			return ErrRoundNotFinalized
		}
		if s.now() <= round.ClosedAt+RecoveryDelay {
			return ErrSweepTooEarly
		}
		recovered = round.Pool - round.PaidOut
		if recovered <= 0 {
			return ErrNothingToRecover
		}
		round.PaidOut = round.Pool
		if err := tx.Save(round).Error; err != nil {
			return err
		}
		return s.Ledger.prizePayoutTx(tx, models.LedgerEntryPrizeSweep, recipientID, recovered, roundID)
	})
	if err != nil {
		return 0, err
	}
	log.Printf("🧹 Round swept: %s recovered=%d → %s", roundID, recovered, recipientID)
	return recovered, nil
}

// GetRound returns one round.
func (s *RoundService) GetRound(roundID string) (*models.Round, error) {
	return s.roundTx(s.DB, roundID)
}

// ListRounds returns all rounds, newest first.
func (s *RoundService) ListRounds() ([]models.Round, error) {
	var rounds []models.Round
	err := s.DB.Order("opened_at DESC").Find(&rounds).Error
	return rounds, err
}

// SweepableRounds lists finalized rounds past their recovery delay that still
// hold unrecovered funds. Scheduler audit aid.
func (s *RoundService) SweepableRounds() ([]models.Round, error) {
	cutoff := s.now() - RecoveryDelay
	var rounds []models.Round
	err := s.DB.Where("finalized = ? AND closed_at < ? AND paid_out < pool", true, cutoff).
		Find(&rounds).Error
	return rounds, err
}
