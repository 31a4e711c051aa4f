// services/credit_ledger_service.go
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
	ErrInvalidAmount       = errors.New("credit ledger: amount must be positive")
	ErrInsufficientFunds   = errors.New("credit ledger: insufficient balance")
	ErrInsufficientCredits = errors.New("credit ledger: insufficient discount credits")
	ErrMintCapExceeded     = errors.New("credit ledger: operator mint cap exceeded")
	ErrMarketAlreadySet    = errors.New("credit ledger: market address already set")
)

// CreditsLockedError is returned when discount credits are spent before their
// unlock time has passed.
type CreditsLockedError struct {
	Until int64 // Unix seconds
}

func (e *CreditsLockedError) Error() string {
	return fmt.Sprintf("credit ledger: credits locked until %d", e.Until)
}

// CreditLedgerService tracks the fungible balance plus the parallel
// discount-credit channel per player.
//
// There is no allowance concept: the only callers of the burn/consume paths are
// the other services in this package (the upgrade caller already consented by
// submitting the upgrade) and the operator routes, which are role-guarded at
// the middleware. Every mutating entry point runs as one DB transaction.
type CreditLedgerService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewCreditLedgerService(db *gorm.DB) *CreditLedgerService {
	return &CreditLedgerService{DB: db, Clock: clockwork.NewRealClock()}
}

func (s *CreditLedgerService) now() int64 {
	return s.Clock.Now().Unix()
}

// ensureAccountTx fetches or creates the player's account row (idempotent).
func (s *CreditLedgerService) ensureAccountTx(tx *gorm.DB, playerID string) (*models.CreditAccount, error) {
	var acct models.CreditAccount
	err := tx.Where("player_id = ?", playerID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acct = models.CreditAccount{
			ID:       uuid.NewString(),
			PlayerID: playerID,
		}
		if err := tx.Create(&acct).Error; err != nil {
			return nil, err
		}
		return &acct, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *CreditLedgerService) ledgerStateTx(tx *gorm.DB) (*models.LedgerState, error) {
	var state models.LedgerState
	err := tx.Where("id = ?", 1).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.LedgerState{ID: 1}
		if err := tx.Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *CreditLedgerService) recordTx(tx *gorm.DB, kind models.LedgerEntryKind, from, to string, amount int64, ref string) error {
	entry := models.LedgerEntry{
		ID:         uuid.NewString(),
		Kind:       kind,
		FromID:     from,
		ToID:       to,
		Amount:     amount,
		Ref:        ref,
		OccurredAt: s.now(),
	}
	return tx.Create(&entry).Error
}

// --- tx-scoped primitives (shared with the other services in this package) ---

func (s *CreditLedgerService) mintTx(tx *gorm.DB, playerID string, amount int64, ref string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	acct, err := s.ensureAccountTx(tx, playerID)
	if err != nil {
		return err
	}
	acct.Balance += amount
	if err := tx.Save(acct).Error; err != nil {
		return err
	}
	return s.recordTx(tx, models.LedgerEntryMint, "", playerID, amount, ref)
}

func (s *CreditLedgerService) burnTx(tx *gorm.DB, playerID string, amount int64, ref string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	acct, err := s.ensureAccountTx(tx, playerID)
	if err != nil {
		return err
	}
	if acct.Balance < amount {
		return ErrInsufficientFunds
	}
	acct.Balance -= amount
	if err := tx.Save(acct).Error; err != nil {
		return err
	}
	return s.recordTx(tx, models.LedgerEntryBurn, playerID, "", amount, ref)
}

func (s *CreditLedgerService) consumeCreditsTx(tx *gorm.DB, playerID string, amount int64, ref string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	acct, err := s.ensureAccountTx(tx, playerID)
	if err != nil {
		return err
	}
	if amount > acct.DiscountCredits {
		return ErrInsufficientCredits
	}
	if now := s.now(); now < acct.CreditUnlockTime {
		return &CreditsLockedError{Until: acct.CreditUnlockTime}
	}
	acct.DiscountCredits -= amount
	if err := tx.Save(acct).Error; err != nil {
		return err
	}
	return s.recordTx(tx, models.LedgerEntryCreditsSpend, playerID, "", amount, ref)
}

// earnCreditsTx credits the buyer of a qualifying market purchase. The unlock
// reset on every earn is the flash-loan defense: credits can never be earned
// and spent inside the same window.
func (s *CreditLedgerService) earnCreditsTx(tx *gorm.DB, playerID string, qualifyingAmount int64) (int64, error) {
	acct, err := s.ensureAccountTx(tx, playerID)
	if err != nil {
		return 0, err
	}
	credits := qualifyingAmount * CreditRateBps / 10000
	if room := MaxCredits - acct.DiscountCredits; credits > room {
		credits = room
	}
	if credits <= 0 {
		return 0, nil
	}
	acct.DiscountCredits += credits
	acct.CreditUnlockTime = s.now() + CreditLockDuration
	if err := tx.Save(acct).Error; err != nil {
		return 0, err
	}
	if err := s.recordTx(tx, models.LedgerEntryCreditsEarn, "", playerID, credits, "market_purchase"); err != nil {
		return 0, err
	}
	return credits, nil
}

// prizePayoutTx records a disbursement from the pooled prize account. The prize
// currency itself lives with the external treasury; the ledger row is the
// authoritative instruction the treasury settles against.
func (s *CreditLedgerService) prizePayoutTx(tx *gorm.DB, kind models.LedgerEntryKind, recipient string, amount int64, roundID string) error {
	return s.recordTx(tx, kind, "prize_pool", recipient, amount, roundID)
}

// --- public entry points ---

// OperatorMint is the capped, privileged direct mint path (liquidity seeding).
func (s *CreditLedgerService) OperatorMint(playerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		state, err := s.ledgerStateTx(tx)
		if err != nil {
			return err
		}
		if state.OperatorMinted+amount > OperatorMintCap {
			return ErrMintCapExceeded
		}
		state.OperatorMinted += amount
		if err := tx.Save(state).Error; err != nil {
			return err
		}
		return s.mintTx(tx, playerID, amount, "operator_mint")
	})
}

// Burn lets a player burn their own balance.
func (s *CreditLedgerService) Burn(playerID string, amount int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.burnTx(tx, playerID, amount, "self_burn")
	})
}

// Transfer moves balance between players. A transfer whose sender is the
// registered market address and whose size clears the dust threshold earns the
// recipient discount credits as a side effect of the same transaction.
func (s *CreditLedgerService) Transfer(fromID, toID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		from, err := s.ensureAccountTx(tx, fromID)
		if err != nil {
			return err
		}
		if from.Balance < amount {
			return ErrInsufficientFunds
		}
		to, err := s.ensureAccountTx(tx, toID)
		if err != nil {
			return err
		}
		from.Balance -= amount
		to.Balance += amount
		if err := tx.Save(from).Error; err != nil {
			return err
		}
		if err := tx.Save(to).Error; err != nil {
			return err
		}
		if err := s.recordTx(tx, models.LedgerEntryTransfer, fromID, toID, amount, ""); err != nil {
			return err
		}

		state, err := s.ledgerStateTx(tx)
		if err != nil {
			return err
		}
		if state.MarketSet && fromID == state.MarketAddress && amount >= DustThreshold {
			credited, err := s.earnCreditsTx(tx, toID, amount)
			if err != nil {
				return err
			}
			if credited > 0 {
				log.Printf("💳 Credits earned: %s +%d (purchase of %d)", toID, credited, amount)
			}
		}
		return nil
	})
}

// SetMarketAddress registers the single market/DEX address whose outbound
// transfers earn credits. One-time wiring.
func (s *CreditLedgerService) SetMarketAddress(addr string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		state, err := s.ledgerStateTx(tx)
		if err != nil {
			return err
		}
		if state.MarketSet {
			return ErrMarketAlreadySet
		}
		state.MarketAddress = addr
		state.MarketSet = true
		return tx.Save(state).Error
	})
}

// GetAccount returns the player's account, creating it on first read.
func (s *CreditLedgerService) GetAccount(playerID string) (*models.CreditAccount, error) {
	var acct *models.CreditAccount
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		acct, err = s.ensureAccountTx(tx, playerID)
		return err
	})
	return acct, err
}

// EffectiveValue is a read helper for UI estimation: the value a transfer of
// amount represents if the player also spends their usable credits. Never less
// than amount.
func (s *CreditLedgerService) EffectiveValue(playerID string, amount int64) (int64, error) {
	acct, err := s.GetAccount(playerID)
	if err != nil {
		return 0, err
	}
	if s.now() < acct.CreditUnlockTime {
		return amount, nil
	}
	bonus := acct.DiscountCredits * (creditValueNum - creditValueDen) / creditValueDen
	return amount + bonus, nil
}

// History returns the player's most recent ledger entries, newest first.
func (s *CreditLedgerService) History(playerID string, limit int) ([]models.LedgerEntry, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var entries []models.LedgerEntry
	err := s.DB.Where("from_id = ? OR to_id = ?", playerID, playerID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
