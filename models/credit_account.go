// models/credit_account.go
package models

// CreditAccount tracks the spendable currency balance and the discount-credit
// channel for a single player. Rows are created implicitly on first touch and
// never deleted.
//
// DiscountCredits never exceeds the global credit cap, and they stay unusable
// until CreditUnlockTime has passed (all domain timestamps are Unix seconds).
type CreditAccount struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerID         string `gorm:"uniqueIndex;not null" json:"player_id"` // external profile service ID
	Balance          int64  `gorm:"not null;default:0" json:"balance"`
	DiscountCredits  int64  `gorm:"not null;default:0" json:"discount_credits"`
	CreditUnlockTime int64  `gorm:"not null;default:0" json:"credit_unlock_time"`

	Timestamps
}

// LedgerState is a singleton row (ID=1) holding the one-time wiring flags and
// the operator mint-cap counter. It exists so the wiring lifecycle
// (uninitialized → wired) is explicit DB state rather than process globals.
type LedgerState struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	MarketAddress  string `gorm:"type:varchar(128)" json:"market_address"` // settable once
	MarketSet      bool   `gorm:"not null;default:false" json:"market_set"`
	OperatorMinted int64  `gorm:"not null;default:0" json:"operator_minted"`

	Timestamps
}

// LedgerEntryKind labels a row in the append-only movement log.
type LedgerEntryKind string

const (
	LedgerEntryMint         LedgerEntryKind = "mint"
	LedgerEntryBurn         LedgerEntryKind = "burn"
	LedgerEntryTransfer     LedgerEntryKind = "transfer"
	LedgerEntryCreditsEarn  LedgerEntryKind = "credits_earn"
	LedgerEntryCreditsSpend LedgerEntryKind = "credits_spend"
	LedgerEntryPrizePayout  LedgerEntryKind = "prize_payout"
	LedgerEntryPrizeSweep   LedgerEntryKind = "prize_sweep"
)

// LedgerEntry is the audit trail for every balance/credit movement. Append-only.
type LedgerEntry struct {
	ID         string          `gorm:"primaryKey;type:uuid" json:"id"`
	Kind       LedgerEntryKind `gorm:"type:varchar(32);not null;index" json:"kind"`
	FromID     string          `gorm:"type:varchar(128);index" json:"from_id,omitempty"` // empty for mints
	ToID       string          `gorm:"type:varchar(128);index" json:"to_id,omitempty"`   // empty for burns
	Amount     int64           `gorm:"not null" json:"amount"`
	Ref        string          `gorm:"type:varchar(128)" json:"ref,omitempty"` // asset id, round id, reason
	OccurredAt int64           `gorm:"not null;index" json:"occurred_at"`

	Timestamps
}
