// models/round.go
package models

// Round is a prize round: a funded pool that gets finalized with an allow-list
// root and then pays out via proof-gated, vesting claims. Rounds are archived,
// never deleted; past the recovery delay the leftover pool becomes sweepable.
//
// PaidOut ≤ Pool holds per round at all times — payouts never draw on another
// round's balance even though the prize currency sits in one pooled account.
type Round struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	Title         string `gorm:"not null" json:"title"`
	Slug          string `gorm:"uniqueIndex;not null" json:"slug"` // keys the published allowlist object
	Pool          int64  `gorm:"not null" json:"pool"`
	PaidOut       int64  `gorm:"not null;default:0" json:"paid_out"`
	AllowlistRoot string `gorm:"type:varchar(64)" json:"allowlist_root"` // hex sha256, empty until finalized
	AllowlistURL  string `gorm:"type:text" json:"allowlist_url,omitempty"`
	OpenedAt      int64  `gorm:"not null" json:"opened_at"`
	ClosedAt      int64  `gorm:"not null;default:0" json:"closed_at"` // 0 until finalized
	Finalized     bool   `gorm:"not null;default:false" json:"finalized"`

	Timestamps
}

// PrizeClaim is the per-(round, player) vesting schedule. TotalAmount is set
// exactly once, by the first successful proof-gated claim; ClaimedAmount only
// grows and never exceeds TotalAmount.
type PrizeClaim struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	RoundID       string `gorm:"type:uuid;not null;index:idx_round_player,unique" json:"round_id"`
	PlayerID      string `gorm:"type:varchar(128);not null;index:idx_round_player,unique" json:"player_id"`
	TotalAmount   int64  `gorm:"not null" json:"total_amount"`
	ClaimedAmount int64  `gorm:"not null;default:0" json:"claimed_amount"`
	VestingStart  int64  `gorm:"not null" json:"vesting_start"`

	Timestamps
}
