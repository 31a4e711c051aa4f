// models/accrual_record.go
package models

// AccrualRecord is the per-asset yield checkpoint. A row exists once the asset
// is registered for accrual; LastClaimTime is monotonically non-decreasing and
// is the only state the lazy accrual math needs.
type AccrualRecord struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	AssetID       uint64 `gorm:"uniqueIndex;not null" json:"asset_id"`
	LastClaimTime int64  `gorm:"not null;default:0" json:"last_claim_time"`

	Timestamps
}
