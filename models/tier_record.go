// models/tier_record.go
package models

// TierRecord holds the stored tier state for a single asset. Tier 0 needs no
// record; the row is created on the asset's first upgrade and never deleted.
//
// StoredTier only increases through an upgrade and only decreases through an
// explicit settle (maintenance or enforced downgrade) — reads never write. The
// effective tier is derived lazily from LastMaintenanceTime and is computed in
// services, not stored here.
type TierRecord struct {
	ID                  string `gorm:"primaryKey;type:uuid" json:"id"`
	AssetID             uint64 `gorm:"uniqueIndex;not null" json:"asset_id"`
	StoredTier          int    `gorm:"not null;default:0" json:"stored_tier"`
	LastMaintenanceTime int64  `gorm:"not null;default:0" json:"last_maintenance_time"`
	TierUpgradeTime     int64  `gorm:"not null;default:0" json:"tier_upgrade_time"`

	Timestamps
}
