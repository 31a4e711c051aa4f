// models/asset_mirror.go
package models

// AssetMirror mirrors asset ownership data from the registry service.
// Table name: asset_mirror
//
// Assets are minted (and owned) by the external registry; this service only
// needs a fast local ownerOf lookup, so a polling worker keeps this table in
// sync the same way the registry keeps the chain view. Ownership is fixed at
// mint — assets are non-transferable — so rows effectively never change owner.
type AssetMirror struct {
	ID         string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	AssetID    uint64 `gorm:"uniqueIndex;not null" json:"asset_id"`
	OwnerID    string `gorm:"type:varchar(128);not null;index" json:"owner_id"` // external player ID
	Collection uint64 `gorm:"not null;index" json:"collection"`                 // asset_id / 10000
	MintedAt   int64  `gorm:"not null" json:"minted_at"`

	Timestamps
}
