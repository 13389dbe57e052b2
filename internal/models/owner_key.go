package models

import (
	"time"
)

// OwnerKey is a locally held owner signing key. EncryptedKey is sealed with
// the configured security seed.
type OwnerKey struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:64;uniqueIndex" json:"name"`
	Address      string    `gorm:"size:128;uniqueIndex" json:"address"`
	PubKey       string    `gorm:"size:128" json:"pubKey"`
	EncryptedKey []byte    `gorm:"type:blob" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (OwnerKey) TableName() string { return "owner_keys" }
