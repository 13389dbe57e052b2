package models

import (
	"time"
)

// SafeStatus is the lifecycle state of a multisig wallet record.
type SafeStatus string

const (
	SafeStatusPending SafeStatus = "PENDING"
	SafeStatusCreated SafeStatus = "CREATED"
	SafeStatusDeleted SafeStatus = "DELETED"
)

// Safe is an M-of-N multisig wallet. SafeAddress and SafePubkey are set
// exactly when Status is not PENDING.
type Safe struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	ChainID        string      `gorm:"size:64;index;not null" json:"chainId"`
	CreatorAddress string      `gorm:"size:128;not null" json:"creatorAddress"`
	CreatorPubkey  string      `gorm:"size:128;not null" json:"creatorPubkey"`
	Threshold      int         `gorm:"not null" json:"threshold"`
	SafeAddress    *string     `gorm:"size:128;uniqueIndex" json:"safeAddress"`
	SafePubkey     *string     `gorm:"type:text" json:"safePubkey"`
	Status         SafeStatus  `gorm:"size:16;index;not null" json:"status"`
	AddressHash    string      `gorm:"size:64;index;not null" json:"addressHash"`
	Owners         []SafeOwner `gorm:"foreignKey:SafeID" json:"owners,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func (Safe) TableName() string { return "safes" }

// Address returns the derived address, or "" while the safe is pending.
func (s *Safe) Address() string {
	if s.SafeAddress == nil {
		return ""
	}
	return *s.SafeAddress
}

// SafeOwner is one row of a safe's owner roster. OwnerPubkey stays nil until
// the owner joins the safe.
type SafeOwner struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SafeID       uint      `gorm:"uniqueIndex:idx_safe_owner;not null" json:"safeId"`
	OwnerAddress string    `gorm:"size:128;uniqueIndex:idx_safe_owner;index;not null" json:"ownerAddress"`
	OwnerPubkey  *string   `gorm:"size:128" json:"ownerPubkey"`
	ChainID      string    `gorm:"size:64;index;not null" json:"chainId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (SafeOwner) TableName() string { return "safe_owners" }

// OwnerWallet is a roster lookup row: one safe an owner belongs to.
type OwnerWallet struct {
	SafeID         uint       `json:"safeId"`
	SafeAddress    *string    `json:"safeAddress"`
	CreatorAddress string     `json:"creatorAddress"`
	Threshold      int        `json:"threshold"`
	Status         SafeStatus `json:"status"`
	OwnerAddress   string     `json:"ownerAddress"`
	OwnerPubkey    *string    `json:"ownerPubkey"`
	ChainID        string     `json:"chainId"`
}
