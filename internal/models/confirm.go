package models

import (
	"time"
)

// ConfirmStatus is the kind of action an owner took on a transaction.
type ConfirmStatus string

const (
	ConfirmStatusConfirm ConfirmStatus = "CONFIRM"
	ConfirmStatusReject  ConfirmStatus = "REJECT"
	ConfirmStatusSend    ConfirmStatus = "SEND"
)

func (s ConfirmStatus) Valid() bool {
	return s == ConfirmStatusConfirm || s == ConfirmStatusReject || s == ConfirmStatusSend
}

// MultisigConfirm records one owner action. Signature and BodyBytes are only
// present on CONFIRM rows. An owner has at most one CONFIRM or REJECT per
// transaction; SEND rows sit outside that rule.
type MultisigConfirm struct {
	ID                    uint          `gorm:"primaryKey" json:"id"`
	MultisigTransactionID uint          `gorm:"index;not null" json:"multisigTransactionId"`
	OwnerAddress          string        `gorm:"size:128;not null" json:"ownerAddress"`
	Status                ConfirmStatus `gorm:"size:16;not null" json:"status"`
	Signature             []byte        `gorm:"type:blob" json:"signature,omitempty"`
	BodyBytes             []byte        `gorm:"type:blob" json:"bodyBytes,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
}

func (MultisigConfirm) TableName() string { return "multisig_confirms" }
