package models

import (
	"time"
)

// TxStatus is the state of a multisig transaction.
type TxStatus string

const (
	TxAwaitingConfirmations TxStatus = "AWAITING_CONFIRMATIONS"
	TxAwaitingExecution     TxStatus = "AWAITING_EXECUTION"
	TxPending               TxStatus = "PENDING"
	TxSuccess               TxStatus = "SUCCESS"
	TxFailed                TxStatus = "FAILED"
	TxCancel                TxStatus = "CANCEL"
)

// txTransitions lists the statuses reachable in one step. Anything missing is
// a regression or a skip and is refused.
var txTransitions = map[TxStatus][]TxStatus{
	TxAwaitingConfirmations: {TxAwaitingExecution, TxCancel},
	TxAwaitingExecution:     {TxPending, TxCancel},
	TxPending:               {TxSuccess, TxFailed},
}

// QueueStatuses are the statuses of transactions still waiting on owners.
var QueueStatuses = []TxStatus{TxAwaitingConfirmations, TxAwaitingExecution}

// HistoryStatuses are the statuses of transactions that left the queue.
var HistoryStatuses = []TxStatus{TxPending, TxSuccess, TxFailed, TxCancel}

func (s TxStatus) Valid() bool {
	switch s {
	case TxAwaitingConfirmations, TxAwaitingExecution, TxPending, TxSuccess, TxFailed, TxCancel:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next keeps the status
// moving forward.
func (s TxStatus) CanTransition(next TxStatus) bool {
	for _, allowed := range txTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsActions reports whether owners may still confirm or reject.
func (s TxStatus) AcceptsActions() bool {
	return s == TxAwaitingConfirmations || s == TxAwaitingExecution
}

func (s TxStatus) Terminal() bool {
	return len(txTransitions[s]) == 0
}

// MultisigTransaction is a transaction proposed from a safe. Sequence is the
// account sequence captured at creation and is never written again.
type MultisigTransaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SafeID         uint      `gorm:"index;not null" json:"safeId"`
	ChainID        string    `gorm:"size:64;not null" json:"chainId"`
	CreatorAddress string    `gorm:"size:128;not null" json:"creatorAddress"`
	FromAddress    string    `gorm:"size:128;not null" json:"fromAddress"`
	ToAddress      string    `gorm:"size:128" json:"toAddress"`
	Amount         string    `gorm:"size:80" json:"amount"`
	Denom          string    `gorm:"size:128" json:"denom"`
	TypeURL        string    `gorm:"column:type_url;size:128;not null" json:"typeUrl"`
	Fee            string    `gorm:"size:80" json:"fee"`
	GasLimit       uint64    `json:"gasLimit"`
	Memo           string    `gorm:"type:text" json:"memo"`
	AccountNumber  uint64    `gorm:"<-:create" json:"accountNumber"`
	Sequence       uint64    `gorm:"<-:create" json:"sequence"`
	Status         TxStatus  `gorm:"size:32;index;not null" json:"status"`
	TxHash         *string   `gorm:"size:128;index" json:"txHash"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (MultisigTransaction) TableName() string { return "multisig_transactions" }

// Hash returns the broadcast hash or "".
func (t *MultisigTransaction) Hash() string {
	if t.TxHash == nil {
		return ""
	}
	return *t.TxHash
}
