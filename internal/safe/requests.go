package safe

import (
	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

// MsgSendTypeURL is the bank transfer message, the default message type.
const MsgSendTypeURL = "/cosmos.bank.v1beta1.MsgSend"

const maxPageSize = 100

func invalid(format string, args ...any) error {
	return errorsmod.Wrapf(safeerr.ErrInvalidRequest, format, args...)
}

// CreateWalletRequest proposes a new safe. CreatorPubkey is the base64
// compressed secp256k1 key of CreatorAddress.
type CreateWalletRequest struct {
	ChainID        string
	CreatorAddress string
	CreatorPubkey  string
	OtherOwners    []string
	Threshold      int
}

// Owners returns the creator followed by the other owners.
func (r CreateWalletRequest) Owners() []string {
	return append([]string{r.CreatorAddress}, r.OtherOwners...)
}

func (r CreateWalletRequest) Validate() error {
	if r.ChainID == "" {
		return invalid("chain id is required")
	}
	if r.CreatorAddress == "" || r.CreatorPubkey == "" {
		return invalid("creator address and pubkey are required")
	}
	seen := map[string]bool{r.CreatorAddress: true}
	for _, o := range r.OtherOwners {
		if o == "" {
			return invalid("empty owner address")
		}
		if seen[o] {
			return invalid("owner %s listed twice", o)
		}
		seen[o] = true
	}
	if r.Threshold < 1 || r.Threshold > len(seen) {
		return errorsmod.Wrapf(safeerr.ErrThresholdOutOfRange, "threshold %d with %d owners", r.Threshold, len(seen))
	}
	return nil
}

// ConfirmWalletRequest is an owner joining a pending safe with its key.
type ConfirmWalletRequest struct {
	SafeID       uint
	OwnerAddress string
	OwnerPubkey  string
}

func (r ConfirmWalletRequest) Validate() error {
	if r.SafeID == 0 {
		return invalid("safe id is required")
	}
	if r.OwnerAddress == "" || r.OwnerPubkey == "" {
		return invalid("owner address and pubkey are required")
	}
	return nil
}

type DeleteWalletRequest struct {
	SafeID           uint
	RequesterAddress string
}

func (r DeleteWalletRequest) Validate() error {
	if r.SafeID == 0 || r.RequesterAddress == "" {
		return invalid("safe id and requester are required")
	}
	return nil
}

// CreateTransactionRequest proposes a transaction and carries the creator's
// own signature over BodyBytes. Fee is paid in the chain's native denom.
type CreateTransactionRequest struct {
	SafeID         uint
	CreatorAddress string
	TypeURL        string
	ToAddress      string
	Amount         string
	Denom          string
	Fee            string
	GasLimit       uint64
	Memo           string
	Signature      []byte
	BodyBytes      []byte
}

func (r CreateTransactionRequest) typeURL() string {
	if r.TypeURL == "" {
		return MsgSendTypeURL
	}
	return r.TypeURL
}

func (r CreateTransactionRequest) amount() (sdkmath.Int, error) {
	return parseAmount("amount", r.Amount)
}

func (r CreateTransactionRequest) fee() (sdkmath.Int, error) {
	return parseAmount("fee", r.Fee)
}

func parseAmount(field, s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.ZeroInt(), nil
	}
	v, ok := sdkmath.NewIntFromString(s)
	if !ok || v.IsNegative() {
		return sdkmath.Int{}, invalid("%s %q is not a non-negative integer", field, s)
	}
	return v, nil
}

func (r CreateTransactionRequest) Validate() error {
	if r.SafeID == 0 || r.CreatorAddress == "" {
		return invalid("safe id and creator are required")
	}
	if r.GasLimit == 0 {
		return invalid("gas limit is required")
	}
	if len(r.Signature) == 0 || len(r.BodyBytes) == 0 {
		return invalid("creator signature and body bytes are required")
	}
	amount, err := r.amount()
	if err != nil {
		return err
	}
	if _, err := r.fee(); err != nil {
		return err
	}
	if r.typeURL() == MsgSendTypeURL {
		if r.ToAddress == "" {
			return invalid("recipient is required")
		}
		if !amount.IsPositive() {
			return invalid("amount must be positive")
		}
	}
	return nil
}

// ConfirmTransactionRequest adds an owner's signature.
type ConfirmTransactionRequest struct {
	TransactionID uint
	OwnerAddress  string
	Signature     []byte
	BodyBytes     []byte
}

func (r ConfirmTransactionRequest) Validate() error {
	if r.TransactionID == 0 || r.OwnerAddress == "" {
		return invalid("transaction id and owner are required")
	}
	if len(r.Signature) == 0 || len(r.BodyBytes) == 0 {
		return invalid("signature and body bytes are required")
	}
	return nil
}

// ActionRequest identifies an owner acting on a transaction without a
// payload: reject, send and cancel.
type ActionRequest struct {
	TransactionID uint
	OwnerAddress  string
}

func (r ActionRequest) Validate() error {
	if r.TransactionID == 0 || r.OwnerAddress == "" {
		return invalid("transaction id and owner are required")
	}
	return nil
}

// ListFilter selects a view over a safe's transactions.
type ListFilter string

const (
	ListAll     ListFilter = ""
	ListQueue   ListFilter = "queue"
	ListHistory ListFilter = "history"
)

type ListTransactionsRequest struct {
	SafeID    uint
	Filter    ListFilter
	Statuses  []models.TxStatus // overrides Filter when set
	PageIndex int
	PageSize  int
}

func (r ListTransactionsRequest) Validate() error {
	if r.SafeID == 0 {
		return invalid("safe id is required")
	}
	switch r.Filter {
	case ListAll, ListQueue, ListHistory:
	default:
		return invalid("unknown filter %q", r.Filter)
	}
	for _, s := range r.Statuses {
		if !s.Valid() {
			return invalid("unknown status %q", s)
		}
	}
	if r.PageIndex < 0 || r.PageSize < 0 || r.PageSize > maxPageSize {
		return invalid("page %d/%d out of range", r.PageIndex, r.PageSize)
	}
	return nil
}

func (r ListTransactionsRequest) statuses() []models.TxStatus {
	if len(r.Statuses) > 0 {
		return r.Statuses
	}
	switch r.Filter {
	case ListQueue:
		return models.QueueStatuses
	case ListHistory:
		return models.HistoryStatuses
	}
	return nil
}
