// Package safeerr holds the error kinds shared by the storage and service
// layers. Each kind is a registered cosmossdk.io/errors error so callers can
// match with errors.Is and surface a stable (codespace, code) pair.
package safeerr

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

const Codespace = "safe"

var (
	ErrInvalidKeyMaterial   = errorsmod.Register(Codespace, 2, "invalid key material")
	ErrThresholdOutOfRange  = errorsmod.Register(Codespace, 3, "threshold out of range")
	ErrDuplicateWallet      = errorsmod.Register(Codespace, 4, "duplicate wallet")
	ErrNotPending           = errorsmod.Register(Codespace, 5, "wallet is not pending")
	ErrNotCreator           = errorsmod.Register(Codespace, 6, "requester is not the creator")
	ErrWalletNotReady       = errorsmod.Register(Codespace, 7, "wallet is not created")
	ErrTransactionNotFound  = errorsmod.Register(Codespace, 8, "transaction not found")
	ErrPermissionDenied     = errorsmod.Register(Codespace, 9, "permission denied")
	ErrAlreadyActed         = errorsmod.Register(Codespace, 10, "owner already acted")
	ErrInsufficientBalance  = errorsmod.Register(Codespace, 11, "insufficient balance")
	ErrInvalidTransition    = errorsmod.Register(Codespace, 12, "invalid status transition")
	ErrNotReadyForExecution = errorsmod.Register(Codespace, 13, "transaction not ready for execution")
	ErrChainUnavailable     = errorsmod.Register(Codespace, 14, "chain unavailable")
	ErrWalletNotFound       = errorsmod.Register(Codespace, 15, "wallet not found")
	ErrInvalidRequest       = errorsmod.Register(Codespace, 16, "invalid request")
	ErrBroadcastRejected    = errorsmod.Register(Codespace, 17, "broadcast rejected")
)

type coder interface {
	Codespace() string
	ABCICode() uint32
}

// Code returns the codespace and code of err, looking through any wrapping.
// Errors outside the registry report the undefined codespace with code 1.
func Code(err error) (string, uint32) {
	var c coder
	if errors.As(err, &c) {
		return c.Codespace(), c.ABCICode()
	}
	return errorsmod.UndefinedCodespace, 1
}
