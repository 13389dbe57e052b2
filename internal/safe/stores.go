package safe

import (
	"context"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/repository"
)

// WalletStore persists safes.
type WalletStore interface {
	InsertPending(ctx context.Context, safe *models.Safe, owners []models.SafeOwner) error
	MarkCreated(ctx context.Context, id uint, address, pubkey string) error
	MarkDeleted(ctx context.Context, id uint, requester string) (*models.Safe, error)
	FindByFingerprint(ctx context.Context, hash string) ([]models.Safe, error)
	FindByID(ctx context.Context, id uint) (*models.Safe, error)
	LockByID(ctx context.Context, id uint) (*models.Safe, error)
	FindByOwnerAndChain(ctx context.Context, owner, chainID string) ([]models.Safe, error)
	Threshold(ctx context.Context, safeAddress string) (int, error)
}

// OwnerRoster answers membership questions.
type OwnerRoster interface {
	ListWalletsForOwner(ctx context.Context, owner, chainID string) ([]models.OwnerWallet, error)
	ListBySafe(ctx context.Context, safeID uint) ([]models.SafeOwner, error)
	SetPubkey(ctx context.Context, safeID uint, owner, pubkey string) error
}

// TransactionStore persists multisig transactions.
type TransactionStore interface {
	Create(ctx context.Context, t *models.MultisigTransaction) error
	UpdateStatus(ctx context.Context, id uint, next models.TxStatus) error
	MarkBroadcast(ctx context.Context, id uint, hash string) error
	FindByID(ctx context.Context, id uint) (*models.MultisigTransaction, error)
	LockByID(ctx context.Context, id uint) (*models.MultisigTransaction, error)
	FindBySafe(ctx context.Context, safeID uint, f repository.TxFilter) ([]models.MultisigTransaction, int64, error)
}

// ConfirmationStore persists owner actions.
type ConfirmationStore interface {
	Record(ctx context.Context, c *models.MultisigConfirm) error
	ListByTransaction(ctx context.Context, txID uint, statuses ...models.ConfirmStatus) ([]models.MultisigConfirm, error)
	CountByStatus(ctx context.Context, txID uint, status models.ConfirmStatus) (int64, error)
}

// Stores groups the stores bound to one database handle.
type Stores struct {
	Wallets       WalletStore
	Owners        OwnerRoster
	Transactions  TransactionStore
	Confirmations ConfirmationStore
}

// Backend hands out stores and runs atomic units of work. Inside Atomic only
// the Stores passed to fn may be used.
type Backend interface {
	Stores() Stores
	Atomic(ctx context.Context, fn func(Stores) error) error
}

type gormBackend struct {
	store *repository.Store
}

// NewGormBackend binds the service to a repository.Store.
func NewGormBackend(store *repository.Store) Backend {
	return gormBackend{store: store}
}

func storesOf(s *repository.Store) Stores {
	return Stores{
		Wallets:       s.Safes(),
		Owners:        s.Owners(),
		Transactions:  s.Transactions(),
		Confirmations: s.Confirms(),
	}
}

func (b gormBackend) Stores() Stores { return storesOf(b.store) }

func (b gormBackend) Atomic(ctx context.Context, fn func(Stores) error) error {
	return b.store.Transaction(ctx, func(tx *repository.Store) error {
		return fn(storesOf(tx))
	})
}
