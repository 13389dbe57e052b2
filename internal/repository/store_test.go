package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pyxis-safe/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

// createdSafe inserts a CREATED 2-of-3 safe owned by aura1a, aura1b, aura1c.
func createdSafe(t *testing.T, s *Store, hash string) *models.Safe {
	t.Helper()
	safe := &models.Safe{
		ChainID:        "aura-testnet-2",
		CreatorAddress: "aura1a",
		CreatorPubkey:  "pk-a",
		Threshold:      2,
		Status:         models.SafeStatusPending,
		AddressHash:    hash,
	}
	owners := []models.SafeOwner{
		{OwnerAddress: "aura1a", OwnerPubkey: strPtr("pk-a")},
		{OwnerAddress: "aura1b"},
		{OwnerAddress: "aura1c"},
	}
	ctx := context.Background()
	require.NoError(t, s.Safes().InsertPending(ctx, safe, owners))
	require.NoError(t, s.Safes().MarkCreated(ctx, safe.ID, "aura1safe"+hash, "{}"))
	out, err := s.Safes().FindByID(ctx, safe.ID)
	require.NoError(t, err)
	return out
}

func TestOpenStoreOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "safe.db")
	s, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// reopening migrates idempotently
	s, err = OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx *Store) error {
		safe := &models.Safe{ChainID: "c", CreatorAddress: "a", CreatorPubkey: "p", Threshold: 1, Status: models.SafeStatusPending, AddressHash: "h"}
		require.NoError(t, tx.Safes().InsertPending(ctx, safe, nil))
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	found, err := s.Safes().FindByFingerprint(ctx, "h")
	require.NoError(t, err)
	require.Empty(t, found)
}
