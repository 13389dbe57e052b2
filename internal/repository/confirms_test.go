package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

func TestConfirmRepoOneVotePerOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tx := newTx(createdSafe(t, s, "fp"))
	require.NoError(t, s.Transactions().Create(ctx, tx))
	repo := s.Confirms()

	vote := func(owner string, status models.ConfirmStatus) error {
		return repo.Record(ctx, &models.MultisigConfirm{
			MultisigTransactionID: tx.ID,
			OwnerAddress:          owner,
			Status:                status,
		})
	}

	require.NoError(t, vote("aura1a", models.ConfirmStatusConfirm))
	assert.ErrorIs(t, vote("aura1a", models.ConfirmStatusConfirm), safeerr.ErrAlreadyActed)
	assert.ErrorIs(t, vote("aura1a", models.ConfirmStatusReject), safeerr.ErrAlreadyActed)

	require.NoError(t, vote("aura1b", models.ConfirmStatusReject))
	assert.ErrorIs(t, vote("aura1b", models.ConfirmStatusConfirm), safeerr.ErrAlreadyActed)

	// the executor may also have voted
	require.NoError(t, vote("aura1a", models.ConfirmStatusSend))

	n, err := repo.CountByStatus(ctx, tx.ID, models.ConfirmStatusConfirm)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	all, err := repo.ListByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rejects, err := repo.ListByTransaction(ctx, tx.ID, models.ConfirmStatusReject)
	require.NoError(t, err)
	require.Len(t, rejects, 1)
	assert.Equal(t, "aura1b", rejects[0].OwnerAddress)

	v, err := repo.FindVote(ctx, tx.ID, "aura1c")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestConfirmRepoIndexBacksUpPrecheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tx := newTx(createdSafe(t, s, "fp"))
	require.NoError(t, s.Transactions().Create(ctx, tx))

	first := &models.MultisigConfirm{MultisigTransactionID: tx.ID, OwnerAddress: "aura1a", Status: models.ConfirmStatusConfirm}
	require.NoError(t, s.DB.Create(first).Error)

	dup := &models.MultisigConfirm{MultisigTransactionID: tx.ID, OwnerAddress: "aura1a", Status: models.ConfirmStatusReject}
	err := s.DB.Create(dup).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}
