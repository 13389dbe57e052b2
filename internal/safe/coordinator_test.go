package safe

import (
	"context"
	"testing"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

func TestTransactionLifecycle(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	safe := f.createdSafe(t, 2)

	var sent []byte
	f.chain.On("Broadcast", testChainID, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]byte) }).
		Return("C0FFEE", nil).Once()

	// O1 proposes 100utaura and is counted as the first confirmation
	tx := f.propose(t, safe, 0, "100")
	assert.Equal(t, models.TxAwaitingConfirmations, tx.Status)
	assert.Equal(t, safe.Address(), tx.FromAddress)
	assert.EqualValues(t, 3, tx.Sequence)
	assert.EqualValues(t, 12, tx.AccountNumber)
	assert.Equal(t, testDenom, tx.Denom)

	tx, err := f.confirm(1, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxAwaitingExecution, tx.Status)

	tx, err = f.send(2, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, tx.Status)
	assert.Equal(t, "C0FFEE", tx.Hash())

	_, err = f.confirm(2, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrInvalidTransition)

	_, err = f.send(0, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrNotReadyForExecution)

	var raw txtypes.TxRaw
	require.NoError(t, raw.Unmarshal(sent))
	assert.Equal(t, testBody, raw.BodyBytes)
	var ms cryptotypes.MultiSignature
	require.NoError(t, ms.Unmarshal(raw.Signatures[0]))
	assert.Len(t, ms.Signatures, 2)

	sends, err := f.svc.ListConfirmations(ctx, tx.ID, models.ConfirmStatusSend)
	require.NoError(t, err)
	require.Len(t, sends, 1)
	assert.Equal(t, f.owners[2].Address, sends[0].OwnerAddress)
	f.chain.AssertExpectations(t)
}

func TestQuorumTransitionExactness(t *testing.T) {
	f := newFixture(t, 3)
	safe := f.createdSafe(t, 2)
	tx := f.propose(t, safe, 0, "100")
	require.Equal(t, models.TxAwaitingConfirmations, tx.Status)

	tx, err := f.confirm(1, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxAwaitingExecution, tx.Status)

	tx, err = f.confirm(2, tx.ID)
	require.NoError(t, err, "a confirmation past the threshold is still recorded")
	assert.Equal(t, models.TxAwaitingExecution, tx.Status)

	confirms, err := f.svc.ListConfirmations(context.Background(), tx.ID, models.ConfirmStatusConfirm)
	require.NoError(t, err)
	assert.Len(t, confirms, 3)
}

func TestConfirmOverDifferentBodyIsRefused(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	safe := f.createdSafe(t, 2)
	tx := f.propose(t, safe, 0, "100")

	_, err := f.svc.ConfirmTransaction(ctx, ConfirmTransactionRequest{
		TransactionID: tx.ID,
		OwnerAddress:  f.owners[1].Address,
		Signature:     []byte("sig-" + f.owners[1].Address),
		BodyBytes:     []byte("other-body"),
	})
	assert.ErrorIs(t, err, safeerr.ErrInvalidRequest)

	got, err := f.svc.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxAwaitingConfirmations, got.Transaction.Status)
	assert.Len(t, got.Confirmations, 1)

	// the owner can still sign the proposed body
	tx, err = f.confirm(1, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxAwaitingExecution, tx.Status)
}

func TestThresholdOneIsReadyOnCreate(t *testing.T) {
	f := newFixture(t, 2)
	safe := f.createdSafe(t, 1)
	tx := f.propose(t, safe, 1, "100")
	assert.Equal(t, models.TxAwaitingExecution, tx.Status)
}

func TestOneActionPerOwner(t *testing.T) {
	f := newFixture(t, 3)
	safe := f.createdSafe(t, 3)
	tx := f.propose(t, safe, 0, "100")

	_, err := f.confirm(0, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrAlreadyActed, "creator already confirmed")

	_, err = f.reject(0, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrAlreadyActed)

	_, err = f.reject(1, tx.ID)
	require.NoError(t, err)
	_, err = f.confirm(1, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrAlreadyActed)

	_, err = f.confirm(2, tx.ID)
	require.NoError(t, err)
	_, err = f.reject(2, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrAlreadyActed)

	// one rejection is advisory: two confirmations of three do not make quorum
	got, err := f.svc.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxAwaitingConfirmations, got.Transaction.Status)
	assert.Len(t, got.Confirmations, 2)
	assert.Len(t, got.Rejections, 1)
}

func TestRejectionsDoNotVeto(t *testing.T) {
	f := newFixture(t, 3)
	safe := f.createdSafe(t, 2)
	tx := f.propose(t, safe, 0, "100")

	_, err := f.reject(1, tx.ID)
	require.NoError(t, err)
	tx, err = f.confirm(2, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxAwaitingExecution, tx.Status)
}

func TestPermissionDenied(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	safe := f.createdSafe(t, 2)
	tx := f.propose(t, safe, 0, "100")
	stranger := newOwner(t, "stranger")

	_, err := f.svc.ConfirmTransaction(ctx, ConfirmTransactionRequest{
		TransactionID: tx.ID, OwnerAddress: stranger.Address, Signature: []byte("s"), BodyBytes: testBody,
	})
	assert.ErrorIs(t, err, safeerr.ErrPermissionDenied)

	_, err = f.svc.RejectTransaction(ctx, ActionRequest{TransactionID: tx.ID, OwnerAddress: stranger.Address})
	assert.ErrorIs(t, err, safeerr.ErrPermissionDenied)

	_, err = f.svc.CreateTransaction(ctx, CreateTransactionRequest{
		SafeID: safe.ID, CreatorAddress: stranger.Address, ToAddress: stranger.Address,
		Amount: "1", GasLimit: 90000, Signature: []byte("s"), BodyBytes: testBody,
	})
	assert.ErrorIs(t, err, safeerr.ErrPermissionDenied)

	_, err = f.svc.SendTransaction(ctx, ActionRequest{TransactionID: tx.ID, OwnerAddress: stranger.Address})
	assert.ErrorIs(t, err, safeerr.ErrPermissionDenied)

	_, err = f.confirm(1, 4242)
	assert.ErrorIs(t, err, safeerr.ErrTransactionNotFound)
}

func TestCreateTransactionChecks(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	safe := f.createdSafe(t, 2)
	base := CreateTransactionRequest{
		SafeID:         safe.ID,
		CreatorAddress: f.owners[0].Address,
		ToAddress:      f.owners[1].Address,
		Amount:         "5000000",
		GasLimit:       90000,
		Signature:      []byte("s"),
		BodyBytes:      testBody,
	}

	t.Run("insufficient balance", func(t *testing.T) {
		_, err := f.svc.CreateTransaction(ctx, base)
		assert.ErrorIs(t, err, safeerr.ErrInsufficientBalance)
	})

	t.Run("balance lookup fails", func(t *testing.T) {
		req := base
		req.Denom = "ibc/ATOM"
		f.chain.On("GetBalance", testChainID, safe.Address(), "ibc/ATOM").
			Return(sdkmath.Int{}, errorsmod.Wrap(safeerr.ErrChainUnavailable, "timeout")).Once()
		_, err := f.svc.CreateTransaction(ctx, req)
		assert.ErrorIs(t, err, safeerr.ErrChainUnavailable)
	})

	t.Run("bad recipient", func(t *testing.T) {
		req := base
		req.Amount = "1"
		req.ToAddress = "cosmos1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq"
		_, err := f.svc.CreateTransaction(ctx, req)
		assert.ErrorIs(t, err, safeerr.ErrInvalidRequest)
	})

	t.Run("pending safe", func(t *testing.T) {
		pending, err := f.svc.CreateWallet(ctx, CreateWalletRequest{
			ChainID:        testChainID,
			CreatorAddress: f.owners[1].Address,
			CreatorPubkey:  f.owners[1].Pubkey,
			OtherOwners:    f.addresses(0),
			Threshold:      1,
		})
		require.NoError(t, err)
		req := base
		req.SafeID = pending.ID
		_, err = f.svc.CreateTransaction(ctx, req)
		assert.ErrorIs(t, err, safeerr.ErrWalletNotReady)
	})

	t.Run("nothing is stored on failure", func(t *testing.T) {
		rows, total, err := f.svc.ListTransactions(ctx, ListTransactionsRequest{SafeID: safe.ID})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, rows)
	})
}

func TestBroadcastFailureIsRetryable(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	safe := f.createdSafe(t, 2)
	tx := f.propose(t, safe, 0, "100")
	tx, err := f.confirm(1, tx.ID)
	require.NoError(t, err)
	require.Equal(t, models.TxAwaitingExecution, tx.Status)

	f.chain.On("Broadcast", testChainID, mock.Anything).
		Return("", errorsmod.Wrap(safeerr.ErrChainUnavailable, "deadline exceeded")).Once()
	f.chain.On("Broadcast", testChainID, mock.Anything).
		Return("", errorsmod.Wrap(safeerr.ErrBroadcastRejected, "code 32: account sequence mismatch")).Once()
	f.chain.On("Broadcast", testChainID, mock.Anything).Return("BEEF", nil).Once()

	_, err = f.send(0, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrChainUnavailable)
	_, err = f.send(0, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrBroadcastRejected)

	got, err := f.svc.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxAwaitingExecution, got.Transaction.Status)
	assert.Nil(t, got.Transaction.TxHash)
	assert.Nil(t, got.Executor)

	tx, err = f.send(1, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, tx.Status)
	assert.Equal(t, "BEEF", tx.Hash())
	f.chain.AssertExpectations(t)
}

func TestSendBeforeQuorum(t *testing.T) {
	f := newFixture(t, 2)
	safe := f.createdSafe(t, 2)
	tx := f.propose(t, safe, 0, "100")

	_, err := f.send(0, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrNotReadyForExecution)
	f.chain.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestConcurrentConfirmations(t *testing.T) {
	f := newFixture(t, 6)
	safe := f.createdSafe(t, 3)
	tx := f.propose(t, safe, 0, "100")

	p := pool.New().WithErrors()
	for i := 1; i < len(f.owners); i++ {
		owner := i
		p.Go(func() error {
			_, err := f.confirm(owner, tx.ID)
			return err
		})
	}
	require.NoError(t, p.Wait())

	got, err := f.svc.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxAwaitingExecution, got.Transaction.Status)
	assert.Len(t, got.Confirmations, len(f.owners))
}

func TestCancelTransaction(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	safe := f.createdSafe(t, 2)
	tx := f.propose(t, safe, 0, "100")

	_, err := f.svc.CancelTransaction(ctx, ActionRequest{TransactionID: tx.ID, OwnerAddress: f.owners[1].Address})
	assert.ErrorIs(t, err, safeerr.ErrNotCreator)

	tx, err = f.svc.CancelTransaction(ctx, ActionRequest{TransactionID: tx.ID, OwnerAddress: f.owners[0].Address})
	require.NoError(t, err)
	assert.Equal(t, models.TxCancel, tx.Status)

	_, err = f.confirm(1, tx.ID)
	assert.ErrorIs(t, err, safeerr.ErrInvalidTransition)

	_, err = f.svc.CancelTransaction(ctx, ActionRequest{TransactionID: tx.ID, OwnerAddress: f.owners[0].Address})
	assert.ErrorIs(t, err, safeerr.ErrInvalidTransition)
}

func TestChainErrKeepsKinds(t *testing.T) {
	unfunded := errorsmod.Wrap(safeerr.ErrInsufficientBalance, "aura1new has no account")
	err := chainErr(unfunded)
	assert.ErrorIs(t, err, safeerr.ErrInsufficientBalance)
	assert.NotErrorIs(t, err, safeerr.ErrChainUnavailable)

	assert.ErrorIs(t, chainErr(context.DeadlineExceeded), safeerr.ErrChainUnavailable)
}
