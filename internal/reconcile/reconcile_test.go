package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pyxis-safe/internal/chain"
	appcfg "pyxis-safe/internal/config"
	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindByStatus(ctx context.Context, status models.TxStatus, afterID uint, limit int) ([]models.MultisigTransaction, error) {
	args := m.Called(status, afterID, limit)
	return args.Get(0).([]models.MultisigTransaction), args.Error(1)
}

func (m *mockStore) UpdateStatus(ctx context.Context, id uint, next models.TxStatus) error {
	return m.Called(id, next).Error(0)
}

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) GetTx(ctx context.Context, chainID, hash string) (chain.TxResult, error) {
	args := m.Called(chainID, hash)
	return args.Get(0).(chain.TxResult), args.Error(1)
}

func pendingTx(id uint, hash string) models.MultisigTransaction {
	t := models.MultisigTransaction{ChainID: "c", Status: models.TxPending, TxHash: &hash}
	t.ID = id
	return t
}

var testCfg = appcfg.Reconcile{Attempts: 2, Delay: time.Millisecond, BatchSize: 10}

func TestRunOnce(t *testing.T) {
	store := &mockStore{}
	lookup := &mockLookup{}
	store.On("FindByStatus", models.TxPending, uint(0), 10).Return([]models.MultisigTransaction{
		pendingTx(1, "AA"), pendingTx(2, "BB"), pendingTx(3, "CC"), pendingTx(4, "DD"),
	}, nil)

	lookup.On("GetTx", "c", "AA").Return(chain.TxResult{TxHash: "AA", Height: 10}, nil)
	lookup.On("GetTx", "c", "BB").Return(chain.TxResult{TxHash: "BB", Height: 11, Code: 5, RawLog: "out of gas"}, nil)
	lookup.On("GetTx", "c", "CC").Return(chain.TxResult{}, chain.ErrTxNotFound)
	lookup.On("GetTx", "c", "DD").Return(chain.TxResult{}, safeerr.ErrChainUnavailable)
	store.On("UpdateStatus", uint(1), models.TxSuccess).Return(nil).Once()
	store.On("UpdateStatus", uint(2), models.TxFailed).Return(nil).Once()

	res, err := New(store, lookup, testCfg).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Checked: 4, Succeeded: 1, Failed: 1, Unresolved: 2}, res)

	// not found is retried, other failures are not
	lookup.AssertNumberOfCalls(t, "GetTx", 1+1+2+1)
	store.AssertExpectations(t)
}

func TestRunOnceLateInclusion(t *testing.T) {
	store := &mockStore{}
	lookup := &mockLookup{}
	store.On("FindByStatus", models.TxPending, uint(0), 10).Return([]models.MultisigTransaction{pendingTx(1, "AA")}, nil)
	lookup.On("GetTx", "c", "AA").Return(chain.TxResult{}, chain.ErrTxNotFound).Once()
	lookup.On("GetTx", "c", "AA").Return(chain.TxResult{TxHash: "AA", Height: 12}, nil).Once()
	store.On("UpdateStatus", uint(1), models.TxSuccess).Return(nil).Once()

	res, err := New(store, lookup, testCfg).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	store.AssertExpectations(t)
	lookup.AssertExpectations(t)
}

func TestRunOnceSkipsConcurrentUpdates(t *testing.T) {
	store := &mockStore{}
	lookup := &mockLookup{}
	store.On("FindByStatus", models.TxPending, uint(0), 10).Return([]models.MultisigTransaction{pendingTx(1, "AA")}, nil)
	lookup.On("GetTx", "c", "AA").Return(chain.TxResult{TxHash: "AA"}, nil)
	store.On("UpdateStatus", uint(1), models.TxSuccess).Return(safeerr.ErrInvalidTransition)

	res, err := New(store, lookup, testCfg).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unresolved)
}

func TestRunOnceStoreFailure(t *testing.T) {
	store := &mockStore{}
	boom := errors.New("disk full")
	store.On("FindByStatus", models.TxPending, uint(0), 10).Return([]models.MultisigTransaction(nil), boom)

	_, err := New(store, &mockLookup{}, testCfg).RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestWatchStopsOnCancel(t *testing.T) {
	store := &mockStore{}
	store.On("FindByStatus", models.TxPending, uint(0), 10).Return([]models.MultisigTransaction{}, nil)

	cfg := testCfg
	cfg.Interval = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, New(store, &mockLookup{}, cfg).Watch(ctx))
	store.AssertCalled(t, "FindByStatus", models.TxPending, uint(0), 10)
}

func TestRunOnceRotatesThroughBacklog(t *testing.T) {
	store := &mockStore{}
	lookup := &mockLookup{}
	cfg := testCfg
	cfg.Attempts = 1
	cfg.BatchSize = 2

	// 1 and 2 were dropped by the chain and stay pending
	store.On("FindByStatus", models.TxPending, uint(0), 2).
		Return([]models.MultisigTransaction{pendingTx(1, "AA"), pendingTx(2, "BB")}, nil)
	store.On("FindByStatus", models.TxPending, uint(2), 2).
		Return([]models.MultisigTransaction{pendingTx(3, "CC")}, nil).Once()
	lookup.On("GetTx", "c", "AA").Return(chain.TxResult{}, chain.ErrTxNotFound)
	lookup.On("GetTx", "c", "BB").Return(chain.TxResult{}, chain.ErrTxNotFound)
	lookup.On("GetTx", "c", "CC").Return(chain.TxResult{TxHash: "CC", Height: 20}, nil)
	store.On("UpdateStatus", uint(3), models.TxSuccess).Return(nil).Once()

	r := New(store, lookup, cfg)
	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Checked: 2, Unresolved: 2}, res)

	res, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Checked: 1, Succeeded: 1}, res)

	// a short batch wraps back to the start
	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "FindByStatus", 3)
	store.AssertExpectations(t)
}
