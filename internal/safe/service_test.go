package safe

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pyxis-safe/internal/chain"
	appcfg "pyxis-safe/internal/config"
	"pyxis-safe/internal/models"
	"pyxis-safe/internal/multisig"
	"pyxis-safe/internal/repository"
)

const (
	testChainID = "aura-testnet-2"
	testPrefix  = "aura"
	testDenom   = "utaura"
)

var testBody = []byte("tx-body")

// mockChain stands in for the LCD registry.
type mockChain struct {
	mock.Mock
}

func (m *mockChain) GetBalance(ctx context.Context, chainID, address, denom string) (sdkmath.Int, error) {
	args := m.Called(chainID, address, denom)
	return args.Get(0).(sdkmath.Int), args.Error(1)
}

func (m *mockChain) GetAccount(ctx context.Context, chainID, address string) (chain.Account, error) {
	args := m.Called(chainID, address)
	return args.Get(0).(chain.Account), args.Error(1)
}

func (m *mockChain) Broadcast(ctx context.Context, chainID string, txBytes []byte) (string, error) {
	args := m.Called(chainID, txBytes)
	return args.String(0), args.Error(1)
}

type testOwner struct {
	Address string
	Pubkey  string
}

type fixture struct {
	svc    *Service
	store  *repository.Store
	chain  *mockChain
	owners []testOwner
}

func newOwner(t *testing.T, secret string) testOwner {
	t.Helper()
	pk := secp256k1.GenPrivKeyFromSecret([]byte(secret)).PubKey()
	addr, err := multisig.AccountAddress(pk, testPrefix)
	require.NoError(t, err)
	return testOwner{Address: addr, Pubkey: base64.StdEncoding.EncodeToString(pk.Bytes())}
}

func newFixture(t *testing.T, owners int) *fixture {
	t.Helper()
	store, err := repository.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	registry := chain.NewRegistry([]appcfg.Chain{{
		ChainID: testChainID,
		Prefix:  testPrefix,
		Denom:   testDenom,
		LCD:     "http://127.0.0.1:1",
	}}, nil)

	mc := &mockChain{}
	mc.On("GetBalance", testChainID, mock.Anything, testDenom).Return(sdkmath.NewInt(1_000_000), nil).Maybe()
	mc.On("GetAccount", testChainID, mock.Anything).Return(chain.Account{AccountNumber: 12, Sequence: 3}, nil).Maybe()

	f := &fixture{
		svc: NewService(NewGormBackend(store), registry, mc, mc, Options{
			ChainTimeout:   time.Second,
			RosterCacheTTL: time.Minute,
		}),
		store: store,
		chain: mc,
	}
	for i := 0; i < owners; i++ {
		f.owners = append(f.owners, newOwner(t, "owner-"+string(rune('a'+i))))
	}
	return f
}

func (f *fixture) addresses(idx ...int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = f.owners[j].Address
	}
	return out
}

// createdSafe creates a safe over all fixture owners with owner 0 as creator
// and has every other owner join.
func (f *fixture) createdSafe(t *testing.T, threshold int) *models.Safe {
	t.Helper()
	ctx := context.Background()
	others := make([]string, 0, len(f.owners)-1)
	for _, o := range f.owners[1:] {
		others = append(others, o.Address)
	}
	safe, err := f.svc.CreateWallet(ctx, CreateWalletRequest{
		ChainID:        testChainID,
		CreatorAddress: f.owners[0].Address,
		CreatorPubkey:  f.owners[0].Pubkey,
		OtherOwners:    others,
		Threshold:      threshold,
	})
	require.NoError(t, err)
	for _, o := range f.owners[1:] {
		safe, err = f.svc.ConfirmWallet(ctx, ConfirmWalletRequest{SafeID: safe.ID, OwnerAddress: o.Address, OwnerPubkey: o.Pubkey})
		require.NoError(t, err)
	}
	require.Equal(t, models.SafeStatusCreated, safe.Status)
	return safe
}

func (f *fixture) propose(t *testing.T, safe *models.Safe, creator int, amount string) *models.MultisigTransaction {
	t.Helper()
	tx, err := f.svc.CreateTransaction(context.Background(), CreateTransactionRequest{
		SafeID:         safe.ID,
		CreatorAddress: f.owners[creator].Address,
		ToAddress:      f.owners[creator].Address,
		Amount:         amount,
		Fee:            "200",
		GasLimit:       90000,
		Signature:      []byte("sig-" + f.owners[creator].Address),
		BodyBytes:      testBody,
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) confirm(owner int, txID uint) (*models.MultisigTransaction, error) {
	return f.svc.ConfirmTransaction(context.Background(), ConfirmTransactionRequest{
		TransactionID: txID,
		OwnerAddress:  f.owners[owner].Address,
		Signature:     []byte("sig-" + f.owners[owner].Address),
		BodyBytes:     testBody,
	})
}

func (f *fixture) reject(owner int, txID uint) (*models.MultisigTransaction, error) {
	return f.svc.RejectTransaction(context.Background(), ActionRequest{TransactionID: txID, OwnerAddress: f.owners[owner].Address})
}

func (f *fixture) send(owner int, txID uint) (*models.MultisigTransaction, error) {
	return f.svc.SendTransaction(context.Background(), ActionRequest{TransactionID: txID, OwnerAddress: f.owners[owner].Address})
}
