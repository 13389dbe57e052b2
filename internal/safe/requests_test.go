package safe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

func TestCreateWalletRequestValidate(t *testing.T) {
	ok := CreateWalletRequest{ChainID: "c", CreatorAddress: "a", CreatorPubkey: "pk", OtherOwners: []string{"b", "c"}, Threshold: 2}
	assert.NoError(t, ok.Validate())
	assert.Equal(t, []string{"a", "b", "c"}, ok.Owners())

	tests := []struct {
		name string
		edit func(*CreateWalletRequest)
		want error
	}{
		{"missing chain", func(r *CreateWalletRequest) { r.ChainID = "" }, safeerr.ErrInvalidRequest},
		{"missing pubkey", func(r *CreateWalletRequest) { r.CreatorPubkey = "" }, safeerr.ErrInvalidRequest},
		{"creator listed again", func(r *CreateWalletRequest) { r.OtherOwners = []string{"a"} }, safeerr.ErrInvalidRequest},
		{"duplicate owner", func(r *CreateWalletRequest) { r.OtherOwners = []string{"b", "b"} }, safeerr.ErrInvalidRequest},
		{"zero threshold", func(r *CreateWalletRequest) { r.Threshold = 0 }, safeerr.ErrThresholdOutOfRange},
		{"threshold above owners", func(r *CreateWalletRequest) { r.Threshold = 4 }, safeerr.ErrThresholdOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ok
			r.OtherOwners = append([]string(nil), ok.OtherOwners...)
			tt.edit(&r)
			assert.ErrorIs(t, r.Validate(), tt.want)
		})
	}
}

func TestCreateTransactionRequestValidate(t *testing.T) {
	ok := CreateTransactionRequest{
		SafeID: 1, CreatorAddress: "a", ToAddress: "b", Amount: "10", Fee: "1",
		GasLimit: 90000, Signature: []byte("s"), BodyBytes: []byte("b"),
	}
	assert.NoError(t, ok.Validate())

	for name, edit := range map[string]func(*CreateTransactionRequest){
		"negative amount": func(r *CreateTransactionRequest) { r.Amount = "-1" },
		"zero send":       func(r *CreateTransactionRequest) { r.Amount = "0" },
		"decimal amount":  func(r *CreateTransactionRequest) { r.Amount = "1.5" },
		"bad fee":         func(r *CreateTransactionRequest) { r.Fee = "lots" },
		"no gas":          func(r *CreateTransactionRequest) { r.GasLimit = 0 },
		"no signature":    func(r *CreateTransactionRequest) { r.Signature = nil },
		"no recipient":    func(r *CreateTransactionRequest) { r.ToAddress = "" },
	} {
		r := ok
		edit(&r)
		assert.ErrorIs(t, r.Validate(), safeerr.ErrInvalidRequest, name)
	}

	delegate := ok
	delegate.TypeURL = "/cosmos.staking.v1beta1.MsgDelegate"
	delegate.ToAddress = ""
	delegate.Amount = ""
	assert.NoError(t, delegate.Validate())
}

func TestListTransactionsRequestValidate(t *testing.T) {
	assert.NoError(t, ListTransactionsRequest{SafeID: 1, Filter: ListQueue, PageIndex: 1, PageSize: 20}.Validate())
	assert.ErrorIs(t, ListTransactionsRequest{}.Validate(), safeerr.ErrInvalidRequest)
	assert.ErrorIs(t, ListTransactionsRequest{SafeID: 1, PageSize: 1000}.Validate(), safeerr.ErrInvalidRequest)
	assert.ErrorIs(t, ListTransactionsRequest{SafeID: 1, Statuses: []models.TxStatus{"LIMBO"}}.Validate(), safeerr.ErrInvalidRequest)
}
