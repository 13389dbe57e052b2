package signer

import (
	"encoding/json"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/shopspring/decimal"

	"pyxis-safe/internal/models"
	"pyxis-safe/internal/safeerr"
)

// SendDoc describes a bank send out of a safe, everything an owner signs.
type SendDoc struct {
	ChainID       string
	AccountNumber uint64
	Sequence      uint64
	From          string
	To            string
	Amount        string
	Denom         string
	Fee           string
	FeeDenom      string
	GasLimit      uint64
	Memo          string
}

// DocFromTransaction rebuilds the document of a stored transaction so that
// later owners sign exactly what the proposer signed.
func DocFromTransaction(t *models.MultisigTransaction, feeDenom string) SendDoc {
	return SendDoc{
		ChainID:       t.ChainID,
		AccountNumber: t.AccountNumber,
		Sequence:      t.Sequence,
		From:          t.FromAddress,
		To:            t.ToAddress,
		Amount:        t.Amount,
		Denom:         t.Denom,
		Fee:           t.Fee,
		FeeDenom:      feeDenom,
		GasLimit:      t.GasLimit,
		Memo:          t.Memo,
	}
}

func (d SendDoc) coins() (amount, fee sdk.Coins, err error) {
	if err := sdk.ValidateDenom(d.Denom); err != nil {
		return nil, nil, errorsmod.Wrapf(safeerr.ErrInvalidRequest, "denom %q: %v", d.Denom, err)
	}
	amt, ok := sdkmath.NewIntFromString(d.Amount)
	if !ok || !amt.IsPositive() {
		return nil, nil, errorsmod.Wrapf(safeerr.ErrInvalidRequest, "amount %q", d.Amount)
	}
	amount = sdk.NewCoins(sdk.NewCoin(d.Denom, amt))

	fee = sdk.NewCoins()
	if d.Fee != "" {
		f, ok := sdkmath.NewIntFromString(d.Fee)
		if !ok || f.IsNegative() {
			return nil, nil, errorsmod.Wrapf(safeerr.ErrInvalidRequest, "fee %q", d.Fee)
		}
		if err := sdk.ValidateDenom(d.FeeDenom); err != nil {
			return nil, nil, errorsmod.Wrapf(safeerr.ErrInvalidRequest, "fee denom %q: %v", d.FeeDenom, err)
		}
		fee = sdk.NewCoins(sdk.NewCoin(d.FeeDenom, f))
	}
	return amount, fee, nil
}

// BodyBytes is the protobuf TxBody carrying a single MsgSend.
func (d SendDoc) BodyBytes() ([]byte, error) {
	amount, _, err := d.coins()
	if err != nil {
		return nil, err
	}
	msg := &banktypes.MsgSend{FromAddress: d.From, ToAddress: d.To, Amount: amount}
	anyMsg, err := codectypes.NewAnyWithValue(msg)
	if err != nil {
		return nil, err
	}
	body := txtypes.TxBody{Messages: []*codectypes.Any{anyMsg}, Memo: d.Memo}
	return body.Marshal()
}

// amino JSON shapes; fields are declared in sorted order.
type aminoCoin struct {
	Amount string `json:"amount"`
	Denom  string `json:"denom"`
}

type aminoFee struct {
	Amount []aminoCoin `json:"amount"`
	Gas    string      `json:"gas"`
}

type aminoSend struct {
	Amount      []aminoCoin `json:"amount"`
	FromAddress string      `json:"from_address"`
	ToAddress   string      `json:"to_address"`
}

type aminoMsg struct {
	Type  string    `json:"type"`
	Value aminoSend `json:"value"`
}

type stdSignDoc struct {
	AccountNumber string     `json:"account_number"`
	ChainID       string     `json:"chain_id"`
	Fee           aminoFee   `json:"fee"`
	Memo          string     `json:"memo"`
	Msgs          []aminoMsg `json:"msgs"`
	Sequence      string     `json:"sequence"`
}

func aminoCoins(coins sdk.Coins) []aminoCoin {
	out := make([]aminoCoin, 0, len(coins))
	for _, c := range coins {
		out = append(out, aminoCoin{Amount: c.Amount.String(), Denom: c.Denom})
	}
	return out
}

// SignBytes returns the canonical legacy amino JSON sign document.
func (d SendDoc) SignBytes() ([]byte, error) {
	amount, fee, err := d.coins()
	if err != nil {
		return nil, err
	}
	doc := stdSignDoc{
		AccountNumber: strconv.FormatUint(d.AccountNumber, 10),
		ChainID:       d.ChainID,
		Fee:           aminoFee{Amount: aminoCoins(fee), Gas: strconv.FormatUint(d.GasLimit, 10)},
		Memo:          d.Memo,
		Msgs: []aminoMsg{{
			Type:  "cosmos-sdk/MsgSend",
			Value: aminoSend{Amount: aminoCoins(amount), FromAddress: d.From, ToAddress: d.To},
		}},
		Sequence: strconv.FormatUint(d.Sequence, 10),
	}
	return json.Marshal(doc)
}

// SuggestFee prices gasLimit at gasPrice, rounded up to a whole base unit.
func SuggestFee(gasPrice string, gasLimit uint64) (string, error) {
	if gasPrice == "" {
		return "0", nil
	}
	price, err := decimal.NewFromString(gasPrice)
	if err != nil || price.IsNegative() {
		return "", errorsmod.Wrapf(safeerr.ErrInvalidRequest, "gas price %q", gasPrice)
	}
	fee := price.Mul(decimal.NewFromInt(int64(gasLimit))).Ceil()
	return fee.String(), nil
}
