package multisig

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	errorsmod "cosmossdk.io/errors"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	kmultisig "github.com/cosmos/cosmos-sdk/crypto/keys/multisig"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"

	"pyxis-safe/internal/safeerr"
)

// Envelope carries everything needed to assemble a multi-signed transaction.
// Signatures are keyed by owner account address.
type Envelope struct {
	PubKey     *kmultisig.LegacyAminoPubKey
	Prefix     string
	Sequence   uint64
	Fee        sdk.Coins
	GasLimit   uint64
	BodyBytes  []byte
	Signatures map[string][]byte
}

// Assemble returns the protobuf TxRaw bytes. Signatures are placed in the
// order of the keys inside the threshold key and flagged in the bitarray;
// signatures from addresses outside the key are ignored.
func (e Envelope) Assemble() ([]byte, error) {
	if e.PubKey == nil {
		return nil, errorsmod.Wrap(safeerr.ErrInvalidKeyMaterial, "missing threshold key")
	}
	keys := e.PubKey.GetPubKeys()
	bits := cryptotypes.NewCompactBitArray(len(keys))
	sigs := make([][]byte, 0, len(keys))
	modes := make([]*txtypes.ModeInfo, 0, len(keys))
	for i, k := range keys {
		addr, err := AccountAddress(k, e.Prefix)
		if err != nil {
			return nil, err
		}
		sig, ok := e.Signatures[addr]
		if !ok {
			continue
		}
		bits.SetIndex(i, true)
		sigs = append(sigs, sig)
		modes = append(modes, &txtypes.ModeInfo{
			Sum: &txtypes.ModeInfo_Single_{
				Single: &txtypes.ModeInfo_Single{Mode: signing.SignMode_SIGN_MODE_LEGACY_AMINO_JSON},
			},
		})
	}
	if len(sigs) < int(e.PubKey.Threshold) {
		return nil, errorsmod.Wrapf(safeerr.ErrNotReadyForExecution, "have %d signatures, need %d", len(sigs), e.PubKey.Threshold)
	}

	anyKey, err := codectypes.NewAnyWithValue(e.PubKey)
	if err != nil {
		return nil, err
	}
	authInfo := txtypes.AuthInfo{
		SignerInfos: []*txtypes.SignerInfo{{
			PublicKey: anyKey,
			ModeInfo: &txtypes.ModeInfo{
				Sum: &txtypes.ModeInfo_Multi_{
					Multi: &txtypes.ModeInfo_Multi{Bitarray: bits, ModeInfos: modes},
				},
			},
			Sequence: e.Sequence,
		}},
		Fee: &txtypes.Fee{Amount: e.Fee, GasLimit: e.GasLimit},
	}
	authBytes, err := authInfo.Marshal()
	if err != nil {
		return nil, err
	}
	multiSig := cryptotypes.MultiSignature{Signatures: sigs}
	sigBytes, err := multiSig.Marshal()
	if err != nil {
		return nil, err
	}
	raw := txtypes.TxRaw{
		BodyBytes:     e.BodyBytes,
		AuthInfoBytes: authBytes,
		Signatures:    [][]byte{sigBytes},
	}
	return raw.Marshal()
}

// TxHash is the hash a node reports for txBytes.
func TxHash(txBytes []byte) string {
	sum := sha256.Sum256(txBytes)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
