package multisig

import (
	"encoding/base64"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"
	dsecp "github.com/decred/dcrd/dcrec/secp256k1/v4"

	"pyxis-safe/internal/safeerr"
)

// ParsePubKey validates a compressed secp256k1 public key. The point must be
// on the curve, not merely 33 bytes long.
func ParsePubKey(raw []byte) (*secp256k1.PubKey, error) {
	if len(raw) != secp256k1.PubKeySize {
		return nil, errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "public key is %d bytes, want %d", len(raw), secp256k1.PubKeySize)
	}
	if _, err := dsecp.ParsePubKey(raw); err != nil {
		return nil, errorsmod.Wrap(safeerr.ErrInvalidKeyMaterial, err.Error())
	}
	key := make([]byte, len(raw))
	copy(key, raw)
	return &secp256k1.PubKey{Key: key}, nil
}

// DecodePubKey parses a base64 encoded compressed public key.
func DecodePubKey(encoded string) (*secp256k1.PubKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "public key is not base64: %v", err)
	}
	return ParsePubKey(raw)
}

// EncodePubKey is the inverse of DecodePubKey.
func EncodePubKey(pk cryptotypes.PubKey) string {
	return base64.StdEncoding.EncodeToString(pk.Bytes())
}

// AccountAddress renders the bech32 account address of pk.
func AccountAddress(pk cryptotypes.PubKey, prefix string) (string, error) {
	if prefix == "" {
		return "", errorsmod.Wrap(safeerr.ErrInvalidRequest, "empty address prefix")
	}
	addr, err := bech32.ConvertAndEncode(prefix, pk.Address())
	if err != nil {
		return "", errorsmod.Wrap(safeerr.ErrInvalidRequest, err.Error())
	}
	return addr, nil
}

// ValidateAddress checks that addr is bech32 with the given prefix.
func ValidateAddress(addr, prefix string) error {
	hrp, bz, err := bech32.DecodeAndConvert(addr)
	if err != nil {
		return errorsmod.Wrapf(safeerr.ErrInvalidRequest, "address %q: %v", addr, err)
	}
	if hrp != prefix {
		return errorsmod.Wrapf(safeerr.ErrInvalidRequest, "address %q has prefix %q, want %q", addr, hrp, prefix)
	}
	if len(bz) == 0 {
		return errorsmod.Wrapf(safeerr.ErrInvalidRequest, "address %q is empty", addr)
	}
	return nil
}
