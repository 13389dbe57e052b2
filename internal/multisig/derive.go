// Package multisig derives threshold multisig accounts, fingerprints wallet
// definitions and assembles multi-signed transactions.
package multisig

import (
	"encoding/json"
	"sort"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	kmultisig "github.com/cosmos/cosmos-sdk/crypto/keys/multisig"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	logging "github.com/ipfs/go-log/v2"

	"pyxis-safe/internal/safeerr"
)

var log = logging.Logger("multisig")

const (
	aminoMultisigType = "tendermint/PubKeyMultisigThreshold"
	aminoSecp256k1    = "tendermint/PubKeySecp256k1"
)

// Derived is the result of deriving a multisig account.
type Derived struct {
	Address string
	// PubKey is the amino JSON encoding of the threshold key.
	PubKey string
}

type aminoPubKey struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type aminoThresholdValue struct {
	Threshold string        `json:"threshold"`
	PubKeys   []aminoPubKey `json:"pubkeys"`
}

type aminoThresholdKey struct {
	Type  string              `json:"type"`
	Value aminoThresholdValue `json:"value"`
}

// Derive builds the threshold key over pubKeys and renders its address under
// prefix. Keys are ordered by their own account address first, so the result
// does not depend on the order they were supplied in.
func Derive(pubKeys [][]byte, threshold int, prefix string) (Derived, error) {
	if threshold < 1 || threshold > len(pubKeys) {
		return Derived{}, errorsmod.Wrapf(safeerr.ErrThresholdOutOfRange, "threshold %d with %d keys", threshold, len(pubKeys))
	}

	type keyed struct {
		addr string
		key  cryptotypes.PubKey
	}
	keys := make([]keyed, 0, len(pubKeys))
	for i, raw := range pubKeys {
		pk, err := ParsePubKey(raw)
		if err != nil {
			return Derived{}, errorsmod.Wrapf(err, "key %d", i)
		}
		addr, err := AccountAddress(pk, prefix)
		if err != nil {
			return Derived{}, err
		}
		keys = append(keys, keyed{addr: addr, key: pk})
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].addr < keys[j].addr })

	ordered := make([]cryptotypes.PubKey, len(keys))
	for i, k := range keys {
		ordered[i] = k.key
	}
	pk := kmultisig.NewLegacyAminoPubKey(threshold, ordered)
	addr, err := AccountAddress(pk, prefix)
	if err != nil {
		return Derived{}, err
	}
	encoded, err := encodeThresholdKey(threshold, ordered)
	if err != nil {
		return Derived{}, err
	}
	log.Debugf("Derive: %d-of-%d key derived as %s", threshold, len(ordered), addr)
	return Derived{Address: addr, PubKey: encoded}, nil
}

func encodeThresholdKey(threshold int, keys []cryptotypes.PubKey) (string, error) {
	v := aminoThresholdKey{
		Type: aminoMultisigType,
		Value: aminoThresholdValue{
			Threshold: strconv.Itoa(threshold),
			PubKeys:   make([]aminoPubKey, len(keys)),
		},
	}
	for i, k := range keys {
		v.Value.PubKeys[i] = aminoPubKey{Type: aminoSecp256k1, Value: EncodePubKey(k)}
	}
	bz, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(bz), nil
}

// ParseAggregate restores a threshold key produced by Derive. Key order is
// kept as stored.
func ParseAggregate(encoded string) (*kmultisig.LegacyAminoPubKey, error) {
	var v aminoThresholdKey
	if err := json.Unmarshal([]byte(encoded), &v); err != nil {
		return nil, errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "decode threshold key: %v", err)
	}
	if v.Type != aminoMultisigType {
		return nil, errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "unexpected key type %q", v.Type)
	}
	threshold, err := strconv.Atoi(v.Value.Threshold)
	if err != nil {
		return nil, errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "threshold %q", v.Value.Threshold)
	}
	if threshold < 1 || threshold > len(v.Value.PubKeys) {
		return nil, errorsmod.Wrapf(safeerr.ErrThresholdOutOfRange, "threshold %d with %d keys", threshold, len(v.Value.PubKeys))
	}
	keys := make([]cryptotypes.PubKey, len(v.Value.PubKeys))
	for i, k := range v.Value.PubKeys {
		if k.Type != aminoSecp256k1 {
			return nil, errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "key %d has type %q", i, k.Type)
		}
		pk, err := DecodePubKey(k.Value)
		if err != nil {
			return nil, errorsmod.Wrapf(err, "key %d", i)
		}
		keys[i] = pk
	}
	return kmultisig.NewLegacyAminoPubKey(threshold, keys), nil
}
