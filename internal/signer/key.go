// Package signer produces owner-side signatures for safe transactions. Keys
// live locally, sealed in the key store; documents are signed in legacy amino
// JSON mode so the signatures can be packed into a threshold signature.
package signer

import (
	"crypto/rand"
	"io"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"pyxis-safe/internal/multisig"
	"pyxis-safe/internal/safeerr"
)

var log = logging.Logger("signer")

// CoinType is the BIP-44 coin type used for mnemonic derivation.
const CoinType = 118

// Key is an owner's secp256k1 signing key.
type Key struct {
	priv *secp256k1.PrivKey
}

// NewKey generates a fresh random key.
func NewKey() (*Key, error) {
	log.Info("NewKey: generating secp256k1 key")

	raw := make([]byte, secp256k1.PrivKeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		log.Errorf("NewKey: failed to read random bytes: %v", err)
		return nil, xerrors.Errorf("reading random bytes: %w", err)
	}
	return FromBytes(raw)
}

// FromMnemonic derives the key at m/44'/118'/account'/0/index.
func FromMnemonic(mnemonic string, account, index uint32) (*Key, error) {
	path := hd.CreateHDPath(CoinType, account, index).String()
	log.Infof("FromMnemonic: deriving key at %s", path)

	raw, err := hd.Secp256k1.Derive()(mnemonic, "", path)
	if err != nil {
		log.Errorf("FromMnemonic: derivation failed: %v", err)
		return nil, errorsmod.Wrap(safeerr.ErrInvalidKeyMaterial, err.Error())
	}
	return FromBytes(raw)
}

// FromBytes wraps a raw 32-byte private key.
func FromBytes(raw []byte) (*Key, error) {
	if len(raw) != secp256k1.PrivKeySize {
		return nil, errorsmod.Wrapf(safeerr.ErrInvalidKeyMaterial, "private key is %d bytes, want %d", len(raw), secp256k1.PrivKeySize)
	}
	key := make([]byte, len(raw))
	copy(key, raw)
	return &Key{priv: &secp256k1.PrivKey{Key: key}}, nil
}

// Bytes returns the raw private key for sealing.
func (k *Key) Bytes() []byte { return k.priv.Bytes() }

// PubKey returns the compressed public key.
func (k *Key) PubKey() *secp256k1.PubKey {
	return k.priv.PubKey().(*secp256k1.PubKey)
}

// PubKeyBase64 is the form owners submit when creating or joining a safe.
func (k *Key) PubKeyBase64() string { return multisig.EncodePubKey(k.PubKey()) }

// Address renders the owner address under prefix.
func (k *Key) Address(prefix string) (string, error) {
	return multisig.AccountAddress(k.PubKey(), prefix)
}

// Sign signs the amino JSON sign bytes of doc.
func (k *Key) Sign(doc SendDoc) ([]byte, error) {
	bz, err := doc.SignBytes()
	if err != nil {
		return nil, err
	}
	sig, err := k.priv.Sign(bz)
	if err != nil {
		log.Errorf("Sign: signing failed: %v", err)
		return nil, xerrors.Errorf("signing: %w", err)
	}
	log.Debugf("Sign: signed doc for %s sequence %d", doc.From, doc.Sequence)
	return sig, nil
}
