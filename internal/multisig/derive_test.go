package multisig

import (
	"errors"
	"testing"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyxis-safe/internal/safeerr"
)

const testPrefix = "aura"

func testKeys(secrets ...string) [][]byte {
	out := make([][]byte, len(secrets))
	for i, s := range secrets {
		out[i] = secp256k1.GenPrivKeyFromSecret([]byte(s)).PubKey().Bytes()
	}
	return out
}

func TestDerive(t *testing.T) {
	keys := testKeys("owner-1", "owner-2", "owner-3")

	t.Run("deterministic", func(t *testing.T) {
		a, err := Derive(keys, 2, testPrefix)
		require.NoError(t, err)
		b, err := Derive(keys, 2, testPrefix)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.NoError(t, ValidateAddress(a.Address, testPrefix))
	})

	t.Run("input order does not matter", func(t *testing.T) {
		a, err := Derive(keys, 2, testPrefix)
		require.NoError(t, err)
		b, err := Derive([][]byte{keys[2], keys[0], keys[1]}, 2, testPrefix)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("threshold changes the address", func(t *testing.T) {
		a, err := Derive(keys, 2, testPrefix)
		require.NoError(t, err)
		b, err := Derive(keys, 3, testPrefix)
		require.NoError(t, err)
		assert.NotEqual(t, a.Address, b.Address)
	})

	t.Run("threshold out of range", func(t *testing.T) {
		for _, th := range []int{0, -1, 4} {
			_, err := Derive(keys, th, testPrefix)
			assert.True(t, errors.Is(err, safeerr.ErrThresholdOutOfRange), "threshold %d", th)
		}
	})

	t.Run("key off the curve", func(t *testing.T) {
		bad := make([]byte, 33)
		bad[0] = 0x02
		for i := 1; i < len(bad); i++ {
			bad[i] = 0xff
		}
		_, err := Derive([][]byte{keys[0], bad}, 1, testPrefix)
		assert.True(t, errors.Is(err, safeerr.ErrInvalidKeyMaterial))
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := Derive([][]byte{keys[0][:20]}, 1, testPrefix)
		assert.True(t, errors.Is(err, safeerr.ErrInvalidKeyMaterial))
	})
}

func TestParseAggregateRestoresAddress(t *testing.T) {
	keys := testKeys("owner-1", "owner-2", "owner-3")
	d, err := Derive(keys, 2, testPrefix)
	require.NoError(t, err)

	pk, err := ParseAggregate(d.PubKey)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pk.Threshold)
	assert.Len(t, pk.GetPubKeys(), 3)

	addr, err := AccountAddress(pk, testPrefix)
	require.NoError(t, err)
	assert.Equal(t, d.Address, addr)

	_, err = ParseAggregate(`{"type":"tendermint/PubKeySecp256k1","value":"AA=="}`)
	assert.True(t, errors.Is(err, safeerr.ErrInvalidKeyMaterial))
}

func TestValidateAddress(t *testing.T) {
	pk := secp256k1.GenPrivKeyFromSecret([]byte("owner-1")).PubKey()
	addr, err := AccountAddress(pk, testPrefix)
	require.NoError(t, err)

	assert.NoError(t, ValidateAddress(addr, testPrefix))
	assert.True(t, errors.Is(ValidateAddress(addr, "cosmos"), safeerr.ErrInvalidRequest))
	assert.True(t, errors.Is(ValidateAddress("not-an-address", testPrefix), safeerr.ErrInvalidRequest))
}
