package multisig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	owners := []string{"aura1ccc", "aura1aaa", "aura1bbb"}
	base := Fingerprint("aura-testnet-2", owners, 2)

	assert.Equal(t, base, Fingerprint("aura-testnet-2", []string{"aura1aaa", "aura1bbb", "aura1ccc"}, 2))
	assert.Equal(t, base, Fingerprint("aura-testnet-2", []string{"aura1bbb", "aura1ccc", "aura1aaa"}, 2))

	assert.NotEqual(t, base, Fingerprint("aura-testnet-2", owners, 3))
	assert.NotEqual(t, base, Fingerprint("aura-mainnet", owners, 2))
	assert.NotEqual(t, base, Fingerprint("aura-testnet-2", owners[:2], 2))

	// caller slice is left alone
	assert.Equal(t, []string{"aura1ccc", "aura1aaa", "aura1bbb"}, owners)
}

func TestFingerprintEncoding(t *testing.T) {
	// sha256 digests are 32 bytes, 44 base64 characters with padding
	assert.Len(t, Fingerprint("c", []string{"a"}, 1), 44)
}
