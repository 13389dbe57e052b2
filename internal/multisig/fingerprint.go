package multisig

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"sort"
)

type walletDefinition struct {
	Addresses []string `json:"addresses"`
	Threshold int      `json:"threshold"`
	ChainID   string   `json:"chainId"`
}

// Fingerprint identifies a wallet definition independent of owner order:
// base64(sha256(json{addresses sorted, threshold, chainId})).
func Fingerprint(chainID string, owners []string, threshold int) string {
	sorted := append([]string(nil), owners...)
	sort.Strings(sorted)

	// Marshal of this struct cannot fail.
	bz, _ := json.Marshal(walletDefinition{
		Addresses: sorted,
		Threshold: threshold,
		ChainID:   chainID,
	})
	sum := sha256.Sum256(bz)
	return base64.StdEncoding.EncodeToString(sum[:])
}
