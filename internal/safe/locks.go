package safe

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// lockStripes serializes work per key inside one process. Distinct keys may
// share a stripe; that only costs parallelism.
type lockStripes struct {
	mus []sync.Mutex
}

func newLockStripes(n int) *lockStripes {
	if n < 1 {
		n = 1
	}
	return &lockStripes{mus: make([]sync.Mutex, n)}
}

func (l *lockStripes) lock(key string) (unlock func()) {
	m := &l.mus[xxhash.Sum64String(key)%uint64(len(l.mus))]
	m.Lock()
	return m.Unlock
}

func txLockKey(id uint) string   { return "tx/" + strconv.FormatUint(uint64(id), 10) }
func safeLockKey(id uint) string { return "safe/" + strconv.FormatUint(uint64(id), 10) }
