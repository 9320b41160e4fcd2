package session

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedLock serializes read-modify-write cycles per session id within one
// process. Distinct ids may share a stripe.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (l *stripedLock) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &l.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
