package storage

import (
	"sync/atomic"
	"time"
)

var lastStamp int64

// nowMillis returns the current epoch milliseconds, strictly increasing
// across calls so creation order survives timestamp collisions.
func nowMillis() int64 {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastStamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastStamp, last, now) {
			return now
		}
	}
}
