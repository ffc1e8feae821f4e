// Package pin tracks the fix count of a single buffer pool frame.
//
// A frame starts unpinned (count 0). PinPage increments; UnpinPage
// decrements but, per the buffer pool contract, clamps at zero instead
// of going negative — an unpin on an already-unpinned frame is not an
// error at this layer.
package pin

import (
	"fmt"
	"sync/atomic"
)

type Count struct {
	count int32
}

func (c *Count) Inc() int32 {
	return atomic.AddInt32(&c.count, 1)
}

// Dec decrements the count, clamping at zero, and returns the new value.
func (c *Count) Dec() int32 {
	for {
		old := atomic.LoadInt32(&c.count)
		if old <= 0 {
			return 0
		}
		if atomic.CompareAndSwapInt32(&c.count, old, old-1) {
			return old - 1
		}
	}
}

func (c *Count) Get() int32 {
	return atomic.LoadInt32(&c.count)
}

func (c *Count) String() string {
	return fmt.Sprintf("pin.Count: %d", c.Get())
}
