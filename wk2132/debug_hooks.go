//go:build wk2132debug

package wk2132

import "sync/atomic"

// Called after every bus transaction with its payload size and outcome.
func (c *Channel) dbgTx(write bool, n int, err error) {
	if err != nil {
		atomic.AddUint32(&c.stats.BusErrors, 1)
		return
	}
	if write {
		atomic.AddUint32(&c.stats.Writes, 1)
		atomic.AddUint32(&c.stats.BytesOut, uint32(n))
	} else {
		atomic.AddUint32(&c.stats.Reads, 1)
		atomic.AddUint32(&c.stats.BytesIn, uint32(n))
	}
	for {
		max := atomic.LoadUint32(&c.stats.MaxTransfer)
		if uint32(n) <= max {
			break
		}
		if atomic.CompareAndSwapUint32(&c.stats.MaxTransfer, max, uint32(n)) {
			break
		}
	}
}

func (c *Channel) dbgCacheFull() {
	atomic.AddUint32(&c.stats.CacheFull, 1)
}

func (c *Channel) dbgFlushPoll() {
	atomic.AddUint32(&c.stats.FlushPolls, 1)
}

func (c *Channel) dbgReadWait() {
	atomic.AddUint32(&c.stats.ReadWaits, 1)
}

func (c *Channel) dbgTimeout() {
	atomic.AddUint32(&c.stats.Timeouts, 1)
}
