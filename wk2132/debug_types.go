//go:build wk2132debug

package wk2132

import "sync/atomic"

// Stats holds counters since the last reset.
type Stats struct {
	// Bus level
	Reads       uint32 // successful read transactions
	Writes      uint32 // successful write transactions
	BytesIn     uint32 // payload bytes read (registers and FIFO)
	BytesOut    uint32 // payload bytes written (registers and FIFO)
	BusErrors   uint32 // failed transactions
	MaxTransfer uint32 // largest payload in a single transaction

	// Local receive cache
	CacheFull uint32 // single byte reads declined because the cache was full

	// Polling
	FlushPolls uint32 // FSR polls that found the transmitter still busy
	ReadWaits  uint32 // times a blocking read had to wait
	Timeouts   uint32 // context expiries in blocking calls
}

func (c *Channel) DebugReset() {
	c.stats = Stats{}
}

func (c *Channel) DebugStats() Stats {
	return Stats{
		Reads:       atomic.LoadUint32(&c.stats.Reads),
		Writes:      atomic.LoadUint32(&c.stats.Writes),
		BytesIn:     atomic.LoadUint32(&c.stats.BytesIn),
		BytesOut:    atomic.LoadUint32(&c.stats.BytesOut),
		BusErrors:   atomic.LoadUint32(&c.stats.BusErrors),
		MaxTransfer: atomic.LoadUint32(&c.stats.MaxTransfer),

		CacheFull: atomic.LoadUint32(&c.stats.CacheFull),

		FlushPolls: atomic.LoadUint32(&c.stats.FlushPolls),
		ReadWaits:  atomic.LoadUint32(&c.stats.ReadWaits),
		Timeouts:   atomic.LoadUint32(&c.stats.Timeouts),
	}
}
