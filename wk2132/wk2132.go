// Package wk2132 drives the WK2132 two-channel UART to I2C bridge. Each
// channel is exposed as a non-blocking byte stream (io.Reader, io.Writer,
// io.ByteReader, io.ByteWriter) backed by the chip's 256 byte FIFOs, plus
// explicit Peek, Available and Flush operations and context-aware blocking
// helpers.
//
// The driver issues one bus transaction at a time over a periph i2c.Bus and
// never holds the bus between calls. There is no interrupt support: all
// waiting is done by polling the chip's status registers.
package wk2132

import (
	"context"
	"io"
	"time"
)

// Flusher is implemented by types that can flush buffered output to the underlying device.
type Flusher interface{ Flush() error }

var (
	_ io.ReadWriteCloser = (*Channel)(nil)
	_ io.ByteReader      = (*Channel)(nil)
	_ io.ByteWriter      = (*Channel)(nil)
	_ Flusher            = (*Channel)(nil)
)

// Available returns the number of bytes that can be read: those in the
// local receive cache plus those reported by the receive FIFO count. It
// does not move data.
func (c *Channel) Available() (int, error) {
	if c.state != StateReady {
		return 0, ErrNotReady
	}
	n, err := c.rxCount()
	if err != nil {
		return c.rx.Used(), err
	}
	return c.rx.Used() + n, nil
}

// Buffered returns the number of bytes held in the local receive cache.
// It never touches the bus.
func (c *Channel) Buffered() int { return c.rx.Used() }

// Peek returns the next byte without consuming it. If the cache is empty
// one byte is pulled from the receive FIFO into it. ErrBufferEmpty means no
// data is available now.
func (c *Channel) Peek() (byte, error) {
	if c.state != StateReady {
		return 0, ErrNotReady
	}
	if b, ok := c.rx.Peek(); ok {
		return b, nil
	}
	if err := c.fill(); err != nil {
		return 0, err
	}
	b, _ := c.rx.Peek()
	return b, nil
}

// ReadByte reads a single byte through the local receive cache.
// If there is no data available, it returns ErrBufferEmpty.
func (c *Channel) ReadByte() (byte, error) {
	b, err := c.Peek()
	if err != nil {
		return 0, err
	}
	c.rx.Get()
	return b, nil
}

// fill moves one byte from the receive FIFO into the cache. A full cache
// declines the transfer rather than overwrite unread data.
func (c *Channel) fill() error {
	if c.rx.Free() == 0 {
		c.dbgCacheFull()
		return ErrBufferEmpty
	}
	n, err := c.rxCount()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBufferEmpty
	}
	var b [1]byte
	if _, err := c.readFIFO(b[:]); err != nil {
		return err
	}
	c.rx.Put(b[0])
	return nil
}

// Read implements io.Reader. It copies up to len(p) bytes straight from the
// receive FIFO in MaxTransfer sized transactions, bypassing the local
// receive cache. It never blocks: an empty FIFO gives 0, nil, and a FIFO
// holding fewer than len(p) bytes gives a short read.
//
// Bytes already pulled into the cache by Peek or ReadByte are not returned;
// use TryRead to drain both in order.
func (c *Channel) Read(p []byte) (int, error) {
	if c.state != StateReady {
		return 0, ErrNotReady
	}
	if len(p) == 0 {
		return 0, nil
	}
	avail, err := c.rxCount()
	if err != nil {
		return 0, err
	}
	if avail < len(p) {
		p = p[:avail]
	}
	return c.readFIFO(p)
}

// TryRead returns immediately with up to len(p) bytes: first any bytes in
// the local receive cache, then bytes from the receive FIFO. A return value
// of 0 with a nil error means "no data now".
func (c *Channel) TryRead(p []byte) (int, error) {
	if c.state != StateReady {
		return 0, ErrNotReady
	}
	n := 0
	for n < len(p) {
		b, ok := c.rx.Get()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	if n == len(p) {
		return n, nil
	}
	m, err := c.Read(p[n:])
	return n + m, err
}

// WriteByte writes a single byte to the transmit FIFO. Unless
// Config.CheckTxFull is set it does not check for space first.
func (c *Channel) WriteByte(b byte) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	if c.cfg.CheckTxFull {
		free, err := c.txFree()
		if err != nil {
			return err
		}
		if free == 0 {
			return ErrTxFull
		}
	}
	_, err := c.writeFIFO([]byte{b})
	return err
}

// Write implements io.Writer. It sends p to the transmit FIFO in
// MaxTransfer sized transactions and returns the number of bytes accepted.
// A failed chunk stops the write; nothing is retried. Write does not wait
// for the bytes to leave the chip; use Flush for that.
func (c *Channel) Write(p []byte) (int, error) {
	if c.state != StateReady {
		return 0, ErrNotReady
	}
	if c.cfg.CheckTxFull {
		free, err := c.txFree()
		if err != nil {
			return 0, err
		}
		if free < len(p) {
			n, err := c.writeFIFO(p[:free])
			if err == nil {
				err = ErrTxFull
			}
			return n, err
		}
	}
	return c.writeFIFO(p)
}

// Writev writes the provided buffers in sequence with the same behaviour as Write.
// It stops on the first error and returns the total number of bytes accepted up to that point.
func (c *Channel) Writev(bufs ...[]byte) (int, error) {
	sent := 0
	for _, p := range bufs {
		n, err := c.Write(p)
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// Flush blocks until the transmit FIFO is empty and the transmitter is idle,
// that is until FSR.TDAT and FSR.TBUSY are both clear.
// There is no timeout: a wedged channel blocks the caller forever. Use
// FlushContext to bound the wait.
func (c *Channel) Flush() error {
	return c.FlushContext(context.Background())
}

// FlushContext is Flush with cancellation. It polls FSR roughly every two
// character times.
func (c *Channel) FlushContext(ctx context.Context) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	tick := c.drainTick()
	for {
		if err := c.selectPage(page0); err != nil {
			return err
		}
		fsr, err := c.readReg8(RegFSR)
		if err != nil {
			return err
		}
		if fsr&(fsrTBUSY|fsrTDAT) == 0 {
			return nil
		}
		c.dbgFlushPoll()
		select {
		case <-ctx.Done():
			c.dbgTimeout()
			return ctx.Err()
		case <-time.After(tick):
		}
	}
}

// drainTick returns a short polling interval based on the configured baud.
// The value is approximately two character times for the current format,
// with a lower bound to avoid zero.
func (c *Channel) drainTick() time.Duration {
	if c.baud == 0 {
		return 50 * time.Microsecond
	}
	bits := 10 // start + 8 data + stop
	if c.format.Parity() != ParityNone {
		bits++
	}
	if c.format.StopBits() == 2 {
		bits++
	}
	perBit := time.Second / time.Duration(c.baud)
	t := 2 * time.Duration(bits) * perBit
	if t < 20*time.Microsecond {
		t = 20 * time.Microsecond
	}
	return t
}

// Close implements io.Closer by shutting the channel down.
func (c *Channel) Close() error { return c.Shutdown() }
