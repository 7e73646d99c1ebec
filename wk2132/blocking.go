package wk2132

import (
	"context"
	"errors"
	"time"
)

// WaitReadable blocks until data is available or ctx is done. The chip's
// interrupt line is not used, so it polls Available.
func (c *Channel) WaitReadable(ctx context.Context) error {
	tick := c.drainTick()
	for {
		n, err := c.Available()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		c.dbgReadWait()
		select {
		case <-ctx.Done():
			c.dbgTimeout()
			return ctx.Err()
		case <-time.After(tick):
		}
	}
}

// ReadBlocking blocks until at least one byte is available, then reads up
// to len(p) bytes with TryRead.
func (c *Channel) ReadBlocking(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if n, err := c.TryRead(p); n > 0 || err != nil {
			return n, err
		}
		if err := c.WaitReadable(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadFullBlocking blocks until len(p) bytes have been read or ctx is done.
func (c *Channel) ReadFullBlocking(ctx context.Context, p []byte) (int, error) {
	read := 0
	for read < len(p) {
		n, err := c.TryRead(p[read:])
		read += n
		if err != nil {
			return read, err
		}
		if n > 0 {
			continue
		}
		if err := c.WaitReadable(ctx); err != nil {
			return read, err
		}
	}
	return read, nil
}

// ReadByteBlocking blocks for a single byte or until ctx is done.
func (c *Channel) ReadByteBlocking(ctx context.Context) (byte, error) {
	for {
		b, err := c.ReadByte()
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrBufferEmpty) {
			return 0, err
		}
		if err := c.WaitReadable(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadWithTimeout is ReadBlocking bounded by d.
func (c *Channel) ReadWithTimeout(p []byte, d time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return c.ReadBlocking(ctx, p)
}
