package wk2132

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by every stream operation on a channel that has
	// not been initialized, or has been shut down or reset since.
	ErrNotReady = errors.New("wk2132: channel not ready")

	// ErrBufferEmpty is the end-of-stream signal of the single-byte read path.
	// It means "no data now", not end of file.
	ErrBufferEmpty = errors.New("wk2132: receive buffer empty")

	// ErrConfiguration reports an invalid baud rate, format code or channel
	// index. It is detected before any register is written.
	ErrConfiguration = errors.New("wk2132: invalid configuration")

	// ErrTxFull is returned when Config.CheckTxFull is set and the transmit
	// FIFO has no space.
	ErrTxFull = errors.New("wk2132: transmit FIFO full")

	// ErrWrongPage is returned when a register is addressed while the
	// channel has the other register page selected.
	ErrWrongPage = errors.New("wk2132: register not on selected page")
)

// BusError wraps a failed bus transaction.
type BusError struct {
	Op   string // "read" or "write"
	Addr uint16
	Reg  int // register offset, or -1 for the FIFO object
	Err  error
}

func (e *BusError) Error() string {
	if e.Reg < 0 {
		return fmt.Sprintf("wk2132: fifo %s at 0x%02x: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("wk2132: register %s 0x%02x at 0x%02x: %v", e.Op, e.Reg, e.Addr, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
