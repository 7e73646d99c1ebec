// Package mcp2221 exposes the I2C engine of a Microchip MCP2221A USB to
// I2C/UART bridge as a periph i2c.Bus, so that I2C peripheral drivers can
// run on a desktop host.
//
// Datasheet: http://ww1.microchip.com/downloads/en/devicedoc/20005565b.pdf
package mcp2221

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/karalabe/hid"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// VID and PID are the factory USB identifiers of the MCP2221A.
const (
	VID = 0x04D8
	PID = 0x00DD
)

// ClkHz is the internal clock frequency of the MCP2221A.
const ClkHz = 12000000

// msgSize is the size of every command and response report.
const msgSize = 64

// Command codes, echoed back as the first byte of every response.
const (
	cmdStatus           byte = 0x10
	cmdI2CWrite         byte = 0x90
	cmdI2CRead          byte = 0x91
	cmdI2CReadRepStart  byte = 0x93
	cmdI2CWriteNoStop   byte = 0x94
	cmdI2CReadGetData   byte = 0x40
	statusCancel        byte = 0x10
	statusSetSpeed      byte = 0x20
	statusSpeedRejected byte = 0x21
)

// I2C engine states reported in byte 8 of the status response.
const (
	stateIdle          byte = 0x00
	stateAddrNACK      byte = 0x25
	stateAddrTimeout   byte = 0x23
	statePartialData   byte = 0x41
	stateWriteTimeout  byte = 0x44
	stateWritingNoStop byte = 0x45
	stateReadTimeout   byte = 0x52
	stateReadError     byte = 0x7F
)

const (
	chunkMax   = 60 // payload bytes per report
	retryMax   = 50
	retryDelay = 300 * time.Microsecond
)

var (
	// ErrNACK is returned when the addressed target does not acknowledge.
	ErrNACK = errors.New("mcp2221: address not acknowledged")
	// ErrTimeout is returned when the I2C engine reports a bus timeout.
	ErrTimeout = errors.New("mcp2221: i2c timeout")
	// ErrBusy is returned when the engine stays busy past the retry limit.
	ErrBusy = errors.New("mcp2221: too many retries")
)

// device is the subset of *hid.Device the bus needs.
type device interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// Bus is an I2C bus behind an MCP2221A. It is safe for concurrent use;
// transactions are serialized.
type Bus struct {
	mu   sync.Mutex
	dev  device
	name string
}

var _ i2c.BusCloser = (*Bus)(nil)

// Attached returns the descriptors of every connected MCP2221A.
func Attached() []hid.DeviceInfo {
	return hid.Enumerate(VID, PID)
}

// Open opens the MCP2221A enumerated at idx (0 is the first device found).
func Open(idx int) (*Bus, error) {
	if !hid.Supported() {
		return nil, errors.New("mcp2221: USB HID not supported on this platform")
	}
	info := Attached()
	if idx < 0 || idx >= len(info) {
		return nil, fmt.Errorf("mcp2221: device index %d out of range (%d attached)", idx, len(info))
	}
	dev, err := info[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("mcp2221: open %s: %w", info[idx].Path, err)
	}
	return newBus(dev, fmt.Sprintf("mcp2221a(%d)", idx)), nil
}

func newBus(dev device, name string) *Bus {
	return &Bus{dev: dev, name: name}
}

func (b *Bus) String() string { return b.name }

// Close releases the USB device.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev.Close()
}

// SetSpeed sets the I2C clock. The engine supports roughly 47 kHz to 4 MHz
// in its divider; anything above 400 kHz is out of specification.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	hz := int64(f / physic.Hertz)
	if hz > ClkHz/3 || hz < ClkHz/258 {
		return fmt.Errorf("mcp2221: invalid speed %s", f)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := make([]byte, msgSize)
	msg[3] = statusSetSpeed
	msg[4] = byte(ClkHz/hz - 3)
	rsp, err := b.send(cmdStatus, msg)
	if err != nil {
		return err
	}
	if rsp[3] == statusSpeedRejected {
		return errors.New("mcp2221: transfer in progress")
	}
	return nil
}

// Tx implements i2c.Bus. A write followed by a read uses a repeated start.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("mcp2221: invalid address 0x%x", addr)
	}
	if len(w) == 0 && len(r) == 0 {
		return errors.New("mcp2221: empty transaction")
	}
	if len(w) > 0xFFFF || len(r) > 0xFFFF {
		return errors.New("mcp2221: transaction too long")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.cancelIfBusy(); err != nil {
		return err
	}
	if len(w) > 0 {
		cmd := cmdI2CWrite
		if len(r) > 0 {
			cmd = cmdI2CWriteNoStop
		}
		if err := b.write(cmd, uint8(addr), w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		cmd := cmdI2CRead
		if len(w) > 0 {
			cmd = cmdI2CReadRepStart
		}
		if err := b.read(cmd, uint8(addr), r); err != nil {
			return err
		}
	}
	return nil
}

// send writes one command report and reads its response.
func (b *Bus) send(cmd byte, msg []byte) ([]byte, error) {
	msg[0] = cmd
	if _, err := b.dev.Write(msg); err != nil {
		return nil, fmt.Errorf("mcp2221: write [cmd=0x%02X]: %w", cmd, err)
	}
	rsp := make([]byte, msgSize)
	n, err := b.dev.Read(rsp)
	if err != nil {
		return nil, fmt.Errorf("mcp2221: read [cmd=0x%02X]: %w", cmd, err)
	}
	if n < msgSize {
		return rsp, fmt.Errorf("mcp2221: short response to 0x%02X (%d of %d bytes)", cmd, n, msgSize)
	}
	if rsp[0] != cmd {
		return rsp, fmt.Errorf("mcp2221: response 0x%02X to command 0x%02X", rsp[0], cmd)
	}
	return rsp, nil
}

func (b *Bus) state() (byte, error) {
	rsp, err := b.send(cmdStatus, make([]byte, msgSize))
	if err != nil {
		return 0, err
	}
	return rsp[8], nil
}

func (b *Bus) cancelIfBusy() error {
	st, err := b.state()
	if err != nil {
		return err
	}
	if st == stateIdle || st == stateWritingNoStop {
		return nil
	}
	msg := make([]byte, msgSize)
	msg[2] = statusCancel
	if _, err := b.send(cmdStatus, msg); err != nil {
		return err
	}
	time.Sleep(retryDelay)
	return nil
}

func stateErr(st byte, addr uint8) error {
	switch st {
	case stateAddrNACK:
		return fmt.Errorf("%w (0x%02x)", ErrNACK, addr)
	case stateAddrTimeout, stateWriteTimeout, stateReadTimeout:
		return ErrTimeout
	}
	return nil
}

func (b *Bus) write(cmd byte, addr uint8, w []byte) error {
	for pos := 0; pos < len(w); {
		sz := len(w) - pos
		if sz > chunkMax {
			sz = chunkMax
		}
		msg := make([]byte, msgSize)
		msg[1] = byte(len(w))
		msg[2] = byte(len(w) >> 8)
		msg[3] = addr << 1
		copy(msg[4:], w[pos:pos+sz])

		sent := false
		for retry := 0; retry < retryMax && !sent; retry++ {
			rsp, err := b.send(cmd, msg)
			if err != nil {
				return err
			}
			if rsp[1] == 0 {
				sent = true
				break
			}
			if err := stateErr(rsp[2], addr); err != nil {
				return err
			}
			time.Sleep(retryDelay)
		}
		if !sent {
			return ErrBusy
		}
		pos += sz
	}

	// Wait for the engine to finish clocking the data out.
	for retry := 0; retry < retryMax; retry++ {
		st, err := b.state()
		if err != nil {
			return err
		}
		if st == stateIdle || (cmd == cmdI2CWriteNoStop && st == stateWritingNoStop) {
			return nil
		}
		if err := stateErr(st, addr); err != nil {
			return err
		}
		time.Sleep(retryDelay)
	}
	return ErrBusy
}

func (b *Bus) read(cmd byte, addr uint8, r []byte) error {
	msg := make([]byte, msgSize)
	msg[1] = byte(len(r))
	msg[2] = byte(len(r) >> 8)
	msg[3] = addr<<1 | 1
	rsp, err := b.send(cmd, msg)
	if err != nil {
		return err
	}
	if rsp[1] != 0 {
		if err := stateErr(rsp[2], addr); err != nil {
			return err
		}
		return ErrBusy
	}

	for pos := 0; pos < len(r); {
		var got []byte
		for retry := 0; ; retry++ {
			if retry == retryMax {
				return ErrBusy
			}
			rsp, err := b.send(cmdI2CReadGetData, make([]byte, msgSize))
			if err != nil {
				return err
			}
			if err := stateErr(rsp[2], addr); err != nil {
				return err
			}
			if rsp[1] == 0 && rsp[3] != stateReadError && rsp[2] != statePartialData {
				n := int(rsp[3])
				if n > chunkMax {
					n = chunkMax
				}
				got = rsp[4 : 4+n]
				if len(got) > 0 {
					break
				}
			}
			time.Sleep(retryDelay)
		}
		pos += copy(r[pos:], got)
	}
	return nil
}
