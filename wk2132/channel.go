package wk2132

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Config selects one channel of one chip.
type Config struct {
	// Addr is the 5-bit board select prefix of the bus address (0 A1 A0 1 0).
	// Zero means DefaultAddr.
	Addr uint8
	// Channel is the sub-UART index, 0 or 1.
	Channel uint8
	// Oscillator is the crystal frequency. Zero means DefaultOscillator.
	Oscillator physic.Frequency
	// CheckTxFull makes the write paths consult the transmit FIFO level and
	// never write more than it can take. By default writes are issued
	// without looking, as the hardware flow control is expected to cope.
	CheckTxFull bool
}

// State is the lifecycle state of a channel.
type State uint8

const (
	StateUninitialized State = iota
	StateConfiguring
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfiguring:
		return "configuring"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Channel is one sub-UART of a WK2132. It is not safe for concurrent use;
// the underlying bus is expected to serialize transactions between
// channels and chips.
type Channel struct {
	cfg  Config
	reg  i2c.Dev // register object
	fifo i2c.Dev // FIFO object

	state  State
	page   page
	asleep bool
	baud   uint32
	format Format

	rx    ringBuffer
	stats Stats
}

var _ conn.Resource = (*Channel)(nil)

// New returns a handle for the channel described by cfg. No bus traffic
// happens until Initialize.
func New(bus i2c.Bus, cfg Config) (*Channel, error) {
	if cfg.Addr == 0 {
		cfg.Addr = DefaultAddr
	}
	if cfg.Oscillator == 0 {
		cfg.Oscillator = DefaultOscillator
	}
	if cfg.Addr > 0x1F {
		return nil, configErr("board address 0x%02x", cfg.Addr)
	}
	if cfg.Channel > 1 {
		return nil, configErr("channel %d", cfg.Channel)
	}
	return &Channel{
		cfg:   cfg,
		reg:   i2c.Dev{Bus: bus, Addr: uint16(Address(cfg.Addr, cfg.Channel, ObjectRegister))},
		fifo:  i2c.Dev{Bus: bus, Addr: uint16(Address(cfg.Addr, cfg.Channel, ObjectFIFO))},
		page:  pageUnknown,
		state: StateUninitialized,
	}, nil
}

// Channels returns handles for both channels of the chip at cfg.Addr.
// cfg.Channel is ignored.
func Channels(bus i2c.Bus, cfg Config) ([2]*Channel, error) {
	var chs [2]*Channel
	for i := range chs {
		cfg.Channel = uint8(i)
		ch, err := New(bus, cfg)
		if err != nil {
			return chs, err
		}
		chs[i] = ch
	}
	return chs, nil
}

func (c *Channel) String() string {
	return fmt.Sprintf("wk2132(0x%02x/%d)", c.reg.Addr, c.cfg.Channel)
}

// Halt implements conn.Resource by shutting the channel down.
func (c *Channel) Halt() error { return c.Shutdown() }

// State returns the lifecycle state.
func (c *Channel) State() State { return c.state }

// Baud returns the rate requested by the last successful Initialize.
func (c *Channel) Baud() uint32 { return c.baud }

// Format returns the frame format set by the last successful Initialize.
func (c *Channel) Format() Format { return c.format }

// Asleep reports whether Sleep has been called without a matching Wakeup.
func (c *Channel) Asleep() bool { return c.asleep }

func (c *Channel) channelBit() byte { return 1 << c.cfg.Channel }

// Initialize configures the channel for baud in 8N1 and makes it Ready.
func (c *Channel) Initialize(baud uint32) error {
	return c.InitializeFormat(baud, Format8N1)
}

// InitializeFormat configures the channel for baud and format and makes it
// Ready. The arguments are validated before any register is touched. A bus
// failure part way leaves the channel Closed without undoing the registers
// already written; calling InitializeFormat again is always safe.
func (c *Channel) InitializeFormat(baud uint32, format Format) error {
	if c.cfg.Channel > 1 {
		return configErr("channel %d", c.cfg.Channel)
	}
	if !format.Valid() {
		return configErr("format code 0x%02x", uint8(format))
	}
	div, err := CalcDivisor(c.cfg.Oscillator, baud)
	if err != nil {
		return err
	}

	c.state = StateConfiguring
	c.rx.Clear()
	c.asleep = false
	// Never trust a page left over from a previous owner.
	c.page = pageUnknown
	if err := c.configure(div, format); err != nil {
		c.state = StateClosed
		return err
	}
	c.baud = baud
	c.format = format
	c.state = StateReady
	return nil
}

func (c *Channel) configure(div Divisor, format Format) error {
	if err := c.updateReg(RegGENA, 0, c.channelBit()); err != nil {
		return err
	}

	if err := c.selectPage(page1); err != nil {
		return err
	}
	if err := c.writeReg(RegBAUD1, byte(div.Integer>>8)); err != nil {
		return err
	}
	if err := c.writeReg(RegBAUD0, byte(div.Integer)); err != nil {
		return err
	}
	if err := c.writeReg(RegPRES, div.Fraction); err != nil {
		return err
	}
	if err := c.selectPage(page0); err != nil {
		return err
	}

	// IREN and BREAK clear: normal mode, normal output.
	if err := c.writeReg(RegLCR, byte(format)&lcrFormat); err != nil {
		return err
	}
	fcr := byte(fcrRFRST | fcrTFRST | fcrRFEN | fcrTFEN)
	if err := c.writeReg(RegFCR, fcr); err != nil {
		return err
	}
	return c.writeReg(RegSCR, scrRXEN|scrTXEN)
}

// Shutdown disables the channel's transmitter, receiver and FIFOs. The
// channel is Closed afterwards even if a register write failed. It does
// nothing on a channel that is not Ready.
func (c *Channel) Shutdown() error {
	if c.state != StateReady {
		return nil
	}
	c.state = StateClosed
	c.rx.Clear()
	c.asleep = false
	if err := c.selectPage(page0); err != nil {
		return err
	}
	if err := c.writeReg(RegSCR, 0); err != nil {
		return err
	}
	return c.writeReg(RegFCR, 0)
}

// Reset soft resets the channel through GRST, clearing all of its
// registers. The channel is Closed afterwards.
func (c *Channel) Reset() error {
	c.state = StateClosed
	c.rx.Clear()
	c.asleep = false
	c.page = pageUnknown
	return c.updateReg(RegGRST, 0, c.channelBit())
}

// Sleep sets the channel's sleep enable bit. The channel stays Ready;
// transfers attempted while asleep are not guarded.
func (c *Channel) Sleep() error { return c.setSleep(true) }

// Wakeup clears the sleep enable bit.
func (c *Channel) Wakeup() error { return c.setSleep(false) }

func (c *Channel) setSleep(on bool) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	if err := c.selectPage(page0); err != nil {
		return err
	}
	clr, set := byte(scrSLEEPEN), byte(0)
	if on {
		clr, set = 0, scrSLEEPEN
	}
	if err := c.updateReg(RegSCR, clr, set); err != nil {
		return err
	}
	c.asleep = on
	return nil
}

// SetBreak drives a line break on TX while on is true.
func (c *Channel) SetBreak(on bool) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	if err := c.selectPage(page0); err != nil {
		return err
	}
	set := byte(0)
	if on {
		set = lcrBREAK
	}
	return c.updateReg(RegLCR, lcrBREAK, set)
}
