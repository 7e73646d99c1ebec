package wk2132

import (
	"errors"
	"sync"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

var errNACK = errors.New("fake: no acknowledge")

// fakeChip simulates a WK2132 at the register level: global registers,
// per-channel paged registers and both FIFOs.
type fakeChip struct {
	mu     sync.Mutex
	prefix uint8
	global [0x20]byte
	ch     [2]fakeChannel

	// fail, when set, is consulted before every transaction.
	fail func(addr uint16, w []byte) error
}

type fakeChannel struct {
	page byte
	p0   [0x10]byte
	p1   [0x10]byte

	rx      []byte // receive FIFO content
	tx      []byte // everything written to the transmit FIFO
	txLevel int    // reported transmit FIFO fill level
	fsrErr  byte   // receive error bits reported in FSR

	busyPolls  int // FSR reads that still report TBUSY
	fifoWrites []int
	fifoReads  []int
}

func newFakeChip() *fakeChip { return &fakeChip{prefix: DefaultAddr} }

func (f *fakeChip) String() string                  { return "fakechip" }
func (f *fakeChip) SetSpeed(physic.Frequency) error { return nil }

func (f *fakeChip) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(addr, w); err != nil {
			return err
		}
	}
	if uint8(addr>>3) != f.prefix || (addr>>1)&3 > 1 {
		return errNACK
	}
	c := &f.ch[(addr>>1)&3]

	if addr&1 == uint16(ObjectFIFO) {
		if len(w) > 0 {
			c.tx = append(c.tx, w...)
			c.fifoWrites = append(c.fifoWrites, len(w))
		}
		if len(r) > 0 {
			if len(r) > len(c.rx) {
				return errors.New("fake: receive FIFO underflow")
			}
			copy(r, c.rx)
			c.rx = c.rx[len(r):]
			c.fifoReads = append(c.fifoReads, len(r))
		}
		return nil
	}

	if len(w) == 0 {
		return errors.New("fake: register read without offset")
	}
	off := w[0]
	for _, v := range w[1:] {
		f.store(uint8((addr>>1)&3), off, v)
	}
	for i := range r {
		r[i] = f.load(c, off)
	}
	return nil
}

func (f *fakeChip) store(ch uint8, off, v byte) {
	c := &f.ch[ch]
	switch {
	case off == 0x01: // GRST, self clearing
		for i := range f.ch {
			if v&(1<<i) != 0 {
				f.ch[i] = fakeChannel{}
			}
		}
	case off < 0x03 || off == 0x10 || off == 0x11:
		f.global[off] = v
	case off == 0x03:
		c.page = v & 1
	case off <= 0x08 && c.page == 1:
		c.p1[off] = v
	case off == 0x06:
		if v&fcrRFRST != 0 {
			c.rx = nil
		}
		if v&fcrTFRST != 0 {
			c.txLevel = 0
		}
		c.p0[off] = v &^ (fcrRFRST | fcrTFRST)
	default:
		c.p0[off] = v
	}
}

func (f *fakeChip) load(c *fakeChannel, off byte) byte {
	switch {
	case off < 0x03 || off == 0x10 || off == 0x11:
		return f.global[off]
	case off == 0x03:
		return c.page
	case off <= 0x08 && c.page == 1:
		return c.p1[off]
	case off == 0x09:
		return byte(c.txLevel)
	case off == 0x0A:
		return byte(len(c.rx))
	case off == 0x0B:
		v := c.fsrErr
		if len(c.rx) > 0 {
			v |= fsrRDAT
		}
		if c.txLevel > 0 {
			v |= fsrTDAT
		}
		if c.txLevel >= FIFOSize {
			v |= fsrTFULL
		}
		if c.busyPolls > 0 {
			c.busyPolls--
			v |= fsrTBUSY
		}
		return v
	}
	return c.p0[off]
}

// receive queues bytes in a channel's receive FIFO as if they had arrived
// on the line.
func (f *fakeChip) receive(ch int, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch[ch].rx = append(f.ch[ch].rx, data...)
}

// newReady returns channel ch of a fresh fake chip, initialized at 115200
// 8N1 and wrapped in a recorder.
func newReady(t *testing.T, cfg Config) (*Channel, *fakeChip, *i2ctest.Record) {
	t.Helper()
	chip := newFakeChip()
	rec := &i2ctest.Record{Bus: chip}
	c, err := New(rec, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Initialize(115200); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	rec.Ops = nil
	return c, chip, rec
}
