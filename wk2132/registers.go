package wk2132

import "fmt"

// Register is a logical register of the WK2132. Offsets 0x04-0x08 hold
// different registers on page 0 and page 1; the register map below
// records which page each logical register lives on.
type Register uint8

const (
	// Global registers, shared by both channels and independent of page.
	RegGENA Register = iota // clock enable, one bit per channel
	RegGRST                 // soft reset, one bit per channel, self clearing
	RegGMUT                 // main UART control (unused on I2C)
	RegGIER                 // global interrupt enable
	RegGIFR                 // global interrupt flags
	RegSPAGE                // channel page select

	// Page 0.
	RegSCR   // control
	RegLCR   // line (frame format) configuration
	RegFCR   // FIFO control
	RegSIER  // interrupt enable
	RegSIFR  // interrupt flags
	RegTFCNT // transmit FIFO count
	RegRFCNT // receive FIFO count
	RegFSR   // FIFO status
	RegLSR   // line status
	RegFDAT  // FIFO data

	// Page 1.
	RegBAUD1 // baud divisor high byte
	RegBAUD0 // baud divisor low byte
	RegPRES  // baud divisor fraction
	RegRFTL  // receive FIFO trigger level
	RegTFTL  // transmit FIFO trigger level

	numRegisters
)

type page int8

const (
	page0       page = 0
	page1       page = 1
	pageAny     page = -1 // register map: reachable from either page
	pageUnknown page = -2 // channel state: SPAGE content not known
)

var registerMap = [numRegisters]struct {
	name   string
	page   page
	offset uint8
}{
	RegGENA:  {"GENA", pageAny, 0x00},
	RegGRST:  {"GRST", pageAny, 0x01},
	RegGMUT:  {"GMUT", pageAny, 0x02},
	RegGIER:  {"GIER", pageAny, 0x10},
	RegGIFR:  {"GIFR", pageAny, 0x11},
	RegSPAGE: {"SPAGE", pageAny, 0x03},

	RegSCR:   {"SCR", page0, 0x04},
	RegLCR:   {"LCR", page0, 0x05},
	RegFCR:   {"FCR", page0, 0x06},
	RegSIER:  {"SIER", page0, 0x07},
	RegSIFR:  {"SIFR", page0, 0x08},
	RegTFCNT: {"TFCNT", page0, 0x09},
	RegRFCNT: {"RFCNT", page0, 0x0A},
	RegFSR:   {"FSR", page0, 0x0B},
	RegLSR:   {"LSR", page0, 0x0C},
	RegFDAT:  {"FDAT", page0, 0x0D},

	RegBAUD1: {"BAUD1", page1, 0x04},
	RegBAUD0: {"BAUD0", page1, 0x05},
	RegPRES:  {"PRES", page1, 0x06},
	RegRFTL:  {"RFTL", page1, 0x07},
	RegTFTL:  {"TFTL", page1, 0x08},
}

func (r Register) String() string {
	if r < numRegisters {
		return registerMap[r].name
	}
	return fmt.Sprintf("Register(%d)", uint8(r))
}

// Offset returns the register's on-chip offset.
func (r Register) Offset() uint8 { return registerMap[r].offset }

// SCR bits.
const (
	scrRXEN    = 0x01
	scrTXEN    = 0x02
	scrSLEEPEN = 0x04
)

// LCR bits. The low nibble is the frame format code.
const (
	lcrSTPL   = 0x01
	lcrPAM    = 0x06
	lcrPAEN   = 0x08
	lcrFormat = 0x0F
	lcrBREAK  = 0x20
)

// FCR bits. Trigger fields of 00 select the 8 byte default.
const (
	fcrRFRST     = 0x01
	fcrTFRST     = 0x02
	fcrRFEN      = 0x04
	fcrTFEN      = 0x08
	fcrRFTRIGPos = 4
	fcrTFTRIGPos = 6
)

// FSR bits.
const (
	fsrTBUSY = 0x01
	fsrTFULL = 0x02
	fsrTDAT  = 0x04
	fsrRDAT  = 0x08
	fsrRFPE  = 0x10
	fsrRFFE  = 0x20
	fsrRFBI  = 0x40
	fsrRFOE  = 0x80
)

const (
	// FIFOSize is the depth of each hardware FIFO.
	FIFOSize = 256
	// MaxTransfer caps the payload of a single bus transaction.
	MaxTransfer = 32
)

// FIFOStatus is a decoded FSR snapshot.
type FIFOStatus struct {
	TxBusy     bool
	TxFull     bool
	TxHasData  bool
	RxHasData  bool
	RxParity   bool
	RxFraming  bool
	RxBreak    bool
	RxOverflow bool
}

func parseFSR(v byte) FIFOStatus {
	return FIFOStatus{
		TxBusy:     v&fsrTBUSY != 0,
		TxFull:     v&fsrTFULL != 0,
		TxHasData:  v&fsrTDAT != 0,
		RxHasData:  v&fsrRDAT != 0,
		RxParity:   v&fsrRFPE != 0,
		RxFraming:  v&fsrRFFE != 0,
		RxBreak:    v&fsrRFBI != 0,
		RxOverflow: v&fsrRFOE != 0,
	}
}

// ---------------------------- register access -----------------------------

// readReg reads len(p) bytes starting at r. The channel must already have
// r's page selected.
func (c *Channel) readReg(r Register, p []byte) error {
	m := registerMap[r]
	if m.page != pageAny && m.page != c.page {
		return fmt.Errorf("%w: %s", ErrWrongPage, r)
	}
	err := c.reg.Tx([]byte{m.offset}, p)
	c.dbgTx(false, len(p), err)
	if err != nil {
		return &BusError{Op: "read", Addr: c.reg.Addr, Reg: int(m.offset), Err: err}
	}
	return nil
}

func (c *Channel) readReg8(r Register) (byte, error) {
	var b [1]byte
	err := c.readReg(r, b[:])
	return b[0], err
}

// writeReg writes data starting at r. The channel must already have r's
// page selected.
func (c *Channel) writeReg(r Register, data ...byte) error {
	m := registerMap[r]
	if m.page != pageAny && m.page != c.page {
		return fmt.Errorf("%w: %s", ErrWrongPage, r)
	}
	w := make([]byte, 0, 1+len(data))
	w = append(w, m.offset)
	w = append(w, data...)
	err := c.reg.Tx(w, nil)
	c.dbgTx(true, len(data), err)
	if err != nil {
		return &BusError{Op: "write", Addr: c.reg.Addr, Reg: int(m.offset), Err: err}
	}
	return nil
}

// updateReg is a read-modify-write of a single register.
func (c *Channel) updateReg(r Register, clr, set byte) error {
	v, err := c.readReg8(r)
	if err != nil {
		return err
	}
	return c.writeReg(r, v&^clr|set)
}

// selectPage switches the channel's register page. It is a no-op when the
// page is already selected.
func (c *Channel) selectPage(p page) error {
	if c.page == p {
		return nil
	}
	if err := c.writeReg(RegSPAGE, byte(p)); err != nil {
		c.page = pageUnknown
		return err
	}
	c.page = p
	return nil
}

// ------------------------------- FIFO access ------------------------------

// readFIFO fills p from the receive FIFO in MaxTransfer sized transactions.
// It returns the number of bytes transferred before any error.
func (c *Channel) readFIFO(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		chunk := p[n:]
		if len(chunk) > MaxTransfer {
			chunk = chunk[:MaxTransfer]
		}
		err := c.fifo.Tx(nil, chunk)
		c.dbgTx(false, len(chunk), err)
		if err != nil {
			return n, &BusError{Op: "read", Addr: c.fifo.Addr, Reg: -1, Err: err}
		}
		n += len(chunk)
	}
	return n, nil
}

// writeFIFO sends p to the transmit FIFO in MaxTransfer sized transactions,
// stopping at the first failed chunk.
func (c *Channel) writeFIFO(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		chunk := p[n:]
		if len(chunk) > MaxTransfer {
			chunk = chunk[:MaxTransfer]
		}
		err := c.fifo.Tx(chunk, nil)
		c.dbgTx(true, len(chunk), err)
		if err != nil {
			return n, &BusError{Op: "write", Addr: c.fifo.Addr, Reg: -1, Err: err}
		}
		n += len(chunk)
	}
	return n, nil
}

// rxCount returns the number of bytes waiting in the receive FIFO. RFCNT
// wraps to zero when the FIFO holds all 256 bytes, so FSR disambiguates.
func (c *Channel) rxCount() (int, error) {
	if err := c.selectPage(page0); err != nil {
		return 0, err
	}
	n, err := c.readReg8(RegRFCNT)
	if err != nil {
		return 0, err
	}
	if n != 0 {
		return int(n), nil
	}
	fsr, err := c.readReg8(RegFSR)
	if err != nil {
		return 0, err
	}
	if fsr&fsrRDAT != 0 {
		return FIFOSize, nil
	}
	return 0, nil
}

// txFree returns the free space in the transmit FIFO.
func (c *Channel) txFree() (int, error) {
	if err := c.selectPage(page0); err != nil {
		return 0, err
	}
	n, err := c.readReg8(RegTFCNT)
	if err != nil {
		return 0, err
	}
	if n != 0 {
		return FIFOSize - int(n), nil
	}
	fsr, err := c.readReg8(RegFSR)
	if err != nil {
		return 0, err
	}
	if fsr&fsrTFULL != 0 {
		return 0, nil
	}
	return FIFOSize, nil
}

// Status samples the FIFO status register. It is never cached.
func (c *Channel) Status() (FIFOStatus, error) {
	if c.state != StateReady {
		return FIFOStatus{}, ErrNotReady
	}
	if err := c.selectPage(page0); err != nil {
		return FIFOStatus{}, err
	}
	v, err := c.readReg8(RegFSR)
	if err != nil {
		return FIFOStatus{}, err
	}
	return parseFSR(v), nil
}

// RegisterDump is a snapshot of a channel's registers on both pages.
type RegisterDump struct {
	GENA, GRST, GIER uint8

	SCR, LCR, FCR, SIER uint8
	TFCNT, RFCNT        uint8
	FSR, LSR            uint8

	BAUD1, BAUD0, PRES uint8
	RFTL, TFTL         uint8
}

// Divisor returns the integer baud divisor held in BAUD1:BAUD0.
func (d RegisterDump) Divisor() uint16 { return uint16(d.BAUD1)<<8 | uint16(d.BAUD0) }

// Registers reads every channel register for diagnostics. It works in any
// channel state and leaves page 0 selected.
func (c *Channel) Registers() (RegisterDump, error) {
	var d RegisterDump
	type field struct {
		dst *uint8
		reg Register
	}
	readAll := func(fields []field) error {
		for _, f := range fields {
			v, err := c.readReg8(f.reg)
			if err != nil {
				return err
			}
			*f.dst = v
		}
		return nil
	}
	global := []field{{&d.GENA, RegGENA}, {&d.GRST, RegGRST}, {&d.GIER, RegGIER}}
	p0 := []field{
		{&d.SCR, RegSCR}, {&d.LCR, RegLCR}, {&d.FCR, RegFCR}, {&d.SIER, RegSIER},
		{&d.TFCNT, RegTFCNT}, {&d.RFCNT, RegRFCNT}, {&d.FSR, RegFSR}, {&d.LSR, RegLSR},
	}
	p1 := []field{
		{&d.BAUD1, RegBAUD1}, {&d.BAUD0, RegBAUD0}, {&d.PRES, RegPRES},
		{&d.RFTL, RegRFTL}, {&d.TFTL, RegTFTL},
	}

	if err := readAll(global); err != nil {
		return d, err
	}
	if err := c.selectPage(page0); err != nil {
		return d, err
	}
	if err := readAll(p0); err != nil {
		return d, err
	}
	if err := c.selectPage(page1); err != nil {
		return d, err
	}
	if err := readAll(p1); err != nil {
		return d, err
	}
	return d, c.selectPage(page0)
}
