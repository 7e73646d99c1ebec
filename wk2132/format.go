package wk2132

import (
	"fmt"
	"strings"
)

// Parity defines the parity setting of a channel.
type Parity uint8

const (
	// ParityNone disables parity generation and checking.
	ParityNone Parity = iota
	// ParityZero sends a parity bit that is always 0 (space).
	ParityZero
	// ParityOdd sets odd parity.
	ParityOdd
	// ParityEven sets even parity.
	ParityEven
	// ParityOne sends a parity bit that is always 1 (mark).
	ParityOne
)

var parityLetters = [...]byte{ParityNone: 'N', ParityZero: 'Z', ParityOdd: 'O', ParityEven: 'E', ParityOne: 'F'}

// Format is a frame format code as held in the low nibble of LCR:
// PAEN (bit 3), PAM (bits 2-1) and STPL (bit 0). Word length is always 8.
type Format uint8

const (
	Format8N1 Format = 0x00
	Format8N2 Format = 0x01
	Format8Z1 Format = 0x08
	Format8Z2 Format = 0x09
	Format8O1 Format = 0x0A
	Format8O2 Format = 0x0B
	Format8E1 Format = 0x0C
	Format8E2 Format = 0x0D
	Format8F1 Format = 0x0E
	Format8F2 Format = 0x0F
)

// NewFormat builds the format code for the given parity and stop bits.
func NewFormat(parity Parity, stopBits uint8) (Format, error) {
	var f Format
	switch stopBits {
	case 1:
	case 2:
		f |= lcrSTPL
	default:
		return 0, configErr("stop bits %d", stopBits)
	}
	switch parity {
	case ParityNone:
	case ParityZero, ParityOdd, ParityEven, ParityOne:
		f |= lcrPAEN | Format(parity-ParityZero)<<1
	default:
		return 0, configErr("parity %d", parity)
	}
	return f, nil
}

// ParseFormat parses the conventional "8N1" notation. The parity letter is
// one of N, Z, O, E or F (mark); the data width must be 8.
func ParseFormat(s string) (Format, error) {
	if len(s) != 3 || s[0] != '8' {
		return 0, configErr("format %q", s)
	}
	parity := -1
	for p, l := range parityLetters {
		if l == strings.ToUpper(s[1:2])[0] {
			parity = p
		}
	}
	if parity < 0 {
		return 0, configErr("format %q", s)
	}
	return NewFormat(Parity(parity), s[2]-'0')
}

// Valid reports whether f is one of the ten defined codes.
func (f Format) Valid() bool {
	return f <= Format8N2 || (f >= Format8Z1 && f <= Format8F2)
}

// Parity returns the parity mode encoded in f.
func (f Format) Parity() Parity {
	if f&lcrPAEN == 0 {
		return ParityNone
	}
	return ParityZero + Parity(f&lcrPAM>>1)
}

// StopBits returns 1 or 2.
func (f Format) StopBits() uint8 {
	if f&lcrSTPL != 0 {
		return 2
	}
	return 1
}

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(0x%02x)", uint8(f))
	}
	return fmt.Sprintf("8%c%d", parityLetters[f.Parity()], f.StopBits())
}
