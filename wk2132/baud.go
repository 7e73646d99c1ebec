package wk2132

import "periph.io/x/conn/v3/physic"

// DefaultOscillator is the crystal fitted to the reference boards.
const DefaultOscillator = 14745600 * physic.Hertz

// Divisor is the baud rate generator setting: BAUD1:BAUD0 hold the integer
// divisor and PRES its fraction in sixteenths. The channel clock is
// osc / (16 * (Integer + 1 + Fraction/16)).
type Divisor struct {
	Integer  uint16
	Fraction uint8
}

// CalcDivisor computes the divisor for baud from an oscillator of osc Hz.
//
// The integer part is round(osc/(16*baud)) - 1 and the fraction is the
// rounded remainder in sixteenths. Rounding the integer part up leaves a
// negative remainder; that case borrows one from the integer part so the
// fraction stays within PRES. For such rates (250000 baud at 14.7456 MHz
// gives {2, 11}, not {3, 0}) the registers differ from clamping the
// fraction to zero, and the achieved rate stays within 2%.
func CalcDivisor(osc physic.Frequency, baud uint32) (Divisor, error) {
	hz := uint64(osc / physic.Hertz)
	if baud == 0 || hz == 0 {
		return Divisor{}, configErr("baud rate %d with oscillator %d Hz", baud, hz)
	}
	b := uint64(baud)
	n := (hz + 8*b) / (16 * b)   // round(osc / (16*baud))
	sixteenths := (hz + b/2) / b // round(osc / baud)
	frac := int64(sixteenths) - 16*int64(n)
	if frac < 0 && n > 1 {
		n--
		frac += 16
	}
	if n == 0 || n-1 > 0xFFFF {
		return Divisor{}, configErr("baud rate %d out of range for oscillator %d Hz", baud, hz)
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 0x0F {
		frac = 0x0F
	}
	return Divisor{Integer: uint16(n - 1), Fraction: uint8(frac)}, nil
}

// Baud returns the rate the divisor actually produces with an oscillator of
// osc Hz.
func (d Divisor) Baud(osc physic.Frequency) float64 {
	hz := float64(osc / physic.Hertz)
	return hz / (16 * (float64(d.Integer) + 1 + float64(d.Fraction)/16))
}
