//go:build rp2040 || rp2350

package wk2132

import (
	"machine"

	"periph.io/x/conn/v3/physic"
)

// MachineBus adapts a TinyGo machine.I2C to the i2c.Bus interface.
type MachineBus struct {
	*machine.I2C
}

func (b MachineBus) String() string { return "machine.I2C" }

// SetSpeed reconfigures the bus clock.
func (b MachineBus) SetSpeed(f physic.Frequency) error {
	return b.I2C.SetBaudRate(uint32(f / physic.Hertz))
}
