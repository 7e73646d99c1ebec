// wk2132 drives one UART channel of a WK2132 I2C serial expander from a
// host: probe the chip, send or receive bytes, open an interactive
// terminal, or bridge the channel to a local serial port.
package main

import (
	"fmt"
	"log"

	"github.com/alecthomas/kong"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/jangala-dev/tinygo-wk2132/wk2132"
)

type Globals struct {
	Config  kong.ConfigFlag `help:"JSON file with flag values."`
	Bus     string          `help:"I2C bus: periph bus name or number, or mcp2221[:index]." env:"WK2132_BUS"`
	Speed   string          `help:"I2C clock, empty to leave the bus default." env:"WK2132_SPEED"`
	Addr    uint8           `help:"Board select prefix (A1/A0 straps, 14 = 0x0E)." default:"14" env:"WK2132_ADDR"`
	Channel uint8           `help:"UART channel." default:"0" enum:"0,1" env:"WK2132_CHANNEL"`
	Baud    uint32          `help:"Baud rate." default:"115200" env:"WK2132_BAUD"`
	Format  string          `help:"Frame format: 8 data bits, parity N/Z/O/E/F, 1 or 2 stop bits." default:"8N1" env:"WK2132_FORMAT"`
	Osc     string          `help:"Crystal frequency." default:"14.7456MHz" env:"WK2132_OSC"`
}

// session is an open bus plus one initialized channel.
type session struct {
	bus i2c.BusCloser
	ch  *wk2132.Channel
	osc physic.Frequency
}

func (s *session) Close() error {
	err := s.ch.Shutdown()
	if cerr := s.bus.Close(); err == nil {
		err = cerr
	}
	return err
}

func (g *Globals) open(checkTxFull bool) (*session, error) {
	format, err := wk2132.ParseFormat(g.Format)
	if err != nil {
		return nil, err
	}
	var osc physic.Frequency
	if err := osc.Set(g.Osc); err != nil {
		return nil, fmt.Errorf("--osc: %w", err)
	}
	bus, err := openBus(g.Bus)
	if err != nil {
		return nil, err
	}
	if g.Speed != "" {
		var f physic.Frequency
		if err := f.Set(g.Speed); err != nil {
			bus.Close()
			return nil, fmt.Errorf("--speed: %w", err)
		}
		if err := bus.SetSpeed(f); err != nil {
			bus.Close()
			return nil, err
		}
	}
	ch, err := wk2132.New(bus, wk2132.Config{
		Addr:        g.Addr,
		Channel:     g.Channel,
		Oscillator:  osc,
		CheckTxFull: checkTxFull,
	})
	if err != nil {
		bus.Close()
		return nil, err
	}
	if err := ch.InitializeFormat(g.Baud, format); err != nil {
		bus.Close()
		return nil, fmt.Errorf("%s: %w", ch, err)
	}
	return &session{bus: bus, ch: ch, osc: osc}, nil
}

func main() {
	var cli struct {
		Globals

		Probe  probeCmd  `cmd:"" help:"Initialize the channel and dump its registers."`
		Send   sendCmd   `cmd:"" help:"Send text (or stdin) and wait for it to leave the FIFO."`
		Recv   recvCmd   `cmd:"" help:"Print received bytes for a while."`
		Term   termCmd   `cmd:"" help:"Interactive terminal on the channel (Ctrl-] quits)."`
		Bridge bridgeCmd `cmd:"" help:"Shuttle bytes between the channel and a host serial port."`
	}

	log.SetFlags(0)
	log.SetPrefix("wk2132: ")

	ctx := kong.Parse(&cli,
		kong.Name("wk2132"),
		kong.Description("WK2132 I2C to dual UART bridge tool."),
		kong.Configuration(kong.JSON, "~/.config/wk2132.json"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
