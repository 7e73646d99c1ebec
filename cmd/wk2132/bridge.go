package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/tarm/serial"
)

type bridgeCmd struct {
	Port     string `help:"Host serial port." required:"" env:"WK2132_PORT"`
	PortBaud int    `help:"Host serial port baud rate, 0 for the channel baud." default:"0" env:"WK2132_PORT_BAUD"`
}

func (b *bridgeCmd) Run(g *Globals) error {
	baud := b.PortBaud
	if baud == 0 {
		baud = int(g.Baud)
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        b.Port,
		Baud:        baud,
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer port.Close()

	s, err := g.open(true)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Printf("bridging %s <-> %s at %d baud", s.ch, b.Port, baud)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return pump(ctx, s.ch, feedPort(ctx, b.Port, port), port)
}

// feedPort is feed for a port opened with a read timeout, where a zero
// length read is not an error.
func feedPort(ctx context.Context, name string, port *serial.Port) <-chan []byte {
	c := make(chan []byte, 8)
	go func() {
		defer close(c)
		buf := make([]byte, 256)
		for ctx.Err() == nil {
			n, err := port.Read(buf)
			if n > 0 {
				select {
				case c <- append([]byte(nil), buf[:n]...):
				case <-ctx.Done():
					return
				}
			}
			if err != nil && !errors.Is(err, io.EOF) {
				log.Printf("%s: %v", name, err)
				return
			}
		}
	}()
	return c
}
