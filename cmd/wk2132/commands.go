package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jangala-dev/tinygo-wk2132/wk2132"
)

type probeCmd struct{}

func (p *probeCmd) Run(g *Globals) error {
	s, err := g.open(false)
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.ch.Registers()
	if err != nil {
		return err
	}
	st, err := s.ch.Status()
	if err != nil {
		return err
	}
	div := wk2132.Divisor{Integer: d.Divisor(), Fraction: d.PRES & 0x0F}
	fmt.Printf("%s on %s\n", s.ch, s.bus)
	fmt.Printf("  GENA=0x%02x GRST=0x%02x GIER=0x%02x\n", d.GENA, d.GRST, d.GIER)
	fmt.Printf("  SCR=0x%02x LCR=0x%02x FCR=0x%02x SIER=0x%02x\n", d.SCR, d.LCR, d.FCR, d.SIER)
	fmt.Printf("  TFCNT=%d RFCNT=%d FSR=0x%02x LSR=0x%02x\n", d.TFCNT, d.RFCNT, d.FSR, d.LSR)
	fmt.Printf("  BAUD=0x%04x PRES=0x%02x RFTL=%d TFTL=%d\n", d.Divisor(), d.PRES, d.RFTL, d.TFTL)
	fmt.Printf("  format %s, %.1f baud (asked %d)\n", s.ch.Format(), div.Baud(s.osc), s.ch.Baud())
	fmt.Printf("  status %+v\n", st)
	return nil
}

type sendCmd struct {
	Text    []string      `arg:"" optional:"" help:"Text to send; stdin when empty."`
	CRLF    bool          `name:"crlf" help:"Append CR LF."`
	Timeout time.Duration `help:"Give up waiting for the FIFO to drain after this long." default:"10s"`
}

func (c *sendCmd) Run(g *Globals) error {
	var data []byte
	if len(c.Text) > 0 {
		data = []byte(strings.Join(c.Text, " "))
	} else {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		data = b
	}
	if c.CRLF {
		data = append(data, '\r', '\n')
	}

	s, err := g.open(true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	if err := writeAll(ctx, s.ch, data); err != nil {
		return err
	}
	if err := s.ch.FlushContext(ctx); err != nil {
		return err
	}
	log.Printf("sent %d bytes", len(data))
	return nil
}

type recvCmd struct {
	For time.Duration `help:"How long to listen." default:"5s"`
	Hex bool          `help:"Hex dump instead of raw output."`
}

func (c *recvCmd) Run(g *Globals) error {
	s, err := g.open(false)
	if err != nil {
		return err
	}
	defer s.Close()

	var out io.Writer = os.Stdout
	if c.Hex {
		d := hex.Dumper(os.Stdout)
		defer d.Close()
		out = d
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.For)
	defer cancel()
	buf := make([]byte, wk2132.FIFOSize)
	total := 0
	for {
		n, err := s.ch.ReadBlocking(ctx, buf)
		if n > 0 {
			total += n
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("received %d bytes", total)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// writeAll pushes p into the transmit FIFO, waiting for space as needed.
// The channel must have been opened with CheckTxFull.
func writeAll(ctx context.Context, ch *wk2132.Channel, p []byte) error {
	for len(p) > 0 {
		n, err := ch.Write(p)
		p = p[n:]
		switch {
		case errors.Is(err, wk2132.ErrTxFull):
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		case err != nil:
			return err
		}
	}
	return nil
}

// pump moves bytes between ch and a host endpoint until ctx is done or in
// is closed. Bytes arriving on in are sent to the channel; bytes received
// on the channel are written to out. The channel is only used from the
// calling goroutine.
func pump(ctx context.Context, ch *wk2132.Channel, in <-chan []byte, out io.Writer) error {
	buf := make([]byte, wk2132.FIFOSize)
	poll := time.NewTicker(2 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-in:
			if !ok {
				return ch.FlushContext(ctx)
			}
			if err := writeAll(ctx, ch, p); err != nil {
				return err
			}
		case <-poll.C:
			n, err := ch.TryRead(buf)
			if n > 0 {
				if _, werr := out.Write(buf[:n]); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
		}
	}
}

// feed reads r in a goroutine and forwards each chunk on the returned
// channel, which is closed on the first read error, when stop reports true
// or once ctx is done.
func feed(ctx context.Context, r io.Reader, stop func([]byte) bool) <-chan []byte {
	c := make(chan []byte, 8)
	go func() {
		defer close(c)
		buf := make([]byte, 256)
		for ctx.Err() == nil {
			n, err := r.Read(buf)
			if n > 0 {
				p := append([]byte(nil), buf[:n]...)
				if stop != nil && stop(p) {
					return
				}
				select {
				case c <- p:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return c
}
