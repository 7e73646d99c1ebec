package main

import (
	"bytes"
	"context"
	"log"
	"os"
	"os/signal"
)

// escape is Ctrl-].
const escape = 0x1D

type termCmd struct{}

func (t *termCmd) Run(g *Globals) error {
	s, err := g.open(true)
	if err != nil {
		return err
	}
	defer s.Close()

	restore, err := makeRaw(os.Stdin.Fd())
	if err != nil {
		return err
	}
	defer restore()

	log.Printf("connected to %s at %d %s, Ctrl-] quits\r", s.ch, s.ch.Baud(), s.ch.Format())
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	in := feed(ctx, os.Stdin, func(p []byte) bool { return bytes.IndexByte(p, escape) >= 0 })
	return pump(ctx, s.ch, in, os.Stdout)
}
