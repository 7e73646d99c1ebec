package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"periph.io/x/conn/v3/physic"

	"github.com/jangala-dev/tinygo-wk2132/wk2132"
)

// line is a minimal chip model for channel 0 at the default address: page
// select, FIFO levels and status. The transmitter drains drain bytes each
// time its level is sampled.
type line struct {
	mu    sync.Mutex
	page  byte
	regs  [2][16]byte
	tx    []byte
	level int
	drain int
	full  int // samples that found no free space
	rx    []byte
}

var errNoAck = errors.New("no acknowledge")

const (
	regAddr  = 0x70
	fifoAddr = 0x71
)

func (l *line) String() string                  { return "line" }
func (l *line) SetSpeed(physic.Frequency) error { return nil }

func (l *line) sample() {
	l.level -= l.drain
	if l.level < 0 {
		l.level = 0
	}
}

func (l *line) Tx(addr uint16, w, r []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch addr {
	case fifoAddr:
		l.tx = append(l.tx, w...)
		l.level += len(w)
		n := copy(r, l.rx)
		l.rx = l.rx[n:]
		return nil
	case regAddr:
	default:
		return errNoAck
	}
	reg := w[0] & 0x0F
	if len(w) > 1 {
		if reg == 0x03 {
			l.page = w[1] & 1
		}
		l.regs[l.page][reg] = w[1]
		return nil
	}
	var v byte
	switch {
	case reg == 0x03:
		v = l.page
	case l.page == 1 || reg < 0x09:
		v = l.regs[l.page][reg]
	case reg == 0x09:
		l.sample()
		if l.level >= wk2132.FIFOSize {
			l.full++
		}
		v = byte(l.level)
	case reg == 0x0A:
		v = byte(len(l.rx))
	case reg == 0x0B:
		l.sample()
		if len(l.rx) > 0 {
			v |= 0x08
		}
		if l.level > 0 {
			v |= 0x04
		}
		if l.level >= wk2132.FIFOSize {
			v |= 0x02
		}
	}
	for i := range r {
		r[i] = v
	}
	return nil
}

func openLine(t *testing.T, l *line) *wk2132.Channel {
	t.Helper()
	ch, err := wk2132.New(l, wk2132.Config{CheckTxFull: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.Initialize(115200); err != nil {
		t.Fatal(err)
	}
	l.mu.Lock()
	l.tx = nil
	l.mu.Unlock()
	return ch
}

func TestWriteAll_WaitsOutFullFIFO(t *testing.T) {
	is := is.New(t)
	l := &line{}
	ch := openLine(t, l)
	l.level = wk2132.FIFOSize
	l.drain = 0

	data := bytes.Repeat([]byte("0123456789"), 4)
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- writeAll(ctx, ch, data)
	}()

	// Let writeAll see a full FIFO a few times, then start draining.
	time.Sleep(10 * time.Millisecond)
	l.mu.Lock()
	is.True(l.full > 0)
	is.Equal(len(l.tx), 0)
	l.drain = 10
	l.mu.Unlock()

	is.NoErr(<-done)
	is.Equal(l.tx, data)
}

func TestWriteAll_GivesUpWithContext(t *testing.T) {
	is := is.New(t)
	l := &line{}
	ch := openLine(t, l)
	l.level = wk2132.FIFOSize

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	is.Equal(writeAll(ctx, ch, []byte("stuck")), context.DeadlineExceeded)
	is.Equal(len(l.tx), 0)
}

func TestPump_BothDirections(t *testing.T) {
	is := is.New(t)
	l := &line{drain: wk2132.FIFOSize}
	ch := openLine(t, l)
	l.rx = []byte("world")

	in := make(chan []byte, 1)
	in <- []byte("hello")
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	is.NoErr(pump(ctx, ch, in, &out))
	is.Equal(string(l.tx), "hello")
	is.Equal(out.String(), "world")
}

func TestPump_ClosedInputFlushes(t *testing.T) {
	is := is.New(t)
	l := &line{drain: 1}
	ch := openLine(t, l)

	in := make(chan []byte, 1)
	in <- []byte("bye")
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	is.NoErr(pump(ctx, ch, in, &bytes.Buffer{}))
	is.Equal(string(l.tx), "bye")
	is.Equal(l.level, 0)
}

func TestFeed_StopsWhenCancelled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	c := feed(ctx, endless{}, nil)
	<-c
	cancel()
	n := 0
	for range c {
		n++
	}
	is.True(n <= cap(c)+1)
}

type endless struct{}

func (endless) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	return len(p), nil
}
