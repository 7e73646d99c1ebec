package wk2132

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReadByteBlocking_UnblocksOnData(t *testing.T) {
	c, chip, _ := newReady(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var got byte
	var err error

	go func() {
		defer close(done)
		got, err = c.ReadByteBlocking(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	chip.receive(0, "Z")

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for ReadByteBlocking")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 'Z' {
		t.Fatalf("got %q want %q", got, 'Z')
	}
}

func TestReadBlocking_ReadsSomeBytes(t *testing.T) {
	c, chip, _ := newReady(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	buf := make([]byte, 8)
	done := make(chan struct{})
	var n int
	var err error

	go func() {
		defer close(done)
		n, err = c.ReadBlocking(ctx, buf)
	}()

	time.Sleep(10 * time.Millisecond)
	chip.receive(0, "xyz")

	select {
	case <-done:
	case <-time.After(400 * time.Millisecond):
		t.Fatal("timeout waiting for ReadBlocking")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n <= 0 || string(buf[:n]) != "xyz"[:n] {
		t.Fatalf("unexpected data: n=%d data=%q", n, string(buf[:n]))
	}
}

func TestReadFullBlocking_ReadsExactLen(t *testing.T) {
	c, chip, _ := newReady(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	want := []byte("HELLO")
	got := make([]byte, len(want))

	done := make(chan struct{})
	var n int
	var err error

	go func() {
		defer close(done)
		n, err = c.ReadFullBlocking(ctx, got)
	}()

	time.Sleep(10 * time.Millisecond)
	for i := range want {
		chip.receive(0, string(want[i:i+1]))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(600 * time.Millisecond):
		t.Fatal("timeout waiting for ReadFullBlocking")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(want) || string(got) != string(want) {
		t.Fatalf("got %q (n=%d), want %q", string(got), n, string(want))
	}
}

func TestWaitReadable_RespectsContext(t *testing.T) {
	c, _, _ := newReady(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := c.WaitReadable(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitReadable on idle channel: err=%v; want deadline exceeded", err)
	}
}

func TestWaitReadable_CachedByteCounts(t *testing.T) {
	c, chip, _ := newReady(t, Config{})
	chip.receive(0, "p")
	if _, err := c.Peek(); err != nil {
		t.Fatalf("Peek: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.WaitReadable(ctx); err != nil {
		t.Fatalf("WaitReadable with a cached byte: %v", err)
	}
	buf := make([]byte, 4)
	n, err := c.ReadBlocking(ctx, buf)
	if err != nil || n != 1 || buf[0] != 'p' {
		t.Fatalf("ReadBlocking: n=%d err=%v data=%q", n, err, buf[:n])
	}
}

func TestReadWithTimeout_Idle(t *testing.T) {
	c, _, _ := newReady(t, Config{})
	n, err := c.ReadWithTimeout(make([]byte, 4), 20*time.Millisecond)
	if n != 0 || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ReadWithTimeout on idle channel: n=%d err=%v", n, err)
	}
}

func TestBlocking_NotReady(t *testing.T) {
	c, _, _ := newReady(t, Config{})
	_ = c.Close()
	if _, err := c.ReadByteBlocking(context.Background()); err != ErrNotReady {
		t.Fatalf("ReadByteBlocking on closed channel: err=%v", err)
	}
	if err := c.WaitReadable(context.Background()); err != ErrNotReady {
		t.Fatalf("WaitReadable on closed channel: err=%v", err)
	}
}
