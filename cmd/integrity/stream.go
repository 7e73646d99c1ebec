package main

import (
	"context"
	"errors"
	"time"

	"github.com/jangala-dev/tinygo-wk2132/wk2132"
)

// Both channels share one I2C bus and a Channel is not safe for concurrent
// use: a single loop drives every stream.

const (
	// Mitigation for first-byte artefact:
	usePreamble  = true // send a preamble byte and have receivers skip it before verifying
	preambleByte = 0x55

	guardDelay = 2 * time.Millisecond

	// I/O chunking and diagnostics:
	sendChunk      = 64  // bytes offered to the TX FIFO per step
	recvChunk      = 128 // bytes taken from the RX FIFO per step
	contextRadius  = 16  // surrounding bytes shown on mismatch (before/after pivot)
	extraFollowing = 128 // additional bytes to read and print after the first mismatch
	idleSleep      = 200 * time.Microsecond
)

/*** Patterns (deterministic) ***/
func patternA(i int) byte { return byte((i*31 + 0x55) & 0xFF) }
func patternB(i int) byte { return byte((i*17 + 0xA6) & 0xFF) }

/*** Streams ***/

// stream is one direction of the test: a pattern generator feeding tx and
// a checker verifying rx against the same pattern.
type stream struct {
	label  string
	tx, rx *wk2132.Channel
	gen    func(int) byte
	n      int

	sent     int
	skip     int
	received int
	done     bool
	fail     string

	out [sendChunk]byte
	in  [recvChunk]byte
}

// runStreams interleaves send and receive steps of every stream until all
// have been verified, one fails, or the test times out.
func runStreams(timeout time.Duration, ss ...*stream) string {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, s := range ss {
		drain(s.rx)
	}
	if usePreamble {
		for _, s := range ss {
			s.skip = 1
			if err := s.tx.WriteByte(preambleByte); err != nil {
				return s.label + ": preamble: " + err.Error()
			}
		}
	}
	if guardDelay > 0 {
		time.Sleep(guardDelay)
	}

	for {
		if ctx.Err() != nil {
			for _, s := range ss {
				if !s.done {
					return s.label + ": timeout at offset " + itoa(s.received)
				}
			}
		}
		busy, pending := false, false
		for _, s := range ss {
			if s.done {
				continue
			}
			pending = true
			moved, err := s.step(ctx)
			if err != nil {
				return s.label + ": " + err.Error()
			}
			if s.fail != "" {
				return s.label + ": " + s.fail
			}
			busy = busy || moved
		}
		if !pending {
			return ""
		}
		if !busy {
			time.Sleep(idleSleep)
		}
	}
}

// step offers the next chunk of pattern to the transmit FIFO and checks
// whatever has arrived. It reports whether any byte moved.
func (s *stream) step(ctx context.Context) (bool, error) {
	moved := false
	if s.sent < s.n {
		k := len(s.out)
		if s.n-s.sent < k {
			k = s.n - s.sent
		}
		for j := 0; j < k; j++ {
			s.out[j] = s.gen(s.sent + j)
		}
		n, err := s.tx.Write(s.out[:k])
		if err != nil && !errors.Is(err, wk2132.ErrTxFull) {
			return moved, err
		}
		s.sent += n
		moved = moved || n > 0
	}

	m, err := s.rx.TryRead(s.in[:])
	if err != nil {
		return moved, err
	}
	got := s.in[:m]
	for s.skip > 0 && len(got) > 0 {
		got = got[1:]
		s.skip--
	}
	for i, act := range got {
		if exp := s.gen(s.received + i); act != exp {
			off := s.received + i
			println("First mismatch at offset", off, "on", s.label)
			printContext(s.gen, off, got, i, contextRadius)
			printFollowing(off, s.following(ctx, got[i+1:]))
			s.fail = "integrity mismatch"
			return true, nil
		}
	}
	s.received += len(got)
	if s.received >= s.n {
		s.done = true
	}
	return moved || m > 0, nil
}

// following collects up to extraFollowing bytes received after a mismatch,
// starting with the rest of the chunk it was found in.
func (s *stream) following(ctx context.Context, rest []byte) []byte {
	out := append(make([]byte, 0, extraFollowing), rest...)
	if len(out) > extraFollowing {
		return out[:extraFollowing]
	}
	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	var tmp [recvChunk]byte
	for len(out) < extraFollowing {
		want := extraFollowing - len(out)
		if want > len(tmp) {
			want = len(tmp)
		}
		mm, err := s.rx.ReadBlocking(ctx, tmp[:want])
		if err != nil {
			break
		}
		out = append(out, tmp[:mm]...)
	}
	return out
}

func drain(ch *wk2132.Channel) {
	var buf [recvChunk]byte
	for {
		n, err := ch.TryRead(buf[:])
		if n == 0 || err != nil {
			return
		}
	}
}

/*** Context dump ***/

func printContext(gen func(int) byte, absOffset int, gotChunk []byte, rel int, radius int) {
	start := absOffset - radius
	if start < 0 {
		start = 0
	}
	end := absOffset + radius + 1
	expLen := end - start

	exp := make([]byte, expLen)
	for i := range exp {
		exp[i] = gen(start + i)
	}

	// Actual bytes aligned to the same window; zero where not yet read.
	act := make([]byte, expLen)
	base := absOffset - rel
	for i := range act {
		if idx := start + i - base; idx >= 0 && idx < len(gotChunk) {
			act[i] = gotChunk[idx]
		}
	}

	println("Context (hex): bytes", start, "to", start+expLen-1)
	print(" exp: ")
	printHex(exp, -1)
	print(" act: ")
	printHex(act, absOffset-start)
}

func printHex(b []byte, pivot int) {
	for i := 0; i < len(b); i++ {
		if i == pivot {
			print("[")
		} else {
			print(" ")
		}
		print(byteToHex(b[i]))
		if i == pivot {
			print("]")
		}
	}
	println("")
}

func printFollowing(mismatchOffset int, following []byte) {
	println("Following bytes actually received after mismatch (next", len(following), "bytes):")
	if len(following) == 0 {
		println(" <none>")
		return
	}
	base := mismatchOffset + 1
	for i := 0; i < len(following); i += 16 {
		end := i + 16
		if end > len(following) {
			end = len(following)
		}
		print("  +", base+i, ":")
		for j := i; j < end; j++ {
			print(" ", byteToHex(following[j]))
		}
		println("")
	}
}

/*** Utilities ***/

func byteToHex(v byte) string {
	const hexdigits = "0123456789ABCDEF"
	return string([]byte{hexdigits[v>>4], hexdigits[v&0xF]})
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for ; v > 0; v /= 10 {
		i--
		b[i] = byte('0' + v%10)
	}
	return string(b[i:])
}
