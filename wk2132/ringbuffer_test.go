package wk2132

import (
	"testing"

	"github.com/matryer/is"
)

func TestRingBuffer_FullDeclines(t *testing.T) {
	is := is.New(t)
	var rb ringBuffer
	is.Equal(rb.Size(), rxCacheSize-1)

	for i := 0; i < rb.Size(); i++ {
		is.True(rb.Put(byte(i)))
	}
	is.Equal(rb.Used(), rb.Size())
	is.Equal(rb.Free(), 0)
	is.True(!rb.Put(0xFF)) // full buffer must decline

	b, ok := rb.Peek()
	is.True(ok)
	is.Equal(b, byte(0)) // oldest byte kept
}

func TestRingBuffer_Wraps(t *testing.T) {
	is := is.New(t)
	var rb ringBuffer
	next := byte(0)
	want := byte(0)
	for round := 0; round < 5*rxCacheSize; round++ {
		is.True(rb.Put(next))
		is.True(rb.Put(next + 1))
		next += 2
		for i := 0; i < 2; i++ {
			b, ok := rb.Get()
			is.True(ok)
			is.Equal(b, want)
			want++
		}
	}
	is.Equal(rb.Used(), 0)
	_, ok := rb.Get()
	is.True(!ok)
}

func TestRingBuffer_Clear(t *testing.T) {
	is := is.New(t)
	var rb ringBuffer
	rb.Put('a')
	rb.Put('b')
	rb.Clear()
	is.Equal(rb.Used(), 0)
	_, ok := rb.Peek()
	is.True(!ok)
}
