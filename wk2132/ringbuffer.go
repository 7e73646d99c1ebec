package wk2132

// rxCacheSize is the capacity of the local receive cache. One slot is kept
// free to tell full from empty, so it holds rxCacheSize-1 bytes.
const rxCacheSize = 32

// ringBuffer is the local receive cache: bytes already pulled off the bus
// but not yet consumed. head is the write index, tail the read index; both
// wrap modulo rxCacheSize.
type ringBuffer struct {
	buf        [rxCacheSize]byte
	head, tail uint8
}

// Size returns the number of bytes the buffer can hold.
func (rb *ringBuffer) Size() int { return rxCacheSize - 1 }

// Used returns how many bytes are buffered.
func (rb *ringBuffer) Used() int {
	return (rxCacheSize + int(rb.head) - int(rb.tail)) % rxCacheSize
}

// Free returns the remaining space.
func (rb *ringBuffer) Free() int { return rb.Size() - rb.Used() }

// Put stores a byte. If the buffer is already full it returns false and the
// byte is not stored.
func (rb *ringBuffer) Put(val byte) bool {
	next := (rb.head + 1) % rxCacheSize
	if next == rb.tail {
		return false
	}
	rb.buf[rb.head] = val
	rb.head = next
	return true
}

// Peek returns the oldest byte without removing it.
func (rb *ringBuffer) Peek() (byte, bool) {
	if rb.head == rb.tail {
		return 0, false
	}
	return rb.buf[rb.tail], true
}

// Get removes and returns the oldest byte. If the buffer is empty, it
// returns (0, false).
func (rb *ringBuffer) Get() (byte, bool) {
	v, ok := rb.Peek()
	if ok {
		rb.tail = (rb.tail + 1) % rxCacheSize
	}
	return v, ok
}

// Clear resets the head and tail indices.
func (rb *ringBuffer) Clear() {
	rb.head = 0
	rb.tail = 0
}
