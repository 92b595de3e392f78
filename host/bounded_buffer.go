package host

import (
	"bytes"
	"sync"
)

// defaultStderrLimit bounds how much guest stderr an instance keeps for
// AbortError.Stderr.
const defaultStderrLimit = 8 * 1024

// boundedBuffer is an io.Writer that keeps at most limit bytes and drops the
// rest. A panicking Go guest writes its message to stderr right before it
// exits, so the head of the stream is the useful part.
type boundedBuffer struct {
	mu        sync.Mutex
	buffer    bytes.Buffer
	limit     int
	truncated bool
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

// Write implements io.Writer. It never reports a short write.
func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - b.buffer.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.truncated = true
		b.buffer.Write(p[:remaining])
		return len(p), nil
	}
	return b.buffer.Write(p)
}

// String returns what was kept, marking a truncated stream.
func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buffer.String() + "...(truncated)"
	}
	return b.buffer.String()
}
