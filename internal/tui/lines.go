package tui

import (
	"strings"
	"sync"
)

// LineBuffer collects output written by the engine so the monitor can show
// it. It keeps the newest limit lines.
type LineBuffer struct {
	mu      sync.Mutex
	lines   []string
	partial string
	max     int
	version int
}

// NewLineBuffer creates a buffer holding up to limit lines.
func NewLineBuffer(limit int) *LineBuffer {
	if limit <= 0 {
		limit = 500
	}
	return &LineBuffer{max: limit}
}

// Write implements io.Writer.
func (b *LineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := b.partial + string(p)
	parts := strings.Split(text, "\n")
	b.partial = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		b.lines = append(b.lines, strings.TrimRight(line, "\r"))
	}
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = append([]string(nil), b.lines[over:]...)
	}
	b.version++
	return len(p), nil
}

// Lines returns a copy of the complete lines and a version that changes on
// every write.
func (b *LineBuffer) Lines() ([]string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out, b.version
}
