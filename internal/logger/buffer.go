package logger

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogEntry is one captured warning or error.
type LogEntry struct {
	Timestamp time.Time
	Level     zerolog.Level
	Message   string
}

// LogBuffer is a zerolog hook that counts events at warn level and above
// and keeps the most recent ones in a ring.
type LogBuffer struct {
	mu       sync.RWMutex
	entries  []LogEntry
	size     int
	writePos int
	count    int
	counts   map[zerolog.Level]int64
}

var (
	globalBuffer *LogBuffer
	bufferOnce   sync.Once
)

// GetBuffer returns the global log buffer instance
func GetBuffer() *LogBuffer {
	bufferOnce.Do(func() {
		globalBuffer = NewLogBuffer(100)
	})
	return globalBuffer
}

// NewLogBuffer creates a buffer keeping the last size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size < 1 {
		size = 1
	}
	return &LogBuffer{
		entries: make([]LogEntry, size),
		size:    size,
		counts:  make(map[zerolog.Level]int64),
	}
}

// Run implements zerolog.Hook.
func (b *LogBuffer) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	if level < zerolog.WarnLevel || level == zerolog.NoLevel {
		return
	}
	b.Add(LogEntry{Timestamp: time.Now(), Level: level, Message: message})
}

// Add records an entry.
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.writePos] = entry
	b.writePos = (b.writePos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	b.counts[entry.Level]++
}

// Recent returns up to limit entries, most recent first.
func (b *LogBuffer) Recent(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > b.count {
		limit = b.count
	}
	result := make([]LogEntry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (b.writePos - 1 - i + b.size) % b.size
		result = append(result, b.entries[idx])
	}
	return result
}

// Count returns how many events at level were seen, including those no
// longer held in the ring.
func (b *LogBuffer) Count(level zerolog.Level) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.counts[level]
}

// Reset drops all entries and counts.
func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.entries)
	b.writePos, b.count = 0, 0
	clear(b.counts)
}
