package activity

import (
	"sync"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
)

// Границы емкости журнала
const (
	MinCapacity     = 50
	MaxCapacity     = 100
	DefaultCapacity = MaxCapacity
)

// Log ограниченный журнал последних операций, новые записи в начале.
// Это проекция над хранилищем, источник истины - хранилище.
type Log struct {
	mu       sync.RWMutex
	entries  []models.SyncLogEntry
	capacity int
}

// ClampCapacity приводит емкость к допустимому диапазону
func ClampCapacity(capacity int) int {
	switch {
	case capacity < MinCapacity:
		return MinCapacity
	case capacity > MaxCapacity:
		return MaxCapacity
	}
	return capacity
}

func NewLog(capacity int) *Log {
	capacity = ClampCapacity(capacity)
	return &Log{
		entries:  make([]models.SyncLogEntry, 0, capacity),
		capacity: capacity,
	}
}

// Append вставляет запись в начало. При переполнении вытесняется ровно одна
// самая старая запись.
func (l *Log) Append(entry models.SyncLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, models.SyncLogEntry{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = entry
}

// Recent копия первых n записей. n <= 0 или больше длины - все записи.
func (l *Log) Recent(n int) []models.SyncLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]models.SyncLogEntry, n)
	copy(out, l.entries[:n])
	return out
}

// Reset заменяет содержимое записями из хранилища (новые первыми)
func (l *Log) Reset(entries []models.SyncLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}
	l.entries = l.entries[:0]
	l.entries = append(l.entries, entries...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) Cap() int {
	return l.capacity
}
