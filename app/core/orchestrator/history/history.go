package history

import (
	"sync"
	"time"
)

// DefaultLimit bounds each user's conversation window.
const DefaultLimit = 50

// Entry is one half of a conversational exchange.
type Entry struct {
	Role    string
	Content string
	At      time.Time
}

// Log keeps a bounded per-user conversation history. Once a user's window
// is full the oldest entries are dropped, so memory stays flat for the
// life of the process.
type Log struct {
	mu    sync.Mutex
	limit int
	users map[string][]Entry
}

func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{
		limit: limit,
		users: map[string][]Entry{},
	}
}

func (l *Log) Append(userKey string, role string, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.users[userKey], Entry{
		Role:    role,
		Content: content,
		At:      time.Now(),
	})
	if len(entries) > l.limit {
		entries = entries[len(entries)-l.limit:]
	}
	l.users[userKey] = entries
}

// Recent returns up to n most recent entries for the user, oldest first.
func (l *Log) Recent(userKey string, n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.users[userKey]
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, n)
	copy(out, entries[len(entries)-n:])
	return out
}

func (l *Log) Len(userKey string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users[userKey])
}
