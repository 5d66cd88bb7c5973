package attendance

import (
	"sync"
	"time"
)

// TimestampFormat is how capture times are shown to users.
const TimestampFormat = time.DateTime

// Record is the most recent successful capture as shown by the web ui.
type Record struct {
	// base name of the image inside the output directory
	Path      string
	Timestamp time.Time
	// nil when the image could not be decoded
	Content *string
}

// Latest holds the current Record, readers never see a partially built one.
type Latest struct {
	mu     sync.RWMutex
	record *Record
}

// Get returns the current record, ok is false until the first successful cycle.
func (l *Latest) Get() (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.record == nil {
		return Record{}, false
	}
	return *l.record, true
}

func (l *Latest) Set(record Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record = &record
}
