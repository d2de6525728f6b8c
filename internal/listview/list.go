// Package listview is the in-memory rendered workout list served to clients.
package listview

import (
	"sync"

	"github.com/thanhtrancs/Mapty/internal/view"
)

// List is a view.ListSurface. Entries are stored newest first.
type List struct {
	mu      sync.RWMutex
	entries []view.Entry
	writes  int
}

// New returns an empty list.
func New() *List {
	return &List{}
}

func (l *List) Prepend(e view.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]view.Entry{copyEntry(e)}, l.entries...)
	l.writes++
}

// SetField rewrites one value of entry id. Unknown ids and fields are ignored.
func (l *List) SetField(id string, field view.Field, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return
	}
	if field == view.FieldTitle {
		l.entries[i].Title = value
		l.writes++
		return
	}
	for j := range l.entries[i].Details {
		if l.entries[i].Details[j].Field == field {
			l.entries[i].Details[j].Value = value
			l.writes++
			return
		}
	}
}

func (l *List) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(id); i >= 0 {
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		l.writes++
	}
}

func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.writes++
}

func (l *List) Rebuild(entries []view.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]view.Entry, 0, len(entries))
	for _, e := range entries {
		l.entries = append(l.entries, copyEntry(e))
	}
	l.writes++
}

// Entries returns a copy of the rendered entries, head first.
func (l *List) Entries() []view.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]view.Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, copyEntry(e))
	}
	return out
}

// Writes counts surface mutations since creation.
func (l *List) Writes() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.writes
}

func (l *List) index(id string) int {
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func copyEntry(e view.Entry) view.Entry {
	e.Details = append([]view.Detail(nil), e.Details...)
	return e
}
