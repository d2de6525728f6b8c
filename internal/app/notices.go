package app

import (
	"sync"
	"time"
)

// User facing notices.
const (
	NoticePositionUnavailable = "Could not get your position"
	NoticeInvalidInput        = "Inputs have to be positive numbers!"
	NoticeSaveFailed          = "Could not save your workouts"
	NoticeFinishEditing       = "Finish editing the current workout first"
)

// Notifier shows a message to the user.
type Notifier interface {
	Notify(message string)
}

// Notice is a queued message.
type Notice struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notices is a Notifier queueing messages until the client drains them.
type Notices struct {
	mu    sync.Mutex
	items []Notice
	now   func() time.Time
}

// NewNotices returns an empty queue.
func NewNotices() *Notices {
	return &Notices{now: func() time.Time { return time.Now().UTC() }}
}

func (n *Notices) Notify(message string) {
	n.mu.Lock()
	n.items = append(n.items, Notice{Message: message, At: n.now()})
	n.mu.Unlock()
}

// Drain returns and forgets the queued notices, oldest first.
func (n *Notices) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.items
	n.items = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}
