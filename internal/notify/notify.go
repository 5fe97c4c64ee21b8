package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Level string

const (
	Loading Level = "loading"
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
)

// Toast is a user visible notification. A pending toast and its outcome share
// the same ID so a UI can replace one with the other.
type Toast struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

type Notifier interface {
	Notify(Toast)
}

func NewID() string {
	return uuid.NewString()
}

// Discard drops every toast.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Toast) {}

// LogNotifier writes toasts to logrus. Used by the CLI.
type LogNotifier struct {
	Entry *log.Entry
}

func (n LogNotifier) Notify(t Toast) {
	e := n.Entry
	if e == nil {
		e = log.NewEntry(log.StandardLogger())
	}
	e = e.WithField("toast", t.ID)
	msg := t.Title
	if t.Message != "" {
		msg += ": " + t.Message
	}
	switch t.Level {
	case Error:
		e.Error(msg)
	case Loading:
		e.Debug(msg)
	default:
		e.Info(msg)
	}
}

// Hub keeps the most recent toasts and fans them out to subscribers.
// Slow subscribers miss toasts instead of blocking publishers.
type Hub struct {
	mu     sync.Mutex
	recent []Toast
	limit  int
	subs   map[chan Toast]struct{}
}

func NewHub(limit int) *Hub {
	if limit <= 0 {
		limit = 50
	}
	return &Hub{limit: limit, subs: map[chan Toast]struct{}{}}
}

func (h *Hub) Notify(t Toast) {
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.Time.IsZero() {
		t.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	replaced := false
	for i := range h.recent {
		if h.recent[i].ID == t.ID {
			h.recent[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		h.recent = append(h.recent, t)
		if len(h.recent) > h.limit {
			h.recent = append([]Toast(nil), h.recent[len(h.recent)-h.limit:]...)
		}
	}

	for ch := range h.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

// Recent returns the latest state of each retained toast, oldest first.
func (h *Hub) Recent() []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Toast(nil), h.recent...)
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel.
func (h *Hub) Subscribe() (<-chan Toast, func()) {
	_, ch, unsubscribe := h.Follow()
	return ch, unsubscribe
}

// Follow is Subscribe plus the retained toasts, taken under the same lock:
// a toast is either in the snapshot or delivered on the channel, never both.
func (h *Hub) Follow() ([]Toast, <-chan Toast, func()) {
	ch := make(chan Toast, 16)
	h.mu.Lock()
	recent := append([]Toast(nil), h.recent...)
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return recent, ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
