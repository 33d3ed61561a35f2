// Package power keeps a bounded window of recent command readings and
// reports rolling statistics about their power at a capped rate.
package power

import (
	"sync"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
)

// DefaultCapacity is the default number of readings kept in a History.
const DefaultCapacity = 20

// History is a fixed-capacity FIFO of command events. Once full, each new
// event overwrites the oldest. Safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	buf      []logic.CommandEvent
	capacity int
	head     int // next write position
	count    int
}

// NewHistory creates a History holding at most capacity events.
// A capacity below 1 is raised to 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		buf:      make([]logic.CommandEvent, capacity),
		capacity: capacity,
	}
}

// Add appends an event, evicting the oldest one when at capacity.
func (h *History) Add(ev logic.CommandEvent) {
	h.mu.Lock()
	h.buf[h.head] = ev
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
	h.mu.Unlock()
}

// Len returns the number of events currently held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Capacity returns the maximum number of events held.
func (h *History) Capacity() int {
	return h.capacity
}

// Events returns a copy of the held events, oldest first.
func (h *History) Events() []logic.CommandEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latestLocked(h.count)
}

// Recent returns up to n of the newest events, oldest first.
func (h *History) Recent(n int) []logic.CommandEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latestLocked(n)
}

func (h *History) latestLocked(n int) []logic.CommandEvent {
	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return nil
	}
	result := make([]logic.CommandEvent, n)
	start := (h.head - n + h.capacity) % h.capacity
	for i := 0; i < n; i++ {
		result[i] = h.buf[(start+i)%h.capacity]
	}
	return result
}

// Stats is a point-in-time summary of the window.
type Stats struct {
	Average      float64
	Max          float64
	Min          float64
	Count        int
	Capacity     int
	RecentLabels []logic.Label
}

// recentLabelCount is how many trailing labels Stats reports.
const recentLabelCount = 5

// Stats computes average, max and min over the window. All three are 0.0
// when the window is empty.
func (h *History) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{Count: h.count, Capacity: h.capacity}
	if h.count == 0 {
		return s
	}

	events := h.latestLocked(h.count)
	sum := 0.0
	s.Max = events[0].Power
	s.Min = events[0].Power
	for _, ev := range events {
		sum += ev.Power
		if ev.Power > s.Max {
			s.Max = ev.Power
		}
		if ev.Power < s.Min {
			s.Min = ev.Power
		}
	}
	s.Average = sum / float64(len(events))

	tail := events
	if len(tail) > recentLabelCount {
		tail = tail[len(tail)-recentLabelCount:]
	}
	for _, ev := range tail {
		s.RecentLabels = append(s.RecentLabels, ev.Label)
	}
	return s
}

// Average returns the mean power of the window, or 0.0 when empty.
func (h *History) Average() float64 {
	return h.Stats().Average
}

// Max returns the maximum power of the window, or 0.0 when empty.
func (h *History) Max() float64 {
	return h.Stats().Max
}

// Min returns the minimum power of the window, or 0.0 when empty.
func (h *History) Min() float64 {
	return h.Stats().Min
}
