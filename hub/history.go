package hub

import "github.com/4NDR3S-01/ExposIA/domain"

const DefaultHistorySize = 100

// History is a fixed-capacity ring of notification records. Appending to a
// full ring overwrites the oldest record.
type History struct {
	buf   []domain.NotificationRecord
	head  int // oldest record
	count int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]domain.NotificationRecord, capacity)}
}

func (h *History) Append(rec domain.NotificationRecord) {
	tail := (h.head + h.count) % len(h.buf)
	h.buf[tail] = rec
	if h.count < len(h.buf) {
		h.count++
		return
	}
	h.head = (h.head + 1) % len(h.buf)
}

// Recent returns up to n of the newest records, newest last.
func (h *History) Recent(n int) []domain.NotificationRecord {
	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return []domain.NotificationRecord{}
	}
	out := make([]domain.NotificationRecord, n)
	start := h.count - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.head+start+i)%len(h.buf)]
	}
	return out
}

func (h *History) All() []domain.NotificationRecord {
	return h.Recent(h.count)
}

func (h *History) Len() int { return h.count }
