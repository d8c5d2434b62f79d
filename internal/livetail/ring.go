package livetail

import "github.com/SteelMorgan/hostlog-checker/internal/domain"

// ring is a fixed-capacity FIFO that evicts its oldest element when full
type ring struct {
	buf  []domain.TypedEvent
	head int
	n    int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.TypedEvent, capacity)}
}

func (r *ring) len() int { return r.n }

// push appends ev and reports whether the oldest element was evicted
func (r *ring) push(ev domain.TypedEvent) bool {
	if r.n == len(r.buf) {
		r.buf[r.head] = ev
		r.head = (r.head + 1) % len(r.buf)
		return true
	}
	r.buf[(r.head+r.n)%len(r.buf)] = ev
	r.n++
	return false
}

func (r *ring) front() domain.TypedEvent {
	return r.buf[r.head]
}

func (r *ring) popFront() {
	r.buf[r.head] = domain.TypedEvent{}
	r.head = (r.head + 1) % len(r.buf)
	r.n--
}

func (r *ring) items() []domain.TypedEvent {
	out := make([]domain.TypedEvent, r.n)
	for i := range out {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}
