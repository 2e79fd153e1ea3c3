package progress

import "sync"

type RingBuffer struct {
	mu      sync.RWMutex
	size    int
	records []Record
	index   int
	full    bool
}

func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		size:    size,
		records: make([]Record, size),
	}
}

func (rb *RingBuffer) Add(r Record) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.records[rb.index] = r
	rb.index = (rb.index + 1) % rb.size
	if rb.index == 0 {
		rb.full = true
	}
}

func (rb *RingBuffer) Snapshot() []Record {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if !rb.full {
		return append([]Record{}, rb.records[:rb.index]...)
	}

	out := make([]Record, 0, rb.size)
	out = append(out, rb.records[rb.index:]...)
	out = append(out, rb.records[:rb.index]...)
	return out
}

func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.records = make([]Record, rb.size)
	rb.index = 0
	rb.full = false
}
