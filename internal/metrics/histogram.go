package metrics

import (
	"math"
	"slices"
	"sync"
	"time"
)

// Histogram keeps the most recent latency samples in a ring buffer.
// Values are stored in milliseconds.
type Histogram struct {
	mu   sync.Mutex
	ring []float64
	next int
	full bool
}

// NewHistogram creates a histogram that remembers the last size samples.
func NewHistogram(size int) *Histogram {
	if size <= 0 {
		size = 1000
	}
	return &Histogram{ring: make([]float64, size)}
}

// Record adds a sample, overwriting the oldest one once the window is full.
func (h *Histogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring[h.next] = float64(d.Microseconds()) / 1000
	h.next++
	if h.next == len(h.ring) {
		h.next = 0
		h.full = true
	}
}

// Count returns the number of samples in the window.
func (h *Histogram) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.countLocked()
}

func (h *Histogram) countLocked() int {
	if h.full {
		return len(h.ring)
	}
	return h.next
}

// Reset drops every sample.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next = 0
	h.full = false
}

// Summary computes mean, extremes and percentiles over the window.
func (h *Histogram) Summary() LatencyStats {
	h.mu.Lock()
	sorted := slices.Clone(h.ring[:h.countLocked()])
	h.mu.Unlock()

	if len(sorted) == 0 {
		return LatencyStats{}
	}
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return LatencyStats{
		Mean:  sum / float64(len(sorted)),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
		P99:   percentile(sorted, 99),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// percentile interpolates linearly between the two nearest ranks of an
// ascending slice.
func percentile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lower, upper := int(math.Floor(rank)), int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
