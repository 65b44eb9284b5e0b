// Package stats keeps running statistics over explicit predictions. Live
// typing probes are deliberately excluded so speculative, frequently
// discarded calls do not skew the numbers.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/T10nnyy/sentiment-AI/internal/models"
)

// DefaultWindowSize bounds the latency window when none is configured.
const DefaultWindowSize = 100

// Aggregator stores recent latency samples in a FIFO-bounded window and a
// monotonic total of recorded predictions.
type Aggregator struct {
	mu      sync.RWMutex
	samples []time.Duration
	maxSize int
	total   uint64
}

// NewAggregator creates an aggregator holding up to maxSize samples.
func NewAggregator(maxSize int) *Aggregator {
	if maxSize <= 0 {
		maxSize = DefaultWindowSize
	}
	return &Aggregator{maxSize: maxSize}
}

// Record adds one completed prediction's latency.
func (a *Aggregator) Record(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.samples = append(a.samples, d)
	if len(a.samples) > a.maxSize {
		// Drop oldest sample to bound memory.
		copy(a.samples[0:], a.samples[1:])
		a.samples = a.samples[:a.maxSize]
	}
}

// Total returns the monotonic prediction count.
func (a *Aggregator) Total() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.total
}

// Average returns the arithmetic mean of the window and whether the
// window holds any samples.
func (a *Aggregator) Average() (time.Duration, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.samples) == 0 {
		return 0, false
	}
	var sum time.Duration
	for _, s := range a.samples {
		sum += s
	}
	return sum / time.Duration(len(a.samples)), true
}

// Percentile returns the percentile (0-100) latency of the window, zero
// when empty.
func (a *Aggregator) Percentile(p float64) time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), a.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	index := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[index]
}

// Snapshot returns a point-in-time view of the statistics.
func (a *Aggregator) Snapshot() models.Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := models.Stats{
		TotalPredictions: a.total,
		WindowSize:       len(a.samples),
	}
	if len(a.samples) > 0 {
		var sum time.Duration
		for _, s := range a.samples {
			sum += s
		}
		snap.AverageLatency = sum / time.Duration(len(a.samples))
	}
	return snap
}
