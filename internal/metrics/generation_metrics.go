package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pipeline stages timed by GenerationMetrics.
const (
	StageRequestSpells = "request_spells"
	StageMaterialize   = "materialize"
	StageEndToEnd      = "end_to_end"
)

// GenerationMetrics tracks deck generation latency and outcomes.
type GenerationMetrics struct {
	// Latency histograms (in milliseconds)
	RequestLatency     *Histogram
	MaterializeLatency *Histogram
	EndToEndLatency    *Histogram

	// Counters
	Requests      atomic.Uint64
	Completed     atomic.Uint64
	Failed        atomic.Uint64
	Cancelled     atomic.Uint64
	CardLookups   atomic.Uint64
	MissingCards  atomic.Uint64
	LandFallbacks atomic.Uint64

	failuresByCode map[string]uint64
	startTime      time.Time
	mu             sync.RWMutex
}

// NewGenerationMetrics creates a new metrics collector.
func NewGenerationMetrics() *GenerationMetrics {
	return &GenerationMetrics{
		RequestLatency:     NewHistogram(1000),
		MaterializeLatency: NewHistogram(1000),
		EndToEndLatency:    NewHistogram(1000),
		failuresByCode:     make(map[string]uint64),
		startTime:          time.Now(),
	}
}

// RecordStage records the duration of a pipeline stage. Unknown stages are
// ignored.
func (m *GenerationMetrics) RecordStage(stage string, d time.Duration) {
	switch stage {
	case StageRequestSpells:
		m.RequestLatency.Record(d)
	case StageMaterialize:
		m.MaterializeLatency.Record(d)
	case StageEndToEnd:
		m.EndToEndLatency.Record(d)
	}
}

// RecordStarted counts a generation request.
func (m *GenerationMetrics) RecordStarted() {
	m.Requests.Add(1)
}

// RecordCompleted counts a finished deck and its lookup figures.
func (m *GenerationMetrics) RecordCompleted(lookups, missing int, landFallback bool) {
	m.Completed.Add(1)
	m.CardLookups.Add(uint64(lookups))
	m.MissingCards.Add(uint64(missing))
	if landFallback {
		m.LandFallbacks.Add(1)
	}
}

// RecordFailed counts a failed generation by error code.
func (m *GenerationMetrics) RecordFailed(code string) {
	if code == "CANCELLED" {
		m.Cancelled.Add(1)
		return
	}
	m.Failed.Add(1)
	m.mu.Lock()
	m.failuresByCode[code]++
	m.mu.Unlock()
}

// GenerationStats contains the computed statistics from metrics.
type GenerationStats struct {
	RequestLatency     LatencyStats `json:"request_latency"`
	MaterializeLatency LatencyStats `json:"materialize_latency"`
	EndToEndLatency    LatencyStats `json:"end_to_end_latency"`

	Requests       uint64            `json:"requests"`
	Completed      uint64            `json:"completed"`
	Failed         uint64            `json:"failed"`
	Cancelled      uint64            `json:"cancelled"`
	FailuresByCode map[string]uint64 `json:"failures_by_code"`
	CardLookups    uint64            `json:"card_lookups"`
	MissingCards   uint64            `json:"missing_cards"`
	LandFallbacks  uint64            `json:"land_fallbacks"`
	SuccessRate    float64           `json:"success_rate"`      // percentage
	MissingRate    float64           `json:"missing_card_rate"` // percentage of lookups

	Uptime string `json:"uptime"`
}

// LatencyStats contains statistics for a latency histogram.
type LatencyStats struct {
	Mean  float64 `json:"mean"` // milliseconds
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// GetStats returns a snapshot of the current statistics.
func (m *GenerationMetrics) GetStats() *GenerationStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byCode := make(map[string]uint64, len(m.failuresByCode))
	for k, v := range m.failuresByCode {
		byCode[k] = v
	}

	requests := m.Requests.Load()
	completed := m.Completed.Load()
	lookups := m.CardLookups.Load()
	missing := m.MissingCards.Load()

	stats := &GenerationStats{
		RequestLatency:     m.RequestLatency.Summary(),
		MaterializeLatency: m.MaterializeLatency.Summary(),
		EndToEndLatency:    m.EndToEndLatency.Summary(),
		Requests:           requests,
		Completed:          completed,
		Failed:             m.Failed.Load(),
		Cancelled:          m.Cancelled.Load(),
		FailuresByCode:     byCode,
		CardLookups:        lookups,
		MissingCards:       missing,
		LandFallbacks:      m.LandFallbacks.Load(),
		Uptime:             time.Since(m.startTime).Round(time.Second).String(),
	}
	if requests > 0 {
		stats.SuccessRate = float64(completed) / float64(requests) * 100
	}
	if lookups > 0 {
		stats.MissingRate = float64(missing) / float64(lookups) * 100
	}
	return stats
}

// Reset clears all metrics.
func (m *GenerationMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RequestLatency.Reset()
	m.MaterializeLatency.Reset()
	m.EndToEndLatency.Reset()

	m.Requests.Store(0)
	m.Completed.Store(0)
	m.Failed.Store(0)
	m.Cancelled.Store(0)
	m.CardLookups.Store(0)
	m.MissingCards.Store(0)
	m.LandFallbacks.Store(0)
	m.failuresByCode = make(map[string]uint64)

	m.startTime = time.Now()
}
