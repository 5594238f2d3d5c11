package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ramonehamilton/commander-craft/internal/api/response"
	"github.com/ramonehamilton/commander-craft/internal/cards/cardcache"
	"github.com/ramonehamilton/commander-craft/internal/metrics"
	"github.com/ramonehamilton/commander-craft/internal/version"
)

// StatusSource reports storage row counts.
type StatusSource interface {
	Counts(ctx context.Context) (decks, cachedCards int, err error)
}

// CacheStatsSource reports card cache counters.
type CacheStatsSource interface {
	Stats() cardcache.Stats
}

// SystemHandlerOptions wires the optional status sources.
type SystemHandlerOptions struct {
	Metrics  *metrics.GenerationMetrics
	Store    StatusSource
	Cache    CacheStatsSource
	Provider func() string
	Clients  func() int
}

// SystemHandler handles system-related API requests.
type SystemHandler struct {
	opts    SystemHandlerOptions
	started time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(opts SystemHandlerOptions) *SystemHandler {
	return &SystemHandler{opts: opts, started: time.Now()}
}

// MetricsResponse bundles generation and cache counters.
type MetricsResponse struct {
	Generation *metrics.GenerationStats `json:"generation,omitempty"`
	Cache      *cardcache.Stats         `json:"cache,omitempty"`
}

// GetMetrics returns generation latency and counter statistics.
func (h *SystemHandler) GetMetrics(w http.ResponseWriter, _ *http.Request) {
	var out MetricsResponse
	if h.opts.Metrics != nil {
		out.Generation = h.opts.Metrics.GetStats()
	}
	if h.opts.Cache != nil {
		st := h.opts.Cache.Stats()
		out.Cache = &st
	}
	response.Success(w, out)
}

// StatusResponse is the service status.
type StatusResponse struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	Provider         string  `json:"provider,omitempty"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
	StoredDecks      int     `json:"storedDecks"`
	CachedCards      int     `json:"cachedCards"`
	WebSocketClients int     `json:"websocketClients"`
	StorageError     string  `json:"storageError,omitempty"`
}

// GetStatus returns the service status. Storage failures degrade the
// status instead of failing the request.
func (h *SystemHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	out := StatusResponse{
		Status:        "ok",
		Version:       version.GetVersion(),
		UptimeSeconds: time.Since(h.started).Round(time.Second).Seconds(),
	}
	if h.opts.Provider != nil {
		out.Provider = h.opts.Provider()
	}
	if h.opts.Clients != nil {
		out.WebSocketClients = h.opts.Clients()
	}
	if h.opts.Store != nil {
		decks, cards, err := h.opts.Store.Counts(r.Context())
		if err != nil {
			out.Status = "degraded"
			out.StorageError = err.Error()
		} else {
			out.StoredDecks, out.CachedCards = decks, cards
		}
	}
	response.Success(w, out)
}
