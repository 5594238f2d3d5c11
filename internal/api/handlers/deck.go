package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/ramonehamilton/commander-craft/internal/api/response"
	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/deckbuilder"
	"github.com/ramonehamilton/commander-craft/internal/deckexport"
	"github.com/ramonehamilton/commander-craft/internal/events"
	"github.com/ramonehamilton/commander-craft/internal/storage"
)

const (
	maxRequestBody   = 1 << 20
	defaultListLimit = 20
	maxListLimit     = 100
)

// Generator runs a deck generation request.
type Generator interface {
	Generate(ctx context.Context, req deckbuilder.Request) (*deckbuilder.Result, error)
}

// DeckStore is the deck history used by the listing endpoints.
type DeckStore interface {
	GetDeck(ctx context.Context, id string) (*commander.Deck, error)
	ListDecks(ctx context.Context, limit int) ([]storage.DeckSummary, error)
	DeleteDeck(ctx context.Context, id string) error
}

// Popularity reports how many community decks each commander leads.
type Popularity interface {
	CommanderDeckCounts(ctx context.Context, names []string) map[string]int
}

// popularityTimeout bounds the deck count lookups after a generation.
const popularityTimeout = 5 * time.Second

// DeckHandlerOptions configures a DeckHandler.
type DeckHandlerOptions struct {
	// Debug adds the underlying error text to generation failures.
	Debug      bool
	Dispatcher *events.EventDispatcher
	Popularity Popularity // optional
	Logger     *slog.Logger
}

// DeckHandler handles deck generation and history requests.
type DeckHandler struct {
	generator  Generator
	store      DeckStore
	debug      bool
	dispatcher *events.EventDispatcher
	popularity Popularity
	logger     *slog.Logger
}

// NewDeckHandler creates a new DeckHandler. store may be nil, in which case
// the history endpoints answer 503.
func NewDeckHandler(generator Generator, store DeckStore, opts DeckHandlerOptions) *DeckHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckHandler{
		generator:  generator,
		store:      store,
		debug:      opts.Debug,
		dispatcher: opts.Dispatcher,
		popularity: opts.Popularity,
		logger:     logger.With("component", "api"),
	}
}

// GenerationMetadata describes how a deck was produced.
type GenerationMetadata struct {
	RequestID    string             `json:"requestId"`
	Provider     string             `json:"provider"`
	DurationMS   int64              `json:"durationMs"`
	Plan         commander.DeckPlan `json:"plan"`
	Stats        commander.Stats    `json:"stats"`
	CardLookups  int                `json:"cardLookups"`
	MissingCards int                `json:"missingCards"`
	LandFallback bool               `json:"landFallback"`
	// EDHREC deck count per commander; commanders without a page are absent.
	CommanderDeckCounts map[string]int `json:"commanderDeckCounts,omitempty"`
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	Success  bool               `json:"success"`
	Deck     *commander.Deck    `json:"deck"`
	Metadata GenerationMetadata `json:"metadata"`
}

// GenerationErrorResponse is the body of a failed generation. Error holds
// the failure code, or the validation message for user input errors.
type GenerationErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// StatusForCode maps a generation failure code to an HTTP status.
func StatusForCode(code deckbuilder.Code) int {
	switch code {
	case deckbuilder.CodeUserInput:
		return http.StatusBadRequest
	case deckbuilder.CodeConfiguration, deckbuilder.CodeInternal:
		return http.StatusInternalServerError
	case deckbuilder.CodeCancelled:
		return http.StatusServiceUnavailable
	case deckbuilder.CodeGenerativeRequest,
		deckbuilder.CodeEmptyResponse,
		deckbuilder.CodeMalformedResponse,
		deckbuilder.CodeCountMismatch,
		deckbuilder.CodeLandResolutionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GenerateDeck runs the pipeline for the posted request.
func (h *DeckHandler) GenerateDeck(w http.ResponseWriter, r *http.Request) {
	var req deckbuilder.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		response.JSON(w, http.StatusBadRequest, GenerationErrorResponse{
			Error: "invalid request body",
			Code:  string(deckbuilder.CodeUserInput),
		})
		return
	}

	res, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		h.writeGenerationError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, GenerateResponse{
		Success: true,
		Deck:    res.Deck,
		Metadata: GenerationMetadata{
			RequestID:    res.RequestID,
			Provider:     res.Provider,
			DurationMS:   res.Duration.Milliseconds(),
			Plan:         res.Plan,
			Stats:        res.Stats,
			CardLookups:  res.Report.Lookups,
			MissingCards: res.Report.Missing,
			LandFallback: res.Report.LandFallback,

			CommanderDeckCounts: h.deckCounts(r.Context(), res.Deck),
		},
	})
}

func (h *DeckHandler) deckCounts(ctx context.Context, deck *commander.Deck) map[string]int {
	if h.popularity == nil || deck == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, popularityTimeout)
	defer cancel()
	return h.popularity.CommanderDeckCounts(ctx, deck.CommanderNames())
}

func (h *DeckHandler) writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	code := deckbuilder.CodeOf(err)
	status := StatusForCode(code)
	body := GenerationErrorResponse{Error: string(code), Code: string(code)}

	switch code {
	case deckbuilder.CodeUserInput:
		var userErr *deckbuilder.UserInputError
		if errors.As(err, &userErr) {
			body.Error = userErr.Error()
		} else {
			body.Error = err.Error()
		}
	case deckbuilder.CodeCancelled:
		h.logger.Info("generation cancelled", "remote", r.RemoteAddr, "error", err)
	default:
		h.logger.Error("generation failed", "code", code, "error", err)
		if h.debug {
			body.Details = err.Error()
		}
	}
	response.JSON(w, status, body)
}

// ListDecks returns the most recent generated decks.
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.ServiceUnavailable(w, errors.New("deck history is disabled"))
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = lo.Clamp(n, 1, maxListLimit)
	}

	decks, err := h.store.ListDecks(r.Context(), limit)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Success(w, decks)
}

// GetDeck returns a single stored deck.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	deck, ok := h.loadDeck(w, r)
	if !ok {
		return
	}
	response.Success(w, deck)
}

// DeleteDeck removes a stored deck.
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	deck, ok := h.loadDeck(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteDeck(r.Context(), deck.ID); err != nil {
		response.InternalError(w, err)
		return
	}
	h.dispatcher.Dispatch(events.NewTypedEvent(events.TypeDeckDeleted, events.DeckDeletedEvent{DeckID: deck.ID}, r.Context()))
	response.NoContent(w)
}

// ExportDeck renders a stored deck as a downloadable file. The format query
// parameter selects text (default), json or moxfield; stats=true adds a
// summary block to text exports.
func (h *DeckHandler) ExportDeck(w http.ResponseWriter, r *http.Request) {
	format := deckexport.ExportFormat(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = deckexport.FormatText
	}
	if !lo.Contains(deckexport.Formats(), format) {
		response.BadRequest(w, fmt.Errorf("unsupported format %q, expected one of %v", format, deckexport.Formats()))
		return
	}

	deck, ok := h.loadDeck(w, r)
	if !ok {
		return
	}

	includeStats, _ := strconv.ParseBool(r.URL.Query().Get("stats"))
	out, err := deckexport.Export(deck, &deckexport.ExportOptions{Format: format, IncludeStats: includeStats})
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Download(w, out.ContentType, out.Filename, []byte(out.Content))
}

func (h *DeckHandler) loadDeck(w http.ResponseWriter, r *http.Request) (*commander.Deck, bool) {
	if h.store == nil {
		response.ServiceUnavailable(w, errors.New("deck history is disabled"))
		return nil, false
	}
	deckID := chi.URLParam(r, "deckID")
	if deckID == "" {
		response.BadRequest(w, errors.New("deck ID is required"))
		return nil, false
	}
	deck, err := h.store.GetDeck(r.Context(), deckID)
	if err != nil {
		response.InternalError(w, err)
		return nil, false
	}
	if deck == nil {
		response.NotFound(w, fmt.Errorf("deck %s not found", deckID))
		return nil, false
	}
	return deck, true
}
