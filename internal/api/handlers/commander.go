package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/ramonehamilton/commander-craft/internal/api/response"
	"github.com/ramonehamilton/commander-craft/internal/cards/scryfall"
	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/deckbuilder"
)

const (
	minSearchLength    = 2
	searchResultsLimit = 20
)

// CommanderSource finds commander cards.
type CommanderSource interface {
	RandomCommander(ctx context.Context, ci commander.ColorIdentity) (*scryfall.Card, error)
	SearchCommanders(ctx context.Context, term string, limit int) ([]scryfall.Card, error)
}

// CommanderHandler handles commander lookups and plan previews.
type CommanderHandler struct {
	source     CommanderSource
	currency   string
	landConfig func() commander.LandConfig
}

// NewCommanderHandler creates a new CommanderHandler. landConfig is read on
// every plan preview so configuration reloads apply.
func NewCommanderHandler(source CommanderSource, currency string, landConfig func() commander.LandConfig) *CommanderHandler {
	if landConfig == nil {
		landConfig = commander.DefaultLandConfig
	}
	return &CommanderHandler{source: source, currency: currency, landConfig: landConfig}
}

// RandomCommander returns a random legal commander, optionally inside the
// identity given by ci.
func (h *CommanderHandler) RandomCommander(w http.ResponseWriter, r *http.Request) {
	ci, err := deckbuilder.ParseIdentity(r.URL.Query().Get("ci"))
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	card, err := h.source.RandomCommander(r.Context(), ci)
	switch {
	case errors.Is(err, scryfall.ErrNoCommander):
		response.NotFound(w, err)
		return
	case err != nil:
		response.BadGateway(w, err)
		return
	}
	response.Success(w, card.ToRecord(h.currency))
}

// CommanderMatch is one search result. Name is the English name to
// generate with; Display is the name as printed in Lang.
type CommanderMatch struct {
	commander.CardRecord
	OracleID string `json:"oracleId,omitempty"`
	Display  string `json:"display"`
	Lang     string `json:"lang,omitempty"`
}

// SearchCommanders returns commanders whose English or translated names
// contain q.
func (h *CommanderHandler) SearchCommanders(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < minSearchLength {
		response.BadRequest(w, fmt.Errorf("query must be at least %d characters", minSearchLength))
		return
	}

	cards, err := h.source.SearchCommanders(r.Context(), q, searchResultsLimit)
	if err != nil {
		response.BadGateway(w, err)
		return
	}
	response.Success(w, lo.Map(cards, func(c scryfall.Card, _ int) CommanderMatch {
		return CommanderMatch{
			CardRecord: c.ToRecord(h.currency),
			OracleID:   c.OracleID,
			Display:    c.DisplayName(),
			Lang:       c.Lang,
		}
	}))
}

// PlanLands previews the land plan for ci and an optional lands count.
func (h *CommanderHandler) PlanLands(w http.ResponseWriter, r *http.Request) {
	ci, err := deckbuilder.ParseIdentity(r.URL.Query().Get("ci"))
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	var desired *float64
	if v := r.URL.Query().Get("lands"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			response.BadRequest(w, fmt.Errorf("invalid lands %q", v))
			return
		}
		desired = &n
	}

	response.Success(w, commander.PlanLands(desired, ci, h.landConfig()))
}

// Mechanics lists the theme tags accepted by the generate endpoint.
func (h *CommanderHandler) Mechanics(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, commander.MechanicTags())
}
