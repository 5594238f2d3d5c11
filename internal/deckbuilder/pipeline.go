// Package deckbuilder assembles a Commander deck: it plans the mana base
// and slots, asks a generative model for the spells, validates the answer
// and resolves every card against the card database.
package deckbuilder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramonehamilton/commander-craft/internal/cards/scryfall"
	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/events"
	"github.com/ramonehamilton/commander-craft/internal/llm"
	"github.com/ramonehamilton/commander-craft/internal/metrics"
)

const tracerName = "github.com/ramonehamilton/commander-craft/internal/deckbuilder"

// CommanderResolver finds a commander card by name.
type CommanderResolver interface {
	ResolveCommander(ctx context.Context, name string) (*scryfall.Card, error)
}

// DeckStore persists generated decks.
type DeckStore interface {
	SaveDeck(ctx context.Context, deck *commander.Deck, provider string) error
}

// Request is one deck generation request.
type Request struct {
	Commander     string   `json:"commander"`
	Partner       string   `json:"partner,omitempty"`
	ColorIdentity *string  `json:"colorIdentity,omitempty"`
	Budget        float64  `json:"budget"`
	Mechanics     []string `json:"mechanics,omitempty"`
	OwnedCards    []string `json:"ownedCards,omitempty"`
	TargetLands   *float64 `json:"targetLands,omitempty"`
}

// Result is a generated deck with the plan it was built from.
type Result struct {
	RequestID string             `json:"requestId"`
	Deck      *commander.Deck    `json:"deck"`
	Plan      commander.DeckPlan `json:"plan"`
	Stats     commander.Stats    `json:"stats"`
	Provider  string             `json:"provider"`
	Duration  time.Duration      `json:"duration"`
	Report    Report             `json:"report"`
}

// PlanConfig holds the tunables that may change at runtime.
type PlanConfig struct {
	Lands      commander.LandConfig
	Categories commander.CategoryConfig
}

// Pipeline runs generation requests.
type Pipeline struct {
	resolver     CommanderResolver
	requester    *llm.Requester
	materializer *Materializer
	store        DeckStore
	dispatcher   *events.EventDispatcher
	metrics      *metrics.GenerationMetrics
	tracer       trace.Tracer
	logger       *slog.Logger

	mu  sync.RWMutex
	cfg PlanConfig
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore saves every generated deck.
func WithStore(s DeckStore) Option { return func(p *Pipeline) { p.store = s } }

// WithDispatcher publishes progress events.
func WithDispatcher(d *events.EventDispatcher) Option { return func(p *Pipeline) { p.dispatcher = d } }

// WithMetrics records generation metrics.
func WithMetrics(m *metrics.GenerationMetrics) Option { return func(p *Pipeline) { p.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option { return func(p *Pipeline) { p.tracer = t } }

// NewPipeline creates a Pipeline.
func NewPipeline(resolver CommanderResolver, requester *llm.Requester, materializer *Materializer, cfg PlanConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:     resolver,
		requester:    requester,
		materializer: materializer,
		cfg:          cfg,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewGenerationMetrics()
	}
	p.logger = p.logger.With("component", "deckbuilder")
	return p
}

// UpdateConfig swaps the land and category tunables for later requests.
func (p *Pipeline) UpdateConfig(cfg PlanConfig) {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
}

// Config returns the current tunables.
func (p *Pipeline) Config() PlanConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Metrics returns the generation metrics.
func (p *Pipeline) Metrics() *metrics.GenerationMetrics { return p.metrics }

// Provider returns the name of the generative provider.
func (p *Pipeline) Provider() string { return p.requester.Provider().Name() }

// run carries the per-request state through the pipeline.
type run struct {
	p     *Pipeline
	id    string
	state State
	log   *slog.Logger
}

// enter records a transition: a progress event, a log line and a span.
func (r *run) enter(ctx context.Context, s State, msg string) (context.Context, trace.Span) {
	r.state = s
	step := 0
	for i, st := range orderedStates {
		if st == s {
			step = i + 1
		}
	}
	r.log.Debug("state", "state", s)
	r.p.dispatcher.Dispatch(events.NewTypedEvent(events.TypeGenerationProgress, events.GenerationProgressEvent{
		RequestID: r.id,
		State:     string(s),
		Step:      step,
		StepCount: len(orderedStates),
		Message:   msg,
	}, ctx))
	return r.p.tracer.Start(ctx, "deckbuilder."+strings.ToLower(string(s)))
}

// fail wraps err with the current state and a code, and reports it.
func (r *run) fail(ctx context.Context, span trace.Span, err error) error {
	code := classify(err)
	if ctx.Err() != nil {
		code = CodeCancelled
		err = ctx.Err()
	}
	pe := &Error{Code: code, State: r.state, Err: err}

	span.RecordError(err)
	span.SetStatus(codes.Error, string(code))
	r.p.metrics.RecordFailed(string(code))
	if code == CodeCancelled {
		r.log.Info("generation cancelled", "state", r.state)
	} else {
		r.log.Warn("generation failed", "state", r.state, "code", code, "error", err)
	}
	r.p.dispatcher.Dispatch(events.NewTypedEvent(events.TypeGenerationFailed, events.GenerationFailedEvent{
		RequestID: r.id,
		State:     string(r.state),
		Code:      string(code),
		Error:     err.Error(),
	}, context.WithoutCancel(ctx)))
	return pe
}

// Generate runs one request through every state. Any error is an *Error;
// partial results are discarded.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	id := uuid.NewString()
	r := &run{p: p, id: id, log: p.logger.With("request_id", id)}
	cfg := p.Config()

	p.metrics.RecordStarted()
	ctx, root := p.tracer.Start(ctx, "deckbuilder.generate",
		trace.WithAttributes(attribute.String("request.id", id), attribute.String("commander", req.Commander)))
	defer root.End()

	// START
	sctx, span := r.enter(ctx, StateStart, "validating request")
	commanders, ci, err := p.resolveRequest(sctx, req)
	span.End()
	if err != nil {
		return nil, r.fail(ctx, root, err)
	}
	root.SetAttributes(attribute.String("color_identity", ci.String()))

	// PLAN_LANDS
	_, span = r.enter(ctx, StatePlanLands, "planning the mana base")
	landPlan := commander.PlanLands(req.TargetLands, ci, cfg.Lands)
	span.SetAttributes(attribute.Int("lands.total", landPlan.Total), attribute.Int("lands.non_basic", landPlan.NonBasic))
	span.End()

	// PLAN_DECK
	_, span = r.enter(ctx, StatePlanDeck, "planning deck slots")
	plan, err := commander.PlanDeck(commanders, ci, landPlan, cfg.Categories)
	span.End()
	if err != nil {
		return nil, r.fail(ctx, root, &UserInputError{Field: "commander", Reason: err.Error()})
	}
	if plan.Scaled {
		r.log.Warn("category minimums exceed non-land slots, targets scaled down",
			"non_land_slots", plan.NonLandSlots)
	}
	if plan.MidpointOverflow {
		r.log.Debug("category midpoints exceed non-land slots", "non_land_slots", plan.NonLandSlots)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, root, err)
	}

	// REQUEST_SPELLS
	rctx, span := r.enter(ctx, StateRequestSpells, fmt.Sprintf("asking %s for %d cards", p.Provider(), plan.NonLandSlots))
	stageStart := time.Now()
	raw, err := p.requester.RequestSpellNames(rctx, plan, llm.RequestContext{
		Budget:     req.Budget,
		Currency:   p.materializer.cfg.Currency,
		Mechanics:  req.Mechanics,
		OwnedCards: req.OwnedCards,
	})
	p.metrics.RecordStage(metrics.StageRequestSpells, time.Since(stageStart))
	if err != nil {
		span.End()
		return nil, r.fail(ctx, root, err)
	}
	span.SetAttributes(attribute.Int("spells.raw", len(raw)))
	span.End()

	// SANITIZE
	_, span = r.enter(ctx, StateSanitize, "validating card list")
	spells, err := commander.Sanitize(raw, plan.NonLandSlots, commanders...)
	span.End()
	if err != nil {
		return nil, r.fail(ctx, root, err)
	}

	// MATERIALIZE
	mctx, span := r.enter(ctx, StateMaterialize, "resolving cards")
	stageStart = time.Now()
	deck, report, err := p.materializer.Materialize(mctx, Input{
		Commanders:    commanders,
		ColorIdentity: ci,
		Spells:        spells,
		Lands:         landPlan,
		Budget:        req.Budget,
	})
	p.metrics.RecordStage(metrics.StageMaterialize, time.Since(stageStart))
	span.End()
	if err != nil {
		return nil, r.fail(ctx, root, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, root, err)
	}

	// DONE
	r.state = StateDone
	deck.ID = id
	res := &Result{
		RequestID: id,
		Deck:      deck,
		Plan:      plan,
		Stats:     deck.ComputeStats(commander.NewNameSet(req.OwnedCards...)),
		Provider:  p.Provider(),
		Duration:  time.Since(start),
		Report:    report,
	}

	if p.store != nil {
		if err := p.store.SaveDeck(context.WithoutCancel(ctx), deck, res.Provider); err != nil {
			r.log.Warn("failed to save generated deck", "error", err)
		}
	}

	p.metrics.RecordStage(metrics.StageEndToEnd, res.Duration)
	p.metrics.RecordCompleted(report.Lookups, report.Missing, report.LandFallback)
	r.log.Info("deck generated",
		"commanders", deck.CommanderNames(),
		"cards", deck.TotalCards(),
		"warnings", len(deck.Warnings),
		"spend", deck.TotalSpend,
		"duration", res.Duration.Round(time.Millisecond))
	p.dispatcher.Dispatch(events.NewTypedEvent(events.TypeGenerationCompleted, events.GenerationCompletedEvent{
		RequestID:  id,
		DeckID:     deck.ID,
		Commanders: deck.CommanderNames(),
		TotalCards: deck.TotalCards(),
		Warnings:   len(deck.Warnings),
		DurationMS: res.Duration.Milliseconds(),
	}, ctx))
	return res, nil
}

// resolveRequest validates the request and settles the commander names and
// color identity. Without an explicit identity the commanders are looked
// up and their identities combined.
func (p *Pipeline) resolveRequest(ctx context.Context, req Request) ([]string, commander.ColorIdentity, error) {
	name := commander.NormalizeName(req.Commander)
	if name == "" {
		return nil, "", &UserInputError{Field: "commander", Reason: "is required"}
	}
	if req.Budget < 0 {
		return nil, "", &UserInputError{Field: "budget", Reason: "must not be negative"}
	}
	if len(req.Mechanics) > commander.MaxMechanics {
		return nil, "", &UserInputError{Field: "mechanics", Reason: fmt.Sprintf("at most %d themes are allowed", commander.MaxMechanics)}
	}

	names := []string{name}
	if partner := commander.NormalizeName(req.Partner); partner != "" {
		if commander.NameKey(partner) == commander.NameKey(name) {
			return nil, "", &UserInputError{Field: "partner", Reason: "must differ from the commander"}
		}
		names = append(names, partner)
	}

	if req.ColorIdentity != nil {
		ci, err := ParseIdentity(*req.ColorIdentity)
		if err != nil {
			return nil, "", &UserInputError{Field: "colorIdentity", Reason: err.Error()}
		}
		return names, ci, nil
	}

	if p.resolver == nil {
		return nil, "", &UserInputError{Field: "colorIdentity", Reason: "is required"}
	}
	var ci commander.ColorIdentity
	for i, n := range names {
		card, err := p.resolver.ResolveCommander(ctx, n)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			if errors.Is(err, scryfall.ErrNoCommander) || scryfall.IsNotFound(err) {
				return nil, "", &UserInputError{Field: "commander", Reason: fmt.Sprintf("unknown commander %q", n)}
			}
			return nil, "", fmt.Errorf("resolve commander %q: %w", n, err)
		}
		names[i] = commander.NormalizeName(card.Name)
		ci = ci.Union(commander.FromSymbols(card.ColorIdentity))
	}
	return names, ci, nil
}

// ParseIdentity parses a request identity, accepting "C" or "colorless"
// for the empty identity.
func ParseIdentity(s string) (commander.ColorIdentity, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "c", "colorless":
		return "", nil
	}
	return commander.ParseColorIdentity(s)
}
