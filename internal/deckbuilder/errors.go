package deckbuilder

import (
	"context"
	"errors"
	"fmt"

	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/llm"
)

// Code is a stable error identifier surfaced to API clients.
type Code string

// Error codes.
const (
	CodeUserInput            Code = "USER_INPUT"
	CodeConfiguration        Code = "CONFIGURATION_ERROR"
	CodeGenerativeRequest    Code = "GENERATIVE_REQUEST_FAILED"
	CodeEmptyResponse        Code = "EMPTY_RESPONSE"
	CodeMalformedResponse    Code = "MALFORMED_RESPONSE"
	CodeCountMismatch        Code = "COUNT_MISMATCH"
	CodeLandResolutionFailed Code = "LAND_RESOLUTION_FAILED"
	CodeCancelled            Code = "CANCELLED"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// State is a pipeline stage.
type State string

// Pipeline states, in order.
const (
	StateStart         State = "START"
	StatePlanLands     State = "PLAN_LANDS"
	StatePlanDeck      State = "PLAN_DECK"
	StateRequestSpells State = "REQUEST_SPELLS"
	StateSanitize      State = "SANITIZE"
	StateMaterialize   State = "MATERIALIZE"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

// orderedStates lists the working states for progress reporting.
var orderedStates = []State{StateStart, StatePlanLands, StatePlanDeck, StateRequestSpells, StateSanitize, StateMaterialize}

// Error is a pipeline failure tagged with the state it happened in.
type Error struct {
	Code  Code
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s during %s: %v", e.Code, e.State, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserInputError reports an invalid generation request.
type UserInputError struct {
	Field  string
	Reason string
}

func (e *UserInputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// LandResolutionError reports a failed non-basic land search.
type LandResolutionError struct {
	Err error
}

func (e *LandResolutionError) Error() string {
	return fmt.Sprintf("non-basic land resolution failed: %v", e.Err)
}

func (e *LandResolutionError) Unwrap() error { return e.Err }

// CodeOf returns the code of err, classifying untagged causes.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return classify(err)
}

func classify(err error) Code {
	var (
		userErr      *UserInputError
		cfgErr       *llm.ConfigError
		svcErr       *llm.GenerativeServiceError
		malformedErr *llm.MalformedResponseError
		countErr     *commander.CountMismatchError
		landErr      *LandResolutionError
	)
	// a provider timeout wraps context.DeadlineExceeded but is a failed
	// request, not a cancellation
	switch {
	case errors.As(err, &svcErr):
		return CodeGenerativeRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	case errors.As(err, &userErr):
		return CodeUserInput
	case errors.As(err, &cfgErr):
		return CodeConfiguration
	case errors.Is(err, llm.ErrEmptyResponse):
		return CodeEmptyResponse
	case errors.As(err, &malformedErr):
		return CodeMalformedResponse
	case errors.As(err, &countErr):
		return CodeCountMismatch
	case errors.As(err, &landErr):
		return CodeLandResolutionFailed
	default:
		return CodeInternal
	}
}
