package prompt

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	Preamble  = "Here is the content of my codebase files:\n\n"
	Separator = "\n\nQuery: "

	DefaultLimit = 256000
)

// ErrBudgetDeclined is returned when the user refuses to send an
// over-limit prompt.
var ErrBudgetDeclined = errors.New("aborted")

// Build lays out the final prompt. The corpus always precedes the query.
func Build(corpus, query string) string {
	return Preamble + corpus + Separator + query
}

// EstimateTokens is a coarse character-count heuristic, not a tokenizer.
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) (bool, error)

func (f ConfirmFunc) Confirm(question string) (bool, error) { return f(question) }

type State int

const (
	StateBuilt State = iota
	StateUnderLimit
	StateAwaitingConfirmation
	StateConfirmed
	StateDeclined
)

func (s State) String() string {
	switch s {
	case StateUnderLimit:
		return "under-limit"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateConfirmed:
		return "confirmed"
	case StateDeclined:
		return "declined"
	default:
		return "built"
	}
}

// Decision is the outcome of a budget check.
type Decision struct {
	Chars    int
	Tokens   int
	Limit    int
	State    State
	Question string
}

// Proceed reports whether the prompt may be sent.
func (d Decision) Proceed() bool {
	return d.State == StateUnderLimit || d.State == StateConfirmed
}

// OverLimit reports whether the estimate crossed the limit.
func (d Decision) OverLimit() bool {
	return d.Tokens > d.Limit
}

type Checker struct {
	Limit       int
	AutoConfirm bool
	Confirm     Confirmer
}

// Check estimates prompt and, when the estimate exceeds the limit, asks for
// confirmation. AutoConfirm answers yes without asking; a nil Confirmer
// answers no.
func (c Checker) Check(prompt string) (Decision, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	d := Decision{
		Chars: utf8.RuneCountInString(prompt),
		Limit: limit,
		State: StateBuilt,
	}
	d.Tokens = d.Chars / 4

	if !d.OverLimit() {
		d.State = StateUnderLimit
		return d, nil
	}

	d.State = StateAwaitingConfirmation
	d.Question = fmt.Sprintf("Warning: Input prompt approx. %d tokens exceeds model context limit (%d). Proceed anyway?", d.Tokens, limit)

	if c.AutoConfirm {
		d.State = StateConfirmed
		return d, nil
	}
	if c.Confirm == nil {
		d.State = StateDeclined
		return d, ErrBudgetDeclined
	}

	ok, err := c.Confirm.Confirm(d.Question)
	if err != nil {
		d.State = StateDeclined
		return d, fmt.Errorf("%w: %w", ErrBudgetDeclined, err)
	}
	if !ok {
		d.State = StateDeclined
		return d, ErrBudgetDeclined
	}

	d.State = StateConfirmed
	return d, nil
}
