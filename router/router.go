// Package router implements the orchestration loop: the state machine that
// drives one request end-to-end by alternating Decision Engine ticks with
// dispatches to remote services, accumulating everything in an append-only
// history until a final answer is produced or the iteration bound is hit.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/routermesh/core"
	"github.com/hupe1980/routermesh/decision"
	"github.com/hupe1980/routermesh/logging"
)

// DefaultMaxTurns bounds the number of decide/dispatch round-trips per request.
const DefaultMaxTurns = 15

// engineEntryTarget labels history entries that record Decision Engine
// failures rather than remote service results.
const engineEntryTarget = "decision-engine"

// cancelledAnswer is the text returned when the caller's cancellation signal
// fires before the exchange completes.
const cancelledAnswer = "request cancelled before completion"

// exhaustedAnswer is the fallback text when the iteration bound is reached
// and no dispatch decision ever fired.
const exhaustedAnswer = "could not complete the request within the allotted reasoning steps"

// Dispatcher sends a text payload to a service base address and returns the
// aggregated textual result. a2a.Client is the production implementation;
// tests substitute counting or failing stubs.
type Dispatcher interface {
	Dispatch(ctx context.Context, baseURL, text string) (string, error)
}

// decisionLogger is the optional richer logging surface (logging.RouterLogger)
// the loop upgrades to when available.
type decisionLogger interface {
	LogDecision(turn int, action, target, thought string)
	LogDispatch(target string, dur time.Duration, success bool, err error)
}

// Options holds configuration overrides passed to New.
type Options struct {
	// MaxTurns bounds decide/dispatch round-trips. Defaults to DefaultMaxTurns.
	MaxTurns int
	// Logger receives loop diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Result is the terminal value of one routed request. Both success and
// bounded failure carry an answer; History is returned for logging and
// inspection and is no longer written to.
type Result struct {
	Answer  string
	Outcome core.Outcome
	History *core.History
}

// Router drives one request at a time through the decide/dispatch loop.
// A Router holds no per-request state, so a single instance may serve
// concurrent Submit calls; each call owns its own History. Within one call
// execution is strictly sequential: at most one dispatch per tick, and no
// tick begins before the previous tick's result is appended.
type Router struct {
	engine     decision.Engine
	dispatcher Dispatcher
	targets    map[string]string
	maxTurns   int
	logger     logging.Logger
}

// New constructs a Router over the given engine, dispatcher and target
// roster (logical service name to base address).
func New(engine decision.Engine, dispatcher Dispatcher, targets map[string]string, optFns ...func(o *Options)) *Router {
	opts := Options{
		MaxTurns: DefaultMaxTurns,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	roster := make(map[string]string, len(targets))
	for name, url := range targets {
		roster[name] = url
	}

	return &Router{
		engine:     engine,
		dispatcher: dispatcher,
		targets:    roster,
		maxTurns:   opts.MaxTurns,
		logger:     opts.Logger,
	}
}

// Targets returns the logical names of the configured services.
func (r *Router) Targets() []string {
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	return names
}

// Submit processes one request to completion. It always returns a Result for
// ordinary operational failures (timeouts, unreachable services, malformed
// responses, iteration exhaustion, cancellation); an error is returned only
// for contract violations — an Engine implementation handing back an invalid
// Decision value, or an engine backend failure that is not a schema issue.
func (r *Router) Submit(ctx context.Context, requestText string) (*Result, error) {
	history := core.NewHistory(requestText)

	r.logger.Info("request accepted", "request_id", history.ID())

	for turn := 0; turn < r.maxTurns; turn++ {
		if ctx.Err() != nil {
			return r.cancelled(history), nil
		}

		d, err := r.engine.Decide(ctx, history)
		if err != nil {
			var parseErr *decision.ParseError
			if errors.As(err, &parseErr) {
				// Recoverable: record the raw output so the engine sees its
				// own mistake on the next tick. Costs exactly one turn.
				history.Append(core.ServiceResult{
					Target:  engineEntryTarget,
					Text:    "invalid decision output, return only valid JSON matching the required schema: " + parseErr.Raw,
					IsError: true,
				})
				r.logger.Warn("decision parse failure recorded", "turn", turn)
				continue
			}
			if ctx.Err() != nil {
				return r.cancelled(history), nil
			}
			return nil, fmt.Errorf("decision engine failure: %w", err)
		}

		if err := decision.Validate(d); err != nil {
			return nil, fmt.Errorf("decision contract violation: %w", err)
		}

		history.Append(d)
		r.logDecision(turn, d)

		if d.Action == core.ActionFinal {
			return &Result{Answer: d.Content, Outcome: core.OutcomeDone, History: history}, nil
		}

		baseURL, ok := r.targets[d.Target]
		if !ok {
			// One bad decision must not terminate the exchange.
			history.Append(core.ServiceResult{
				Target:  d.Target,
				Text:    fmt.Sprintf("unknown target %q: no such service is configured", d.Target),
				IsError: true,
			})
			r.logger.Warn("unknown target recorded", "target", d.Target, "turn", turn)
			continue
		}

		start := time.Now()
		text, err := r.dispatcher.Dispatch(ctx, baseURL, d.Content)
		r.logDispatch(d.Target, time.Since(start), err)
		if err != nil {
			if ctx.Err() != nil {
				return r.cancelled(history), nil
			}
			history.Append(core.ServiceResult{
				Target:  d.Target,
				Text:    "dispatch failed: " + err.Error(),
				IsError: true,
			})
			continue
		}

		history.Append(core.ServiceResult{Target: d.Target, Text: text})
	}

	// Iteration bound reached: a normal terminal outcome, not a fault. The
	// best available partial synthesis is the content of the last dispatch
	// decision, if any ever fired.
	answer := exhaustedAnswer
	if last, ok := history.LastDispatch(); ok {
		answer = last.Content
	}

	r.logger.Warn("iteration bound reached", "request_id", history.ID(), "max_turns", r.maxTurns)

	return &Result{Answer: answer, Outcome: core.OutcomeExhausted, History: history}, nil
}

func (r *Router) cancelled(history *core.History) *Result {
	r.logger.Info("request cancelled", "request_id", history.ID())
	return &Result{Answer: cancelledAnswer, Outcome: core.OutcomeCancelled, History: history}
}

func (r *Router) logDecision(turn int, d core.Decision) {
	if dl, ok := r.logger.(decisionLogger); ok {
		dl.LogDecision(turn, string(d.Action), d.Target, d.Thought)
		return
	}
	r.logger.Info("decision produced", "turn", turn, "action", string(d.Action), "target", d.Target)
}

func (r *Router) logDispatch(target string, dur time.Duration, err error) {
	if dl, ok := r.logger.(decisionLogger); ok {
		dl.LogDispatch(target, dur, err == nil, err)
		return
	}
	if err != nil {
		r.logger.Error("dispatch failed", "target", target, "error", err.Error())
		return
	}
	r.logger.Info("dispatch completed", "target", target, "duration", dur.String())
}
