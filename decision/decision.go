// Package decision defines the pluggable reasoning boundary of routermesh:
// the Engine interface consumed by the orchestration loop, the structured
// Decision schema, and implementations backed by text-generation models or
// scripted sequences.
//
// The engine contract is deliberately narrow so the nondeterministic
// component stays behind a mockable boundary: any implementation producing
// schema-valid decisions is substitutable.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/routermesh/core"
)

// Decision is the structured output of one reasoning tick: either a dispatch
// directive or the final answer. Thought is advisory and never parsed for
// control flow.
type Decision = core.Decision

// Engine produces one Decision from the accumulated conversation history.
//
// Implementations must be deterministic with respect to the structured-output
// schema: Action, Target and Content must be reliably populated. Output that
// cannot be parsed into the schema is reported as *ParseError, which the
// orchestration loop treats as recoverable.
type Engine interface {
	Decide(ctx context.Context, history *core.History) (Decision, error)
}

// ParseError reports engine output that failed to parse into the decision
// schema. It carries the raw output so the loop can record it in history and
// let the engine recover on the next tick.
type ParseError struct {
	Raw string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("decision output does not match schema: %q", truncate(e.Raw, 200))
}

// wireDecision is the JSON schema the engine must emit.
type wireDecision struct {
	Thought string `json:"thought"`
	Action  string `json:"action"`
	Target  string `json:"target,omitempty"`
	Content string `json:"content"`
}

// Parse converts raw model output into a Decision. Markdown code fences are
// stripped before unmarshalling. Schema violations (invalid JSON, unknown
// action, dispatch without target) return *ParseError.
func Parse(raw string) (Decision, error) {
	clean := stripFences(raw)

	var wire wireDecision
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return Decision{}, &ParseError{Raw: raw}
	}

	d := Decision{
		Thought: wire.Thought,
		Action:  core.Action(wire.Action),
		Target:  wire.Target,
		Content: wire.Content,
	}

	if err := Validate(d); err != nil {
		return Decision{}, &ParseError{Raw: raw}
	}

	return d, nil
}

// Validate checks the decision contract: a known action and, for dispatches,
// a non-empty target.
func Validate(d Decision) error {
	switch d.Action {
	case core.ActionFinal:
		return nil
	case core.ActionDispatch:
		if d.Target == "" {
			return fmt.Errorf("dispatch decision missing target")
		}
		return nil
	default:
		return fmt.Errorf("unknown decision action %q", d.Action)
	}
}

// stripFences removes markdown code fences some models wrap around JSON.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ScriptedEngine replays a fixed sequence of decisions, one per Decide call.
// It is useful for tests and demos where deterministic routing is required.
// Safe for use from a single orchestration loop; calls beyond the script
// return an error.
type ScriptedEngine struct {
	mu        sync.Mutex
	decisions []Decision
	calls     int
}

// NewScriptedEngine constructs an engine replaying the given decisions in order.
func NewScriptedEngine(decisions ...Decision) *ScriptedEngine {
	return &ScriptedEngine{decisions: decisions}
}

// Decide implements Engine by returning the next scripted decision.
func (s *ScriptedEngine) Decide(_ context.Context, _ *core.History) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.decisions) {
		return Decision{}, fmt.Errorf("scripted engine exhausted after %d decisions", len(s.decisions))
	}
	d := s.decisions[s.calls]
	s.calls++
	return d, nil
}

// Calls returns how many decisions have been served.
func (s *ScriptedEngine) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
