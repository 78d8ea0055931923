package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/routermesh/core"
	"github.com/hupe1980/routermesh/logging"
)

// ChatMessage is one turn of the transcript handed to a Generator.
type ChatMessage struct {
	Role string // "user" or "assistant"
	Text string
}

// Generator is the narrow text-generation boundary the ModelEngine depends
// on. Backends live in decision/anthropic and decision/openai; any
// implementation returning raw model text satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, system string, messages []ChatMessage) (string, error)
}

// TargetSpec describes one routable service as rendered into the engine's
// instructions.
type TargetSpec struct {
	Name        string
	Description string
}

// ModelOptions holds configuration overrides passed to NewModelEngine.
type ModelOptions struct {
	// Instructions overrides the generated routing system prompt entirely.
	Instructions string
	// Logger receives decision diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// ModelEngine implements Engine on top of a Generator. It renders the
// history into a chat transcript plus a routing system prompt describing the
// available targets and the required JSON schema, then parses the model
// output into a Decision.
type ModelEngine struct {
	generator    Generator
	instructions string
	logger       logging.Logger
}

// NewModelEngine constructs a ModelEngine for the given target roster.
func NewModelEngine(generator Generator, targets []TargetSpec, optFns ...func(o *ModelOptions)) *ModelEngine {
	opts := ModelOptions{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	instructions := opts.Instructions
	if instructions == "" {
		instructions = buildInstructions(targets)
	}

	return &ModelEngine{generator: generator, instructions: instructions, logger: opts.Logger}
}

// Decide implements Engine. Generator failures are returned as-is (the loop
// surfaces them); schema violations in otherwise successful generations are
// returned as *ParseError so the loop can recover.
func (m *ModelEngine) Decide(ctx context.Context, history *core.History) (Decision, error) {
	raw, err := m.generator.GenerateText(ctx, m.instructions, renderTranscript(history))
	if err != nil {
		return Decision{}, fmt.Errorf("decision generation failed: %w", err)
	}

	d, err := Parse(raw)
	if err != nil {
		m.logger.Warn("decision output failed schema parse", "raw", truncate(raw, 200))
		return Decision{}, err
	}

	return d, nil
}

// renderTranscript converts the history into alternating chat messages:
// the user request and service results arrive as user turns, prior decisions
// as assistant turns. Error results are rendered explicitly so the model can
// reason about retries or alternate routing.
func renderTranscript(history *core.History) []ChatMessage {
	var msgs []ChatMessage

	for _, entry := range history.Entries() {
		switch e := entry.(type) {
		case core.UserRequest:
			msgs = append(msgs, ChatMessage{Role: "user", Text: "User Query: " + e.Text})
		case core.Decision:
			payload, err := json.Marshal(e)
			if err != nil {
				payload = []byte(e.Content)
			}
			msgs = append(msgs, ChatMessage{Role: "assistant", Text: string(payload)})
		case core.ServiceResult:
			if e.IsError {
				msgs = append(msgs, ChatMessage{
					Role: "user",
					Text: fmt.Sprintf("Error from %s: %s. Adjust your plan; do not repeat the failing call unchanged.", e.Target, e.Text),
				})
				continue
			}
			msgs = append(msgs, ChatMessage{Role: "user", Text: fmt.Sprintf("Result from %s: %s", e.Target, e.Text)})
		}
	}

	return msgs
}

// buildInstructions renders the routing system prompt from the target roster.
func buildInstructions(targets []TargetSpec) string {
	var b strings.Builder

	b.WriteString("You are the router for a multi-service task system. ")
	b.WriteString("You can delegate work to the following services:\n\n")
	for i, t := range targets {
		fmt.Fprintf(&b, "%d. %q\n   - %s\n", i+1, t.Name, t.Description)
	}
	b.WriteString(`
Your goal: answer the user's request by coordinating these services.

When a request needs data for several items, batch it: send one message
covering all items instead of one call per item, then filter the combined
result yourself.

RESPONSE FORMAT:
Return ONLY a JSON object in this exact shape (no markdown formatting):
{
    "thought": "explanation of your reasoning",
    "action": "dispatch" OR "final",
    "target": "service name (only if action is dispatch)",
    "content": "the query to send to that service OR the final answer text"
}
`)

	return b.String()
}
