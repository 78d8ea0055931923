package decision

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/routermesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlainJSON(t *testing.T) {
	d, err := Parse(`{"thought":"need data","action":"dispatch","target":"customer_data","content":"lookup 5"}`)
	require.NoError(t, err)
	assert.Equal(t, core.ActionDispatch, d.Action)
	assert.Equal(t, "customer_data", d.Target)
	assert.Equal(t, "lookup 5", d.Content)
	assert.Equal(t, "need data", d.Thought)
}

func TestParseStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"thought\":\"done\",\"action\":\"final\",\"content\":\"Charlie\"}\n```"
	d, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, core.ActionFinal, d.Action)
	assert.Equal(t, "Charlie", d.Content)
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse("I think we should call the data agent")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Raw, "data agent")
}

func TestParseUnknownAction(t *testing.T) {
	_, err := Parse(`{"action":"ponder","content":"hmm"}`)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseDispatchWithoutTarget(t *testing.T) {
	_, err := Parse(`{"action":"dispatch","content":"lookup 5"}`)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Decision{Action: core.ActionFinal, Content: "done"}))
	assert.NoError(t, Validate(Decision{Action: core.ActionDispatch, Target: "alpha", Content: "q"}))
	assert.Error(t, Validate(Decision{Action: core.ActionDispatch, Content: "q"}))
	assert.Error(t, Validate(Decision{Action: "ponder"}))
}

func TestScriptedEngineReplaysInOrder(t *testing.T) {
	engine := NewScriptedEngine(
		Decision{Action: core.ActionDispatch, Target: "alpha", Content: "first"},
		Decision{Action: core.ActionFinal, Content: "second"},
	)

	h := core.NewHistory("query")

	d1, err := engine.Decide(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "first", d1.Content)

	d2, err := engine.Decide(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "second", d2.Content)

	_, err = engine.Decide(context.Background(), h)
	require.Error(t, err, "exhausted script must error")
	assert.Equal(t, 2, engine.Calls())
}

// recordingGenerator captures the rendered transcript and returns canned output.
type recordingGenerator struct {
	system   string
	messages []ChatMessage
	output   string
	err      error
}

func (g *recordingGenerator) GenerateText(_ context.Context, system string, messages []ChatMessage) (string, error) {
	g.system = system
	g.messages = messages
	return g.output, g.err
}

func TestModelEngineParsesGeneratorOutput(t *testing.T) {
	gen := &recordingGenerator{output: `{"thought":"t","action":"final","content":"answer"}`}
	engine := NewModelEngine(gen, []TargetSpec{{Name: "customer_data", Description: "customer records"}})

	d, err := engine.Decide(context.Background(), core.NewHistory("get id 5"))
	require.NoError(t, err)
	assert.Equal(t, core.ActionFinal, d.Action)
	assert.Equal(t, "answer", d.Content)

	assert.Contains(t, gen.system, `"customer_data"`)
	assert.Contains(t, gen.system, "customer records")
	require.Len(t, gen.messages, 1)
	assert.Equal(t, "user", gen.messages[0].Role)
	assert.Contains(t, gen.messages[0].Text, "get id 5")
}

func TestModelEngineRendersResultsAndErrors(t *testing.T) {
	h := core.NewHistory("get id 5")
	h.Append(core.Decision{Action: core.ActionDispatch, Target: "alpha", Content: "lookup 5"})
	h.Append(core.ServiceResult{Target: "alpha", Text: "id=5,name=Charlie"})
	h.Append(core.Decision{Action: core.ActionDispatch, Target: "beta", Content: "advice"})
	h.Append(core.ServiceResult{Target: "beta", Text: "dispatch failed: timeout", IsError: true})

	gen := &recordingGenerator{output: `{"action":"final","content":"done"}`}
	engine := NewModelEngine(gen, nil)

	_, err := engine.Decide(context.Background(), h)
	require.NoError(t, err)

	require.Len(t, gen.messages, 5)
	assert.Equal(t, "assistant", gen.messages[1].Role)
	assert.Contains(t, gen.messages[1].Text, "lookup 5")
	assert.Equal(t, "user", gen.messages[2].Role)
	assert.Contains(t, gen.messages[2].Text, "Result from alpha")
	assert.Contains(t, gen.messages[4].Text, "Error from beta")
}

func TestModelEngineReturnsParseError(t *testing.T) {
	gen := &recordingGenerator{output: "sorry, I cannot produce JSON"}
	engine := NewModelEngine(gen, nil)

	_, err := engine.Decide(context.Background(), core.NewHistory("query"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestModelEnginePropagatesGeneratorFailure(t *testing.T) {
	gen := &recordingGenerator{err: fmt.Errorf("backend down")}
	engine := NewModelEngine(gen, nil)

	_, err := engine.Decide(context.Background(), core.NewHistory("query"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")

	var parseErr *ParseError
	assert.False(t, errors.As(err, &parseErr), "backend failures are not parse errors")
}

func TestModelEngineInstructionsOverride(t *testing.T) {
	gen := &recordingGenerator{output: `{"action":"final","content":"done"}`}
	engine := NewModelEngine(gen, nil, func(o *ModelOptions) {
		o.Instructions = "custom instructions"
	})

	_, err := engine.Decide(context.Background(), core.NewHistory("query"))
	require.NoError(t, err)
	assert.Equal(t, "custom instructions", gen.system)
}
