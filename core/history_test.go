package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistorySeededWithUserRequest(t *testing.T) {
	h := NewHistory("get id 5")

	require.Equal(t, 1, h.Len())
	assert.Equal(t, "get id 5", h.Request())
	assert.NotEmpty(t, h.ID())

	entries := h.Entries()
	ur, ok := entries[0].(UserRequest)
	require.True(t, ok)
	assert.Equal(t, "get id 5", ur.Text)
}

func TestHistoryAppendOrderPreserved(t *testing.T) {
	h := NewHistory("query")
	h.Append(Decision{Action: ActionDispatch, Target: "alpha", Content: "lookup 5"})
	h.Append(ServiceResult{Target: "alpha", Text: "id=5,name=Charlie"})
	h.Append(Decision{Action: ActionFinal, Content: "Charlie"})

	entries := h.Entries()
	require.Len(t, entries, 4)
	assert.IsType(t, UserRequest{}, entries[0])
	assert.IsType(t, Decision{}, entries[1])
	assert.IsType(t, ServiceResult{}, entries[2])
	assert.IsType(t, Decision{}, entries[3])
}

func TestHistoryEntriesReturnsDefensiveCopy(t *testing.T) {
	h := NewHistory("query")
	snapshot := h.Entries()

	h.Append(ServiceResult{Target: "alpha", Text: "later"})

	assert.Len(t, snapshot, 1, "snapshot must not observe later appends")
	assert.Equal(t, 2, h.Len())
}

func TestHistoryLastDispatch(t *testing.T) {
	h := NewHistory("query")

	_, ok := h.LastDispatch()
	assert.False(t, ok, "no dispatch recorded yet")

	h.Append(Decision{Action: ActionDispatch, Target: "alpha", Content: "first"})
	h.Append(ServiceResult{Target: "alpha", Text: "r1"})
	h.Append(Decision{Action: ActionDispatch, Target: "beta", Content: "second"})
	h.Append(Decision{Action: ActionFinal, Content: "done"})

	d, ok := h.LastDispatch()
	require.True(t, ok)
	assert.Equal(t, "beta", d.Target)
	assert.Equal(t, "second", d.Content)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "done", OutcomeDone.String())
	assert.Equal(t, "exhausted", OutcomeExhausted.String())
	assert.Equal(t, "cancelled", OutcomeCancelled.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
