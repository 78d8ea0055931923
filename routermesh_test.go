package routermesh_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hupe1980/routermesh"
	"github.com/hupe1980/routermesh/a2asrv"
	"github.com/hupe1980/routermesh/card"
	"github.com/hupe1980/routermesh/core"
	"github.com/hupe1980/routermesh/decision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startAgent serves an in-process task handler over the real wire protocol.
func startAgent(t *testing.T, name string, handler a2asrv.TaskHandler) *httptest.Server {
	t.Helper()
	s := a2asrv.New(card.Card{Name: name, Version: "1.0"}, handler)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestMeshEndToEnd(t *testing.T) {
	data := startAgent(t, "customer_data", func(_ context.Context, text string) (string, error) {
		if strings.Contains(text, "5") {
			return "id=5,name=Charlie", nil
		}
		return "", fmt.Errorf("unknown customer")
	})

	engine := decision.NewScriptedEngine(
		decision.Decision{Thought: "fetch the record", Action: core.ActionDispatch, Target: "customer_data", Content: "lookup 5"},
		decision.Decision{Thought: "extract the name", Action: core.ActionFinal, Content: "Charlie"},
	)

	mesh := routermesh.New(engine, map[string]string{"customer_data": data.URL})

	res, err := mesh.Submit(context.Background(), "get id 5")
	require.NoError(t, err)
	assert.Equal(t, "Charlie", res.Answer)
	assert.Equal(t, core.OutcomeDone, res.Outcome)

	// The directory cached the card during the dispatch.
	assert.True(t, mesh.Directory().Cached(data.URL))
	assert.ElementsMatch(t, []string{"customer_data"}, mesh.Targets())
}

func TestMeshRecordsRemoteFailureAndContinues(t *testing.T) {
	failing := startAgent(t, "support", func(_ context.Context, _ string) (string, error) {
		return "", fmt.Errorf("knowledge base offline")
	})

	engine := decision.NewScriptedEngine(
		decision.Decision{Action: core.ActionDispatch, Target: "support", Content: "how to reset password"},
		decision.Decision{Action: core.ActionFinal, Content: "support is unavailable, try again later"},
	)

	mesh := routermesh.New(engine, map[string]string{"support": failing.URL})

	res, err := mesh.Submit(context.Background(), "reset my password")
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeDone, res.Outcome)

	var recorded bool
	for _, e := range res.History.Entries() {
		if sr, ok := e.(core.ServiceResult); ok && sr.IsError {
			assert.Contains(t, sr.Text, "knowledge base offline")
			recorded = true
		}
	}
	assert.True(t, recorded, "remote failure must appear in history")
}

func TestMeshUnknownTargetOverRealTransport(t *testing.T) {
	engine := decision.NewScriptedEngine(
		decision.Decision{Action: core.ActionDispatch, Target: "ghost", Content: "anything"},
		decision.Decision{Action: core.ActionFinal, Content: "unable to process"},
	)

	mesh := routermesh.New(engine, map[string]string{})

	res, err := mesh.Submit(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, "unable to process", res.Answer)
	assert.Equal(t, core.OutcomeDone, res.Outcome)
}
