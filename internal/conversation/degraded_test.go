package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scamwatch/scamwatch-backend/internal/agent"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/searchindex"
	"github.com/scamwatch/scamwatch-backend/internal/strategy"
	"github.com/scamwatch/scamwatch-backend/internal/tools"
	"github.com/scamwatch/scamwatch-backend/internal/vector"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding model offline")
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type noopIndex struct{}

func (noopIndex) SearchReports(context.Context, string, []float32, int, *model.ReportFilter) ([]model.ReportHit, error) {
	return nil, nil
}
func (noopIndex) UpsertReport(context.Context, *model.ScamReport, []float32) error { return nil }
func (noopIndex) BatchUpsert(context.Context, []searchindex.ReportVector) error    { return nil }
func (noopIndex) DeleteReport(context.Context, int64) error                        { return nil }

// toolUsingAgent behaves like a real agent: it consults the augmented tool
// and answers regardless of whether retrieval degraded.
type toolUsingAgent struct {
	lastToolOutput string
}

func (a *toolUsingAgent) Respond(ctx context.Context, req agent.Request) (*agent.Result, error) {
	a.lastToolOutput = req.Tools.AugmentedPoliceTool(ctx, tools.Call{
		ConversationID: req.ConversationID,
		Query:          req.Query,
		TopK:           5,
	})
	return &agent.Result{Reply: "Could you describe what happened?"}, nil
}

func TestEmbeddingFailureStillProducesReply(t *testing.T) {
	st, _ := newTestStore(t)
	retriever := strategy.New(st, zerolog.Nop())
	vs := vector.New(failingEmbedder{}, noopIndex{}, zerolog.Nop())
	toolset := tools.New(vs, retriever, nil, zerolog.Nop(), "granite3.2:8b")

	ag := &toolUsingAgent{}
	o := NewOrchestrator(st, &scriptedFactory{agent: ag}, toolset, zerolog.Nop())

	res, err := o.ProcessUserQuery(context.Background(), "I was scammed via WhatsApp", 0)
	require.NoError(t, err)
	assert.NotZero(t, res.ConversationID)
	assert.Equal(t, "Could you describe what happened?", res.Response)
	// the tool degraded to an error payload instead of failing the turn
	assert.True(t, strings.Contains(ag.lastToolOutput, `"error"`), ag.lastToolOutput)
	// structured data stays fully keyed with defaults
	assert.Equal(t, "", res.StructuredData.ScamType)
	assert.Equal(t, float64(0), res.StructuredData.AmountLost)
	assert.Equal(t, 2, messageCount(t, st, res.ConversationID))
}

// The in-memory store pools a single connection, so in-turn retrieval only
// completes if strategy reads go through the turn's open transaction
// instead of waiting for the connection it holds.
func TestTurnToolRetrievalSharesTurnTransaction(t *testing.T) {
	st, _ := newTestStore(t)
	_, err := st.Strategies().Create(context.Background(), &model.Strategy{
		StrategyType: "rapport",
		Response:     "Ask how the scammer first made contact",
		SuccessScore: 0.9,
	})
	require.NoError(t, err)

	retriever := strategy.New(st, zerolog.Nop())
	vs := vector.New(fixedEmbedder{}, noopIndex{}, zerolog.Nop())
	toolset := tools.New(vs, retriever, nil, zerolog.Nop(), "granite3.2:8b")

	ag := &toolUsingAgent{}
	o := NewOrchestrator(st, &scriptedFactory{agent: ag}, toolset, zerolog.Nop())

	var res *model.TurnResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err = o.ProcessUserQuery(context.Background(), "paid a fake shopping site", 0)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("turn never completed; in-turn retrieval blocked on the store")
	}
	require.NoError(t, err)
	assert.Contains(t, ag.lastToolOutput, "Ask how the scammer first made contact")
	assert.Equal(t, 2, messageCount(t, st, res.ConversationID))

	// increments rode the turn transaction and are visible after commit
	all, err := st.Strategies().List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].RetrievalCount)
}
