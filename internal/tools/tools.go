// Package tools is the retrieval surface handed to the questioning agent.
// Tool outputs are JSON strings: retrieval failures degrade to an
// {"error": ...} payload instead of failing the conversation turn, and
// every invocation is recorded in the append-only rag log.
package tools

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/raglog"
	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/strategy"
	"github.com/scamwatch/scamwatch-backend/internal/vector"
)

// Call is one tool invocation from the agent. Profile is the raw user
// profile document; unrecognized dimensions are dropped with a warning.
type Call struct {
	ConversationID int64
	Query          string
	TopK           int
	Filter         *model.ReportFilter
	Profile        json.RawMessage
}

// Toolset bundles the two retrieval tools with their shared dependencies.
type Toolset struct {
	vectors    *vector.Store
	strategies *strategy.Retriever
	invLog     *raglog.Logger
	log        zerolog.Logger
	modelName  string
}

func New(v *vector.Store, s *strategy.Retriever, invLog *raglog.Logger, log zerolog.Logger, modelName string) *Toolset {
	return &Toolset{vectors: v, strategies: s, invLog: invLog, log: log, modelName: modelName}
}

// WithStore returns a Toolset whose strategy retrieval reads through st.
// The orchestrator hands the agent a toolset scoped to the turn's open
// transaction; with a single-connection pool (in-memory SQLite) a root-
// store read during the turn would otherwise wait on the transaction's
// connection forever.
func (t *Toolset) WithStore(st store.Store) *Toolset {
	if t == nil || t.strategies == nil {
		return t
	}
	scoped := *t
	scoped.strategies = t.strategies.WithStore(st)
	return &scoped
}

type errorPayload struct {
	Error string `json:"error"`
}

type augmentedPayload struct {
	ScamReports []model.ReportHit `json:"scam_reports"`
	Strategies  []model.Strategy  `json:"strategies"`
}

// RetrieveScamReports returns the top-k similar reports for the query as a
// JSON array. Embedding or index failures come back as {"error": ...} so
// the agent can still answer without retrieved context.
func (t *Toolset) RetrieveScamReports(ctx context.Context, call Call) string {
	hits, err := t.vectors.Search(ctx, call.Query, call.TopK, call.Filter)
	t.logInvocation(call, hits, nil)
	if err != nil {
		t.log.Warn().Err(err).Int64("conversation_id", call.ConversationID).
			Msg("scam report retrieval degraded")
		return marshalTool(errorPayload{Error: err.Error()})
	}
	if hits == nil {
		hits = []model.ReportHit{}
	}
	return marshalTool(hits)
}

// AugmentedPoliceTool retrieves similar reports and profile-matched
// questioning strategies in parallel and returns both in one JSON object.
func (t *Toolset) AugmentedPoliceTool(ctx context.Context, call Call) string {
	profile, dropped := model.ParseProfile(call.Profile)
	if len(dropped) > 0 {
		t.log.Warn().Strs("dimensions", dropped).
			Int64("conversation_id", call.ConversationID).
			Msg("ignoring unrecognized profile dimensions")
	}

	var (
		wg         conc.WaitGroup
		strategies []model.Strategy
	)
	wg.Go(func() {
		strategies = t.strategies.Match(ctx, profile, call.TopK)
	})
	hits, err := t.vectors.Search(ctx, call.Query, call.TopK, call.Filter)
	wg.Wait()

	t.logInvocation(call, hits, strategies)
	if err != nil {
		t.log.Warn().Err(err).Int64("conversation_id", call.ConversationID).
			Msg("augmented retrieval degraded")
		return marshalTool(errorPayload{Error: err.Error()})
	}
	if hits == nil {
		hits = []model.ReportHit{}
	}
	if strategies == nil {
		strategies = []model.Strategy{}
	}
	return marshalTool(augmentedPayload{ScamReports: hits, Strategies: strategies})
}

func (t *Toolset) logInvocation(call Call, hits []model.ReportHit, strategies []model.Strategy) {
	if t.invLog == nil || !t.invLog.Enabled() {
		return
	}
	e := raglog.Entry{
		ConversationID: call.ConversationID,
		Query:          call.Query,
		TopK:           call.TopK,
		Model:          t.modelName,
	}
	if e.ConversationID == 0 {
		e.ConversationID = raglog.NoConversation
	}
	for _, h := range hits {
		e.ScamResults = append(e.ScamResults, h.ReportID)
		e.ScamDistances = append(e.ScamDistances, h.Distance)
	}
	for _, s := range strategies {
		e.StrategyIDs = append(e.StrategyIDs, s.StrategyID)
	}
	t.invLog.Append(e)
}

func marshalTool(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		// cannot happen for the payload shapes above
		return `{"error":"tool result serialization failed"}`
	}
	return string(b)
}
