// Package conversation drives one report-intake dialogue: it persists the
// human and AI halves of every turn atomically and hands retrieval tools
// to the questioning agent.
package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/agent"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/tools"
)

// Orchestrator runs turns for one conversation at a time. It is safe for
// concurrent use, but concurrent turns on the same instance serialize; the
// Registry provides per-conversation instances for callers that need
// cross-request session affinity.
type Orchestrator struct {
	store   store.Store
	factory agent.Factory
	toolset *tools.Toolset
	log     zerolog.Logger

	mu             sync.Mutex
	conversationID int64 // 0 until bound
	agent          agent.Agent
	turns          int
}

func NewOrchestrator(st store.Store, f agent.Factory, ts *tools.Toolset, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{store: st, factory: f, toolset: ts, log: log}
}

// ConversationID returns the bound conversation id, 0 if none yet.
func (o *Orchestrator) ConversationID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conversationID
}

// ProcessUserQuery runs one turn. conversationID 0 means continue the
// bound conversation, or start a new one if none is bound; a nonzero id
// rebinds to that conversation and fails with model.ErrNotFound when it
// does not exist. Both turn messages persist atomically: any failure after
// the human message is written rolls it back too.
//
// The query is persisted as given, whitespace-only included; input
// validation belongs to the API layer.
func (o *Orchestrator) ProcessUserQuery(ctx context.Context, query string, conversationID int64) (*model.TurnResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// build the agent before opening the transaction so a construction
	// failure cannot leave partial writes
	if o.agent == nil {
		ag, err := o.factory.New(ctx)
		if err != nil {
			return nil, &AgentInvocationError{Cause: err}
		}
		o.agent = ag
	}

	var result *model.TurnResult
	err := o.store.WithinTx(ctx, func(tx store.Store) error {
		convID, err := o.resolveConversation(ctx, tx, conversationID)
		if err != nil {
			return err
		}

		history, err := tx.Messages().List(ctx, convID)
		if err != nil {
			return &PersistenceError{Op: "load history", Cause: err}
		}

		if _, err := tx.Messages().Append(ctx, convID, model.SenderHuman, query); err != nil {
			return &PersistenceError{Op: "human message", Cause: err}
		}

		// scope the toolset to this transaction: in-turn strategy reads
		// must use the open transaction's connection, not fight it for a
		// pooled one
		res, err := o.agent.Respond(ctx, agent.Request{
			ConversationID: convID,
			Query:          query,
			History:        toExchanges(history),
			Tools:          o.toolset.WithStore(tx),
		})
		if err != nil {
			return &AgentInvocationError{Cause: err}
		}

		if _, err := tx.Messages().Append(ctx, convID, model.SenderAI, res.Reply); err != nil {
			return &PersistenceError{Op: "ai message", Cause: err}
		}

		o.conversationID = convID
		result = &model.TurnResult{
			Response:       res.Reply,
			ConversationID: convID,
			StructuredData: model.NewScamDetails(res.Fields),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.turns++
	o.log.Info().Int64("conversation_id", result.ConversationID).
		Int("turns", o.turns).Msg("turn committed")
	return result, nil
}

// resolveConversation picks the conversation for this turn: an explicit id
// wins, then the bound id, then a freshly created conversation.
func (o *Orchestrator) resolveConversation(ctx context.Context, tx store.Store, requested int64) (int64, error) {
	id := requested
	if id == 0 {
		id = o.conversationID
	}
	if id != 0 {
		conv, err := tx.Conversations().Get(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("resolve conversation: %w", err)
		}
		return conv.ConversationID, nil
	}
	conv, err := tx.Conversations().Create(ctx, nil)
	if err != nil {
		return 0, &PersistenceError{Op: "create conversation", Cause: err}
	}
	return conv.ConversationID, nil
}

// EndConversation drops the in-memory session state. Persisted messages
// are untouched; a later turn with the same id resumes the full history.
func (o *Orchestrator) EndConversation() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conversationID = 0
	o.agent = nil
	o.turns = 0
}

func toExchanges(msgs []*model.Message) []agent.Exchange {
	out := make([]agent.Exchange, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, agent.Exchange{Role: m.SenderRole, Content: m.Content})
	}
	return out
}
