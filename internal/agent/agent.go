// Package agent defines the contract for the external questioning agent.
// Implementations are pluggable; the conversation core treats them as a
// black box behind a factory.
package agent

import (
	"context"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/tools"
)

// Exchange is one prior message replayed to the agent as context.
type Exchange struct {
	Role    model.SenderRole
	Content string
}

// Request carries everything the agent needs for one turn. History is the
// full persisted conversation so far, oldest first, excluding Query.
type Request struct {
	ConversationID int64
	Query          string
	History        []Exchange
	Tools          *tools.Toolset
}

// Result is the agent's reply plus whatever structured fields it managed
// to extract this turn. Fields uses raw keys; the orchestrator normalizes
// them into the fixed structured-data set.
type Result struct {
	Reply  string
	Fields map[string]interface{}
}

// Agent produces one reply per request. An error means the turn failed and
// nothing should be persisted.
type Agent interface {
	Respond(ctx context.Context, req Request) (*Result, error)
}

// Factory builds an Agent. The orchestrator calls it lazily, once, before
// opening the turn transaction, so construction failures never leave
// partial writes behind.
type Factory interface {
	New(ctx context.Context) (Agent, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Agent, error)

func (f FactoryFunc) New(ctx context.Context) (Agent, error) { return f(ctx) }
