package conversation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/agent"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/tools"
)

const registryShards = 16

type session struct {
	mu   sync.Mutex
	orch *Orchestrator
}

type shard struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

// Registry keys orchestrators by conversation id so concurrent requests
// for the same conversation serialize and interleave whole turns, while
// different conversations proceed in parallel.
type Registry struct {
	store   store.Store
	factory agent.Factory
	toolset *tools.Toolset
	log     zerolog.Logger
	shards  [registryShards]*shard
}

func NewRegistry(st store.Store, f agent.Factory, ts *tools.Toolset, log zerolog.Logger) *Registry {
	r := &Registry{store: st, factory: f, toolset: ts, log: log}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[int64]*session)}
	}
	return r
}

func (r *Registry) session(conversationID int64) *session {
	sh := r.shards[uint64(conversationID)%registryShards]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[conversationID]
	if !ok {
		s = &session{orch: r.newOrchestrator()}
		sh.sessions[conversationID] = s
	}
	return s
}

func (r *Registry) newOrchestrator() *Orchestrator {
	return NewOrchestrator(r.store, r.factory, r.toolset, r.log)
}

// Process runs one turn. conversationID 0 starts a new conversation on a
// fresh orchestrator, which is then registered under the id the store
// assigned so follow-up requests reuse the session.
func (r *Registry) Process(ctx context.Context, query string, conversationID int64) (*model.TurnResult, error) {
	if conversationID == 0 {
		orch := r.newOrchestrator()
		res, err := orch.ProcessUserQuery(ctx, query, 0)
		if err != nil {
			return nil, err
		}
		r.adopt(res.ConversationID, orch)
		return res, nil
	}

	s := r.session(conversationID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.ProcessUserQuery(ctx, query, conversationID)
}

// End drops the session for a conversation. Message history stays in the
// store.
func (r *Registry) End(conversationID int64) {
	sh := r.shards[uint64(conversationID)%registryShards]
	sh.mu.Lock()
	s, ok := sh.sessions[conversationID]
	if ok {
		delete(sh.sessions, conversationID)
	}
	sh.mu.Unlock()
	if ok {
		s.mu.Lock()
		s.orch.EndConversation()
		s.mu.Unlock()
	}
}

// adopt registers an orchestrator that just created its conversation,
// unless a concurrent request already registered one for the same id.
func (r *Registry) adopt(conversationID int64, orch *Orchestrator) {
	sh := r.shards[uint64(conversationID)%registryShards]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.sessions[conversationID]; !exists {
		sh.sessions[conversationID] = &session{orch: orch}
	}
}
