package conversation

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scamwatch/scamwatch-backend/internal/agent"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/store/sqlite"
)

type scriptedAgent struct {
	reply  string
	fields map[string]interface{}
	err    error
	calls  int
}

func (a *scriptedAgent) Respond(_ context.Context, req agent.Request) (*agent.Result, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &agent.Result{Reply: a.reply, Fields: a.fields}, nil
}

type scriptedFactory struct {
	agent  agent.Agent
	err    error
	builds int
}

func (f *scriptedFactory) New(context.Context) (agent.Agent, error) {
	f.builds++
	if f.err != nil {
		return nil, f.err
	}
	return f.agent, nil
}

func newTestStore(t *testing.T) (store.Store, *sql.DB) {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(context.Background(), db))
	return sqlite.New(db), db
}

func messageCount(t *testing.T, st store.Store, conversationID int64) int {
	t.Helper()
	msgs, err := st.Messages().List(context.Background(), conversationID)
	require.NoError(t, err)
	return len(msgs)
}

func TestProcessUserQueryNewConversation(t *testing.T) {
	st, _ := newTestStore(t)
	ag := &scriptedAgent{reply: "When did you first notice the scam?",
		fields: map[string]interface{}{"scam_type": "ECOMMERCE", "scam_amount_lost": 300.5}}
	o := NewOrchestrator(st, &scriptedFactory{agent: ag}, nil, zerolog.Nop())

	res, err := o.ProcessUserQuery(context.Background(), "I was scammed on a shopping site", 0)
	require.NoError(t, err)
	assert.Equal(t, "When did you first notice the scam?", res.Response)
	assert.NotZero(t, res.ConversationID)
	assert.Equal(t, "ECOMMERCE", res.StructuredData.ScamType)
	assert.Equal(t, 300.5, res.StructuredData.AmountLost)

	msgs, err := st.Messages().List(context.Background(), res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderHuman, msgs[0].SenderRole)
	assert.Equal(t, model.SenderAI, msgs[1].SenderRole)

	// second turn continues the bound conversation
	res2, err := o.ProcessUserQuery(context.Background(), "It was last Tuesday", 0)
	require.NoError(t, err)
	assert.Equal(t, res.ConversationID, res2.ConversationID)
	assert.Equal(t, 4, messageCount(t, st, res.ConversationID))
}

func TestProcessUserQueryMissingConversation(t *testing.T) {
	st, _ := newTestStore(t)
	o := NewOrchestrator(st, &scriptedFactory{agent: &scriptedAgent{reply: "hi"}}, nil, zerolog.Nop())

	_, err := o.ProcessUserQuery(context.Background(), "hello", 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestProcessUserQueryAgentFailureRollsBack(t *testing.T) {
	st, _ := newTestStore(t)
	conv, err := st.Conversations().Create(context.Background(), nil)
	require.NoError(t, err)

	ag := &scriptedAgent{err: errors.New("model timed out")}
	o := NewOrchestrator(st, &scriptedFactory{agent: ag}, nil, zerolog.Nop())

	_, err = o.ProcessUserQuery(context.Background(), "help", conv.ConversationID)
	require.Error(t, err)
	assert.True(t, IsAgentInvocationError(err))
	// the human message written before the failure must not survive
	assert.Equal(t, 0, messageCount(t, st, conv.ConversationID))
}

func TestProcessUserQueryFactoryFailure(t *testing.T) {
	st, _ := newTestStore(t)
	o := NewOrchestrator(st, &scriptedFactory{err: errors.New("no model configured")}, nil, zerolog.Nop())

	_, err := o.ProcessUserQuery(context.Background(), "help", 0)
	require.Error(t, err)
	assert.True(t, IsAgentInvocationError(err))
}

func TestAgentBuiltOnceAcrossTurns(t *testing.T) {
	st, _ := newTestStore(t)
	f := &scriptedFactory{agent: &scriptedAgent{reply: "ok"}}
	o := NewOrchestrator(st, f, nil, zerolog.Nop())

	_, err := o.ProcessUserQuery(context.Background(), "one", 0)
	require.NoError(t, err)
	_, err = o.ProcessUserQuery(context.Background(), "two", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.builds)
}

func TestWhitespaceQueryPersistsDegenerateTurn(t *testing.T) {
	st, _ := newTestStore(t)
	o := NewOrchestrator(st, &scriptedFactory{agent: &scriptedAgent{reply: "Could you tell me more?"}}, nil, zerolog.Nop())

	res, err := o.ProcessUserQuery(context.Background(), "   ", 0)
	require.NoError(t, err)
	msgs, err := st.Messages().List(context.Background(), res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "   ", msgs[0].Content)
}

func TestStructuredDataAlwaysFullyKeyed(t *testing.T) {
	st, _ := newTestStore(t)
	o := NewOrchestrator(st, &scriptedFactory{agent: &scriptedAgent{reply: "noted"}}, nil, zerolog.Nop())

	res, err := o.ProcessUserQuery(context.Background(), "something happened", 0)
	require.NoError(t, err)
	assert.Equal(t, "", res.StructuredData.ScamType)
	assert.Equal(t, float64(0), res.StructuredData.AmountLost)
}

func TestEndConversationResetsStateOnly(t *testing.T) {
	st, _ := newTestStore(t)
	o := NewOrchestrator(st, &scriptedFactory{agent: &scriptedAgent{reply: "ok"}}, nil, zerolog.Nop())

	res, err := o.ProcessUserQuery(context.Background(), "first", 0)
	require.NoError(t, err)
	o.EndConversation()
	assert.Zero(t, o.ConversationID())
	assert.Equal(t, 2, messageCount(t, st, res.ConversationID))

	// resuming by explicit id picks the history back up
	res2, err := o.ProcessUserQuery(context.Background(), "second", res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, res.ConversationID, res2.ConversationID)
	assert.Equal(t, 4, messageCount(t, st, res.ConversationID))
}

func TestRegistrySerializesAndRoutes(t *testing.T) {
	st, _ := newTestStore(t)
	f := &scriptedFactory{agent: &scriptedAgent{reply: "ok"}}
	r := NewRegistry(st, f, nil, zerolog.Nop())

	res, err := r.Process(context.Background(), "start", 0)
	require.NoError(t, err)

	res2, err := r.Process(context.Background(), "more", res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, res.ConversationID, res2.ConversationID)
	assert.Equal(t, 4, messageCount(t, st, res.ConversationID))

	r.End(res.ConversationID)
	// history survives session teardown
	assert.Equal(t, 4, messageCount(t, st, res.ConversationID))
}
