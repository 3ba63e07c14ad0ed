package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/store/sqlite"
)

type stubChat struct {
	result *model.TurnResult
	err    error
	ended  []int64
}

func (s *stubChat) Process(_ context.Context, query string, conversationID int64) (*model.TurnResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubChat) End(conversationID int64) { s.ended = append(s.ended, conversationID) }

type stubReports struct {
	hits []model.ReportHit
	err  error
}

func (s *stubReports) Ingest(_ context.Context, r *model.ScamReport) (*model.ScamReport, error) {
	r.ReportID = 1
	return r, s.err
}

func (s *stubReports) Update(_ context.Context, r *model.ScamReport) (*model.ScamReport, error) {
	return r, s.err
}

func (s *stubReports) Get(_ context.Context, reportID int64) (*model.ScamReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.ScamReport{ReportID: reportID}, nil
}

func (s *stubReports) Search(_ context.Context, query string, k int, filter *model.ReportFilter) ([]model.ReportHit, error) {
	return s.hits, s.err
}

func newTestRouter(t *testing.T, chat ChatService, reports ReportService) (http.Handler, store.Store) {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(context.Background(), db))
	st := sqlite.New(db)
	return NewRouter(chat, reports, st), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProcessChatSuccess(t *testing.T) {
	chat := &stubChat{result: &model.TurnResult{
		Response:       "What platform did they contact you on?",
		ConversationID: 7,
	}}
	h, _ := newTestRouter(t, chat, &stubReports{})

	rec := doJSON(t, h, "POST", "/api/chat", map[string]interface{}{"query": "I got scammed"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res model.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(7), res.ConversationID)
	// structured data keys are always present even when nothing was extracted
	assert.Contains(t, rec.Body.String(), "scam_amount_lost")
}

func TestProcessChatValidation(t *testing.T) {
	h, _ := newTestRouter(t, &stubChat{}, &stubReports{})

	rec := doJSON(t, h, "POST", "/api/chat", map[string]interface{}{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "POST", "/api/chat", map[string]interface{}{"query": "hi", "conversationId": -2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessChatUnknownConversation(t *testing.T) {
	chat := &stubChat{err: fmt.Errorf("resolve conversation: %w", model.ErrNotFound)}
	h, _ := newTestRouter(t, chat, &stubReports{})

	rec := doJSON(t, h, "POST", "/api/chat", map[string]interface{}{"query": "hi", "conversationId": 999})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndConversation(t *testing.T) {
	chat := &stubChat{}
	h, _ := newTestRouter(t, chat, &stubReports{})

	rec := doJSON(t, h, "POST", "/api/conversations/5/end", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{5}, chat.ended)

	rec = doJSON(t, h, "POST", "/api/conversations/abc/end", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMessages(t *testing.T) {
	h, st := newTestRouter(t, &stubChat{}, &stubReports{})

	conv, err := st.Conversations().Create(context.Background(), nil)
	require.NoError(t, err)
	_, err = st.Messages().Append(context.Background(), conv.ConversationID, model.SenderHuman, "hello")
	require.NoError(t, err)
	_, err = st.Messages().Append(context.Background(), conv.ConversationID, model.SenderAI, "hi, how can I help?")
	require.NoError(t, err)

	rec := doJSON(t, h, "GET", fmt.Sprintf("/api/conversations/%d/messages", conv.ConversationID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Count    int              `json:"count"`
		Messages []*model.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 2, out.Count)
	assert.Equal(t, model.SenderHuman, out.Messages[0].SenderRole)

	rec = doJSON(t, h, "GET", "/api/conversations/424242/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateReportValidation(t *testing.T) {
	h, _ := newTestRouter(t, &stubChat{}, &stubReports{})

	rec := doJSON(t, h, "POST", "/api/reports", map[string]interface{}{"description": "no type"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "POST", "/api/reports", map[string]interface{}{
		"scamType": "ECOMMERCE", "incidentDate": "10/05/2025",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "POST", "/api/reports", map[string]interface{}{
		"scamType": "ECOMMERCE", "incidentDate": "2025-05-10", "description": "bad seller",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSearchReports(t *testing.T) {
	reports := &stubReports{hits: []model.ReportHit{{ReportID: 3, Distance: 0.2}}}
	h, _ := newTestRouter(t, &stubChat{}, reports)

	rec := doJSON(t, h, "POST", "/api/reports/search", map[string]interface{}{"query": "crypto"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = doJSON(t, h, "POST", "/api/reports/search", map[string]interface{}{"query": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	reports.err = errors.New("index down")
	rec = doJSON(t, h, "POST", "/api/reports/search", map[string]interface{}{"query": "crypto"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpointAlways200(t *testing.T) {
	h, _ := newTestRouter(t, &stubChat{}, &stubReports{})
	BindServiceHealth(func() bool { return false })
	t.Cleanup(func() { BindServiceHealth(func() bool { return healthyFlag.Load() == 1 }) })

	rec := doJSON(t, h, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}
