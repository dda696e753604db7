package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/council/internal/catalog"
	"github.com/dusk-indust/council/internal/council"
	"github.com/dusk-indust/council/internal/events"
	"github.com/dusk-indust/council/internal/store"
)

// mockPipeline records the arguments of the last streaming call and emits a
// scripted event sequence.
type mockPipeline struct {
	beginSel    council.ModelSelection
	beginQuery  string
	resumeAns   council.ClarificationAnswers
	emit        []events.Event
	returnedErr error
}

func (p *mockPipeline) Begin(_ context.Context, _ string, query string, sel council.ModelSelection, bridge *events.Bridge) error {
	defer bridge.Close()
	p.beginQuery = query
	p.beginSel = sel
	for _, ev := range p.emit {
		bridge.Emit(ev)
	}
	return p.returnedErr
}

func (p *mockPipeline) Resume(_ context.Context, _ string, answers council.ClarificationAnswers, bridge *events.Bridge) error {
	defer bridge.Close()
	p.resumeAns = answers
	for _, ev := range p.emit {
		bridge.Emit(ev)
	}
	return p.returnedErr
}

func newTestServer(t *testing.T) (*Server, *store.Store, *mockPipeline) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "conversations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	pipeline := &mockPipeline{
		emit: []events.Event{
			{Type: events.TypeDraftStart},
			{Type: events.TypeClarificationRequired, Data: map[string]any{"questions": []any{}}},
		},
	}
	srv := NewServer(st, pipeline, catalog.Default())
	return srv, st, pipeline
}

func TestConversationLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	// Create.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/conversations", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created council.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	// List.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var metas []council.ConversationMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, created.ID, metas[0].ID)

	// Get.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Delete.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/conversations/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Gone.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConversationNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []struct {
			ID        string `json:"id"`
			Reasoning string `json:"reasoning"`
		} `json:"models"`
		Defaults struct {
			ChairmanModel string   `json:"chairman_model"`
			ExpertModels  []string `json:"expert_models"`
		} `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	cat := catalog.Default()
	assert.Len(t, body.Models, len(cat.Models))
	assert.Equal(t, cat.DefaultChairman, body.Defaults.ChairmanModel)
	assert.Equal(t, cat.DefaultExperts, body.Defaults.ExpertModels)
}

func TestMessageStream(t *testing.T) {
	srv, st, pipeline := newTestServer(t)
	conv, err := st.Create()
	require.NoError(t, err)

	body := `{"content": "what should we build?", "chairman_model": "openai/gpt-5.2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conv.ID+"/message/stream",
		strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 2)
	assert.Equal(t, events.TypeDraftStart, frames[0].Type)
	assert.Equal(t, events.TypeClarificationRequired, frames[1].Type)

	assert.Equal(t, "what should we build?", pipeline.beginQuery)
	assert.Equal(t, "openai/gpt-5.2", pipeline.beginSel.ChairmanModel)
	// Omitted expert pool falls back to catalog defaults.
	assert.Equal(t, catalog.Default().DefaultExperts, pipeline.beginSel.ExpertModels)
}

func TestMessageStreamUnknownConversationIs404(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/no-such-id/message/stream",
		strings.NewReader(`{"content": "hello"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestClarificationStreamUnknownConversationIs404(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/no-such-id/clarification/stream",
		strings.NewReader(`{"skip": true}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageStreamRequiresContent(t *testing.T) {
	srv, st, _ := newTestServer(t)
	conv, err := st.Create()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conv.ID+"/message/stream",
		strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageStreamRejectsBadJSON(t *testing.T) {
	srv, st, _ := newTestServer(t)
	conv, err := st.Create()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conv.ID+"/message/stream",
		strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClarificationStream(t *testing.T) {
	srv, st, pipeline := newTestServer(t)
	conv, err := st.Create()
	require.NoError(t, err)

	pipeline.emit = []events.Event{
		{Type: events.TypeStage0Start},
		{Type: events.TypeComplete},
	}

	body := `{"answers": [{"question_id": "q1", "selected_options": ["narrow"]}], "skip": false}`
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conv.ID+"/clarification/stream",
		strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 2)
	assert.Equal(t, events.TypeComplete, frames[1].Type)

	require.Len(t, pipeline.resumeAns.Answers, 1)
	assert.Equal(t, "q1", pipeline.resumeAns.Answers[0].QuestionID)
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// parseSSE splits a text/event-stream body into its decoded data frames.
func parseSSE(t *testing.T, body string) []events.Event {
	t.Helper()
	var out []events.Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev events.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		out = append(out, ev)
	}
	return out
}
