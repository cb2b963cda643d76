package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SamuelSchlesinger/generalist/internal/metrics"
	"github.com/SamuelSchlesinger/generalist/internal/session"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "Echoes its input back" }
func (echoTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"text": {"type": "string"}}}`)
}
func (echoTool) Execute(_ context.Context, input json.RawMessage) (string, error) {
	return string(input), nil
}

type memoryStore struct {
	sessions map[string]*session.State
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]*session.State)}
}

func (m *memoryStore) Save(_ context.Context, st *session.State) error {
	m.sessions[st.ID] = st
	return nil
}

func (m *memoryStore) Load(_ context.Context, id string) (*session.State, error) {
	st, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return st, nil
}

func (m *memoryStore) List(_ context.Context) ([]session.Summary, error) {
	out := make([]session.Summary, 0, len(m.sessions))
	for _, st := range m.sessions {
		out = append(out, session.Summary{ID: st.ID, Title: st.Title, MessageCount: len(st.Messages)})
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *memoryStore) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *tool.Registry, *memoryStore) {
	t.Helper()

	registry := tool.NewRegistry(tool.RegistryConfig{Handler: tool.AllowAll{}})
	if err := registry.Register(echoTool{}); err != nil {
		t.Fatal(err)
	}
	store := newMemoryStore()
	promReg := prometheus.NewRegistry()
	metrics.New(promReg)

	s := New(Config{
		Addr:     "127.0.0.1:0",
		Registry: registry,
		Sessions: store,
		Gatherer: promReg,
	})
	return s, registry, store
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Tools != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandleListTools(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	rr := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var tools []toolJSON
	if err := json.NewDecoder(rr.Body).Decode(&tools); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("tools = %+v", tools)
	}
}

func TestHandleListExecutions(t *testing.T) {
	t.Parallel()

	s, registry, _ := newTestServer(t)
	for i := 0; i < 3; i++ {
		_, err := registry.Execute(context.Background(), tool.Request{
			ID:    "inv-" + string(rune('a'+i)),
			Name:  "echo",
			Input: json.RawMessage(`{"text": "hi"}`),
		})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/executions?limit=2", nil)
	rr := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp executionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.Total != 3 || resp.Stats.Completed != 3 {
		t.Fatalf("stats = %+v", resp.Stats)
	}
	if len(resp.Executions) != 2 {
		t.Fatalf("executions = %d, want 2", len(resp.Executions))
	}
}

func TestHandleListExecutionsBadLimit(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/executions?limit=x", nil)
	rr := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleSessions(t *testing.T) {
	t.Parallel()

	s, _, store := newTestServer(t)
	st := session.New()
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	rr := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var summaries []session.Summary
	if err := json.NewDecoder(rr.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != st.ID {
		t.Fatalf("summaries = %+v", summaries)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+st.ID, nil)
	rr = httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if len(store.sessions) != 0 {
		t.Fatal("session was not deleted")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}
