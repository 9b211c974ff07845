// internal/api/router_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-assistant/internal/analyzer"
	"banking-assistant/internal/cache"
	"banking-assistant/internal/common/config"
	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/common/logger"
	"banking-assistant/internal/interactions"
	"banking-assistant/internal/models"
	"banking-assistant/internal/pipeline"
)

// ==========================
// Test doubles
// ==========================

type fakeAnswerer struct {
	mu      sync.Mutex
	queries []pipeline.Query
	err     error
}

func (f *fakeAnswerer) Answer(_ context.Context, q pipeline.Query) (*pipeline.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Response{
		Response:    "answer to " + q.Question,
		Confidence:  0.9,
		DataSources: []string{"bank_api"},
		Intent:      models.Intent{Kind: models.IntentLocation, Language: models.LanguageEnglish},
	}, nil
}

func (f *fakeAnswerer) last() pipeline.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func createTestCaches() *cache.Manager {
	return cache.NewManager(config.CacheConfig{
		Locations: config.NamedCacheConfig{TTL: 600, Capacity: 10},
		Currency:  config.NamedCacheConfig{TTL: 300, Capacity: 10},
		Context:   config.NamedCacheConfig{TTL: 1800, Capacity: 10},
	})
}

func newTestServer(t *testing.T, answerer Answerer, caches *cache.Manager, checks map[string]Pinger) *httptest.Server {
	t.Helper()
	h := NewHandler(answerer, caches, 4, checks, logger.NewTestLogger(t))
	srv := httptest.NewServer(NewRouter(h, 5*time.Second))
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// ==========================
// REST endpoints
// ==========================

func TestQuery_Success(t *testing.T) {
	answerer := &fakeAnswerer{}
	srv := newTestServer(t, answerer, createTestCaches(), nil)

	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(
		`{"question": "Where is the nearest ATM?", "sessionId": "s1", "userLocation": {"latitude": 40.4, "longitude": 49.8}}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "answer to Where is the nearest ATM?", body["response"])
	assert.Equal(t, 0.9, body["confidence"])
	assert.Equal(t, false, body["degraded"])

	q := answerer.last()
	assert.Equal(t, "s1", q.SessionID)
	require.NotNil(t, q.UserLocation)
	assert.Equal(t, 40.4, q.UserLocation.Latitude)
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"question":`, nil, http.StatusBadRequest, "INVALID_QUERY"},
		{"invalid question", `{"question": ""}`, apperrors.NewInvalidQueryError("question is empty"), http.StatusBadRequest, "INVALID_QUERY"},
		{"unexpected error", `{"question": "hi"}`, errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeAnswerer{err: tt.err}, createTestCaches(), nil)

			resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeBody(t, resp)["error"])
		})
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	caches := createTestCaches()
	caches.Locations().Set("locations:atm", []models.Location{}, 0)
	caches.Locations().Set("locations:branch", []models.Location{}, 0)
	srv := newTestServer(t, &fakeAnswerer{}, caches, nil)

	resp, err := http.Get(srv.URL + "/api/v1/cache/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeBody(t, resp)["caches"].([]interface{})
	require.Len(t, stats, 3)
	assert.Equal(t, "context", stats[0].(map[string]interface{})["name"])
	assert.Equal(t, "locations", stats[2].(map[string]interface{})["name"])
	assert.Equal(t, float64(2), stats[2].(map[string]interface{})["size"])

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/cache/locations", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), decodeBody(t, resp)["removed"])
	assert.Equal(t, 0, caches.Locations().Stats().Size)

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/cache/unknown", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &fakeAnswerer{}, createTestCaches(), map[string]Pinger{
		"redis": fakePinger{},
	})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, analyzer.TablesVersion, decodeBody(t, resp)["tablesVersion"])

	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", decodeBody(t, resp)["status"])

	down := newTestServer(t, &fakeAnswerer{}, createTestCaches(), map[string]Pinger{
		"redis":    fakePinger{},
		"postgres": fakePinger{err: errors.New("connection refused")},
	})
	resp, err = http.Get(down.URL + "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeBody(t, resp)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["redis"])
	assert.Equal(t, "connection refused", checks["postgres"])
}

func TestResetSession(t *testing.T) {
	caches := createTestCaches()
	srv := newTestServer(t, &fakeAnswerer{}, caches, nil)
	store := NewSessionStore(caches.Context(), 4)
	store.Append("s1", models.Turn{Role: models.RoleUser, Content: "hello"})

	reset := func(id string) map[string]interface{} {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/sessions/"+id, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		return decodeBody(t, resp)
	}

	assert.Equal(t, true, reset("s1")["reset"])
	assert.Empty(t, store.History("s1"))
	assert.Equal(t, false, reset("s1")["reset"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeAnswerer{}, createTestCaches(), nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ==========================
// Chat websocket
// ==========================

func dialChat(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	if session != "" {
		url += "?session=" + session
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ChatEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev ChatEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestChat_KeepsSlidingHistory(t *testing.T) {
	answerer := &fakeAnswerer{}
	caches := createTestCaches()
	srv := newTestServer(t, answerer, caches, nil)
	conn := dialChat(t, srv, "chat-1")

	ev := readEvent(t, conn)
	assert.Equal(t, MessageSession, ev.Type)
	assert.Equal(t, "chat-1", ev.SessionID)

	for _, q := range []string{"q1", "q2", "q3"} {
		require.NoError(t, conn.WriteJSON(ChatMessage{Type: MessageQuery, Question: q}))
		ev = readEvent(t, conn)
		require.Equal(t, MessageAnswer, ev.Type)
		assert.Equal(t, "answer to "+q, ev.Answer.Response)
	}

	last := answerer.last()
	assert.Equal(t, interactions.TypeChat, last.Channel)
	// q3 is answered with the first two exchanges
	require.Len(t, last.History, 4)
	assert.Equal(t, "q1", last.History[0].Content)
	assert.Equal(t, models.RoleUser, last.History[0].Role)
	assert.Equal(t, "answer to q2", last.History[3].Content)

	stored := NewSessionStore(caches.Context(), 4).History("chat-1")
	require.Len(t, stored, 4)
	assert.Equal(t, "q2", stored[0].Content)
	assert.Equal(t, "answer to q3", stored[3].Content)
}

func TestChat_PingAndUnknownType(t *testing.T) {
	srv := newTestServer(t, &fakeAnswerer{}, createTestCaches(), nil)
	conn := dialChat(t, srv, "")

	ev := readEvent(t, conn)
	require.Equal(t, MessageSession, ev.Type)
	assert.NotEmpty(t, ev.SessionID)

	require.NoError(t, conn.WriteJSON(ChatMessage{Type: MessagePing}))
	assert.Equal(t, MessagePong, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ChatMessage{Type: "audio"}))
	ev = readEvent(t, conn)
	assert.Equal(t, MessageError, ev.Type)
	assert.Contains(t, ev.Error, "audio")
}

func TestChat_FailedAnswerKeepsHistoryUnchanged(t *testing.T) {
	caches := createTestCaches()
	srv := newTestServer(t, &fakeAnswerer{err: apperrors.NewInvalidQueryError("question is empty")}, caches, nil)
	conn := dialChat(t, srv, "chat-2")
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(ChatMessage{Type: MessageQuery}))
	ev := readEvent(t, conn)
	assert.Equal(t, MessageError, ev.Type)
	assert.Empty(t, NewSessionStore(caches.Context(), 4).History("chat-2"))
}
