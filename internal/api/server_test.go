package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc, err := service.NewService(config.Default(t.TempDir()), logger)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	require.NoError(t, svc.InitLibrary())
	return NewAPIServer(svc, "127.0.0.1:0", logger).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	code, env := do(t, h, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "healthy", data["status"])
}

func TestTemplateRoutes(t *testing.T) {
	h := newTestHandler(t)

	code, env := do(t, h, http.MethodPost, "/api/v1/templates", map[string]interface{}{
		"id":   "river",
		"body": "The [NOUN] flows",
		"tags": []string{"nature"},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "Saved template river", env.Message)

	code, env = do(t, h, http.MethodGet, "/api/v1/templates/river", nil)
	assert.Equal(t, http.StatusOK, code)
	var view struct {
		ID     string `json:"id"`
		Markup string `json:"markup"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "river", view.ID)
	assert.Contains(t, view.Markup, "[NOUN]")

	code, env = do(t, h, http.MethodGet, "/api/v1/templates?q=river", nil)
	assert.Equal(t, http.StatusOK, code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	code, _ = do(t, h, http.MethodDelete, "/api/v1/templates/river", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, h, http.MethodGet, "/api/v1/templates/river", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSessionRoutes(t *testing.T) {
	h := newTestHandler(t)
	code, _ := do(t, h, http.MethodPost, "/api/v1/templates", map[string]interface{}{"id": "pair", "body": "[NOUN] [VERB]"})
	require.Equal(t, http.StatusCreated, code)

	code, env := do(t, h, http.MethodPatch, "/api/v1/sessions/s1/config", map[string]interface{}{"autoBind": false})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, h, http.MethodPost, "/api/v1/sessions/s1/realize", map[string]interface{}{
		"template": "pair",
		"format":   "text",
		"candidates": []map[string]interface{}{
			{"text": "cat", "pos": []string{"NOUN"}},
			{"text": "sleep", "pos": []string{"VERB"}},
		},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var surface string
	require.NoError(t, json.Unmarshal(env.Data, &surface))
	assert.Equal(t, "cat sleep", surface)

	code, env = do(t, h, http.MethodPatch, "/api/v1/sessions/s1/config", map[string]interface{}{"jitterProbability": 5})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, env = do(t, h, http.MethodPost, "/api/v1/sessions/s1/generate", map[string]interface{}{"expression": "desert"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "EXHAUSTED", env.Error.Code)
}

func TestProfileRoutes(t *testing.T) {
	h := newTestHandler(t)

	code, env := do(t, h, http.MethodPut, "/api/v1/sessions/s1/profiles/calm", map[string]interface{}{"jitterProbability": 0.1})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = do(t, h, http.MethodPost, "/api/v1/sessions/s1/profiles/calm/activate", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, h, http.MethodGet, "/api/v1/sessions/s1/profiles", nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Active string `json:"active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, "calm", list.Active)

	code, env = do(t, h, http.MethodDelete, "/api/v1/sessions/s1/profiles/default", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestLogRoutes(t *testing.T) {
	h := newTestHandler(t)

	code, env := do(t, h, http.MethodPut, "/api/v1/sessions/s1/logs", map[string]interface{}{"enabled": true})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, h, http.MethodGet, "/api/v1/sessions/s1/logs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env.Meta["enabled"])

	code, _ = do(t, h, http.MethodDelete, "/api/v1/sessions/s1/logs", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouteErrors(t *testing.T) {
	h := newTestHandler(t)

	code, env := do(t, h, http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)

	code, env = do(t, h, http.MethodPut, "/api/v1/templates", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_COMMAND", env.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/batch", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenAPISpecCoversRoutes(t *testing.T) {
	spec := openAPISpec("")
	paths := spec["paths"].(map[string]interface{})
	for _, rt := range routes {
		item, ok := paths[rt.Pattern].(map[string]interface{})
		require.True(t, ok, rt.Pattern)
		assert.Contains(t, item, map[string]string{
			http.MethodGet: "get", http.MethodPost: "post", http.MethodPut: "put",
			http.MethodPatch: "patch", http.MethodDelete: "delete",
		}[rt.Method])
	}
}

func TestRouteParams(t *testing.T) {
	assert.Equal(t, []string{"session", "id"}, routeParams("/sessions/{session}/profiles/{id}/activate"))
	assert.Empty(t, routeParams("/health"))
}
