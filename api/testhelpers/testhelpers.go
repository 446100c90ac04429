package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsepoint/eris-api/api"
	"github.com/pulsepoint/eris-api/api/handlers"
	"github.com/pulsepoint/eris-api/config"
	"github.com/pulsepoint/eris-api/databases"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

// Secret signs the tokens of test apps
const Secret = "test-secret"

// NewApp builds an App over the seed dataset, persisting to an in-memory
// store and broadcasting commits to its hub. Options run before the router
// is built.
func NewApp(t *testing.T, opts ...func(*handlers.App)) *handlers.App {
	t.Helper()
	store := databases.NewMemoryStateDatabase()
	a := &handlers.App{
		Config: config.Config{JWTSecret: Secret, StoreDriver: config.StoreMemory},
		Store:  store,
	}
	a.Engine = dispatch.NewEngine(dispatch.Seed(time.Now()),
		dispatch.WithSyncDelay(time.Hour),
		dispatch.WithCommitHook(dispatch.PersistHook(store, api.StoreTimeout)),
		dispatch.WithCommitHook(api.MetricsCommitHook),
	)
	for _, opt := range opts {
		opt(a)
	}
	a.Router = a.New()
	a.Engine.OnCommit(a.Hub.Broadcast)
	return a
}

// Do sends a request to the router. A non-empty token is sent as a bearer
// token and a non-nil body is encoded as JSON.
func Do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// Token signs username in with basic auth and returns its bearer token
func Token(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
	req.SetBasicAuth(username, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp handlers.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// Decode unmarshals the recorded body into v
func Decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

// ErrorMessage returns the message of an error response
func ErrorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorMessageResponse
	Decode(t, rr, &resp)
	return resp.Response.Message
}
