// Package testutil provides common test utilities and helpers for BuddyBot tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/api"
	"github.com/BTreeMap/BuddyBot/internal/flow"
	"github.com/BTreeMap/BuddyBot/internal/store"
)

// FixedTime is the clock reading used by NewTestEngine.
var FixedTime = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// Envelope mirrors models.APIResponse with the result left undecoded.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// NewTestEngine creates a seeded engine with a fixed clock, archiving into archive.
func NewTestEngine(archive *store.InMemoryStore, opts ...flow.Option) *flow.Engine {
	base := []flow.Option{
		flow.WithSeed(1),
		flow.WithClock(func() time.Time { return FixedTime }),
	}
	if archive != nil {
		base = append(base, flow.WithArchive(archive))
	}
	return flow.NewEngine(append(base, opts...)...)
}

// SequentialIDs returns a session id generator yielding session_test_1, session_test_2, ...
func SequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("session_test_%d", n.Add(1))
	}
}

// NewTestServer creates an API server backed by a seeded engine and an in-memory archive.
func NewTestServer(opts ...api.Option) (*api.Server, *flow.Engine, *store.InMemoryStore) {
	archive := store.NewInMemoryStore()
	engine := NewTestEngine(archive)
	opts = append([]api.Option{api.WithArchive(archive)}, opts...)
	return api.NewServer(engine, SequentialIDs(), opts...), engine, archive
}

// Do sends a request with an optional JSON body to h and returns the recorder.
func Do(t testing.TB, h http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		reqBody.Write(MustMarshalJSON(t, body))
	}
	req := httptest.NewRequest(method, url, &reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t testing.TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// DecodeEnvelope decodes the JSON envelope, checks its status field and, when result
// is non-nil, decodes the result payload into it.
func DecodeEnvelope(t testing.TB, rr *httptest.ResponseRecorder, expectedStatus string, result any) Envelope {
	t.Helper()
	var env Envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if env.Status != expectedStatus {
		t.Errorf("expected status %q, got %q (message %q)", expectedStatus, env.Status, env.Message)
	}
	if result != nil {
		if len(env.Result) == 0 {
			t.Fatalf("response has no result payload")
		}
		MustUnmarshalJSON(t, env.Result, result)
	}
	return env
}

// MustMarshalJSON marshals v to JSON and fails the test on error.
func MustMarshalJSON(t testing.TB, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data and fails the test on error.
func MustUnmarshalJSON(t testing.TB, data []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
