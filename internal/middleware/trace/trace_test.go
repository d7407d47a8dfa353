package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "insights/internal/log"
)

type observation struct {
	route  string
	method string
	status int
}

type fakeRecorder struct{ got []observation }

func (f *fakeRecorder) ObserveHTTP(route, method string, status int, _ time.Duration) {
	f.got = append(f.got, observation{route, method, status})
}

func newStack(t *testing.T, buf *bytes.Buffer, rec Recorder) http.Handler {
	t.Helper()
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Format: "json", Output: buf, Component: applog.ComponentHTTP})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /charts/{id}", func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).Info("inside handler")
		if r.PathValue("id") == "missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	tm := NewMiddleware(func(*http.Request) string { return "198.51.100.1" }, rec)
	return applog.Middleware(logger)(tm.Middleware(mux))
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := newStack(t, &buf, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/report-type", nil))

	id := rec.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"inside handler"`)
	assert.Equal(t, 3, strings.Count(out, id), "start, handler and completion lines carry the id")
	assert.Contains(t, out, `"client_ip":"198.51.100.1"`)
}

func TestMiddleware_ReusesValidIncomingID(t *testing.T) {
	var buf bytes.Buffer
	h := newStack(t, &buf, nil)

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/charts/report-type", nil)
	req.Header.Set(HeaderRequestID, incoming)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/charts/report-type", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(HeaderRequestID))
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	fr := &fakeRecorder{}
	h := newStack(t, &buf, fr)

	for _, path := range []string{"/charts/a", "/charts/missing", "/nope"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, fr.got, 3)
	assert.Equal(t, observation{"GET /charts/{id}", "GET", 200}, fr.got[0])
	assert.Equal(t, observation{"GET /charts/{id}", "GET", 404}, fr.got[1])
	assert.Equal(t, 404, fr.got[2].status)
	assert.NotContains(t, fr.got[2].route, "/nope")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestGetRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
