package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

func TestRequestIDPropagatesValidHeader(t *testing.T) {
	var seen string
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "trace-abc.123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, "trace-abc.123", seen)
	assert.Equal(t, "trace-abc.123", resp.Header().Get(requestIDHeader))
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	for name, value := range map[string]string{
		"missing":  "",
		"newline":  "abc\r\nX-Evil: 1",
		"too long": strings.Repeat("a", maxRequestIDLen+1),
	} {
		t.Run(name, func(t *testing.T) {
			var seen string
			handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if value != "" {
				req.Header[requestIDHeader] = []string{value}
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			_, err := uuid.Parse(seen)
			require.NoError(t, err)
			assert.Equal(t, seen, resp.Header().Get(requestIDHeader))
		})
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: &buf})
	handler := RequestID(logg)(Recoverer(logg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/books", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "boom")
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "request_id")
}

func TestRecovererReraisesAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

type recordedRequest struct {
	method, route string
	status        int
}

type stubObserver struct {
	calls []recordedRequest
}

func (s *stubObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	s.calls = append(s.calls, recordedRequest{method: method, route: route, status: status})
}

func TestLoggingObservesStatus(t *testing.T) {
	observer := &stubObserver{}
	handler := Logging(logger.Nop(), observer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/cart", nil))

	require.Len(t, observer.calls, 1)
	assert.Equal(t, recordedRequest{method: http.MethodPost, route: "/api/cart", status: http.StatusCreated}, observer.calls[0])
}
