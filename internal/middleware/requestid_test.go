package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveWithID runs a request carrying header (when non-empty) through RequestID
// and returns the id seen by the handler plus the recorded response.
func serveWithID(t *testing.T, header string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/?method=Report.GetStatus", nil)
	if header != "" {
		req.Header.Set(RequestIDHeader, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return seen, rec
}

func TestRequestID_AssignsWhenMissing(t *testing.T) {
	id, rec := serveWithID(t, "")
	require.NotEmpty(t, id)
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_EchoesClientID(t *testing.T) {
	id, rec := serveWithID(t, "omni-run_42")
	assert.Equal(t, "omni-run_42", id)
	assert.Equal(t, "omni-run_42", rec.Header().Get(RequestIDHeader))
}

func TestRequestID_ReplacesMalformed(t *testing.T) {
	cases := map[string]string{
		"header injection": "run\nX-WSSE: forged",
		"whitespace":       "run 42",
		"punctuation":      "run.42/queue",
		"over length":      strings.Repeat("r", maxRequestIDLen+1),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			id, _ := serveWithID(t, header)
			require.NotEmpty(t, id)
			assert.NotEqual(t, header, id)
		})
	}

	t.Run("at max length", func(t *testing.T) {
		header := strings.Repeat("r", maxRequestIDLen)
		id, _ := serveWithID(t, header)
		assert.Equal(t, header, id)
	})
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "abc")
	assert.Equal(t, "abc", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
