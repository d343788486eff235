package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithLogger(t *testing.T) {
	ctx, rlog := ContextWithLogger(context.Background())
	require.NotNil(t, rlog)

	id := RequestIDFromContext(ctx)
	assert.NotEmpty(t, id)
	assert.Equal(t, rlog, FromContext(ctx))

	// an existing logger is kept
	ctx2, rlog2 := ContextWithLogger(ctx)
	assert.Equal(t, ctx, ctx2)
	assert.Equal(t, rlog, rlog2)
}

func TestContextWithOperation(t *testing.T) {
	ctx, rlog := ContextWithOperation(context.Background(), "get devices")
	assert.Equal(t, "get devices", rlog.Data[operationLoggerKey])
	assert.NotEmpty(t, RequestIDFromContext(ctx))
}

func TestFromContextWithoutLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestAddRequestID(t *testing.T) {
	router := mux.NewRouter()
	AddRequestID(router)

	var seen string
	router.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, seen)
}

func TestRedact(t *testing.T) {
	testCases := map[string]string{
		"":                  "",
		"a":                 "*",
		"ab@example.com":    "a*@example.com",
		"jane@example.com":  "ja**@example.com",
		"+4915123456789":    "+4************",
		"@example.com":      "@example.com",
	}
	for in, want := range testCases {
		assert.Equal(t, want, Redact(in), in)
	}
}
