package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Query  string            `json:"query"`
	Header map[string]string `json:"header"`
	Body   string            `json:"body"`
}

func echoHandler() http.Handler {
	router := mux.NewRouter()
	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		e := echo{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: map[string]string{
				"Authorization": r.Header.Get("Authorization"),
				"User-Agent":    r.Header.Get("User-Agent"),
				"Content-Type":  r.Header.Get("Content-Type"),
			},
			Body: string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		_ = json.NewEncoder(w).Encode(e)
	})
	return router
}

func executors(t *testing.T) map[string]Executor {
	server := httptest.NewServer(echoHandler())
	t.Cleanup(server.Close)
	httpExecutor := NewHTTPExecutor(server.URL, time.Second)
	t.Cleanup(func() { _ = httpExecutor.Close() })
	return map[string]Executor{
		"http":   httpExecutor,
		"router": NewRouterExecutor(echoHandler()),
	}
}

func TestExecutors(t *testing.T) {
	for name, executor := range executors(t) {
		t.Run(name, func(t *testing.T) {
			executor.SetHeader("user-agent", "test")
			executor.SetHeader("Authorization", "Bearer abc")
			assert.Equal(t, "Bearer abc", executor.Header("authorization"))

			res, err := executor.Do(context.Background(), &Request{
				Method: http.MethodPost,
				Path:   "/v1/things",
				Query:  url.Values{"country": {"US"}},
				Body:   map[string]string{"email": "a@b.c"},
			})
			require.NoError(t, err)
			assert.Equal(t, http.StatusTeapot, res.StatusCode)

			var e echo
			require.NoError(t, json.Unmarshal(res.Body, &e))
			assert.Equal(t, http.MethodPost, e.Method)
			assert.Equal(t, "/v1/things", e.Path)
			assert.Equal(t, "country=US", e.Query)
			assert.Equal(t, "Bearer abc", e.Header["Authorization"])
			assert.Equal(t, "test", e.Header["User-Agent"])
			assert.Equal(t, "application/json", e.Header["Content-Type"])
			assert.JSONEq(t, `{"email":"a@b.c"}`, e.Body)

			executor.DelHeader("Authorization")
			res, err = executor.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/x"})
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(res.Body, &e))
			assert.Empty(t, e.Header["Authorization"])
			assert.Empty(t, e.Body)
			assert.Empty(t, e.Header["Content-Type"])
		})
	}
}

func TestRouterExecutorRequestWithoutBody(t *testing.T) {
	var sawBody bool
	executor := NewRouterExecutor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawBody = r.Body != nil
		body, err := io.ReadAll(r.Body)
		if err != nil || len(body) != 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		res, err := executor.Do(context.Background(), &Request{Method: method, Path: "/v1/things"})
		require.NoError(t, err, method)
		assert.Equal(t, http.StatusNoContent, res.StatusCode, method)
		assert.True(t, sawBody, method)
	}
}

func TestRawBody(t *testing.T) {
	executor := NewRouterExecutor(echoHandler())
	res, err := executor.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/", Body: []byte(`{"raw":true}`)})
	require.NoError(t, err)
	var e echo
	require.NoError(t, json.Unmarshal(res.Body, &e))
	assert.Equal(t, `{"raw":true}`, e.Body)
}

func TestCancelledContext(t *testing.T) {
	for name, executor := range executors(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := executor.Do(ctx, &Request{Method: http.MethodGet, Path: "/"})
			assert.True(t, errors.Is(err, context.Canceled), err)
		})
	}
}

func TestHTTPExecutorTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	executor := NewHTTPExecutor(server.URL, 50*time.Millisecond)
	defer executor.Close()

	_, err := executor.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
}

func TestHTTPExecutorConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	address := server.URL
	server.Close()

	executor := NewHTTPExecutor(address, time.Second)
	defer executor.Close()
	_, err := executor.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	assert.Error(t, err)
}

func TestHTTPExecutorDefaults(t *testing.T) {
	a := NewHTTPExecutor("http://example.invalid", 0)
	b := NewHTTPExecutor("http://example.invalid", 0)
	assert.Equal(t, DefaultTimeout, a.httpClient.Timeout)
	assert.NotSame(t, a.transport, b.transport)
	assert.Equal(t, "http://example.invalid", a.BaseURL())

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
