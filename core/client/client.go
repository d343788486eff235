// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides the transports used to talk to a REST api.

An Executor sends a Request and returns the raw Response. HTTPExecutor goes
over the network with its own pooled connections. RouterExecutor talks
directly to an http.Handler such as a mux router, without marshalling HTTP;
it is perfectly suited for unit tests.

Executors do not interpret status codes. Every response that arrived is
returned without error; errors mean the request could not be completed.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTimeout is used by NewHTTPExecutor when no timeout is given.
const DefaultTimeout = 30 * time.Second

// Request is a single REST call.
type Request struct {
	Method string
	// Path is appended to the base URL of the executor.
	Path  string
	Query url.Values
	// Body is marshalled to JSON unless it is a []byte. nil sends no body.
	Body any
	// Header is added to the default headers of the executor.
	Header map[string]string
}

// Response is what came back from the server.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Executor sends requests. Implementations are safe for concurrent use.
type Executor interface {
	Do(ctx context.Context, r *Request) (*Response, error)
	// SetHeader sets a default header sent with every request.
	SetHeader(key, value string)
	DelHeader(key string)
	Header(key string) string
	// Close releases the resources of the executor. Calling it more than once is a no-op.
	Close() error
}

// headers is the default header set shared by both executors.
type headers struct {
	mu     sync.RWMutex
	values map[string]string
}

func (h *headers) SetHeader(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.values == nil {
		h.values = map[string]string{}
	}
	h.values[http.CanonicalHeaderKey(key)] = value
}

func (h *headers) DelHeader(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.values, http.CanonicalHeaderKey(key))
}

func (h *headers) Header(key string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.values[http.CanonicalHeaderKey(key)]
}

func (h *headers) newRequest(ctx context.Context, baseURL string, r *Request) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		j, ok := r.Body.([]byte)
		if !ok {
			var err error
			j, err = json.Marshal(r.Body)
			if err != nil {
				return nil, fmt.Errorf("%s to %s: %w", r.Method, r.Path, err)
			}
		}
		body = bytes.NewReader(j)
	}

	target := baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	for key, value := range h.values {
		req.Header.Set(key, value)
	}
	h.mu.RUnlock()
	for key, value := range r.Header {
		req.Header.Set(key, value)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// HTTPExecutor sends requests over the network. Each executor owns its
// connection pool; nothing is shared between executors.
type HTTPExecutor struct {
	headers
	baseURL    string
	transport  *http.Transport
	httpClient *http.Client
	closeOnce  sync.Once
}

// NewHTTPExecutor creates an executor for the server at baseURL. Every
// request is bounded by timeout; zero means DefaultTimeout.
func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &HTTPExecutor{
		baseURL:    baseURL,
		transport:  transport,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
}

// BaseURL returns the server the executor talks to.
func (e *HTTPExecutor) BaseURL() string {
	return e.baseURL
}

// Do sends r. Timeouts and connection failures are returned as errors.
func (e *HTTPExecutor) Do(ctx context.Context, r *Request) (*Response, error) {
	req, err := e.newRequest(ctx, e.baseURL, r)
	if err != nil {
		return nil, err
	}
	res, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}, nil
}

// Close drops all idle connections of the executor.
func (e *HTTPExecutor) Close() error {
	e.closeOnce.Do(e.transport.CloseIdleConnections)
	return nil
}

// RouterExecutor dispatches requests in-process to a handler.
type RouterExecutor struct {
	headers
	handler http.Handler
}

// NewRouterExecutor creates an executor that serves every request with handler.
func NewRouterExecutor(handler http.Handler) *RouterExecutor {
	return &RouterExecutor{handler: handler}
}

// Do serves r with the handler. A cancelled context is reported before the
// handler runs.
func (e *RouterExecutor) Do(ctx context.Context, r *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := e.newRequest(ctx, "", r)
	if err != nil {
		return nil, err
	}
	// servers never hand a handler a nil body
	if req.Body == nil {
		req.Body = http.NoBody
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	res := rec.Result()
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: rec.Body.Bytes()}, nil
}

// Close is a no-op.
func (e *RouterExecutor) Close() error {
	return nil
}
