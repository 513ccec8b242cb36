package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lmproxy/proxy-contract-tests/logging"
)

// DefaultTimeout is the per-request timeout used when neither the client nor the request sets one.
// Model responses can be slow, so this is generous.
const DefaultTimeout = 120 * time.Second

const maxLoggedBody = 2000

// Observer is notified once per completed call. The metrics package implements it.
type Observer interface {
	ObserveCall(method, route string, outcome Outcome, status int, duration time.Duration)
}

// Client makes single-attempt HTTP calls to the proxy and normalizes every outcome into a
// Result. It never retries and never returns a Go error for a failed call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     logging.Logger
	observer   Observer
}

type Option func(*Client)

// WithTimeout sets the default per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying http.Client. Its own Timeout should be zero, since
// timeouts are applied per request through the context.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger that receives a description of every request and response.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an Observer for call metrics.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// New creates a Client for the proxy at baseURL, such as "http://127.0.0.1:3141".
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     logging.NullLogger(),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// With returns a copy of the client with additional options applied. Tests use this to attach
// their own debug logger to a shared client.
func (c *Client) With(options ...Option) *Client {
	c1 := *c
	for _, o := range options {
		o(&c1)
	}
	return &c1
}

// Get is shorthand for Do with method GET.
func (c *Client) Get(ctx context.Context, path string) Result {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post is shorthand for Do with method POST and a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) Result {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Delete is shorthand for Do with method DELETE.
func (c *Client) Delete(ctx context.Context, path string) Result {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Do performs one call and reads the whole response body.
func (c *Client) Do(ctx context.Context, req Request) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(req))
	defer cancel()

	resp, result, ok := c.send(ctx, req, "")
	if ok {
		raw, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			result = transportErrorResult(req, fmt.Errorf("error reading response body: %w", err))
		} else {
			result = c.classify(req, resp.StatusCode, raw)
		}
	}
	result.Duration = time.Since(start)
	c.finish(req, result)
	return result
}

// Stream performs a call whose response is a server-sent event stream. If the call fails or
// returns an unexpected status, the stream is nil and the Result says why. Otherwise the
// caller must consume or Close the stream; the Result only carries the status.
//
// The request timeout covers the whole stream, not just the response headers.
func (c *Client) Stream(ctx context.Context, req Request) (*EventStream, Result) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(req))

	resp, result, ok := c.send(ctx, req, "text/event-stream")
	if !ok {
		cancel()
		result.Duration = time.Since(start)
		c.finish(req, result)
		return nil, result
	}
	if !req.isExpected(resp.StatusCode) {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		result = c.classify(req, resp.StatusCode, raw)
		result.Duration = time.Since(start)
		c.finish(req, result)
		return nil, result
	}
	result = c.classify(req, resp.StatusCode, nil)
	result.Duration = time.Since(start)
	c.finish(req, result)
	return newEventStream(resp.Body, cancel, c.logger), result
}

func (c *Client) timeoutFor(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return c.timeout
}

func (c *Client) send(ctx context.Context, req Request, accept string) (*http.Response, Result, bool) {
	var body []byte
	if req.Body != nil {
		switch b := req.Body.(type) {
		case []byte:
			body = b
		case json.RawMessage:
			body = b
		default:
			data, err := json.Marshal(req.Body)
			if err != nil {
				return nil, transportErrorResult(req, fmt.Errorf("could not encode request body: %w", err)), false
			}
			body = data
		}
	}

	url := c.baseURL + req.Path
	c.logger.Printf("Request: %s", curlCommand(req.Method, url, body))

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, transportErrorResult(req, err), false
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accept != "" {
		httpReq.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportErrorResult(req, err), false
	}
	return resp, Result{}, true
}

func (c *Client) classify(req Request, status int, raw []byte) Result {
	body, isJSON := parseBody(raw)
	outcome := OutcomeSuccess
	if !req.isExpected(status) {
		outcome = OutcomeHTTPError
	}
	return Result{
		Method:  req.Method,
		Path:    req.Path,
		Status:  status,
		Body:    body,
		Raw:     raw,
		Outcome: outcome,
		isJSON:  isJSON,
	}
}

func (c *Client) finish(req Request, result Result) {
	switch result.Outcome {
	case OutcomeTransportError:
		c.logger.Printf("Response: none (%s) after %s", result.ErrorMessage(), result.Duration)
	default:
		c.logger.Printf("Response: %d after %s: %s", result.Status, result.Duration,
			truncate(string(result.Raw), maxLoggedBody))
	}
	if c.observer != nil {
		c.observer.ObserveCall(req.Method, req.route(), result.Outcome, result.Status, result.Duration)
	}
}
