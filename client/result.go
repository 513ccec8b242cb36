package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Outcome classifies a single HTTP call. It is the only error signal callers need: a proxy
// that is down or returns an unexpected status never causes a panic or an error return.
type Outcome int

const (
	// OutcomeSuccess means the proxy answered with a 2xx status or one of the expected statuses.
	OutcomeSuccess Outcome = iota
	// OutcomeHTTPError means the proxy answered, but with a status that was not expected.
	OutcomeHTTPError
	// OutcomeTransportError means no HTTP response was received at all (connection refused,
	// timeout, DNS failure). The Result's Status is 0.
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeHTTPError:
		return "http-error"
	case OutcomeTransportError:
		return "transport-error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request describes one call to the proxy.
type Request struct {
	Method string
	Path   string

	// Route is a low-cardinality label for metrics, such as "/v1/threads/{id}". Defaults to Path.
	Route string

	// Body is JSON-encoded unless it is already a []byte or json.RawMessage. A nil Body sends
	// no request body.
	Body interface{}

	// Timeout overrides the client's default per-request timeout if it is non-zero.
	Timeout time.Duration

	// ExpectStatus lists non-2xx statuses that should still count as success.
	ExpectStatus []int
}

func (r Request) route() string {
	if r.Route != "" {
		return r.Route
	}
	return r.Path
}

func (r Request) isExpected(status int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range r.ExpectStatus {
		if s == status {
			return true
		}
	}
	return false
}

// Result is the normalized outcome of one call.
//
// Body always holds something usable: the decoded JSON document, an empty object if the
// response had no body, the raw text as a JSON string if the body was not JSON, or
// {"error": "..."} for a transport error.
type Result struct {
	Method   string
	Path     string
	Status   int
	Body     ldvalue.Value
	Raw      []byte
	Err      error
	Outcome  Outcome
	Duration time.Duration

	isJSON bool
}

// OK is true if the outcome was OutcomeSuccess.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// IsJSON is false if the proxy returned a body that could not be parsed as JSON.
func (r Result) IsJSON() bool {
	return r.isJSON
}

// ErrorMessage describes what went wrong, or returns "" for a successful call.
func (r Result) ErrorMessage() string {
	switch r.Outcome {
	case OutcomeTransportError:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "server unavailable"
	case OutcomeHTTPError:
		return fmt.Sprintf("unexpected HTTP status %d: %s", r.Status, truncate(string(r.Raw), 500))
	default:
		return ""
	}
}

// Decode unmarshals the raw response body into target.
func (r Result) Decode(target interface{}) error {
	if r.Outcome == OutcomeTransportError {
		return errors.New(r.ErrorMessage())
	}
	if len(r.Raw) == 0 {
		return errors.New("response had no body")
	}
	if err := json.Unmarshal(r.Raw, target); err != nil {
		return fmt.Errorf("malformed response from %s %s: %w", r.Method, r.Path, err)
	}
	return nil
}

func (r Result) String() string {
	if r.Outcome == OutcomeTransportError {
		return fmt.Sprintf("%s %s -> %s (%s)", r.Method, r.Path, r.Outcome, r.ErrorMessage())
	}
	return fmt.Sprintf("%s %s -> %d", r.Method, r.Path, r.Status)
}

func parseBody(raw []byte) (ldvalue.Value, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ldvalue.ObjectBuild().Build(), true
	}
	if !json.Valid(raw) {
		return ldvalue.String(string(raw)), false
	}
	return ldvalue.Parse(raw), true
}

func transportErrorResult(req Request, err error) Result {
	return Result{
		Method:  req.Method,
		Path:    req.Path,
		Status:  0,
		Body:    ldvalue.ObjectBuild().Set("error", ldvalue.String(err.Error())).Build(),
		Err:     err,
		Outcome: OutcomeTransportError,
		isJSON:  true,
	}
}

// truncate shortens s to at most max bytes plus an ellipsis, without splitting a UTF-8
// sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
