package client

import (
	"net/http"
	"time"

	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAI returns an OpenAI SDK client for the proxy's OpenAI-compatible endpoints under /v1.
// It shares this client's timeout, logger and observer, and never retries.
func (c *Client) OpenAI(apiKey string) openai.Client {
	return openai.NewClient(
		option.WithBaseURL(c.baseURL+servicedef.PathChatBase+"/"),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(c.httpClient),
		option.WithRequestTimeout(c.timeout),
		option.WithMaxRetries(0),
		option.WithMiddleware(c.observeSDKCall),
	)
}

func (c *Client) observeSDKCall(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	start := time.Now()
	c.logger.Printf("Request (OpenAI SDK): %s %s", req.Method, req.URL)
	resp, err := next(req)
	duration := time.Since(start)

	outcome, status := OutcomeTransportError, 0
	switch {
	case err != nil:
		c.logger.Printf("Response: none (%s) after %s", err, duration)
	default:
		status = resp.StatusCode
		outcome = OutcomeSuccess
		if status < 200 || status >= 300 {
			outcome = OutcomeHTTPError
		}
		c.logger.Printf("Response: %d after %s", status, duration)
	}
	if c.observer != nil {
		c.observer.ObserveCall(req.Method, req.URL.Path, outcome, status, duration)
	}
	return resp, err
}
