package framework

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lmproxy/proxy-contract-tests/client"
)

// Resource is something the proxy created at a test's request, such as a session or a
// thread, which is removed again with a DELETE to its path.
type Resource struct {
	client      *client.Client
	path        string
	route       string
	description string
	closed      bool
}

func NewResource(c *client.Client, path, route, description string) *Resource {
	return &Resource{client: c, path: path, route: route, description: description}
}

func (r *Resource) Path() string {
	return r.path
}

func (r *Resource) String() string {
	return fmt.Sprintf("%s (%s)", r.description, r.path)
}

// Delete sends the DELETE request and returns its result. A 200 or 204 response marks the
// resource as gone, so that a later Close does nothing.
func (r *Resource) Delete(ctx context.Context) client.Result {
	result := r.client.Do(ctx, client.Request{
		Method: http.MethodDelete,
		Path:   r.path,
		Route:  r.route,
	})
	if result.Status == 200 || result.Status == 204 {
		r.closed = true
	}
	return result
}

// Close deletes the resource unless it has already been deleted. The proxy must answer 200
// or 204.
func (r *Resource) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	result := r.Delete(ctx)
	if result.Outcome == client.OutcomeTransportError {
		return fmt.Errorf("could not delete %s: %s", r, result.ErrorMessage())
	}
	if !r.closed {
		return fmt.Errorf("DELETE of %s returned HTTP status %d", r, result.Status)
	}
	return nil
}
