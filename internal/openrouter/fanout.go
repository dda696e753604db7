package openrouter

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CallMany dispatches every call in parallel and waits for all of them to
// settle before returning: a join barrier, not a race. results[i] always
// corresponds to calls[i] regardless of completion order.
//
// Individual failures stay inside their Result slot so the caller can absorb
// partial fan-out failure; one slow or broken model never cancels its
// siblings.
func (c *HTTPClient) CallMany(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))
	g := new(errgroup.Group)

	for i, call := range calls {
		g.Go(func() error {
			resp, err := c.CallOne(ctx, call)
			results[i] = Result{Model: call.Model, Response: resp, Err: err}
			return nil // failures are per-slot data, not group errors
		})
	}

	_ = g.Wait()
	return results
}
