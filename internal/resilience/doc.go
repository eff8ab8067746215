// Package resilience groups the fault tolerance helpers used by the scanner.
//
//   - circuitbreaker: gobreaker wrapper that short-circuits calls to a failing group API
//   - retry: bounded retries with exponential backoff on throttling and linear backoff otherwise
//
// Usage Example:
//
//	b := circuitbreaker.New(circuitbreaker.GroupAPIConfig())
//	policy := retry.DefaultPolicy()
//	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
//	    _, err := circuitbreaker.Do(b, func() ([]byte, error) { return fetch(ctx) })
//	    return err
//	})
package resilience
