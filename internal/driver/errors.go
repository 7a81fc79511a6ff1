package driver

import "errors"

// Error taxonomy for the driver's attempt loop. Wrapped with
// fmt.Errorf("...: %w", err) at each layer so errors.Is still matches.
var (
	// ErrParseFailure means the provider's response (text-mode XML or
	// JSON-mode tool call) did not yield a valid tool invocation.
	ErrParseFailure = errors.New("driver: parse failure")

	// ErrEmptyCompletion means the provider returned no content at all.
	ErrEmptyCompletion = errors.New("driver: empty completion")

	// ErrExhaustedRetries means all 4 attempts failed.
	ErrExhaustedRetries = errors.New("driver: exhausted retries")

	// ErrCancelled means the per-session cancellation token fired
	// during the attempt loop or a tool execution.
	ErrCancelled = errors.New("driver: cancelled")

	// ErrSchemaMismatch means a tool-use record referenced a tool or
	// parameter shape the registry does not recognize.
	ErrSchemaMismatch = errors.New("driver: schema mismatch")

	// ErrProviderAuth means the provider rejected the request for
	// credential reasons; retrying with a different model won't help.
	ErrProviderAuth = errors.New("driver: provider auth failure")
)
