package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrUnavailable indicates the provider is temporarily unavailable.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrProtocol indicates the provider returned a response the client
	// could not interpret.
	ErrProtocol = errors.New("provider protocol error")
)

// IsRetryable reports whether the error is transient and the request can be
// retried after a delay.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
