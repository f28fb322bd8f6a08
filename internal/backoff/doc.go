// Package backoff implements the reconnect policy for chat channels.
//
// The policy has two responsibilities:
//   - Compute the delay before reconnect attempt n (bounded exponential).
//   - Classify a close event as retryable or terminal, and if terminal,
//     whether it represents an authentication failure.
package backoff
