// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds published to the security queue.
const (
	EventReplayDetected   = "token.replay_detected"
	EventAccountSuspended = "account.suspended"
)

// SecurityEvent is published when the token service takes a containment
// action: revoking a rotation chain after a spent token was replayed, or
// suspending an account after an ownership mismatch during invalidation. It
// carries enough information for downstream consumers to log or alert without
// querying the primary database.
type SecurityEvent struct {
	Kind       string `json:"kind"`
	Username   string `json:"username"`
	TokenID    string `json:"token_id,omitempty"`
	DetectedAt string `json:"detected_at"`
}
