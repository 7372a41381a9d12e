// Package queue defines message payloads exchanged over the message broker.
package queue

// InferenceCompletedEvent is published after the correlator stamps a
// finished task onto the service call ledger. It carries enough context
// for downstream consumers to log or alert without querying the primary
// database.
type InferenceCompletedEvent struct {
    TaskID      string `json:"task_id"`
    ModelID     uint64 `json:"model_id"`
    UserID      uint64 `json:"user_id"`
    Success     bool   `json:"success"`
    Error       string `json:"error,omitempty"`
    RequestedAt string `json:"requested_at"`
    CompletedAt string `json:"completed_at"`
}
