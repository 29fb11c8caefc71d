package gateway

import "errors"

var (
	// ErrNetwork covers transport failures; the next poll tick retries.
	ErrNetwork = errors.New("network failure")
	// ErrAuth is surfaced upward for the session layer, never retried here.
	ErrAuth = errors.New("authentication rejected")
	// ErrServer covers 5xx responses.
	ErrServer = errors.New("server error")
	// ErrNotFound covers 404 on a single-order fetch.
	ErrNotFound = errors.New("order not found")
	// ErrRejected covers a 4xx refusal of a status change.
	ErrRejected = errors.New("request rejected")
)
