package session

import "time"

const (
	DefaultMinBackoff = 1 * time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// backoff yields exponentially growing reconnect delays.
type backoff struct {
	initial, limit time.Duration
	next           time.Duration
}

func newBackoff(initial, limit time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultMinBackoff
	}
	if limit <= 0 {
		limit = DefaultMaxBackoff
	}
	limit = max(limit, initial)
	return &backoff{initial: initial, limit: limit, next: initial}
}

// Next returns the delay to wait now and doubles the following one.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next = min(b.next*2, b.limit)
	return d
}

// Reset starts over after a successful connection.
func (b *backoff) Reset() {
	b.next = b.initial
}
