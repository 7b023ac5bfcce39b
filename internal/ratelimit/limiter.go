package ratelimit

import (
	"context"
	"errors"
)

// ErrLimited is returned by Allow when key has used up its budget.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter decides whether one more request for key may proceed. Keys are
// tenant ids.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}
