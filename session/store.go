package session

import (
	"context"
	"time"
)

// Store manages session lifecycles. Indexes live in process memory, so every
// store keeps live sessions locally; stores differ in what they mirror out.
type Store interface {
	Create(ctx context.Context, ttl time.Duration) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
