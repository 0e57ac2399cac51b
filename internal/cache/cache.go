package cache

import (
	"context"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
)

type ProductCache interface {
	// GetMany returns the cached products keyed by id and the ids that missed.
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, []string, error)
	SetMany(ctx context.Context, products []*domain.Product) error
}

// EventLog remembers gateway events that were already applied.
type EventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
}
