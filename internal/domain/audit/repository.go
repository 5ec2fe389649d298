package audit

import (
	"context"
)

// Repository manages append-only audit record persistence. Records are never
// updated or deleted.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*Record, error)
}
