package queries

import (
	"context"

	"github.com/google/uuid"
)

type ClassPassQueries interface {
	ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]*ClassPassView, error)
}

type ClassPassReadStore interface {
	FindViewsByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]*ClassPassView, error)
}

type classPassQueriesImpl struct {
	store ClassPassReadStore
}

func NewClassPassQueries(store ClassPassReadStore) ClassPassQueries {
	return &classPassQueriesImpl{store: store}
}

func (q *classPassQueriesImpl) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]*ClassPassView, error) {
	return q.store.FindViewsByUser(ctx, tenantID, userID)
}
