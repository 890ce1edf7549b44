package repositories

import (
	"context"
	"time"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// ProductionRepository provides access to persisted production batches and their items
type ProductionRepository interface {
	GetBatchesForDate(ctx context.Context, date time.Time) ([]*entities.ProductionBatch, error)
	GetBatchItems(ctx context.Context, batchIDs []entities.BatchID) ([]*entities.ProductionBatchItem, error)

	// ListProductionDates returns the distinct dates in [from, to] that have at least one batch
	ListProductionDates(ctx context.Context, from, to time.Time) ([]time.Time, error)

	// WithinBatch runs fn as one unit of work. If fn returns an error every
	// write made through the writer is discarded.
	WithinBatch(ctx context.Context, fn func(w ProductionWriter) error) error
}

// ProductionWriter performs the writes of one batch's unit of work
type ProductionWriter interface {
	// GetItems returns the current items of one batch inside the unit of work
	GetItems(ctx context.Context, batchID entities.BatchID) ([]*entities.ProductionBatchItem, error)

	// InsertBatch persists a new batch and sets its ID and timestamps.
	// Returns ErrConflict when a batch for (Date, RecipeID) already exists.
	InsertBatch(ctx context.Context, batch *entities.ProductionBatch) error

	// UpdateBatch writes owner, notes and updated_at of an existing batch
	UpdateBatch(ctx context.Context, batch *entities.ProductionBatch) error

	// InsertItem persists a new item and sets its ID.
	// Returns ErrConflict when (ProductionID, ProductID) already exists.
	InsertItem(ctx context.Context, item *entities.ProductionBatchItem) error

	// UpdateItemPlan writes only planned quantity, recipe quantity and cost
	UpdateItemPlan(ctx context.Context, item *entities.ProductionBatchItem) error

	DeleteItem(ctx context.Context, id entities.BatchItemID) error
}
