package entities

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// BatchID identifies a persisted production batch
type BatchID int64

// BatchItemID identifies a persisted production batch item
type BatchItemID int64

// BatchStatus represents the production state of a batch
type BatchStatus string

const (
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
)

// ProductionBatch is one day's production run for a single recipe.
// At most one batch exists per (Date, RecipeID).
type ProductionBatch struct {
	ID        BatchID
	Date      time.Time
	RecipeID  RecipeID
	OwnerID   uuid.UUID
	Status    BatchStatus
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProductionBatch creates a validated, not yet persisted ProductionBatch
func NewProductionBatch(date time.Time, recipeID RecipeID, ownerID uuid.UUID, notes string) (*ProductionBatch, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("batch date cannot be empty")
	}
	if recipeID <= 0 {
		return nil, fmt.Errorf("recipe id must be positive, got %d", recipeID)
	}

	return &ProductionBatch{
		Date:     NormalizeDate(date),
		RecipeID: recipeID,
		OwnerID:  ownerID,
		Status:   BatchInProgress,
		Notes:    notes,
	}, nil
}

// IsCompleted reports whether the batch was marked completed by an operator
func (b *ProductionBatch) IsCompleted() bool {
	return b.Status == BatchCompleted
}

// ProductionBatchItem is the planned production of one product inside a batch.
// ActualQuantity, CompletedQuantity and IsCompleted are operator-entered.
type ProductionBatchItem struct {
	ID                BatchItemID
	ProductionID      BatchID
	ProductID         ProductID
	PlannedQuantity   int
	RecipeQuantity    decimal.Decimal
	ActualQuantity    *int
	CompletedQuantity *int
	IsCompleted       bool
	Cost              decimal.Decimal
}

// SamePlan reports whether the engine-owned fields of two items are equal
func (i *ProductionBatchItem) SamePlan(plannedQuantity int, recipeQuantity, cost decimal.Decimal) bool {
	return i.PlannedQuantity == plannedQuantity &&
		i.RecipeQuantity.Equal(recipeQuantity) &&
		i.Cost.Equal(cost)
}
