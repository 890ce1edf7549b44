package dto

import (
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// RecipeSummary reports one reconciled batch
type RecipeSummary struct {
	RecipeID             entities.RecipeID `json:"recipe_id"`
	RecipeName           string            `json:"recipe_name"`
	BatchID              entities.BatchID  `json:"batch_id"`
	ProductCount         int               `json:"product_count"`
	TotalPlannedQuantity int               `json:"total_planned_quantity"`
	Created              bool              `json:"created"`
	Updated              bool              `json:"updated"`
}

// WriteStats counts the writes a reconciliation issued
type WriteStats struct {
	BatchesCreated int `json:"batches_created"`
	BatchesUpdated int `json:"batches_updated"`
	ItemsInserted  int `json:"items_inserted"`
	ItemsUpdated   int `json:"items_updated"`
	ItemsDeleted   int `json:"items_deleted"`
}

// Writes returns the total number of writes
func (s WriteStats) Writes() int {
	return s.BatchesCreated + s.BatchesUpdated + s.ItemsInserted + s.ItemsUpdated + s.ItemsDeleted
}

// Add accumulates another batch's counters
func (s *WriteStats) Add(other WriteStats) {
	s.BatchesCreated += other.BatchesCreated
	s.BatchesUpdated += other.BatchesUpdated
	s.ItemsInserted += other.ItemsInserted
	s.ItemsUpdated += other.ItemsUpdated
	s.ItemsDeleted += other.ItemsDeleted
}

// ReconcileResult is the outcome of reconciling one date
type ReconcileResult struct {
	Date       string              `json:"date"`
	Recipes    []RecipeSummary     `json:"recipes"`
	Unresolved []ProductDemand     `json:"unresolved,omitempty"`
	Anomalies  []Anomaly           `json:"anomalies,omitempty"`
	Stats      WriteStats          `json:"stats"`
	Failed     []entities.RecipeID `json:"failed,omitempty"`
	// Skipped lists recipes whose batch was not attempted because the run was cancelled
	Skipped []entities.RecipeID `json:"skipped,omitempty"`
}

// DateSummary reports one date of a range reconciliation
type DateSummary struct {
	Date           string `json:"date"`
	BatchesCreated int    `json:"batches_created"`
	BatchesUpdated int    `json:"batches_updated"`
	Error          string `json:"error,omitempty"`
}
