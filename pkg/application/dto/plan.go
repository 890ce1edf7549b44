package dto

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// PlannedItem is the desired state of one batch item
type PlannedItem struct {
	ProductID       entities.ProductID
	ProductName     string
	CategoryName    string
	Ordered         int
	RecipeQuantity  decimal.Decimal
	PlannedQuantity int
	// Cost is the per-unit cost of the product's BOM
	Cost decimal.Decimal
}

// PlannedBatch is the desired state of one recipe's batch for a date
type PlannedBatch struct {
	RecipeID     entities.RecipeID
	RecipeName   string
	CategoryName string
	OwnerID      uuid.UUID
	Items        []PlannedItem
}

// TotalPlannedQuantity sums the planned quantity of every item
func (b PlannedBatch) TotalPlannedQuantity() int {
	total := 0
	for _, item := range b.Items {
		total += item.PlannedQuantity
	}
	return total
}

// ProductionPlan is the desired production state for one date
type ProductionPlan struct {
	Date       string
	Batches    []PlannedBatch
	Unresolved []ProductDemand
	Anomalies  []Anomaly
}

// PlanLine is one row of the read-path production plan
type PlanLine struct {
	ProductID         entities.ProductID `json:"product_id"`
	ProductName       string             `json:"product_name"`
	Ordered           int                `json:"ordered,omitempty"`
	PlannedQuantity   int                `json:"planned_quantity"`
	ActualQuantity    *int               `json:"actual_quantity,omitempty"`
	CompletedQuantity *int               `json:"completed_quantity,omitempty"`
	RecipeQuantity    decimal.Decimal    `json:"recipe_quantity"`
	Cost              decimal.Decimal    `json:"cost"`
	Category          string             `json:"category"`
	RecipeID          *entities.RecipeID `json:"recipe_id,omitempty"`
	RecipeName        string             `json:"recipe_name,omitempty"`
	BatchID           *entities.BatchID  `json:"batch_id,omitempty"`
	HasRecipe         bool               `json:"has_recipe"`
	IsCompleted       bool               `json:"is_completed"`
	IsPersisted       bool               `json:"is_persisted"`
}

// Plan is the read-path view of one date
type Plan struct {
	Date        string     `json:"date"`
	IsPersisted bool       `json:"is_persisted"`
	Lines       []PlanLine `json:"lines"`
	Anomalies   []Anomaly  `json:"anomalies,omitempty"`
}
