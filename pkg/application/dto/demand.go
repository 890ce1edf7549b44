package dto

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// NoRecipe is the display name of the bucket holding products without a recipe mapping
const NoRecipe = "no-recipe"

// ProductDemand is the cumulative ordered quantity of one product for one recipe
type ProductDemand struct {
	ProductID    entities.ProductID  `json:"product_id"`
	ProductName  string              `json:"product_name"`
	CategoryID   entities.CategoryID `json:"category_id,omitempty"`
	CategoryName string              `json:"category_name,omitempty"`
	Ordered      int                 `json:"ordered"`
	// Factor is the recipe units consumed per product unit. FactorKnown is
	// false when no BOM part supplied one.
	Factor      decimal.Decimal `json:"-"`
	FactorKnown bool            `json:"-"`
}

// RecipeDemand groups the demand of every product built from one recipe
type RecipeDemand struct {
	RecipeID     entities.RecipeID
	RecipeName   string
	CategoryID   entities.CategoryID
	CategoryName string
	Products     []ProductDemand
	// Owners lists the owners of the demanding orders in order-id order
	Owners []uuid.UUID
}

// Demand is the immutable aggregation of one day's orders
type Demand struct {
	Date       string
	Groups     []RecipeDemand
	Unresolved []ProductDemand
	Anomalies  []Anomaly
}

// TotalOrdered sums the ordered quantity of every product in the group
func (g RecipeDemand) TotalOrdered() int {
	total := 0
	for _, p := range g.Products {
		total += p.Ordered
	}
	return total
}
