package dto

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// IngredientConsumption is the amount of one ingredient a date's plan requires
type IngredientConsumption struct {
	IngredientID   entities.IngredientID `json:"ingredient_id"`
	IngredientName string                `json:"ingredient_name"`
	Unit           string                `json:"unit"`
	Kilograms      decimal.Decimal       `json:"kilograms"`
	Recipes        []entities.RecipeID   `json:"recipes"`
}

// ConsumptionReport lists ingredient requirements for one date
type ConsumptionReport struct {
	Date        string                  `json:"date"`
	IsPersisted bool                    `json:"is_persisted"`
	Ingredients []IngredientConsumption `json:"ingredients"`
	Anomalies   []Anomaly               `json:"anomalies,omitempty"`
}
