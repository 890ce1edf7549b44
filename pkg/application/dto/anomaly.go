package dto

import (
	"fmt"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// AnomalyKind classifies a non-fatal planning problem
type AnomalyKind int

const (
	UnresolvedProduct AnomalyKind = iota
	MissingIngredientPrice
	MissingIngredientData
	MissingConversionFactor
	MissingRecipeWeight
)

// String method for AnomalyKind enum
func (k AnomalyKind) String() string {
	switch k {
	case UnresolvedProduct:
		return "UnresolvedProduct"
	case MissingIngredientPrice:
		return "MissingIngredientPrice"
	case MissingIngredientData:
		return "MissingIngredientData"
	case MissingConversionFactor:
		return "MissingConversionFactor"
	case MissingRecipeWeight:
		return "MissingRecipeWeight"
	default:
		return "Unknown"
	}
}

// Anomaly is a problem that degrades accuracy but never aborts a run
type Anomaly struct {
	Kind         AnomalyKind           `json:"kind"`
	ProductID    entities.ProductID    `json:"product_id,omitempty"`
	RecipeID     entities.RecipeID     `json:"recipe_id,omitempty"`
	IngredientID entities.IngredientID `json:"ingredient_id,omitempty"`
	Message      string                `json:"message"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: %s", a.Kind, a.Message)
}

// MarshalText lets the kind render by name in JSON output
func (k AnomalyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
