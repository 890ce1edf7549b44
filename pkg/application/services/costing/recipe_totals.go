package costing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// IngredientWeight is one recipe ingredient converted to kilograms
type IngredientWeight struct {
	Ingredient *entities.Ingredient
	Kilograms  decimal.Decimal
}

// RecipeTotals holds the weight and price of one full recipe
type RecipeTotals struct {
	RecipeID entities.RecipeID
	Weight   decimal.Decimal
	Price    decimal.Decimal
	Lines    []IngredientWeight
}

// Totals sums the ingredient weight and price of a recipe.
// Lines without a known conversion are left out of the weight; lines without
// a price count toward the weight with zero price.
func Totals(recipe *entities.Recipe) (RecipeTotals, []dto.Anomaly) {
	totals := RecipeTotals{
		RecipeID: recipe.ID,
		Weight:   decimal.Zero,
		Price:    decimal.Zero,
		Lines:    make([]IngredientWeight, 0, len(recipe.Ingredients)),
	}
	var anomalies []dto.Anomaly

	for _, ri := range recipe.Ingredients {
		if ri.Ingredient == nil {
			anomalies = append(anomalies, dto.Anomaly{
				Kind:         dto.MissingIngredientData,
				RecipeID:     recipe.ID,
				IngredientID: ri.IngredientID,
				Message:      fmt.Sprintf("recipe %d references unknown ingredient %d", recipe.ID, ri.IngredientID),
			})
			continue
		}

		kg, ok := ri.Ingredient.Kilograms(ri.Quantity)
		if !ok {
			anomalies = append(anomalies, dto.Anomaly{
				Kind:         dto.MissingIngredientData,
				RecipeID:     recipe.ID,
				IngredientID: ri.IngredientID,
				Message:      fmt.Sprintf("ingredient %s has no kilo-per-unit conversion", ri.Ingredient.Name),
			})
			continue
		}

		totals.Weight = totals.Weight.Add(kg)
		totals.Lines = append(totals.Lines, IngredientWeight{Ingredient: ri.Ingredient, Kilograms: kg})

		if !ri.Ingredient.Price.Valid {
			anomalies = append(anomalies, dto.Anomaly{
				Kind:         dto.MissingIngredientPrice,
				RecipeID:     recipe.ID,
				IngredientID: ri.IngredientID,
				Message:      fmt.Sprintf("ingredient %s has no price", ri.Ingredient.Name),
			})
			continue
		}
		totals.Price = totals.Price.Add(kg.Mul(ri.Ingredient.Price.Decimal))
	}

	return totals, anomalies
}

// PricePerKg returns the recipe price per kilogram of its output.
// When the weight is zero the recipe's stored price is used as a per-unit
// price; the second return value is false when neither is available.
func PricePerKg(recipe *entities.Recipe, totals RecipeTotals) (decimal.Decimal, bool) {
	if totals.Weight.IsPositive() {
		return totals.Price.Div(totals.Weight), true
	}
	if recipe.Price.Valid {
		return recipe.Price.Decimal, true
	}
	return decimal.Zero, false
}
