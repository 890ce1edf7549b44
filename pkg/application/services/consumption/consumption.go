package consumption

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/application/services/costing"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// KilogramPlaces is the precision of reported ingredient weights
const KilogramPlaces = 3

// Report derives the ingredient weights a date's plan requires. Each line's
// recipe quantity is split over the recipe's ingredients by weight share.
// Lines without a recipe, and recipes without a known weight, are skipped
// with an anomaly.
func Report(plan *dto.Plan, recipes []*entities.Recipe) dto.ConsumptionReport {
	report := dto.ConsumptionReport{
		Date:        plan.Date,
		IsPersisted: plan.IsPersisted,
		Ingredients: []dto.IngredientConsumption{},
	}

	recipeByID := make(map[entities.RecipeID]*entities.Recipe, len(recipes))
	for _, r := range recipes {
		recipeByID[r.ID] = r
	}

	required := make(map[entities.RecipeID]decimal.Decimal)
	for _, line := range plan.Lines {
		if line.RecipeID == nil || !line.RecipeQuantity.IsPositive() {
			continue
		}
		required[*line.RecipeID] = required[*line.RecipeID].Add(line.RecipeQuantity)
	}

	recipeIDs := make([]entities.RecipeID, 0, len(required))
	for id := range required {
		recipeIDs = append(recipeIDs, id)
	}
	sort.Slice(recipeIDs, func(i, j int) bool { return recipeIDs[i] < recipeIDs[j] })

	byIngredient := make(map[entities.IngredientID]*dto.IngredientConsumption)
	for _, recipeID := range recipeIDs {
		recipe, ok := recipeByID[recipeID]
		if !ok {
			report.Anomalies = append(report.Anomalies, dto.Anomaly{
				Kind:     dto.MissingIngredientData,
				RecipeID: recipeID,
				Message:  fmt.Sprintf("recipe %d is not in the catalog", recipeID),
			})
			continue
		}

		totals, anomalies := costing.Totals(recipe)
		report.Anomalies = append(report.Anomalies, withoutPriceAnomalies(anomalies)...)
		if !totals.Weight.IsPositive() {
			report.Anomalies = append(report.Anomalies, dto.Anomaly{
				Kind:     dto.MissingRecipeWeight,
				RecipeID: recipeID,
				Message:  fmt.Sprintf("recipe %s has no ingredient weight", recipe.DisplayName()),
			})
			continue
		}

		quantity := required[recipeID]
		for _, line := range totals.Lines {
			share := line.Kilograms.Div(totals.Weight)
			ic, ok := byIngredient[line.Ingredient.ID]
			if !ok {
				ic = &dto.IngredientConsumption{
					IngredientID:   line.Ingredient.ID,
					IngredientName: line.Ingredient.Name,
					Unit:           line.Ingredient.Unit,
					Kilograms:      decimal.Zero,
				}
				byIngredient[line.Ingredient.ID] = ic
			}
			ic.Kilograms = ic.Kilograms.Add(quantity.Mul(share))
			if n := len(ic.Recipes); n == 0 || ic.Recipes[n-1] != recipeID {
				ic.Recipes = append(ic.Recipes, recipeID)
			}
		}
	}

	for _, ic := range byIngredient {
		ic.Kilograms = ic.Kilograms.Round(KilogramPlaces)
		report.Ingredients = append(report.Ingredients, *ic)
	}
	sort.Slice(report.Ingredients, func(i, j int) bool {
		return report.Ingredients[i].IngredientID < report.Ingredients[j].IngredientID
	})

	return report
}

// RecipeIDs returns the distinct recipes referenced by a plan's lines
func RecipeIDs(plan *dto.Plan) []entities.RecipeID {
	seen := make(map[entities.RecipeID]bool)
	var ids []entities.RecipeID
	for _, line := range plan.Lines {
		if line.RecipeID == nil || seen[*line.RecipeID] {
			continue
		}
		seen[*line.RecipeID] = true
		ids = append(ids, *line.RecipeID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// withoutPriceAnomalies drops missing-price anomalies, prices do not affect weights
func withoutPriceAnomalies(anomalies []dto.Anomaly) []dto.Anomaly {
	var kept []dto.Anomaly
	for _, a := range anomalies {
		if a.Kind != dto.MissingIngredientPrice {
			kept = append(kept, a)
		}
	}
	return kept
}
