package consumption

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

func ingredient(id entities.IngredientID, name, kiloPerUnit string) *entities.Ingredient {
	return &entities.Ingredient{
		ID:          id,
		Name:        name,
		Unit:        "kg",
		KiloPerUnit: decimal.NewNullDecimal(decimal.RequireFromString(kiloPerUnit)),
	}
}

func recipeLine(recipeID entities.RecipeID, productID entities.ProductID, recipeQty string) dto.PlanLine {
	id := recipeID
	return dto.PlanLine{
		ProductID:      productID,
		RecipeID:       &id,
		RecipeQuantity: decimal.RequireFromString(recipeQty),
		HasRecipe:      true,
	}
}

func TestReport_SplitsByWeightShare(t *testing.T) {
	flour := ingredient(1, "Flour", "1")
	water := ingredient(2, "Water", "1")
	butter := ingredient(3, "Butter", "0.25")
	recipes := []*entities.Recipe{
		{ID: 10, Name: "Bread dough", Ingredients: []entities.RecipeIngredient{
			{RecipeID: 10, IngredientID: 1, Quantity: decimal.NewFromInt(3), Ingredient: flour},
			{RecipeID: 10, IngredientID: 2, Quantity: decimal.NewFromInt(1), Ingredient: water},
		}},
		{ID: 20, Name: "Laminated dough", Ingredients: []entities.RecipeIngredient{
			{RecipeID: 20, IngredientID: 1, Quantity: decimal.NewFromInt(1), Ingredient: flour},
			{RecipeID: 20, IngredientID: 3, Quantity: decimal.NewFromInt(4), Ingredient: butter},
		}},
	}
	plan := &dto.Plan{
		Date:        "2024-03-01",
		IsPersisted: true,
		Lines: []dto.PlanLine{
			recipeLine(10, 1, "3.00"),
			recipeLine(10, 2, "1.00"),
			recipeLine(20, 3, "0.80"),
			{ProductID: 4, PlannedQuantity: 2},
		},
	}

	report := Report(plan, recipes)

	assert.Equal(t, "2024-03-01", report.Date)
	assert.True(t, report.IsPersisted)
	assert.Empty(t, report.Anomalies)
	require.Len(t, report.Ingredients, 3)

	// 4.00 of bread dough is 3/4 flour, 0.80 of laminated dough is 1/2 flour
	assert.Equal(t, "3.400", report.Ingredients[0].Kilograms.StringFixed(3))
	assert.Equal(t, []entities.RecipeID{10, 20}, report.Ingredients[0].Recipes)
	assert.Equal(t, "1.000", report.Ingredients[1].Kilograms.StringFixed(3))
	assert.Equal(t, "0.400", report.Ingredients[2].Kilograms.StringFixed(3))
	assert.Equal(t, "Butter", report.Ingredients[2].IngredientName)
}

func TestReport_MissingRecipeData(t *testing.T) {
	plan := &dto.Plan{Lines: []dto.PlanLine{
		recipeLine(10, 1, "1.00"),
		recipeLine(11, 2, "1.00"),
	}}
	recipes := []*entities.Recipe{{ID: 10, Name: "Bought-in filling"}}

	report := Report(plan, recipes)

	assert.Empty(t, report.Ingredients)
	require.Len(t, report.Anomalies, 2)
	assert.Equal(t, dto.MissingRecipeWeight, report.Anomalies[0].Kind)
	assert.Equal(t, dto.MissingIngredientData, report.Anomalies[1].Kind)
}

func TestRecipeIDs(t *testing.T) {
	plan := &dto.Plan{Lines: []dto.PlanLine{
		recipeLine(20, 1, "1"),
		recipeLine(10, 2, "1"),
		recipeLine(20, 3, "1"),
		{ProductID: 4},
	}}

	assert.Equal(t, []entities.RecipeID{10, 20}, RecipeIDs(plan))
}
