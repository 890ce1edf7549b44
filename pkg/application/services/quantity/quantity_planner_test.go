package quantity

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

func TestQuantities(t *testing.T) {
	tests := []struct {
		name            string
		ordered         int
		factor          string
		expectedRecipe  string
		expectedPlanned int
	}{
		{"whole_units", 4, "1.5", "6.00", 6},
		{"minimum_batch", 1, "0.1", "0.10", 1},
		{"fractional_rounds_up", 5, "0.3", "1.50", 2},
		{"rounding_to_cents", 3, "0.333", "1.00", 1},
		{"half_rounds_away_from_zero", 1, "0.125", "0.13", 1},
		{"planned_uses_unrounded_product", 1, "1.004", "1.00", 2},
		{"planned_uses_unrounded_product_many", 2, "2.002", "4.00", 5},
		{"no_order", 0, "2", "0.00", 0},
		{"negative_order", -3, "2", "0.00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipe, planned := Quantities(tt.ordered, decimal.RequireFromString(tt.factor))

			if recipe.StringFixed(QuantityPlaces) != tt.expectedRecipe {
				t.Errorf("Expected recipe quantity %s, got %s", tt.expectedRecipe, recipe.StringFixed(QuantityPlaces))
			}
			if planned != tt.expectedPlanned {
				t.Errorf("Expected planned quantity %d, got %d", tt.expectedPlanned, planned)
			}
		})
	}
}

func TestPlanner_Plan(t *testing.T) {
	owner := uuid.Must(uuid.FromString("11111111-1111-1111-1111-111111111111"))
	second := uuid.Must(uuid.FromString("22222222-2222-2222-2222-222222222222"))
	planner := NewPlanner(zerolog.Nop())

	d := dto.Demand{
		Date: "2024-03-01",
		Groups: []dto.RecipeDemand{
			{
				RecipeID:   10,
				RecipeName: "Rye dough",
				Owners:     []uuid.UUID{owner, second},
				Products: []dto.ProductDemand{
					{ProductID: 1, ProductName: "Rye loaf", Ordered: 4, Factor: decimal.RequireFromString("1.5"), FactorKnown: true},
					{ProductID: 2, ProductName: "Rye roll", Ordered: 3},
				},
			},
			{RecipeID: 20, RecipeName: "Empty"},
		},
		Unresolved: []dto.ProductDemand{{ProductID: 9, Ordered: 2}},
		Anomalies:  []dto.Anomaly{{Kind: dto.UnresolvedProduct, ProductID: 9}},
	}

	plan := planner.Plan(d, nil)

	require.Len(t, plan.Batches, 1, "recipes without demand are skipped")
	batch := plan.Batches[0]
	assert.Equal(t, owner, batch.OwnerID)
	require.Len(t, batch.Items, 2)
	assert.Equal(t, "6.00", batch.Items[0].RecipeQuantity.StringFixed(2))
	assert.Equal(t, 6, batch.Items[0].PlannedQuantity)
	assert.Equal(t, "3.00", batch.Items[1].RecipeQuantity.StringFixed(2), "unknown factor defaults to 1")
	assert.Equal(t, 3, batch.Items[1].PlannedQuantity)
	assert.Equal(t, 9, batch.TotalPlannedQuantity())

	assert.Equal(t, d.Unresolved, plan.Unresolved)
	require.Len(t, plan.Anomalies, 2)
	assert.Equal(t, dto.MissingConversionFactor, plan.Anomalies[1].Kind)
	assert.Equal(t, entities.ProductID(2), plan.Anomalies[1].ProductID)
	assert.Len(t, d.Anomalies, 1, "demand anomalies must not be mutated")
}

func TestPlanner_OwnerOverride(t *testing.T) {
	planner := NewPlanner(zerolog.Nop())
	override := uuid.Must(uuid.FromString("33333333-3333-3333-3333-333333333333"))
	d := dto.Demand{Groups: []dto.RecipeDemand{{
		RecipeID: 10,
		Owners:   []uuid.UUID{uuid.Must(uuid.FromString("11111111-1111-1111-1111-111111111111"))},
		Products: []dto.ProductDemand{{ProductID: 1, Ordered: 1, Factor: decimal.NewFromInt(1), FactorKnown: true}},
	}}}

	plan := planner.Plan(d, &override)

	require.Len(t, plan.Batches, 1)
	assert.Equal(t, override, plan.Batches[0].OwnerID)
}
