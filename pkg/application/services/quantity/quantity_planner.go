package quantity

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/application/dto"
)

// QuantityPlaces is the precision recipe quantities are rounded to
const QuantityPlaces = 2

// Planner converts aggregated demand into batch quantities
type Planner struct {
	logger zerolog.Logger
}

// NewPlanner creates a new quantity planner
func NewPlanner(logger zerolog.Logger) *Planner {
	return &Planner{
		logger: logger.With().Str("component", "quantity_planner").Logger(),
	}
}

// Quantities returns the recipe quantity and the planned batch units for an
// ordered quantity. Planned units are the ceiling of the exact product; only
// the recipe quantity is rounded. Any positive order yields at least one
// planned unit.
func Quantities(ordered int, factor decimal.Decimal) (decimal.Decimal, int) {
	if ordered <= 0 {
		return decimal.Zero, 0
	}

	exact := decimal.NewFromInt(int64(ordered)).Mul(factor)
	planned := int(exact.Ceil().IntPart())
	if planned < 1 {
		planned = 1
	}
	return exact.Round(QuantityPlaces), planned
}

// Plan builds the desired production state from a day's demand. When
// ownerOverride is set it becomes the owner of every batch, otherwise the
// first demanding owner is used. Costs are left at zero.
func (p *Planner) Plan(d dto.Demand, ownerOverride *uuid.UUID) dto.ProductionPlan {
	plan := dto.ProductionPlan{
		Date:       d.Date,
		Unresolved: d.Unresolved,
		Anomalies:  append([]dto.Anomaly(nil), d.Anomalies...),
	}

	for _, group := range d.Groups {
		batch := dto.PlannedBatch{
			RecipeID:     group.RecipeID,
			RecipeName:   group.RecipeName,
			CategoryName: group.CategoryName,
			OwnerID:      batchOwner(group, ownerOverride),
		}

		for _, pd := range group.Products {
			if pd.Ordered <= 0 {
				continue
			}

			factor := pd.Factor
			if !pd.FactorKnown || !factor.IsPositive() {
				factor = decimal.NewFromInt(1)
				anomaly := dto.Anomaly{
					Kind:      dto.MissingConversionFactor,
					ProductID: pd.ProductID,
					RecipeID:  group.RecipeID,
					Message:   fmt.Sprintf("product %s has no conversion factor for recipe %s, using 1", pd.ProductName, group.RecipeName),
				}
				plan.Anomalies = append(plan.Anomalies, anomaly)
				p.logger.Warn().
					Int64("product_id", int64(pd.ProductID)).
					Int64("recipe_id", int64(group.RecipeID)).
					Msg(anomaly.Message)
			}

			recipeQuantity, planned := Quantities(pd.Ordered, factor)
			batch.Items = append(batch.Items, dto.PlannedItem{
				ProductID:       pd.ProductID,
				ProductName:     pd.ProductName,
				CategoryName:    pd.CategoryName,
				Ordered:         pd.Ordered,
				RecipeQuantity:  recipeQuantity,
				PlannedQuantity: planned,
			})
		}

		// recipes without demand are never materialised
		if len(batch.Items) == 0 {
			continue
		}
		plan.Batches = append(plan.Batches, batch)
	}

	return plan
}

func batchOwner(group dto.RecipeDemand, override *uuid.UUID) uuid.UUID {
	if override != nil {
		return *override
	}
	if len(group.Owners) > 0 {
		return group.Owners[0]
	}
	return uuid.Nil
}
