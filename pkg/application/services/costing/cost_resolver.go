package costing

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// CostPlaces is the number of decimal places costs are rounded to
const CostPlaces = 2

// Resolver computes per-unit product costs by walking bills of materials
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver creates a new cost resolver
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{
		logger: logger.With().Str("component", "cost_resolver").Logger(),
	}
}

// ProductCost returns the per-unit cost of a product's current BOM together
// with the anomalies met on the way. The cost is never negative; missing
// prices or references contribute zero.
func (r *Resolver) ProductCost(productID entities.ProductID, parts []*entities.BOMPart) (decimal.Decimal, []dto.Anomaly) {
	total := decimal.Zero
	var anomalies []dto.Anomaly

	for _, part := range parts {
		if part.ProductOnly {
			continue
		}

		contribution, partAnomalies := r.partCost(productID, part)
		anomalies = append(anomalies, partAnomalies...)
		total = total.Add(contribution)
	}

	for _, a := range anomalies {
		r.logger.Warn().
			Int64("product_id", int64(productID)).
			Str("kind", a.Kind.String()).
			Msg(a.Message)
	}

	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(CostPlaces), anomalies
}

func (r *Resolver) partCost(productID entities.ProductID, part *entities.BOMPart) (decimal.Decimal, []dto.Anomaly) {
	switch part.Kind() {
	case entities.IngredientPart:
		return ingredientPartCost(productID, part)
	case entities.RecipePart:
		return recipePartCost(productID, part)
	case entities.SubProductPart:
		return subProductPartCost(productID, part)
	default:
		return decimal.Zero, []dto.Anomaly{{
			Kind:      dto.MissingIngredientData,
			ProductID: productID,
			Message:   fmt.Sprintf("part %d of product %d has no single reference", part.ID, productID),
		}}
	}
}

func ingredientPartCost(productID entities.ProductID, part *entities.BOMPart) (decimal.Decimal, []dto.Anomaly) {
	ingredient := part.Ingredient
	if ingredient == nil {
		return decimal.Zero, []dto.Anomaly{{
			Kind:         dto.MissingIngredientData,
			ProductID:    productID,
			IngredientID: *part.IngredientID,
			Message:      fmt.Sprintf("product %d references unknown ingredient %d", productID, *part.IngredientID),
		}}
	}

	kg, ok := ingredient.Kilograms(part.Quantity)
	if !ok {
		return decimal.Zero, []dto.Anomaly{{
			Kind:         dto.MissingIngredientData,
			ProductID:    productID,
			IngredientID: ingredient.ID,
			Message:      fmt.Sprintf("ingredient %s has no kilo-per-unit conversion", ingredient.Name),
		}}
	}
	if !ingredient.Price.Valid {
		return decimal.Zero, []dto.Anomaly{{
			Kind:         dto.MissingIngredientPrice,
			ProductID:    productID,
			IngredientID: ingredient.ID,
			Message:      fmt.Sprintf("ingredient %s has no price", ingredient.Name),
		}}
	}

	return kg.Mul(ingredient.Price.Decimal), nil
}

func recipePartCost(productID entities.ProductID, part *entities.BOMPart) (decimal.Decimal, []dto.Anomaly) {
	recipe := part.Recipe
	if recipe == nil {
		return decimal.Zero, []dto.Anomaly{{
			Kind:      dto.MissingIngredientData,
			ProductID: productID,
			RecipeID:  *part.RecipeID,
			Message:   fmt.Sprintf("product %d references unknown recipe %d", productID, *part.RecipeID),
		}}
	}

	totals, anomalies := Totals(recipe)
	for i := range anomalies {
		anomalies[i].ProductID = productID
	}

	pricePerKg, ok := PricePerKg(recipe, totals)
	if !ok {
		anomalies = append(anomalies, dto.Anomaly{
			Kind:      dto.MissingRecipeWeight,
			ProductID: productID,
			RecipeID:  recipe.ID,
			Message:   fmt.Sprintf("recipe %s has neither ingredient weight nor stored price", recipe.DisplayName()),
		})
		return decimal.Zero, anomalies
	}

	return pricePerKg.Mul(part.Quantity), anomalies
}

func subProductPartCost(productID entities.ProductID, part *entities.BOMPart) (decimal.Decimal, []dto.Anomaly) {
	sub := part.SubProduct
	if sub == nil || !sub.Price.Valid {
		return decimal.Zero, []dto.Anomaly{{
			Kind:      dto.MissingIngredientPrice,
			ProductID: productID,
			Message:   fmt.Sprintf("sub-product %d of product %d has no price", *part.SubProductID, productID),
		}}
	}
	return sub.Price.Decimal.Mul(part.Quantity), nil
}

// CostPlan returns a copy of the plan with every item's per-unit cost filled in.
// Each product is costed once even when it appears in several batches.
func (r *Resolver) CostPlan(plan dto.ProductionPlan, partsByProduct map[entities.ProductID][]*entities.BOMPart) dto.ProductionPlan {
	costs := make(map[entities.ProductID]decimal.Decimal)
	anomalies := append([]dto.Anomaly(nil), plan.Anomalies...)

	costOf := func(productID entities.ProductID) decimal.Decimal {
		if cost, ok := costs[productID]; ok {
			return cost
		}
		cost, costAnomalies := r.ProductCost(productID, partsByProduct[productID])
		costs[productID] = cost
		anomalies = append(anomalies, costAnomalies...)
		return cost
	}

	batches := make([]dto.PlannedBatch, len(plan.Batches))
	for i, batch := range plan.Batches {
		items := make([]dto.PlannedItem, len(batch.Items))
		for j, item := range batch.Items {
			item.Cost = costOf(item.ProductID)
			items[j] = item
		}
		batch.Items = items
		batches[i] = batch
	}

	return dto.ProductionPlan{
		Date:       plan.Date,
		Batches:    batches,
		Unresolved: plan.Unresolved,
		Anomalies:  anomalies,
	}
}
