package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/application/services/costing"
	"github.com/vsinha/bakeplan/pkg/application/services/demand"
	"github.com/vsinha/bakeplan/pkg/application/services/quantity"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
)

// PlanService computes desired production plans from orders and serves the
// read-only production view of a date
type PlanService struct {
	orders     repositories.OrderRepository
	catalog    repositories.CatalogRepository
	production repositories.ProductionRepository
	quantities *quantity.Planner
	costs      *costing.Resolver
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewPlanService creates a new plan service. timeout bounds every storage
// call; zero disables it.
func NewPlanService(
	orders repositories.OrderRepository,
	catalog repositories.CatalogRepository,
	production repositories.ProductionRepository,
	timeout time.Duration,
	logger zerolog.Logger,
) *PlanService {
	return &PlanService{
		orders:     orders,
		catalog:    catalog,
		production: production,
		quantities: quantity.NewPlanner(logger),
		costs:      costing.NewResolver(logger),
		timeout:    timeout,
		logger:     logger.With().Str("component", "plan_service").Logger(),
	}
}

// Desired computes the production state a date's orders call for. Products
// without a recipe part stay unresolved. ownerOverride replaces the first
// demanding owner on every batch when set.
func (s *PlanService) Desired(ctx context.Context, date time.Time, ownerOverride *uuid.UUID) (dto.ProductionPlan, error) {
	return s.build(ctx, date, ownerOverride, false)
}

// Preview computes the same plan as Desired but first falls back to the
// category default recipe for products without a recipe part
func (s *PlanService) Preview(ctx context.Context, date time.Time) (dto.ProductionPlan, error) {
	return s.build(ctx, date, nil, true)
}

func (s *PlanService) build(ctx context.Context, date time.Time, ownerOverride *uuid.UUID, categoryDefaults bool) (dto.ProductionPlan, error) {
	date = entities.NormalizeDate(date)

	var orders []*entities.Order
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		orders, err = s.orders.GetOrdersForDate(ctx, date)
		return err
	})
	if err != nil {
		return dto.ProductionPlan{}, fmt.Errorf("failed to load orders for %s: %w", date.Format(entities.DateLayout), err)
	}

	var parts []*entities.BOMPart
	if productIDs := demand.OrderedProducts(orders); len(productIDs) > 0 {
		err = s.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			parts, err = s.catalog.GetBOMParts(ctx, productIDs)
			return err
		})
		if err != nil {
			return dto.ProductionPlan{}, fmt.Errorf("failed to load BOM parts: %w", err)
		}
	}
	partsByProduct := demand.PartsByProduct(parts)

	d := demand.Aggregate(date, orders, partsByProduct)
	if categoryDefaults {
		if categories := demand.UnresolvedCategories(d); len(categories) > 0 {
			var recipes []*entities.Recipe
			err = s.withTimeout(ctx, func(ctx context.Context) error {
				var err error
				recipes, err = s.catalog.GetCategoryRecipes(ctx, categories)
				return err
			})
			if err != nil {
				return dto.ProductionPlan{}, fmt.Errorf("failed to load category recipes: %w", err)
			}
			d = demand.WithCategoryDefaults(d, demand.CategoryDefaults(recipes))
		}
	}

	for _, a := range d.Anomalies {
		s.logger.Warn().
			Str("date", d.Date).
			Int64("product_id", int64(a.ProductID)).
			Str("kind", a.Kind.String()).
			Msg(a.Message)
	}

	plan := s.quantities.Plan(d, ownerOverride)
	return s.costs.CostPlan(plan, partsByProduct), nil
}

// GetPlan returns the production view of a date. Once batches exist their
// persisted items are returned verbatim; before that a preview is computed
// from the current orders. Nothing is written.
func (s *PlanService) GetPlan(ctx context.Context, date time.Time) (*dto.Plan, error) {
	date = entities.NormalizeDate(date)

	var batches []*entities.ProductionBatch
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		batches, err = s.production.GetBatchesForDate(ctx, date)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load batches for %s: %w", date.Format(entities.DateLayout), err)
	}

	if len(batches) > 0 {
		return s.persistedPlan(ctx, date, batches)
	}

	preview, err := s.Preview(ctx, date)
	if err != nil {
		return nil, err
	}
	return PreviewLines(preview), nil
}

func (s *PlanService) persistedPlan(ctx context.Context, date time.Time, batches []*entities.ProductionBatch) (*dto.Plan, error) {
	batchIDs := make([]entities.BatchID, 0, len(batches))
	recipeIDs := make([]entities.RecipeID, 0, len(batches))
	batchByID := make(map[entities.BatchID]*entities.ProductionBatch, len(batches))
	for _, b := range batches {
		batchIDs = append(batchIDs, b.ID)
		recipeIDs = append(recipeIDs, b.RecipeID)
		batchByID[b.ID] = b
	}

	var items []*entities.ProductionBatchItem
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.production.GetBatchItems(ctx, batchIDs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load batch items: %w", err)
	}

	productIDs := make([]entities.ProductID, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}

	var recipes []*entities.Recipe
	var products []*entities.Product
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		if recipes, err = s.catalog.GetRecipes(ctx, recipeIDs); err != nil {
			return err
		}
		products, err = s.catalog.GetProducts(ctx, productIDs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog names: %w", err)
	}

	return PersistedLines(date, batchByID, items, recipes, products), nil
}

// PersistedLines renders persisted batch items as plan lines ordered by
// recipe and product id
func PersistedLines(
	date time.Time,
	batches map[entities.BatchID]*entities.ProductionBatch,
	items []*entities.ProductionBatchItem,
	recipes []*entities.Recipe,
	products []*entities.Product,
) *dto.Plan {
	recipeByID := make(map[entities.RecipeID]*entities.Recipe, len(recipes))
	for _, r := range recipes {
		recipeByID[r.ID] = r
	}
	productByID := make(map[entities.ProductID]*entities.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	plan := &dto.Plan{
		Date:        entities.NormalizeDate(date).Format(entities.DateLayout),
		IsPersisted: true,
		Lines:       make([]dto.PlanLine, 0, len(items)),
	}
	for _, item := range items {
		batch, ok := batches[item.ProductionID]
		if !ok {
			continue
		}

		recipeID := batch.RecipeID
		batchID := batch.ID
		line := dto.PlanLine{
			ProductID:         item.ProductID,
			ProductName:       fmt.Sprintf("Product %d", item.ProductID),
			PlannedQuantity:   item.PlannedQuantity,
			ActualQuantity:    item.ActualQuantity,
			CompletedQuantity: item.CompletedQuantity,
			RecipeQuantity:    item.RecipeQuantity,
			Cost:              item.Cost,
			RecipeID:          &recipeID,
			RecipeName:        fmt.Sprintf("Recipe %d", recipeID),
			BatchID:           &batchID,
			HasRecipe:         true,
			IsCompleted:       batch.IsCompleted(),
			IsPersisted:       true,
		}
		if p, ok := productByID[item.ProductID]; ok {
			line.ProductName = p.Name
			line.Category = p.CategoryName()
		}
		if r, ok := recipeByID[recipeID]; ok {
			line.RecipeName = r.DisplayName()
		}
		plan.Lines = append(plan.Lines, line)
	}

	sort.SliceStable(plan.Lines, func(i, j int) bool {
		a, b := plan.Lines[i], plan.Lines[j]
		if *a.RecipeID != *b.RecipeID {
			return *a.RecipeID < *b.RecipeID
		}
		return a.ProductID < b.ProductID
	})
	return plan
}

// PreviewLines renders a computed plan as non-persisted plan lines. Products
// without a recipe follow the recipe lines with their ordered quantity as
// planned quantity.
func PreviewLines(plan dto.ProductionPlan) *dto.Plan {
	view := &dto.Plan{
		Date:      plan.Date,
		Lines:     []dto.PlanLine{},
		Anomalies: plan.Anomalies,
	}

	for _, batch := range plan.Batches {
		for _, item := range batch.Items {
			recipeID := batch.RecipeID
			view.Lines = append(view.Lines, dto.PlanLine{
				ProductID:       item.ProductID,
				ProductName:     item.ProductName,
				Ordered:         item.Ordered,
				PlannedQuantity: item.PlannedQuantity,
				RecipeQuantity:  item.RecipeQuantity,
				Cost:            item.Cost,
				Category:        item.CategoryName,
				RecipeID:        &recipeID,
				RecipeName:      batch.RecipeName,
				HasRecipe:       true,
			})
		}
	}

	for _, pd := range plan.Unresolved {
		view.Lines = append(view.Lines, dto.PlanLine{
			ProductID:       pd.ProductID,
			ProductName:     pd.ProductName,
			Ordered:         pd.Ordered,
			PlannedQuantity: pd.Ordered,
			Category:        pd.CategoryName,
		})
	}

	return view
}

func (s *PlanService) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if s.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}
