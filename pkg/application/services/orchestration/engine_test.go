package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bakeplan/pkg/application/services/reconcile"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
	"github.com/vsinha/bakeplan/pkg/infrastructure/events"
	"github.com/vsinha/bakeplan/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/bakeplan/pkg/infrastructure/testing"
)

var testConfig = reconcile.Config{Workers: 2, StorageTimeout: time.Second}

func newTestEngine(f *testhelpers.BakeryFixture, store events.EventStore) *Engine {
	return NewEngine(f.Orders, f.Catalog, f.Production, store, testConfig, zerolog.Nop())
}

// P1 uses 0.2 of recipe R1 per unit, P2 has no recipe part
func TestEngine_ReconcileSingleRecipeScenario(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	owner := uuid.Must(uuid.NewV4())
	recipeID := entities.RecipeID(1)

	catalog := memory.NewCatalogRepository()
	require.NoError(t, catalog.LoadCategories([]*entities.Category{{ID: 1, Name: "Bread"}}))
	require.NoError(t, catalog.LoadRecipes([]*entities.Recipe{{ID: recipeID, Name: "R1", CategoryID: 1}}))
	require.NoError(t, catalog.LoadProducts([]*entities.Product{
		{ID: 1, Name: "P1", CategoryID: 1},
		{ID: 2, Name: "P2", CategoryID: 1},
	}))
	require.NoError(t, catalog.LoadParts([]*entities.BOMPart{
		{ID: 1, ProductID: 1, RecipeID: &recipeID, Quantity: decimal.RequireFromString("0.2")},
	}))
	orders := memory.NewOrderRepository(catalog)
	require.NoError(t, orders.LoadOrders([]*entities.Order{{
		ID:      1,
		Date:    day,
		OwnerID: owner,
		Items:   []entities.OrderItem{{ProductID: 1, Quantity: 5}, {ProductID: 2, Quantity: 3}},
	}}))
	production := memory.NewProductionRepository()
	engine := NewEngine(orders, catalog, production, nil, testConfig, zerolog.Nop())

	result, err := engine.Reconcile(ctx, day, nil)
	require.NoError(t, err)

	require.Len(t, result.Recipes, 1)
	assert.Equal(t, recipeID, result.Recipes[0].RecipeID)
	assert.Equal(t, 1, result.Recipes[0].ProductCount)
	assert.Equal(t, 1, result.Recipes[0].TotalPlannedQuantity)
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, entities.ProductID(2), result.Unresolved[0].ProductID)

	batches, err := production.GetBatchesForDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, owner, batches[0].OwnerID)

	items, err := production.GetBatchItems(ctx, []entities.BatchID{batches[0].ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, entities.ProductID(1), items[0].ProductID)
	assert.Equal(t, "1.00", items[0].RecipeQuantity.StringFixed(2))
	assert.Equal(t, 1, items[0].PlannedQuantity)
}

func TestEngine_ReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryTestData()
	engine := newTestEngine(f, nil)

	first, err := engine.Reconcile(ctx, f.Date, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stats.BatchesCreated)
	writes := f.Production.Writes()

	second, err := engine.Reconcile(ctx, f.Date, nil)
	require.NoError(t, err)
	assert.Zero(t, second.Stats.Writes())
	assert.Equal(t, writes, f.Production.Writes())

	plan, err := engine.GetPlan(ctx, f.Date)
	require.NoError(t, err)
	assert.True(t, plan.IsPersisted)
	assert.Len(t, plan.Lines, 3, "unresolved products have no persisted line")
}

func TestEngine_ReconcileOwnerOverride(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryTestData()
	engine := newTestEngine(f, nil)
	actor := uuid.Must(uuid.NewV4())

	_, err := engine.Reconcile(ctx, f.Date, &actor)
	require.NoError(t, err)

	batches, err := f.Production.GetBatchesForDate(ctx, f.Date)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	for _, b := range batches {
		assert.Equal(t, actor, b.OwnerID)
	}
}

func TestEngine_ReconcileRecordsEvent(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryTestData()
	store := events.NewInMemoryEventStore(zerolog.Nop())
	engine := newTestEngine(f, store)

	_, err := engine.Reconcile(ctx, f.Date, nil)
	require.NoError(t, err)
	store.Wait()

	recorded, err := store.ReadEvents(events.ProductionStream("2024-03-01"), 1)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, events.ProductionReconciledEvent, recorded[0].Type())

	payload, ok := recorded[0].Data().(events.ProductionReconciled)
	require.True(t, ok)
	assert.Equal(t, 2, payload.Stats.BatchesCreated)
	assert.Equal(t, []entities.ProductID{testhelpers.Danish, testhelpers.BirthdayCake}, payload.Unresolved)
}

func TestEngine_ReconcileRange(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryTestData()
	next := f.Date.AddDate(0, 0, 1)
	require.NoError(t, f.Orders.LoadOrders([]*entities.Order{{
		ID:      3,
		Date:    next,
		OwnerID: f.OwnerB,
		Items:   []entities.OrderItem{{ProductID: testhelpers.Croissant, Quantity: 20}},
	}}))
	engine := newTestEngine(f, nil)

	summaries, err := engine.ReconcileRange(ctx, f.Date.AddDate(0, 0, -1), next, nil)
	require.NoError(t, err)

	require.Len(t, summaries, 3)
	assert.Equal(t, "2024-02-29", summaries[0].Date)
	assert.Zero(t, summaries[0].BatchesCreated)
	assert.Equal(t, 2, summaries[1].BatchesCreated)
	assert.Equal(t, 1, summaries[2].BatchesCreated)

	require.NoError(t, f.Orders.SetItemQuantity(3, testhelpers.Croissant, 40))
	summaries, err = engine.ReconcileRange(ctx, f.Date, next, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Zero(t, summaries[0].BatchesUpdated)
	assert.Equal(t, 1, summaries[1].BatchesUpdated)
	assert.Zero(t, summaries[1].BatchesCreated)

	dates, err := engine.ProductionDates(ctx, f.Date.AddDate(0, 0, -7), f.Date.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{f.Date, next}, dates)
}

func TestEngine_ReconcileRangeContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryTestData()
	next := f.Date.AddDate(0, 0, 1)
	require.NoError(t, f.Orders.LoadOrders([]*entities.Order{{
		ID:      3,
		Date:    next,
		OwnerID: f.OwnerB,
		Items:   []entities.OrderItem{{ProductID: testhelpers.RyeLoaf, Quantity: 2}},
	}}))
	injected := errors.New("disk full")
	f.Production.SetFailure(func(op string, batch entities.ProductionBatch, _ entities.ProductID) error {
		if op == "insert_batch" && batch.Date.Equal(f.Date) {
			return injected
		}
		return nil
	})
	engine := newTestEngine(f, nil)

	summaries, err := engine.ReconcileRange(ctx, f.Date, next, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, injected)
	var batchErr *reconcile.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, reconcile.OpInsertBatch, batchErr.Op)

	require.Len(t, summaries, 2)
	assert.NotEmpty(t, summaries[0].Error)
	assert.Zero(t, summaries[0].BatchesCreated)
	assert.Empty(t, summaries[1].Error)
	assert.Equal(t, 1, summaries[1].BatchesCreated)
}

func TestEngine_ReconcileRangeInvalid(t *testing.T) {
	f := testhelpers.BuildBakeryTestData()
	engine := newTestEngine(f, nil)

	_, err := engine.ReconcileRange(context.Background(), f.Date, f.Date.AddDate(0, 0, -1), nil)
	assert.Error(t, err)
}

func TestEngine_ReconcileRangeCancelled(t *testing.T) {
	f := testhelpers.BuildBakeryTestData()
	engine := newTestEngine(f, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summaries, err := engine.ReconcileRange(ctx, f.Date, f.Date.AddDate(0, 0, 3), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summaries)
	assert.Zero(t, f.Production.Writes().Total())
}

func TestEngine_IngredientConsumptionPreview(t *testing.T) {
	f := testhelpers.BuildBakeryTestData()
	engine := newTestEngine(f, nil)

	report, err := engine.IngredientConsumption(context.Background(), f.Date)
	require.NoError(t, err)

	assert.False(t, report.IsPersisted)
	kg := make(map[entities.IngredientID]string)
	for _, ic := range report.Ingredients {
		kg[ic.IngredientID] = ic.Kilograms.StringFixed(3)
	}
	// 3.50 rye dough, 3.80 laminated dough including the danish on the category default
	assert.Equal(t, map[entities.IngredientID]string{
		testhelpers.FlourA: "2.333",
		testhelpers.FlourB: "3.067",
		testhelpers.Butter: "1.900",
	}, kg)
}

type failingCatalog struct {
	repositories.CatalogRepository
}

func (failingCatalog) GetRecipes(context.Context, []entities.RecipeID) ([]*entities.Recipe, error) {
	return nil, repositories.ErrNotFound
}

func TestEngine_IngredientConsumptionStorageError(t *testing.T) {
	f := testhelpers.BuildBakeryTestData()
	engine := NewEngine(f.Orders, failingCatalog{f.Catalog}, f.Production, nil, testConfig, zerolog.Nop())

	_, err := engine.IngredientConsumption(context.Background(), f.Date)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestDateLocks(t *testing.T) {
	locks := newDateLocks()
	unlock, err := locks.lock(context.Background(), "2024-03-01")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.lock(ctx, "2024-03-01")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locks.lock(context.Background(), "2024-03-02")
	require.NoError(t, err)
	other()

	unlock()
	again, err := locks.lock(context.Background(), "2024-03-01")
	require.NoError(t, err)
	again()
}
