package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/application/services/orchestration"
	"github.com/vsinha/bakeplan/pkg/application/services/reconcile"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/infrastructure/events"
	"github.com/vsinha/bakeplan/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Create repositories
	catalog := memory.NewCatalogRepository()
	orders := memory.NewOrderRepository(catalog)
	production := memory.NewProductionRepository()

	// Set up a sourdough bakery
	if err := setupSourdoughBakery(catalog); err != nil {
		fmt.Printf("❌ Catalog setup failed: %v\n", err)
		return
	}

	// Saturday orders from two cafés
	bakeDay := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	cafeNorth := uuid.Must(uuid.NewV4())
	cafeSouth := uuid.Must(uuid.NewV4())
	err := orders.LoadOrders([]*entities.Order{
		{
			ID:      1,
			Date:    bakeDay,
			OwnerID: cafeNorth,
			Status:  entities.OrderConfirmed,
			Items: []entities.OrderItem{
				{ProductID: 1, Quantity: 24},
				{ProductID: 2, Quantity: 60},
			},
		},
		{
			ID:      2,
			Date:    bakeDay,
			OwnerID: cafeSouth,
			Status:  entities.OrderConfirmed,
			Items: []entities.OrderItem{
				{ProductID: 1, Quantity: 12},
				{ProductID: 3, Quantity: 6},
			},
		},
	})
	if err != nil {
		fmt.Printf("❌ Order setup failed: %v\n", err)
		return
	}

	// Create the planning engine
	store := events.NewInMemoryEventStore(logger)
	engine := orchestration.NewEngine(orders, catalog, production, store, reconcile.DefaultConfig(), logger)

	fmt.Printf("🥖 Planning production for %s...\n\n", bakeDay.Format(entities.DateLayout))

	// Preview before anything is persisted
	preview, err := engine.GetPlan(ctx, bakeDay)
	if err != nil {
		fmt.Printf("❌ Preview failed: %v\n", err)
		return
	}
	fmt.Println("📋 Preview:")
	for _, line := range preview.Lines {
		fmt.Printf("  %-20s planned %3d  recipe qty %6s  cost %s\n",
			line.ProductName, line.PlannedQuantity, line.RecipeQuantity.StringFixed(2), line.Cost.StringFixed(2))
	}
	fmt.Println()

	// Reconcile the day's batches
	result, err := engine.Reconcile(ctx, bakeDay, nil)
	if err != nil {
		fmt.Printf("❌ Reconciliation failed: %v\n", err)
		return
	}
	fmt.Println("📊 Reconciliation:")
	for _, r := range result.Recipes {
		fmt.Printf("  %-20s batch %d, %d products, %d planned\n",
			r.RecipeName, r.BatchID, r.ProductCount, r.TotalPlannedQuantity)
	}
	for _, p := range result.Unresolved {
		fmt.Printf("  ⚠️  %s has no recipe (ordered %d)\n", p.ProductName, p.Ordered)
	}
	fmt.Println()

	// Ingredient weights for the purchasing list
	report, err := engine.IngredientConsumption(ctx, bakeDay)
	if err != nil {
		fmt.Printf("❌ Consumption failed: %v\n", err)
		return
	}
	fmt.Println("🧂 Ingredients:")
	for _, ic := range report.Ingredients {
		fmt.Printf("  %-20s %s kg\n", ic.IngredientName, ic.Kilograms.StringFixed(3))
	}

	store.Wait()
	recorded, _ := store.ReadEvents(events.ProductionStream(result.Date), 0)
	fmt.Printf("\n✅ %d events recorded\n", len(recorded))
}

func setupSourdoughBakery(catalog *memory.CatalogRepository) error {
	price := func(s string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}
	recipe := func(id entities.RecipeID) *entities.RecipeID { return &id }

	if err := catalog.LoadCategories([]*entities.Category{
		{ID: 1, Name: "Bread"},
		{ID: 2, Name: "Gifts"},
	}); err != nil {
		return err
	}
	if err := catalog.LoadIngredients([]*entities.Ingredient{
		{ID: 1, Name: "Bread flour", Price: price("1.20"), KiloPerUnit: price("1"), Unit: "kg"},
		{ID: 2, Name: "Water", Price: price("0"), KiloPerUnit: price("1"), Unit: "l"},
		{ID: 3, Name: "Salt", Price: price("0.80"), KiloPerUnit: price("1"), Unit: "kg"},
	}); err != nil {
		return err
	}
	if err := catalog.LoadRecipes([]*entities.Recipe{
		{ID: 1, Name: "Country sourdough", CategoryID: 1},
	}); err != nil {
		return err
	}
	if err := catalog.LoadRecipeIngredients([]*entities.RecipeIngredient{
		{RecipeID: 1, IngredientID: 1, Quantity: decimal.RequireFromString("10")},
		{RecipeID: 1, IngredientID: 2, Quantity: decimal.RequireFromString("7.5")},
		{RecipeID: 1, IngredientID: 3, Quantity: decimal.RequireFromString("0.2")},
	}); err != nil {
		return err
	}
	if err := catalog.LoadProducts([]*entities.Product{
		{ID: 1, Name: "Sourdough loaf", CategoryID: 1},
		{ID: 2, Name: "Sourdough roll", CategoryID: 1},
		{ID: 3, Name: "Gift hamper", CategoryID: 2},
	}); err != nil {
		return err
	}
	return catalog.LoadParts([]*entities.BOMPart{
		{ID: 1, ProductID: 1, RecipeID: recipe(1), Quantity: decimal.RequireFromString("0.9")},
		{ID: 2, ProductID: 2, RecipeID: recipe(1), Quantity: decimal.RequireFromString("0.09")},
	})
}
