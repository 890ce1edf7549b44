package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

func buildCatalog(t *testing.T) *CatalogRepository {
	t.Helper()
	repo := NewCatalogRepository()
	flourID := entities.IngredientID(1)
	doughID := entities.RecipeID(10)
	croissantID := entities.ProductID(2)

	steps := []error{
		repo.LoadCategories([]*entities.Category{{ID: 1, Name: "Bread"}, {ID: 2, Name: "Pastry"}}),
		repo.LoadIngredients([]*entities.Ingredient{
			{ID: flourID, Name: "Flour", Price: decimal.NewNullDecimal(decimal.RequireFromString("0.8")), KiloPerUnit: decimal.NewNullDecimal(decimal.NewFromInt(1)), Unit: "kg"},
		}),
		repo.LoadRecipes([]*entities.Recipe{
			{ID: 12, Name: "Puff dough", CategoryID: 2},
			{ID: doughID, Name: "White dough", CategoryID: 1},
			{ID: 11, Name: "Laminated dough", CategoryID: 2},
		}),
		repo.LoadRecipeIngredients([]*entities.RecipeIngredient{{RecipeID: doughID, IngredientID: flourID, Quantity: decimal.NewFromInt(5)}}),
		repo.LoadProducts([]*entities.Product{
			{ID: 1, Name: "Baguette", CategoryID: 1},
			{ID: croissantID, Name: "Croissant", CategoryID: 2, Price: decimal.NewNullDecimal(decimal.RequireFromString("1.2"))},
			{ID: 3, Name: "Breakfast box", CategoryID: 2},
		}),
		repo.LoadParts([]*entities.BOMPart{
			{ID: 1, ProductID: 1, RecipeID: &doughID, Quantity: decimal.RequireFromString("0.3")},
			{ID: 2, ProductID: 3, SubProductID: &croissantID, Quantity: decimal.NewFromInt(2)},
			{ID: 3, ProductID: 3, IngredientID: &flourID, Quantity: decimal.RequireFromString("0.01"), ProductOnly: true},
		}),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatalf("Failed to build catalog: %v", err)
		}
	}
	return repo
}

func TestCatalogRepository_GetBOMPartsExpandsReferences(t *testing.T) {
	repo := buildCatalog(t)

	parts, err := repo.GetBOMParts(context.Background(), []entities.ProductID{3, 1, 1})
	if err != nil {
		t.Fatalf("Failed to get parts: %v", err)
	}

	if len(parts) != 3 {
		t.Fatalf("Expected 3 parts, got %d", len(parts))
	}

	recipePart := parts[0]
	if recipePart.Recipe == nil || recipePart.Recipe.Name != "White dough" {
		t.Fatalf("Expected recipe to be expanded, got %+v", recipePart.Recipe)
	}
	if len(recipePart.Recipe.Ingredients) != 1 || recipePart.Recipe.Ingredients[0].Ingredient == nil {
		t.Fatalf("Expected recipe ingredients to be expanded, got %+v", recipePart.Recipe.Ingredients)
	}
	if recipePart.Recipe.Ingredients[0].Ingredient.Name != "Flour" {
		t.Errorf("Expected Flour, got %s", recipePart.Recipe.Ingredients[0].Ingredient.Name)
	}

	if parts[1].SubProduct == nil || parts[1].SubProduct.Name != "Croissant" {
		t.Errorf("Expected sub-product to be expanded, got %+v", parts[1].SubProduct)
	}
	if parts[2].Ingredient == nil || !parts[2].ProductOnly {
		t.Errorf("Expected product-only ingredient part, got %+v", parts[2])
	}
}

func TestCatalogRepository_ReturnsCopies(t *testing.T) {
	repo := buildCatalog(t)

	first, _ := repo.GetBOMParts(context.Background(), []entities.ProductID{1})
	first[0].Recipe.Name = "changed"
	first[0].Quantity = decimal.NewFromInt(99)

	second, _ := repo.GetBOMParts(context.Background(), []entities.ProductID{1})
	if second[0].Recipe.Name != "White dough" {
		t.Errorf("Expected stored recipe to be unchanged, got %s", second[0].Recipe.Name)
	}
	if !second[0].Quantity.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Expected stored quantity to be unchanged, got %s", second[0].Quantity)
	}
}

func TestCatalogRepository_GetCategoryRecipesOrderedByID(t *testing.T) {
	repo := buildCatalog(t)

	recipes, err := repo.GetCategoryRecipes(context.Background(), []entities.CategoryID{2})
	if err != nil {
		t.Fatalf("Failed to get recipes: %v", err)
	}

	if len(recipes) != 2 {
		t.Fatalf("Expected 2 recipes, got %d", len(recipes))
	}
	if recipes[0].ID != 11 || recipes[1].ID != 12 {
		t.Errorf("Expected recipes 11, 12, got %d, %d", recipes[0].ID, recipes[1].ID)
	}
}

func TestCatalogRepository_LoadRecipeIngredientsUnknownRecipe(t *testing.T) {
	repo := NewCatalogRepository()

	err := repo.LoadRecipeIngredients([]*entities.RecipeIngredient{{RecipeID: 404, IngredientID: 1}})

	if err == nil {
		t.Fatal("Expected error for unknown recipe")
	}
}

func TestOrderRepository_GetOrdersForDate(t *testing.T) {
	catalog := buildCatalog(t)
	repo := NewOrderRepository(catalog)
	owner := uuid.Must(uuid.FromString("11111111-1111-1111-1111-111111111111"))
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	err := repo.LoadOrders([]*entities.Order{
		{ID: 3, Date: day.Add(9 * time.Hour), OwnerID: owner, Items: []entities.OrderItem{{ProductID: 2, Quantity: 4}}},
		{ID: 1, Date: day, OwnerID: owner, Items: []entities.OrderItem{{ProductID: 1, Quantity: 2}}},
		{ID: 2, Date: day.AddDate(0, 0, 1), OwnerID: owner, Items: []entities.OrderItem{{ProductID: 1, Quantity: 8}}},
	})
	if err != nil {
		t.Fatalf("Failed to load orders: %v", err)
	}

	orders, err := repo.GetOrdersForDate(context.Background(), day)
	if err != nil {
		t.Fatalf("Failed to get orders: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != 1 || orders[1].ID != 3 {
		t.Errorf("Expected orders 1, 3, got %d, %d", orders[0].ID, orders[1].ID)
	}
	product := orders[1].Items[0].Product
	if product == nil || product.Name != "Croissant" || product.CategoryName() != "Pastry" {
		t.Errorf("Expected joined product with category, got %+v", product)
	}
}

func TestOrderRepository_SetItemQuantity(t *testing.T) {
	repo := NewOrderRepository(nil)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_ = repo.LoadOrders([]*entities.Order{{ID: 1, Date: day, Items: []entities.OrderItem{{ProductID: 1, Quantity: 2}}}})

	if err := repo.SetItemQuantity(1, 1, 0); err != nil {
		t.Fatalf("Failed to set quantity: %v", err)
	}
	if err := repo.SetItemQuantity(1, 5, 3); err != nil {
		t.Fatalf("Failed to add line: %v", err)
	}
	if err := repo.SetItemQuantity(9, 1, 1); err == nil {
		t.Error("Expected error for unknown order")
	}

	orders, _ := repo.GetOrdersForDate(context.Background(), day)
	items := orders[0].Items
	if len(items) != 2 || items[0].Quantity != 0 || items[1].Quantity != 3 {
		t.Errorf("Unexpected items %+v", items)
	}
}
