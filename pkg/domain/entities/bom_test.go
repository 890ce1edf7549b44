package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBOMPart_Validation(t *testing.T) {
	recipeID := RecipeID(10)
	ingredientID := IngredientID(20)
	subProductID := ProductID(30)
	selfID := ProductID(1)

	validPart, err := NewBOMPart(1, 1, nil, &recipeID, nil, decimal.RequireFromString("0.2"), false, false)
	if err != nil {
		t.Fatalf("Expected valid part creation to succeed: %v", err)
	}
	if validPart.Kind() != RecipePart {
		t.Errorf("Expected recipe part, got %s", validPart.Kind())
	}

	testCases := []struct {
		name         string
		productID    ProductID
		ingredientID *IngredientID
		recipeID     *RecipeID
		subProductID *ProductID
		quantity     decimal.Decimal
		expectError  string
	}{
		{"zero product", 0, nil, &recipeID, nil, decimal.NewFromInt(1), "product id must be positive, got 0"},
		{"no reference", 1, nil, nil, nil, decimal.NewFromInt(1), "part must reference exactly one ingredient, recipe or product, got 0"},
		{"two references", 1, &ingredientID, &recipeID, nil, decimal.NewFromInt(1), "part must reference exactly one ingredient, recipe or product, got 2"},
		{"negative quantity", 1, &ingredientID, nil, nil, decimal.NewFromInt(-1), "part quantity cannot be negative, got -1"},
		{"self reference", 1, nil, nil, &selfID, decimal.NewFromInt(1), "product 1 cannot be a part of itself"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBOMPart(1, tc.productID, tc.ingredientID, tc.recipeID, tc.subProductID, tc.quantity, false, false)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}

	subPart, err := NewBOMPart(2, 1, nil, nil, &subProductID, decimal.NewFromInt(1), true, false)
	if err != nil {
		t.Fatalf("Expected sub-product part creation to succeed: %v", err)
	}
	if subPart.Kind() != SubProductPart {
		t.Errorf("Expected sub-product part, got %s", subPart.Kind())
	}
	if !subPart.ProductOnly {
		t.Error("Expected productOnly flag to be kept")
	}
}

func TestBOMPart_KindOfHandBuiltPart(t *testing.T) {
	ingredientID := IngredientID(5)
	recipeID := RecipeID(6)

	part := BOMPart{ProductID: 1, IngredientID: &ingredientID, RecipeID: &recipeID}
	if part.Kind() != InvalidPart {
		t.Errorf("Expected invalid kind for a part with two references, got %s", part.Kind())
	}

	part.RecipeID = nil
	if part.Kind() != IngredientPart {
		t.Errorf("Expected ingredient kind, got %s", part.Kind())
	}
}
