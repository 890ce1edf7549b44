package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestProduct_Validation(t *testing.T) {
	product, err := NewProduct(1, "Rye bread", 3)
	if err != nil {
		t.Fatalf("Expected valid product creation to succeed: %v", err)
	}
	if product.CategoryName() != "" {
		t.Errorf("Expected empty category name without join, got %s", product.CategoryName())
	}

	product.Category = &Category{ID: 3, Name: "Bread"}
	if product.CategoryName() != "Bread" {
		t.Errorf("Expected category Bread, got %s", product.CategoryName())
	}

	if _, err := NewProduct(0, "x", 1); err == nil || err.Error() != "product id must be positive, got 0" {
		t.Errorf("Expected id validation error, got %v", err)
	}
	if _, err := NewProduct(1, "", 1); err == nil || err.Error() != "product name cannot be empty" {
		t.Errorf("Expected name validation error, got %v", err)
	}
}

func TestIngredient_Kilograms(t *testing.T) {
	flour, err := NewIngredient(1, "Flour", "bag", decimal.NewNullDecimal(decimal.NewFromInt(12)), decimal.NewNullDecimal(decimal.NewFromInt(25)))
	if err != nil {
		t.Fatalf("Expected valid ingredient creation to succeed: %v", err)
	}

	kg, ok := flour.Kilograms(decimal.RequireFromString("0.5"))
	if !ok {
		t.Fatal("Expected conversion to be known")
	}
	if !kg.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Expected 12.5 kg, got %s", kg)
	}

	salt, err := NewIngredient(2, "Salt", "", decimal.NullDecimal{}, decimal.NullDecimal{})
	if err != nil {
		t.Fatalf("Expected ingredient without price to be valid: %v", err)
	}
	if salt.Unit != "kg" {
		t.Errorf("Expected default unit kg, got %s", salt.Unit)
	}
	if _, ok := salt.Kilograms(decimal.NewFromInt(1)); ok {
		t.Error("Expected unknown conversion for ingredient without kiloPerUnit")
	}

	_, err = NewIngredient(3, "Butter", "kg", decimal.NewNullDecimal(decimal.NewFromInt(-1)), decimal.NullDecimal{})
	if err == nil || err.Error() != "ingredient price cannot be negative, got -1" {
		t.Errorf("Expected negative price error, got %v", err)
	}
}

func TestRecipe_DisplayName(t *testing.T) {
	recipe, err := NewRecipe(7, "", 1, decimal.NullDecimal{})
	if err == nil {
		t.Fatalf("Expected empty name to be rejected, got %+v", recipe)
	}

	hand := &Recipe{ID: 7}
	if hand.DisplayName() != "Recipe 7" {
		t.Errorf("Expected fallback display name, got %s", hand.DisplayName())
	}
}
