package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductID identifies a sellable product
type ProductID int64

// CategoryID identifies a product or recipe category
type CategoryID int64

// IngredientID identifies a raw ingredient
type IngredientID int64

// RecipeID identifies a recipe
type RecipeID int64

// PartID identifies a BOM part row
type PartID int64

// Category groups products and recipes
type Category struct {
	ID   CategoryID
	Name string
}

// Product represents a sellable finished product
type Product struct {
	ID         ProductID
	Name       string
	CategoryID CategoryID
	Category   *Category
	// Price is only used when the product is itself a part of another product
	Price decimal.NullDecimal
}

// NewProduct creates a validated Product
func NewProduct(id ProductID, name string, categoryID CategoryID) (*Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("product id must be positive, got %d", id)
	}
	if name == "" {
		return nil, fmt.Errorf("product name cannot be empty")
	}

	return &Product{
		ID:         id,
		Name:       name,
		CategoryID: categoryID,
	}, nil
}

// CategoryName returns the joined category name or an empty string
func (p *Product) CategoryName() string {
	if p == nil || p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// Ingredient represents a stocked raw material priced per kilogram
type Ingredient struct {
	ID   IngredientID
	Name string
	// Price is the currency amount per kilogram
	Price decimal.NullDecimal
	// KiloPerUnit converts one stocking unit to kilograms
	KiloPerUnit decimal.NullDecimal
	Unit        string
}

// NewIngredient creates a validated Ingredient
func NewIngredient(id IngredientID, name, unit string, price, kiloPerUnit decimal.NullDecimal) (*Ingredient, error) {
	if id <= 0 {
		return nil, fmt.Errorf("ingredient id must be positive, got %d", id)
	}
	if name == "" {
		return nil, fmt.Errorf("ingredient name cannot be empty")
	}
	if price.Valid && price.Decimal.IsNegative() {
		return nil, fmt.Errorf("ingredient price cannot be negative, got %s", price.Decimal)
	}
	if kiloPerUnit.Valid && kiloPerUnit.Decimal.IsNegative() {
		return nil, fmt.Errorf("kilo per unit cannot be negative, got %s", kiloPerUnit.Decimal)
	}
	if unit == "" {
		unit = "kg"
	}

	return &Ingredient{
		ID:          id,
		Name:        name,
		Price:       price,
		KiloPerUnit: kiloPerUnit,
		Unit:        unit,
	}, nil
}

// Kilograms converts a quantity in stocking units to kilograms.
// The second return value is false when the conversion factor is unknown.
func (i *Ingredient) Kilograms(quantity decimal.Decimal) (decimal.Decimal, bool) {
	if i == nil || !i.KiloPerUnit.Valid {
		return decimal.Zero, false
	}
	return quantity.Mul(i.KiloPerUnit.Decimal), true
}
