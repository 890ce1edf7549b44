package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RecipeIngredient is one ingredient line of a recipe
type RecipeIngredient struct {
	RecipeID     RecipeID
	IngredientID IngredientID
	Quantity     decimal.Decimal
	Ingredient   *Ingredient
}

// Recipe represents a dough or filling produced in batches
type Recipe struct {
	ID         RecipeID
	Name       string
	CategoryID CategoryID
	// Price is the stored fallback cost used when the ingredient weight is unknown
	Price       decimal.NullDecimal
	Ingredients []RecipeIngredient
}

// NewRecipe creates a validated Recipe
func NewRecipe(id RecipeID, name string, categoryID CategoryID, price decimal.NullDecimal) (*Recipe, error) {
	if id <= 0 {
		return nil, fmt.Errorf("recipe id must be positive, got %d", id)
	}
	if name == "" {
		return nil, fmt.Errorf("recipe name cannot be empty")
	}

	return &Recipe{
		ID:         id,
		Name:       name,
		CategoryID: categoryID,
		Price:      price,
	}, nil
}

// DisplayName returns the recipe name, falling back to its id
func (r *Recipe) DisplayName() string {
	if r == nil {
		return ""
	}
	if r.Name == "" {
		return fmt.Sprintf("Recipe %d", r.ID)
	}
	return r.Name
}
