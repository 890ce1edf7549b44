package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PartKind tells which reference a BOM part carries
type PartKind int

const (
	IngredientPart PartKind = iota
	RecipePart
	SubProductPart
	InvalidPart
)

// String method for PartKind enum
func (k PartKind) String() string {
	switch k {
	case IngredientPart:
		return "Ingredient"
	case RecipePart:
		return "Recipe"
	case SubProductPart:
		return "SubProduct"
	default:
		return "Invalid"
	}
}

// BOMPart links a sellable product to the recipe, ingredient or other product it consumes
type BOMPart struct {
	ID           PartID
	ProductID    ProductID
	IngredientID *IngredientID
	RecipeID     *RecipeID
	SubProductID *ProductID
	// Quantity is the conversion factor: units consumed per one unit of product sold
	Quantity    decimal.Decimal
	ProductOnly bool
	BakerOnly   bool

	Ingredient *Ingredient
	Recipe     *Recipe
	SubProduct *Product
}

// NewBOMPart creates a validated BOMPart. Exactly one of ingredient, recipe
// or sub-product must be referenced.
func NewBOMPart(
	id PartID,
	productID ProductID,
	ingredientID *IngredientID,
	recipeID *RecipeID,
	subProductID *ProductID,
	quantity decimal.Decimal,
	productOnly, bakerOnly bool,
) (*BOMPart, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("product id must be positive, got %d", productID)
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("part quantity cannot be negative, got %s", quantity)
	}

	part := &BOMPart{
		ID:           id,
		ProductID:    productID,
		IngredientID: ingredientID,
		RecipeID:     recipeID,
		SubProductID: subProductID,
		Quantity:     quantity,
		ProductOnly:  productOnly,
		BakerOnly:    bakerOnly,
	}
	if refs := part.referenceCount(); refs != 1 {
		return nil, fmt.Errorf("part must reference exactly one ingredient, recipe or product, got %d", refs)
	}
	if subProductID != nil && *subProductID == productID {
		return nil, fmt.Errorf("product %d cannot be a part of itself", productID)
	}

	return part, nil
}

func (p *BOMPart) referenceCount() int {
	refs := 0
	if p.IngredientID != nil {
		refs++
	}
	if p.RecipeID != nil {
		refs++
	}
	if p.SubProductID != nil {
		refs++
	}
	return refs
}

// Kind returns which reference the part carries
func (p *BOMPart) Kind() PartKind {
	if p.referenceCount() != 1 {
		return InvalidPart
	}
	switch {
	case p.RecipeID != nil:
		return RecipePart
	case p.IngredientID != nil:
		return IngredientPart
	default:
		return SubProductPart
	}
}
