package repositories

import (
	"context"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// CatalogRepository provides read access to products, recipes and bills of materials
type CatalogRepository interface {
	// GetBOMParts returns the parts of the given products with ingredient,
	// recipe (including recipe ingredients) and sub-product references expanded.
	GetBOMParts(ctx context.Context, productIDs []entities.ProductID) ([]*entities.BOMPart, error)

	// GetProducts returns the products with their categories joined
	GetProducts(ctx context.Context, ids []entities.ProductID) ([]*entities.Product, error)

	// GetRecipes returns the recipes with their ingredients expanded
	GetRecipes(ctx context.Context, ids []entities.RecipeID) ([]*entities.Recipe, error)

	// GetCategoryRecipes returns every recipe belonging to one of the categories, ordered by id
	GetCategoryRecipes(ctx context.Context, categoryIDs []entities.CategoryID) ([]*entities.Recipe, error)
}
