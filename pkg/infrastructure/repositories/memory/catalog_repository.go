package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
)

// CatalogRepository provides in-memory storage of products, recipes and BOM parts
type CatalogRepository struct {
	mu                sync.RWMutex
	categories        map[entities.CategoryID]entities.Category
	products          map[entities.ProductID]entities.Product
	ingredients       map[entities.IngredientID]entities.Ingredient
	recipes           map[entities.RecipeID]entities.Recipe
	recipeIngredients map[entities.RecipeID][]entities.RecipeIngredient
	parts             map[entities.ProductID][]entities.BOMPart
}

// NewCatalogRepository creates a new in-memory catalog repository
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		categories:        make(map[entities.CategoryID]entities.Category),
		products:          make(map[entities.ProductID]entities.Product),
		ingredients:       make(map[entities.IngredientID]entities.Ingredient),
		recipes:           make(map[entities.RecipeID]entities.Recipe),
		recipeIngredients: make(map[entities.RecipeID][]entities.RecipeIngredient),
		parts:             make(map[entities.ProductID][]entities.BOMPart),
	}
}

// Verify interface compliance
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// LoadCategories loads categories into the repository
func (r *CatalogRepository) LoadCategories(categories []*entities.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range categories {
		r.categories[c.ID] = *c
	}
	return nil
}

// LoadProducts loads products into the repository
func (r *CatalogRepository) LoadProducts(products []*entities.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		product := *p
		product.Category = nil
		r.products[p.ID] = product
	}
	return nil
}

// LoadIngredients loads ingredients into the repository
func (r *CatalogRepository) LoadIngredients(ingredients []*entities.Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range ingredients {
		r.ingredients[i.ID] = *i
	}
	return nil
}

// LoadRecipes loads recipes into the repository. Ingredient lines carried by
// the recipes are stored as well.
func (r *CatalogRepository) LoadRecipes(recipes []*entities.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recipes {
		recipe := *rec
		if len(recipe.Ingredients) > 0 {
			r.recipeIngredients[recipe.ID] = append([]entities.RecipeIngredient(nil), recipe.Ingredients...)
		}
		recipe.Ingredients = nil
		r.recipes[recipe.ID] = recipe
	}
	return nil
}

// LoadRecipeIngredients loads recipe ingredient lines into the repository
func (r *CatalogRepository) LoadRecipeIngredients(lines []*entities.RecipeIngredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range lines {
		if _, ok := r.recipes[line.RecipeID]; !ok {
			return fmt.Errorf("recipe ingredient references unknown recipe %d: %w", line.RecipeID, repositories.ErrNotFound)
		}
		l := *line
		l.Ingredient = nil
		r.recipeIngredients[l.RecipeID] = append(r.recipeIngredients[l.RecipeID], l)
	}
	return nil
}

// LoadParts loads BOM parts into the repository
func (r *CatalogRepository) LoadParts(parts []*entities.BOMPart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range parts {
		part := *p
		part.Ingredient, part.Recipe, part.SubProduct = nil, nil, nil
		r.parts[part.ProductID] = append(r.parts[part.ProductID], part)
	}
	return nil
}

// GetBOMParts returns the parts of the given products with every reference expanded.
// References to rows that do not exist are left nil.
func (r *CatalogRepository) GetBOMParts(ctx context.Context, productIDs []entities.ProductID) ([]*entities.BOMPart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var parts []*entities.BOMPart
	for _, productID := range uniqueProductIDs(productIDs) {
		for _, p := range r.parts[productID] {
			part := p
			if part.IngredientID != nil {
				part.Ingredient = r.ingredient(*part.IngredientID)
			}
			if part.RecipeID != nil {
				part.Recipe = r.recipe(*part.RecipeID)
			}
			if part.SubProductID != nil {
				part.SubProduct = r.product(*part.SubProductID)
			}
			parts = append(parts, &part)
		}
	}
	return parts, nil
}

// GetProducts returns the products with their categories joined. Unknown ids are skipped.
func (r *CatalogRepository) GetProducts(ctx context.Context, ids []entities.ProductID) ([]*entities.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var products []*entities.Product
	for _, id := range uniqueProductIDs(ids) {
		if p := r.product(id); p != nil {
			products = append(products, p)
		}
	}
	return products, nil
}

// GetRecipes returns the recipes with their ingredients expanded. Unknown ids are skipped.
func (r *CatalogRepository) GetRecipes(ctx context.Context, ids []entities.RecipeID) ([]*entities.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := append([]entities.RecipeID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var recipes []*entities.Recipe
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		if rec := r.recipe(id); rec != nil {
			recipes = append(recipes, rec)
		}
	}
	return recipes, nil
}

// GetCategoryRecipes returns every recipe of the given categories ordered by id
func (r *CatalogRepository) GetCategoryRecipes(ctx context.Context, categoryIDs []entities.CategoryID) ([]*entities.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[entities.CategoryID]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		wanted[id] = true
	}

	var recipes []*entities.Recipe
	for id, rec := range r.recipes {
		if wanted[rec.CategoryID] {
			recipes = append(recipes, r.recipe(id))
		}
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].ID < recipes[j].ID })
	return recipes, nil
}

// product returns an expanded copy of a product, or nil. Callers hold the lock.
func (r *CatalogRepository) product(id entities.ProductID) *entities.Product {
	p, ok := r.products[id]
	if !ok {
		return nil
	}
	if c, ok := r.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	return &p
}

func (r *CatalogRepository) ingredient(id entities.IngredientID) *entities.Ingredient {
	i, ok := r.ingredients[id]
	if !ok {
		return nil
	}
	return &i
}

func (r *CatalogRepository) recipe(id entities.RecipeID) *entities.Recipe {
	rec, ok := r.recipes[id]
	if !ok {
		return nil
	}
	for _, line := range r.recipeIngredients[id] {
		line.Ingredient = r.ingredient(line.IngredientID)
		rec.Ingredients = append(rec.Ingredients, line)
	}
	return &rec
}

func uniqueProductIDs(ids []entities.ProductID) []entities.ProductID {
	sorted := append([]entities.ProductID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	unique := sorted[:0]
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		unique = append(unique, id)
	}
	return unique
}
