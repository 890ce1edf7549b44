package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
)

// CatalogRepository reads products, recipes, ingredients and product parts
type CatalogRepository struct {
	db querier
}

// Verify interface compliance
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(db querier) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const bomPartsQuery = `
	SELECT pp.id, pp.product_id, pp.ingredient_id, pp.recipe_id, pp.sub_product_id,
	       pp.quantity, pp.product_only, pp.baker_only,
	       i.name, i.price, i.kilo_per_unit, i.unit,
	       r.name, r.category_id, r.price,
	       sp.name, sp.category_id, sp.price
	FROM product_parts pp
	LEFT JOIN ingredients i ON i.id = pp.ingredient_id
	LEFT JOIN recipes r ON r.id = pp.recipe_id
	LEFT JOIN products sp ON sp.id = pp.sub_product_id
	WHERE pp.product_id = ANY($1)
	ORDER BY pp.product_id, pp.id`

func (r *CatalogRepository) GetBOMParts(ctx context.Context, productIDs []entities.ProductID) ([]*entities.BOMPart, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, bomPartsQuery, int64s(productIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query product parts: %w", mapError(err))
	}
	defer rows.Close()

	var parts []*entities.BOMPart
	recipes := make(map[entities.RecipeID][]*entities.Recipe)
	for rows.Next() {
		var (
			part            entities.BOMPart
			ingredientID    *int64
			recipeID        *int64
			subProductID    *int64
			ingredientName  *string
			ingredientUnit  *string
			ingredientPrice decimal.NullDecimal
			kiloPerUnit     decimal.NullDecimal
			recipeName      *string
			recipeCategory  *int64
			recipePrice     decimal.NullDecimal
			subName         *string
			subCategory     *int64
			subPrice        decimal.NullDecimal
		)
		err := rows.Scan(
			&part.ID, &part.ProductID, &ingredientID, &recipeID, &subProductID,
			&part.Quantity, &part.ProductOnly, &part.BakerOnly,
			&ingredientName, &ingredientPrice, &kiloPerUnit, &ingredientUnit,
			&recipeName, &recipeCategory, &recipePrice,
			&subName, &subCategory, &subPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product part: %w", err)
		}

		if ingredientID != nil {
			id := entities.IngredientID(*ingredientID)
			part.IngredientID = &id
			if ingredientName != nil {
				part.Ingredient = &entities.Ingredient{
					ID:          id,
					Name:        *ingredientName,
					Price:       ingredientPrice,
					KiloPerUnit: kiloPerUnit,
					Unit:        deref(ingredientUnit),
				}
			}
		}
		if recipeID != nil {
			id := entities.RecipeID(*recipeID)
			part.RecipeID = &id
			if recipeName != nil {
				part.Recipe = &entities.Recipe{
					ID:         id,
					Name:       *recipeName,
					CategoryID: categoryID(recipeCategory),
					Price:      recipePrice,
				}
				recipes[id] = append(recipes[id], part.Recipe)
			}
		}
		if subProductID != nil {
			id := entities.ProductID(*subProductID)
			part.SubProductID = &id
			if subName != nil {
				part.SubProduct = &entities.Product{
					ID:         id,
					Name:       *subName,
					CategoryID: categoryID(subCategory),
					Price:      subPrice,
				}
			}
		}
		parts = append(parts, &part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product parts: %w", err)
	}

	if len(recipes) > 0 {
		ids := make([]entities.RecipeID, 0, len(recipes))
		for id := range recipes {
			ids = append(ids, id)
		}
		lines, err := r.recipeIngredients(ctx, ids)
		if err != nil {
			return nil, err
		}
		for id, refs := range recipes {
			for _, recipe := range refs {
				recipe.Ingredients = lines[id]
			}
		}
	}

	return parts, nil
}

const productsQuery = `
	SELECT p.id, p.name, p.category_id, p.price, c.name
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	WHERE p.id = ANY($1)
	ORDER BY p.id`

func (r *CatalogRepository) GetProducts(ctx context.Context, ids []entities.ProductID) ([]*entities.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, productsQuery, int64s(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", mapError(err))
	}
	defer rows.Close()

	var products []*entities.Product
	for rows.Next() {
		var (
			p            entities.Product
			category     *int64
			categoryName *string
		)
		if err := rows.Scan(&p.ID, &p.Name, &category, &p.Price, &categoryName); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.CategoryID = categoryID(category)
		if category != nil && categoryName != nil {
			p.Category = &entities.Category{ID: p.CategoryID, Name: *categoryName}
		}
		products = append(products, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (r *CatalogRepository) GetRecipes(ctx context.Context, ids []entities.RecipeID) ([]*entities.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryRecipes(ctx, `
		SELECT id, name, category_id, price FROM recipes
		WHERE id = ANY($1)
		ORDER BY id`, int64s(ids))
}

func (r *CatalogRepository) GetCategoryRecipes(ctx context.Context, categoryIDs []entities.CategoryID) ([]*entities.Recipe, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	return r.queryRecipes(ctx, `
		SELECT id, name, category_id, price FROM recipes
		WHERE category_id = ANY($1)
		ORDER BY id`, int64s(categoryIDs))
}

func (r *CatalogRepository) queryRecipes(ctx context.Context, query string, args ...any) ([]*entities.Recipe, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", mapError(err))
	}
	defer rows.Close()

	var recipes []*entities.Recipe
	for rows.Next() {
		var (
			recipe   entities.Recipe
			category *int64
		)
		if err := rows.Scan(&recipe.ID, &recipe.Name, &category, &recipe.Price); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipe.CategoryID = categoryID(category)
		recipes = append(recipes, &recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	if len(recipes) == 0 {
		return recipes, nil
	}
	ids := make([]entities.RecipeID, 0, len(recipes))
	for _, recipe := range recipes {
		ids = append(ids, recipe.ID)
	}
	lines, err := r.recipeIngredients(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, recipe := range recipes {
		recipe.Ingredients = lines[recipe.ID]
	}

	return recipes, nil
}

const recipeIngredientsQuery = `
	SELECT ri.recipe_id, ri.ingredient_id, ri.quantity,
	       i.name, i.price, i.kilo_per_unit, i.unit
	FROM recipe_ingredients ri
	LEFT JOIN ingredients i ON i.id = ri.ingredient_id
	WHERE ri.recipe_id = ANY($1)
	ORDER BY ri.recipe_id, ri.ingredient_id`

// recipeIngredients returns the ingredient lines of the recipes keyed by recipe
func (r *CatalogRepository) recipeIngredients(ctx context.Context, ids []entities.RecipeID) (map[entities.RecipeID][]entities.RecipeIngredient, error) {
	rows, err := r.db.Query(ctx, recipeIngredientsQuery, int64s(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe ingredients: %w", mapError(err))
	}
	defer rows.Close()

	lines := make(map[entities.RecipeID][]entities.RecipeIngredient)
	for rows.Next() {
		var (
			line        entities.RecipeIngredient
			name        *string
			unit        *string
			price       decimal.NullDecimal
			kiloPerUnit decimal.NullDecimal
		)
		err := rows.Scan(&line.RecipeID, &line.IngredientID, &line.Quantity, &name, &price, &kiloPerUnit, &unit)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		if name != nil {
			line.Ingredient = &entities.Ingredient{
				ID:          line.IngredientID,
				Name:        *name,
				Price:       price,
				KiloPerUnit: kiloPerUnit,
				Unit:        deref(unit),
			}
		}
		lines[line.RecipeID] = append(lines[line.RecipeID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipe ingredients: %w", err)
	}

	return lines, nil
}

func int64s[T ~int64](ids []T) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func categoryID(id *int64) entities.CategoryID {
	if id == nil {
		return 0
	}
	return entities.CategoryID(*id)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
