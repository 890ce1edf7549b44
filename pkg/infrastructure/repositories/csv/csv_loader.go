package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/infrastructure/repositories/memory"
)

// Scenario file names inside a scenario directory
const (
	CategoriesFile        = "categories.csv"
	IngredientsFile       = "ingredients.csv"
	RecipesFile           = "recipes.csv"
	RecipeIngredientsFile = "recipe_ingredients.csv"
	ProductsFile          = "products.csv"
	ProductPartsFile      = "product_parts.csv"
	OrdersFile            = "orders.csv"
)

var (
	categoriesHeader        = []string{"id", "name"}
	ingredientsHeader       = []string{"id", "name", "price", "kilo_per_unit", "unit"}
	recipesHeader           = []string{"id", "name", "category_id", "price"}
	recipeIngredientsHeader = []string{"recipe_id", "ingredient_id", "quantity"}
	productsHeader          = []string{"id", "name", "category_id", "price"}
	productPartsHeader      = []string{"id", "product_id", "ingredient_id", "recipe_id", "sub_product_id", "quantity", "product_only", "baker_only"}
	ordersHeader            = []string{"order_id", "date", "owner_id", "status", "product_id", "quantity"}
)

// Scenario is the catalog and order data of a scenario directory
type Scenario struct {
	Categories        []*entities.Category
	Ingredients       []*entities.Ingredient
	Recipes           []*entities.Recipe
	RecipeIngredients []*entities.RecipeIngredient
	Products          []*entities.Product
	Parts             []*entities.BOMPart
	Orders            []*entities.Order
}

// Loader handles loading bakery data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads every scenario file of dir. products.csv and orders.csv
// are required; the other files may be absent.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	var (
		s   Scenario
		err error
	)
	path := func(name string) string { return filepath.Join(dir, name) }

	if s.Categories, err = l.LoadCategories(path(CategoriesFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if s.Ingredients, err = l.LoadIngredients(path(IngredientsFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if s.Recipes, err = l.LoadRecipes(path(RecipesFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if s.RecipeIngredients, err = l.LoadRecipeIngredients(path(RecipeIngredientsFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if s.Parts, err = l.LoadProductParts(path(ProductPartsFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if s.Products, err = l.LoadProducts(path(ProductsFile)); err != nil {
		return nil, err
	}
	if s.Orders, err = l.LoadOrders(path(OrdersFile)); err != nil {
		return nil, err
	}

	return &s, nil
}

// Apply loads the scenario into in-memory repositories
func (s *Scenario) Apply(catalog *memory.CatalogRepository, orders *memory.OrderRepository) error {
	steps := []struct {
		name string
		load func() error
	}{
		{"categories", func() error { return catalog.LoadCategories(s.Categories) }},
		{"ingredients", func() error { return catalog.LoadIngredients(s.Ingredients) }},
		{"recipes", func() error { return catalog.LoadRecipes(s.Recipes) }},
		{"recipe ingredients", func() error { return catalog.LoadRecipeIngredients(s.RecipeIngredients) }},
		{"products", func() error { return catalog.LoadProducts(s.Products) }},
		{"product parts", func() error { return catalog.LoadParts(s.Parts) }},
		{"orders", func() error { return orders.LoadOrders(s.Orders) }},
	}
	for _, step := range steps {
		if err := step.load(); err != nil {
			return fmt.Errorf("failed to load %s: %w", step.name, err)
		}
	}
	return nil
}

// LoadCategories loads categories from a CSV file
func (l *Loader) LoadCategories(filename string) ([]*entities.Category, error) {
	records, err := readRecords(filename, "categories", categoriesHeader)
	if err != nil {
		return nil, err
	}

	var categories []*entities.Category
	for i, record := range records {
		id, err := parseID(record[0], "id")
		if err != nil {
			return nil, fmt.Errorf("categories CSV row %d: %w", i+2, err)
		}
		categories = append(categories, &entities.Category{ID: entities.CategoryID(id), Name: record[1]})
	}
	return categories, nil
}

// LoadIngredients loads ingredients from a CSV file
func (l *Loader) LoadIngredients(filename string) ([]*entities.Ingredient, error) {
	records, err := readRecords(filename, "ingredients", ingredientsHeader)
	if err != nil {
		return nil, err
	}

	var ingredients []*entities.Ingredient
	for i, record := range records {
		ingredient, err := parseIngredient(record)
		if err != nil {
			return nil, fmt.Errorf("ingredients CSV row %d: %w", i+2, err)
		}
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, nil
}

// LoadRecipes loads recipes from a CSV file
func (l *Loader) LoadRecipes(filename string) ([]*entities.Recipe, error) {
	records, err := readRecords(filename, "recipes", recipesHeader)
	if err != nil {
		return nil, err
	}

	var recipes []*entities.Recipe
	for i, record := range records {
		recipe, err := parseRecipe(record)
		if err != nil {
			return nil, fmt.Errorf("recipes CSV row %d: %w", i+2, err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

// LoadRecipeIngredients loads recipe ingredient lines from a CSV file
func (l *Loader) LoadRecipeIngredients(filename string) ([]*entities.RecipeIngredient, error) {
	records, err := readRecords(filename, "recipe ingredients", recipeIngredientsHeader)
	if err != nil {
		return nil, err
	}

	var lines []*entities.RecipeIngredient
	for i, record := range records {
		recipeID, err := parseID(record[0], "recipe_id")
		if err != nil {
			return nil, fmt.Errorf("recipe ingredients CSV row %d: %w", i+2, err)
		}
		ingredientID, err := parseID(record[1], "ingredient_id")
		if err != nil {
			return nil, fmt.Errorf("recipe ingredients CSV row %d: %w", i+2, err)
		}
		quantity, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("recipe ingredients CSV row %d: invalid quantity: %s", i+2, record[2])
		}
		lines = append(lines, &entities.RecipeIngredient{
			RecipeID:     entities.RecipeID(recipeID),
			IngredientID: entities.IngredientID(ingredientID),
			Quantity:     quantity,
		})
	}
	return lines, nil
}

// LoadProducts loads products from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	records, err := readRecords(filename, "products", productsHeader)
	if err != nil {
		return nil, err
	}

	var products []*entities.Product
	for i, record := range records {
		product, err := parseProduct(record)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// LoadProductParts loads BOM parts from a CSV file
func (l *Loader) LoadProductParts(filename string) ([]*entities.BOMPart, error) {
	records, err := readRecords(filename, "product parts", productPartsHeader)
	if err != nil {
		return nil, err
	}

	var parts []*entities.BOMPart
	for i, record := range records {
		part, err := parseProductPart(record)
		if err != nil {
			return nil, fmt.Errorf("product parts CSV row %d: %w", i+2, err)
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// LoadOrders loads orders from a CSV file with one row per order item.
// Rows of the same order_id must agree on date, owner and status.
func (l *Loader) LoadOrders(filename string) ([]*entities.Order, error) {
	records, err := readRecords(filename, "orders", ordersHeader)
	if err != nil {
		return nil, err
	}

	var orders []*entities.Order
	byID := make(map[entities.OrderID]*entities.Order)
	for i, record := range records {
		row := i + 2
		id, err := parseID(record[0], "order_id")
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", row, err)
		}
		date, err := entities.ParseDate(record[1])
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", row, err)
		}
		owner, err := uuid.FromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: invalid owner_id: %s", row, record[2])
		}
		status := entities.OrderStatus(strings.ToLower(record[3]))
		productID, err := parseID(record[4], "product_id")
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", row, err)
		}
		quantity, err := strconv.Atoi(record[5])
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: invalid quantity: %s", row, record[5])
		}
		item := entities.OrderItem{ProductID: entities.ProductID(productID), Quantity: quantity}

		order, ok := byID[entities.OrderID(id)]
		if !ok {
			order, err = entities.NewOrder(entities.OrderID(id), date, owner, status, nil)
			if err != nil {
				return nil, fmt.Errorf("orders CSV row %d: %w", row, err)
			}
			byID[order.ID] = order
			orders = append(orders, order)
		} else if !order.Date.Equal(entities.NormalizeDate(date)) || order.OwnerID != owner || order.Status != status {
			return nil, fmt.Errorf("orders CSV row %d: order %d has conflicting date, owner or status", row, id)
		}
		if quantity < 0 {
			return nil, fmt.Errorf("orders CSV row %d: quantity cannot be negative, got %d", row, quantity)
		}
		order.Items = append(order.Items, item)
	}
	return orders, nil
}

// readRecords reads a CSV file and returns its data rows after checking the header
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}

	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range actual {
		if strings.TrimSpace(strings.ToLower(col)) != expected[i] {
			return false
		}
	}
	return true
}

func parseIngredient(record []string) (*entities.Ingredient, error) {
	id, err := parseID(record[0], "id")
	if err != nil {
		return nil, err
	}
	price, err := parseNullDecimal(record[2], "price")
	if err != nil {
		return nil, err
	}
	kiloPerUnit, err := parseNullDecimal(record[3], "kilo_per_unit")
	if err != nil {
		return nil, err
	}
	return entities.NewIngredient(entities.IngredientID(id), record[1], record[4], price, kiloPerUnit)
}

func parseRecipe(record []string) (*entities.Recipe, error) {
	id, err := parseID(record[0], "id")
	if err != nil {
		return nil, err
	}
	category, err := parseOptionalID(record[2], "category_id")
	if err != nil {
		return nil, err
	}
	price, err := parseNullDecimal(record[3], "price")
	if err != nil {
		return nil, err
	}
	var categoryID entities.CategoryID
	if category != nil {
		categoryID = entities.CategoryID(*category)
	}
	return entities.NewRecipe(entities.RecipeID(id), record[1], categoryID, price)
}

func parseProduct(record []string) (*entities.Product, error) {
	id, err := parseID(record[0], "id")
	if err != nil {
		return nil, err
	}
	category, err := parseOptionalID(record[2], "category_id")
	if err != nil {
		return nil, err
	}
	price, err := parseNullDecimal(record[3], "price")
	if err != nil {
		return nil, err
	}
	var categoryID entities.CategoryID
	if category != nil {
		categoryID = entities.CategoryID(*category)
	}
	product, err := entities.NewProduct(entities.ProductID(id), record[1], categoryID)
	if err != nil {
		return nil, err
	}
	product.Price = price
	return product, nil
}

func parseProductPart(record []string) (*entities.BOMPart, error) {
	id, err := parseID(record[0], "id")
	if err != nil {
		return nil, err
	}
	productID, err := parseID(record[1], "product_id")
	if err != nil {
		return nil, err
	}
	ingredient, err := parseOptionalID(record[2], "ingredient_id")
	if err != nil {
		return nil, err
	}
	recipe, err := parseOptionalID(record[3], "recipe_id")
	if err != nil {
		return nil, err
	}
	subProduct, err := parseOptionalID(record[4], "sub_product_id")
	if err != nil {
		return nil, err
	}
	quantity := decimal.Zero
	if record[5] != "" {
		if quantity, err = decimal.NewFromString(record[5]); err != nil {
			return nil, fmt.Errorf("invalid quantity: %s", record[5])
		}
	}
	productOnly, err := parseBool(record[6], "product_only")
	if err != nil {
		return nil, err
	}
	bakerOnly, err := parseBool(record[7], "baker_only")
	if err != nil {
		return nil, err
	}

	var (
		ingredientID *entities.IngredientID
		recipeID     *entities.RecipeID
		subProductID *entities.ProductID
	)
	if ingredient != nil {
		v := entities.IngredientID(*ingredient)
		ingredientID = &v
	}
	if recipe != nil {
		v := entities.RecipeID(*recipe)
		recipeID = &v
	}
	if subProduct != nil {
		v := entities.ProductID(*subProduct)
		subProductID = &v
	}

	return entities.NewBOMPart(
		entities.PartID(id), entities.ProductID(productID),
		ingredientID, recipeID, subProductID,
		quantity, productOnly, bakerOnly,
	)
}

func parseID(s, column string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", column, s)
	}
	return id, nil
}

func parseOptionalID(s, column string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := parseID(s, column)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseNullDecimal(s, column string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid %s: %s", column, s)
	}
	return decimal.NewNullDecimal(d), nil
}

func parseBool(s, column string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", column, s)
	}
	return b, nil
}
