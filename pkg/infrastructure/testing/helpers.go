package testing

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/infrastructure/repositories/memory"
)

// Ids of the bakery test scenario
const (
	BreadCategory  entities.CategoryID = 1
	PastryCategory entities.CategoryID = 2
	CakeCategory   entities.CategoryID = 3

	FlourA entities.IngredientID = 1
	FlourB entities.IngredientID = 2
	Butter entities.IngredientID = 3
	Yeast  entities.IngredientID = 4

	RyeDough       entities.RecipeID = 10
	LaminatedDough entities.RecipeID = 20
	SweetDough     entities.RecipeID = 21

	RyeLoaf      entities.ProductID = 1
	Croissant    entities.ProductID = 2
	SeededRoll   entities.ProductID = 3
	Danish       entities.ProductID = 4
	BirthdayCake entities.ProductID = 5
)

// BakeryFixture holds the repositories of the bakery test scenario
type BakeryFixture struct {
	Catalog    *memory.CatalogRepository
	Orders     *memory.OrderRepository
	Production *memory.ProductionRepository
	Date       time.Time
	OwnerA     uuid.UUID
	OwnerB     uuid.UUID
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// BuildBakeryTestData builds a small bakery: two bread products on a rye
// dough (8.00/kg), a croissant on a laminated dough (6.50/kg), a pastry
// without a recipe part and a cake whose category has no recipe.
//
// Orders on Date:
//
//	order 1 (OwnerA): rye loaf x4, croissant x10, danish x3
//	order 2 (OwnerB): rye loaf x2, seeded roll x5, birthday cake x1
func BuildBakeryTestData() *BakeryFixture {
	catalog := memory.NewCatalogRepository()
	fixture := &BakeryFixture{
		Catalog:    catalog,
		Orders:     memory.NewOrderRepository(catalog),
		Production: memory.NewProductionRepository(),
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		OwnerA:     uuid.Must(uuid.FromString("0b7e3a52-6c1f-4a55-9a8e-1d6a5c2f0a01")),
		OwnerB:     uuid.Must(uuid.FromString("0b7e3a52-6c1f-4a55-9a8e-1d6a5c2f0a02")),
	}

	must(catalog.LoadCategories([]*entities.Category{
		{ID: BreadCategory, Name: "Bread"},
		{ID: PastryCategory, Name: "Pastry"},
		{ID: CakeCategory, Name: "Cakes"},
	}))

	must(catalog.LoadIngredients([]*entities.Ingredient{
		{ID: FlourA, Name: "Rye flour", Price: dec("10"), KiloPerUnit: dec("1"), Unit: "kg"},
		{ID: FlourB, Name: "Wheat flour", Price: dec("4"), KiloPerUnit: dec("1"), Unit: "kg"},
		// sold in 250 g packs
		{ID: Butter, Name: "Butter", Price: dec("9"), KiloPerUnit: dec("0.25"), Unit: "pack"},
		{ID: Yeast, Name: "Yeast", KiloPerUnit: dec("1"), Unit: "kg"},
	}))

	must(catalog.LoadRecipes([]*entities.Recipe{
		{ID: RyeDough, Name: "Rye dough", CategoryID: BreadCategory},
		{ID: LaminatedDough, Name: "Laminated dough", CategoryID: PastryCategory},
		{ID: SweetDough, Name: "Sweet dough", CategoryID: PastryCategory, Price: dec("6")},
	}))

	must(catalog.LoadRecipeIngredients([]*entities.RecipeIngredient{
		{RecipeID: RyeDough, IngredientID: FlourA, Quantity: qty("2")},
		{RecipeID: RyeDough, IngredientID: FlourB, Quantity: qty("1")},
		{RecipeID: LaminatedDough, IngredientID: FlourB, Quantity: qty("1")},
		{RecipeID: LaminatedDough, IngredientID: Butter, Quantity: qty("4")},
	}))

	must(catalog.LoadProducts([]*entities.Product{
		{ID: RyeLoaf, Name: "Rye loaf", CategoryID: BreadCategory},
		{ID: Croissant, Name: "Croissant", CategoryID: PastryCategory, Price: dec("1.20")},
		{ID: SeededRoll, Name: "Seeded roll", CategoryID: BreadCategory},
		{ID: Danish, Name: "Danish", CategoryID: PastryCategory},
		{ID: BirthdayCake, Name: "Birthday cake", CategoryID: CakeCategory},
	}))

	must(catalog.LoadParts([]*entities.BOMPart{
		{ID: 1, ProductID: RyeLoaf, RecipeID: ptr(RyeDough), Quantity: qty("0.5")},
		{ID: 2, ProductID: Croissant, RecipeID: ptr(LaminatedDough), Quantity: qty("0.08")},
		{ID: 3, ProductID: SeededRoll, RecipeID: ptr(RyeDough), Quantity: qty("0.1")},
		{ID: 4, ProductID: SeededRoll, IngredientID: ptr(FlourA), Quantity: qty("0.01"), ProductOnly: true},
	}))

	must(fixture.Orders.LoadOrders([]*entities.Order{
		{
			ID:      1,
			Date:    fixture.Date,
			OwnerID: fixture.OwnerA,
			Status:  entities.OrderConfirmed,
			Items: []entities.OrderItem{
				{ProductID: RyeLoaf, Quantity: 4},
				{ProductID: Croissant, Quantity: 10},
				{ProductID: Danish, Quantity: 3},
			},
		},
		{
			ID:      2,
			Date:    fixture.Date,
			OwnerID: fixture.OwnerB,
			Status:  entities.OrderNew,
			Items: []entities.OrderItem{
				{ProductID: RyeLoaf, Quantity: 2},
				{ProductID: SeededRoll, Quantity: 5},
				{ProductID: BirthdayCake, Quantity: 1},
			},
		},
	}))

	return fixture
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
