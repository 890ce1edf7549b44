package demand

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

var (
	ownerA = uuid.Must(uuid.FromString("11111111-1111-1111-1111-111111111111"))
	ownerB = uuid.Must(uuid.FromString("22222222-2222-2222-2222-222222222222"))

	bread  = &entities.Category{ID: 1, Name: "Bread"}
	pastry = &entities.Category{ID: 2, Name: "Pastry"}

	decimalEqual = cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) })
)

func product(id entities.ProductID, name string, category *entities.Category) *entities.Product {
	return &entities.Product{ID: id, Name: name, CategoryID: category.ID, Category: category}
}

func order(id entities.OrderID, owner uuid.UUID, items ...entities.OrderItem) *entities.Order {
	return &entities.Order{
		ID:      id,
		Date:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		OwnerID: owner,
		Status:  entities.OrderConfirmed,
		Items:   items,
	}
}

func line(p *entities.Product, qty int) entities.OrderItem {
	return entities.OrderItem{ProductID: p.ID, Quantity: qty, Product: p}
}

func recipePart(productID entities.ProductID, recipe *entities.Recipe, factor string) *entities.BOMPart {
	id := recipe.ID
	return &entities.BOMPart{
		ProductID: productID,
		RecipeID:  &id,
		Recipe:    recipe,
		Quantity:  decimal.RequireFromString(factor),
	}
}

func TestAggregate_GroupsByRecipe(t *testing.T) {
	rye := &entities.Recipe{ID: 10, Name: "Rye dough"}
	loaf := product(1, "Rye loaf", bread)
	roll := product(2, "Rye roll", bread)
	croissant := product(3, "Croissant", pastry)

	parts := PartsByProduct([]*entities.BOMPart{
		recipePart(loaf.ID, rye, "0.5"),
		recipePart(roll.ID, rye, "0.1"),
	})
	orders := []*entities.Order{
		order(2, ownerB, line(loaf, 3), line(croissant, 4)),
		order(1, ownerA, line(loaf, 2), line(roll, 10), line(croissant, 0)),
	}

	d := Aggregate(time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC), orders, parts)

	assert.Equal(t, "2024-03-01", d.Date)
	require.Len(t, d.Groups, 1)
	group := d.Groups[0]
	assert.Equal(t, entities.RecipeID(10), group.RecipeID)
	assert.Equal(t, "Rye dough", group.RecipeName)
	assert.Equal(t, "Bread", group.CategoryName)
	assert.Equal(t, []uuid.UUID{ownerA, ownerB}, group.Owners, "owners follow order id")
	assert.Equal(t, 15, group.TotalOrdered())

	require.Len(t, group.Products, 2)
	assert.Equal(t, entities.ProductID(1), group.Products[0].ProductID)
	assert.Equal(t, 5, group.Products[0].Ordered)
	assert.True(t, group.Products[0].Factor.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 10, group.Products[1].Ordered)

	require.Len(t, d.Unresolved, 1)
	assert.Equal(t, entities.ProductID(3), d.Unresolved[0].ProductID)
	assert.Equal(t, 4, d.Unresolved[0].Ordered)
	require.Len(t, d.Anomalies, 1)
	assert.Equal(t, dto.UnresolvedProduct, d.Anomalies[0].Kind)
}

func TestAggregate_IsDeterministic(t *testing.T) {
	white := &entities.Recipe{ID: 20, Name: "White dough"}
	rye := &entities.Recipe{ID: 10, Name: "Rye dough"}
	baguette := product(5, "Baguette", bread)
	loaf := product(1, "Rye loaf", bread)

	parts := PartsByProduct([]*entities.BOMPart{
		recipePart(baguette.ID, white, "0.3"),
		recipePart(loaf.ID, rye, "0.5"),
	})
	first := []*entities.Order{
		order(1, ownerA, line(baguette, 2), line(loaf, 1)),
		order(2, ownerB, line(loaf, 4)),
	}
	second := []*entities.Order{first[1], first[0]}

	a := Aggregate(first[0].Date, first, parts)
	b := Aggregate(first[0].Date, second, parts)

	if diff := cmp.Diff(a, b, decimalEqual); diff != "" {
		t.Errorf("aggregation depends on input order (-first +second):\n%s", diff)
	}
	require.Len(t, a.Groups, 2)
	assert.Equal(t, entities.RecipeID(10), a.Groups[0].RecipeID)
	assert.Equal(t, entities.RecipeID(20), a.Groups[1].RecipeID)
}

func TestAggregate_MultipleRecipeParts(t *testing.T) {
	dough := &entities.Recipe{ID: 10, Name: "Dough"}
	filling := &entities.Recipe{ID: 11, Name: "Poppy filling"}
	kolach := product(7, "Kolach", pastry)

	parts := PartsByProduct([]*entities.BOMPart{
		recipePart(kolach.ID, dough, "0.06"),
		recipePart(kolach.ID, filling, "0.02"),
		recipePart(kolach.ID, filling, "0.01"),
	})

	d := Aggregate(time.Now(), []*entities.Order{order(1, ownerA, line(kolach, 10))}, parts)

	require.Len(t, d.Groups, 2)
	assert.Empty(t, d.Unresolved)
	assert.Equal(t, 10, d.Groups[0].Products[0].Ordered)
	assert.Equal(t, 10, d.Groups[1].Products[0].Ordered)
	assert.True(t, d.Groups[1].Products[0].Factor.Equal(decimal.RequireFromString("0.03")),
		"factors of one recipe are summed, got %s", d.Groups[1].Products[0].Factor)
}

func TestAggregate_IgnoresIngredientOnlyParts(t *testing.T) {
	flourID := entities.IngredientID(1)
	salt := product(9, "Salt stick", bread)
	parts := PartsByProduct([]*entities.BOMPart{
		{ProductID: salt.ID, IngredientID: &flourID, Quantity: decimal.RequireFromString("0.1")},
	})

	d := Aggregate(time.Now(), []*entities.Order{order(1, ownerA, line(salt, 2))}, parts)

	assert.Empty(t, d.Groups)
	require.Len(t, d.Unresolved, 1)
	assert.Equal(t, salt.ID, d.Unresolved[0].ProductID)
}

func TestAggregate_ZeroFactorIsUnknown(t *testing.T) {
	rye := &entities.Recipe{ID: 10, Name: "Rye dough"}
	loaf := product(1, "Rye loaf", bread)
	parts := PartsByProduct([]*entities.BOMPart{recipePart(loaf.ID, rye, "0")})

	d := Aggregate(time.Now(), []*entities.Order{order(1, ownerA, line(loaf, 3))}, parts)

	require.Len(t, d.Groups, 1)
	assert.False(t, d.Groups[0].Products[0].FactorKnown)
}

func TestAggregate_NoOrders(t *testing.T) {
	d := Aggregate(time.Now(), nil, nil)

	assert.Empty(t, d.Groups)
	assert.Empty(t, d.Unresolved)
	assert.Empty(t, d.Anomalies)
}

func TestWithCategoryDefaults(t *testing.T) {
	rye := &entities.Recipe{ID: 10, Name: "Rye dough", CategoryID: bread.ID}
	laminated := &entities.Recipe{ID: 30, Name: "Laminated dough", CategoryID: pastry.ID}
	loaf := product(1, "Rye loaf", bread)
	croissant := product(3, "Croissant", pastry)
	cake := product(4, "Cake", &entities.Category{ID: 3, Name: "Cakes"})

	parts := PartsByProduct([]*entities.BOMPart{recipePart(loaf.ID, rye, "0.5")})
	d := Aggregate(time.Now(), []*entities.Order{
		order(1, ownerA, line(loaf, 2), line(croissant, 6), line(cake, 1)),
	}, parts)
	require.Len(t, d.Unresolved, 2)
	assert.Equal(t, []entities.CategoryID{2, 3}, UnresolvedCategories(d))

	defaults := CategoryDefaults([]*entities.Recipe{
		{ID: 31, Name: "Puff dough", CategoryID: pastry.ID},
		laminated,
	})
	withDefaults := WithCategoryDefaults(d, defaults)

	require.Len(t, withDefaults.Groups, 2)
	fallback := withDefaults.Groups[1]
	assert.Equal(t, entities.RecipeID(30), fallback.RecipeID, "lowest id recipe of the category is the default")
	assert.Equal(t, "Laminated dough", fallback.RecipeName)
	require.Len(t, fallback.Products, 1)
	assert.Equal(t, 6, fallback.Products[0].Ordered)
	assert.True(t, fallback.Products[0].Factor.Equal(decimal.NewFromInt(1)))

	require.Len(t, withDefaults.Unresolved, 1)
	assert.Equal(t, cake.ID, withDefaults.Unresolved[0].ProductID)
	require.Len(t, withDefaults.Anomalies, 1)
	assert.Equal(t, cake.ID, withDefaults.Anomalies[0].ProductID)

	assert.Len(t, d.Groups, 1, "input demand must not change")
}

func TestOrderedProducts(t *testing.T) {
	a := product(3, "A", bread)
	b := product(1, "B", bread)
	c := product(2, "C", bread)

	ids := OrderedProducts([]*entities.Order{
		order(1, ownerA, line(a, 1), line(b, 2)),
		order(2, ownerB, line(a, 5), line(c, 0)),
	})

	assert.Equal(t, []entities.ProductID{1, 3}, ids)
}
