package demand

import (
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// groupBuilder accumulates one recipe's demand while orders are scanned
type groupBuilder struct {
	group    dto.RecipeDemand
	products map[entities.ProductID]*dto.ProductDemand
	owners   map[uuid.UUID]bool
}

// Aggregate groups the order lines of one day by the recipe each product is
// built from and sums the ordered quantities per product.
//
// A product contributes to every recipe its BOM parts reference. Products
// without a recipe part land in Demand.Unresolved and are reported as
// anomalies. The result does not depend on the order of the input slices.
func Aggregate(date time.Time, orders []*entities.Order, partsByProduct map[entities.ProductID][]*entities.BOMPart) dto.Demand {
	sorted := append([]*entities.Order(nil), orders...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	groups := make(map[entities.RecipeID]*groupBuilder)
	unresolved := make(map[entities.ProductID]*dto.ProductDemand)

	for _, order := range sorted {
		for _, item := range order.Items {
			if item.Quantity <= 0 {
				continue
			}

			factors := recipeFactors(partsByProduct[item.ProductID])
			if len(factors) == 0 {
				pd, ok := unresolved[item.ProductID]
				if !ok {
					pd = newProductDemand(item)
					unresolved[item.ProductID] = pd
				}
				pd.Ordered += item.Quantity
				continue
			}

			for recipeID, rf := range factors {
				gb, ok := groups[recipeID]
				if !ok {
					gb = newGroupBuilder(recipeID, rf.recipe, item.Product)
					groups[recipeID] = gb
				}

				pd, ok := gb.products[item.ProductID]
				if !ok {
					pd = newProductDemand(item)
					pd.Factor = rf.factor
					pd.FactorKnown = rf.factor.IsPositive()
					gb.products[item.ProductID] = pd
				}
				pd.Ordered += item.Quantity

				if !gb.owners[order.OwnerID] {
					gb.owners[order.OwnerID] = true
					gb.group.Owners = append(gb.group.Owners, order.OwnerID)
				}
			}
		}
	}

	result := dto.Demand{Date: entities.NormalizeDate(date).Format(entities.DateLayout)}

	for _, gb := range groups {
		group := gb.group
		for _, pd := range gb.products {
			group.Products = append(group.Products, *pd)
		}
		sortProducts(group.Products)
		result.Groups = append(result.Groups, group)
	}
	sort.Slice(result.Groups, func(i, j int) bool { return result.Groups[i].RecipeID < result.Groups[j].RecipeID })

	for _, pd := range unresolved {
		result.Unresolved = append(result.Unresolved, *pd)
	}
	sortProducts(result.Unresolved)
	result.Anomalies = unresolvedAnomalies(result.Unresolved)

	return result
}

// WithCategoryDefaults moves unresolved products whose category has a default
// recipe into that recipe's group with a factor of 1. Products whose category
// has no default stay unresolved. The input demand is not modified.
func WithCategoryDefaults(d dto.Demand, defaults map[entities.CategoryID]*entities.Recipe) dto.Demand {
	if len(d.Unresolved) == 0 || len(defaults) == 0 {
		return d
	}

	groups := make(map[entities.RecipeID]int, len(d.Groups))
	result := dto.Demand{Date: d.Date}
	for _, g := range d.Groups {
		g.Products = append([]dto.ProductDemand(nil), g.Products...)
		groups[g.RecipeID] = len(result.Groups)
		result.Groups = append(result.Groups, g)
	}

	for _, pd := range d.Unresolved {
		recipe, ok := defaults[pd.CategoryID]
		if !ok || recipe == nil {
			result.Unresolved = append(result.Unresolved, pd)
			continue
		}

		pd.Factor = decimal.NewFromInt(1)
		pd.FactorKnown = true

		idx, ok := groups[recipe.ID]
		if !ok {
			idx = len(result.Groups)
			groups[recipe.ID] = idx
			result.Groups = append(result.Groups, dto.RecipeDemand{
				RecipeID:     recipe.ID,
				RecipeName:   recipe.DisplayName(),
				CategoryID:   pd.CategoryID,
				CategoryName: pd.CategoryName,
			})
		}
		result.Groups[idx].Products = append(result.Groups[idx].Products, pd)
	}

	for i := range result.Groups {
		sortProducts(result.Groups[i].Products)
	}
	sort.Slice(result.Groups, func(i, j int) bool { return result.Groups[i].RecipeID < result.Groups[j].RecipeID })

	// keep anomalies that are not about products now resolved
	stillUnresolved := make(map[entities.ProductID]bool, len(result.Unresolved))
	for _, pd := range result.Unresolved {
		stillUnresolved[pd.ProductID] = true
	}
	for _, a := range d.Anomalies {
		if a.Kind == dto.UnresolvedProduct && !stillUnresolved[a.ProductID] {
			continue
		}
		result.Anomalies = append(result.Anomalies, a)
	}

	return result
}

// OrderedProducts returns the distinct ids of products with a positive
// ordered quantity, sorted ascending
func OrderedProducts(orders []*entities.Order) []entities.ProductID {
	seen := make(map[entities.ProductID]bool)
	var ids []entities.ProductID
	for _, order := range orders {
		for _, item := range order.Items {
			if item.Quantity <= 0 || seen[item.ProductID] {
				continue
			}
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PartsByProduct indexes BOM parts by the product they belong to
func PartsByProduct(parts []*entities.BOMPart) map[entities.ProductID][]*entities.BOMPart {
	index := make(map[entities.ProductID][]*entities.BOMPart)
	for _, part := range parts {
		index[part.ProductID] = append(index[part.ProductID], part)
	}
	return index
}

// UnresolvedCategories returns the distinct categories of unresolved products
func UnresolvedCategories(d dto.Demand) []entities.CategoryID {
	seen := make(map[entities.CategoryID]bool)
	var ids []entities.CategoryID
	for _, pd := range d.Unresolved {
		if pd.CategoryID == 0 || seen[pd.CategoryID] {
			continue
		}
		seen[pd.CategoryID] = true
		ids = append(ids, pd.CategoryID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CategoryDefaults picks the lowest-id recipe of every category
func CategoryDefaults(recipes []*entities.Recipe) map[entities.CategoryID]*entities.Recipe {
	defaults := make(map[entities.CategoryID]*entities.Recipe)
	for _, r := range recipes {
		if current, ok := defaults[r.CategoryID]; !ok || r.ID < current.ID {
			defaults[r.CategoryID] = r
		}
	}
	return defaults
}

type recipeFactor struct {
	recipe *entities.Recipe
	factor decimal.Decimal
}

// recipeFactors sums the conversion factors of a product's recipe parts per
// recipe. Nested recipes are not followed.
func recipeFactors(parts []*entities.BOMPart) map[entities.RecipeID]recipeFactor {
	factors := make(map[entities.RecipeID]recipeFactor)
	for _, part := range parts {
		if part.RecipeID == nil {
			continue
		}
		rf := factors[*part.RecipeID]
		if rf.recipe == nil {
			rf.recipe = part.Recipe
		}
		rf.factor = rf.factor.Add(part.Quantity)
		factors[*part.RecipeID] = rf
	}
	return factors
}

func newGroupBuilder(recipeID entities.RecipeID, recipe *entities.Recipe, product *entities.Product) *groupBuilder {
	name := fmt.Sprintf("Recipe %d", recipeID)
	if recipe != nil {
		name = recipe.DisplayName()
	}

	group := dto.RecipeDemand{
		RecipeID:   recipeID,
		RecipeName: name,
	}
	if product != nil {
		group.CategoryID = product.CategoryID
		group.CategoryName = product.CategoryName()
	}

	return &groupBuilder{
		group:    group,
		products: make(map[entities.ProductID]*dto.ProductDemand),
		owners:   make(map[uuid.UUID]bool),
	}
}

func newProductDemand(item entities.OrderItem) *dto.ProductDemand {
	pd := &dto.ProductDemand{
		ProductID:   item.ProductID,
		ProductName: fmt.Sprintf("Product %d", item.ProductID),
	}
	if item.Product != nil {
		pd.ProductName = item.Product.Name
		pd.CategoryID = item.Product.CategoryID
		pd.CategoryName = item.Product.CategoryName()
	}
	return pd
}

func sortProducts(products []dto.ProductDemand) {
	sort.Slice(products, func(i, j int) bool { return products[i].ProductID < products[j].ProductID })
}

func unresolvedAnomalies(unresolved []dto.ProductDemand) []dto.Anomaly {
	var anomalies []dto.Anomaly
	for _, pd := range unresolved {
		anomalies = append(anomalies, dto.Anomaly{
			Kind:      dto.UnresolvedProduct,
			ProductID: pd.ProductID,
			Message:   fmt.Sprintf("product %s has no recipe part, %d ordered", pd.ProductName, pd.Ordered),
		})
	}
	return anomalies
}
