package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// BOMValidator checks product parts for structural problems that would make
// planning or costing silently wrong
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles bool
	// CyclePaths are sub-product loops, first product repeated at the end
	CyclePaths       [][]entities.ProductID
	InvalidParts     []entities.BOMPart
	NonPositiveParts []entities.BOMPart
	DuplicateParts   []entities.BOMPart
	Errors           []string
}

// Valid reports whether no problem was found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateBOM performs comprehensive validation on a set of product parts
func (v *BOMValidator) ValidateBOM(parts []entities.BOMPart) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:       make([][]entities.ProductID, 0),
		InvalidParts:     make([]entities.BOMPart, 0),
		NonPositiveParts: make([]entities.BOMPart, 0),
		DuplicateParts:   make([]entities.BOMPart, 0),
		Errors:           make([]string, 0),
	}

	for _, part := range parts {
		switch {
		case part.Kind() == entities.InvalidPart:
			result.InvalidParts = append(result.InvalidParts, part)
			result.Errors = append(result.Errors, fmt.Sprintf(
				"part %d of product %d must reference exactly one ingredient, recipe or product", part.ID, part.ProductID))
		case !part.Quantity.IsPositive():
			result.NonPositiveParts = append(result.NonPositiveParts, part)
			result.Errors = append(result.Errors, fmt.Sprintf(
				"part %d of product %d has non-positive quantity %s", part.ID, part.ProductID, part.Quantity))
		}
	}

	cycles := v.detectCycles(v.buildAdjacencyMap(parts))
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles
	for _, cycle := range cycles {
		result.Errors = append(result.Errors, fmt.Sprintf("sub-product cycle detected: %v", cycle))
	}

	result.DuplicateParts = v.detectDuplicateParts(parts)
	if len(result.DuplicateParts) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d duplicate product parts", len(result.DuplicateParts)))
	}

	return result
}

// buildAdjacencyMap creates a map of product -> sub-product relationships
func (v *BOMValidator) buildAdjacencyMap(parts []entities.BOMPart) map[entities.ProductID][]entities.ProductID {
	adjacencyMap := make(map[entities.ProductID][]entities.ProductID)

	for _, part := range parts {
		if part.Kind() != entities.SubProductPart {
			continue
		}
		child := *part.SubProductID
		children := adjacencyMap[part.ProductID]

		found := false
		for _, c := range children {
			if c == child {
				found = true
				break
			}
		}
		if !found {
			adjacencyMap[part.ProductID] = append(children, child)
		}
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles between products. Products are visited
// in id order so the reported paths are stable.
func (v *BOMValidator) detectCycles(adjacencyMap map[entities.ProductID][]entities.ProductID) [][]entities.ProductID {
	visited := make(map[entities.ProductID]bool)
	recursionStack := make(map[entities.ProductID]bool)
	cycles := make([][]entities.ProductID, 0)

	parents := make([]entities.ProductID, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *BOMValidator) dfsDetectCycle(
	current entities.ProductID,
	adjacencyMap map[entities.ProductID][]entities.ProductID,
	visited map[entities.ProductID]bool,
	recursionStack map[entities.ProductID]bool,
	path []entities.ProductID,
	cycles *[][]entities.ProductID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}
		for i, product := range path {
			if product == child {
				cycle := append([]entities.ProductID(nil), path[i:]...)
				*cycles = append(*cycles, append(cycle, child))
				break
			}
		}
	}

	recursionStack[current] = false
}

// detectDuplicateParts finds parts of the same product with the same reference
func (v *BOMValidator) detectDuplicateParts(parts []entities.BOMPart) []entities.BOMPart {
	seen := make(map[string]entities.BOMPart)
	duplicates := make([]entities.BOMPart, 0)

	for _, part := range parts {
		var key string
		switch part.Kind() {
		case entities.IngredientPart:
			key = fmt.Sprintf("%d|i|%d", part.ProductID, *part.IngredientID)
		case entities.RecipePart:
			key = fmt.Sprintf("%d|r|%d", part.ProductID, *part.RecipeID)
		case entities.SubProductPart:
			key = fmt.Sprintf("%d|p|%d", part.ProductID, *part.SubProductID)
		default:
			continue
		}

		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, part, existing)
		} else {
			seen[key] = part
		}
	}

	return duplicates
}

// ValidateProductUniqueness validates that product ids are unique
func (v *BOMValidator) ValidateProductUniqueness(products []entities.Product) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]string, 0),
	}

	seen := make(map[entities.ProductID]bool)
	duplicates := make([]entities.ProductID, 0)
	for _, product := range products {
		if seen[product.ID] {
			duplicates = append(duplicates, product.ID)
		} else {
			seen[product.ID] = true
		}
	}

	if len(duplicates) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("duplicate product ids found: %v", duplicates))
	}

	return result
}
