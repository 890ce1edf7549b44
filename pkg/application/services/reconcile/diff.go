package reconcile

import (
	"sort"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// ItemUpdate pairs a persisted item with the plan it must be brought to
type ItemUpdate struct {
	Existing *entities.ProductionBatchItem
	Desired  dto.PlannedItem
}

// ItemDiff partitions one batch's desired and persisted items by product id
type ItemDiff struct {
	Inserts   []dto.PlannedItem
	Updates   []ItemUpdate
	Deletes   []*entities.ProductionBatchItem
	Unchanged []*entities.ProductionBatchItem
}

// Empty reports whether applying the diff would write nothing
func (d ItemDiff) Empty() bool {
	return len(d.Inserts) == 0 && len(d.Updates) == 0 && len(d.Deletes) == 0
}

// DiffItems computes the writes that turn existing into desired. Items are
// matched on product id; when several persisted items share a product the
// lowest id is kept and the rest are deleted. Every slice is sorted by
// product id, then item id.
func DiffItems(desired []dto.PlannedItem, existing []*entities.ProductionBatchItem) ItemDiff {
	current := make([]*entities.ProductionBatchItem, len(existing))
	copy(current, existing)
	sort.Slice(current, func(i, j int) bool {
		if current[i].ProductID != current[j].ProductID {
			return current[i].ProductID < current[j].ProductID
		}
		return current[i].ID < current[j].ID
	})

	var diff ItemDiff
	byProduct := make(map[entities.ProductID]*entities.ProductionBatchItem, len(current))
	for _, item := range current {
		if _, dup := byProduct[item.ProductID]; dup {
			diff.Deletes = append(diff.Deletes, item)
			continue
		}
		byProduct[item.ProductID] = item
	}

	wanted := make(map[entities.ProductID]bool, len(desired))
	for _, want := range desired {
		wanted[want.ProductID] = true

		have, ok := byProduct[want.ProductID]
		switch {
		case !ok:
			diff.Inserts = append(diff.Inserts, want)
		case have.SamePlan(want.PlannedQuantity, want.RecipeQuantity, want.Cost):
			diff.Unchanged = append(diff.Unchanged, have)
		default:
			diff.Updates = append(diff.Updates, ItemUpdate{Existing: have, Desired: want})
		}
	}

	for _, item := range current {
		if byProduct[item.ProductID] == item && !wanted[item.ProductID] {
			diff.Deletes = append(diff.Deletes, item)
		}
	}

	sort.Slice(diff.Inserts, func(i, j int) bool { return diff.Inserts[i].ProductID < diff.Inserts[j].ProductID })
	sort.Slice(diff.Updates, func(i, j int) bool {
		return diff.Updates[i].Desired.ProductID < diff.Updates[j].Desired.ProductID
	})
	sort.Slice(diff.Deletes, func(i, j int) bool {
		if diff.Deletes[i].ProductID != diff.Deletes[j].ProductID {
			return diff.Deletes[i].ProductID < diff.Deletes[j].ProductID
		}
		return diff.Deletes[i].ID < diff.Deletes[j].ID
	})

	return diff
}

// BatchMatch pairs a persisted batch with its desired state
type BatchMatch struct {
	Existing *entities.ProductionBatch
	Desired  dto.PlannedBatch
}

// BatchDiff partitions a date's desired and persisted batches by recipe id
type BatchDiff struct {
	Creates []dto.PlannedBatch
	Matches []BatchMatch
	// Stale batches have no demand left. They are reported, never deleted.
	Stale []*entities.ProductionBatch
}

// DiffBatches matches desired batches to persisted ones on recipe id. At most
// one batch exists per recipe and date; if storage returns more, the lowest
// id is matched and the others are reported as stale.
func DiffBatches(desired []dto.PlannedBatch, existing []*entities.ProductionBatch) BatchDiff {
	current := make([]*entities.ProductionBatch, len(existing))
	copy(current, existing)
	sort.Slice(current, func(i, j int) bool {
		if current[i].RecipeID != current[j].RecipeID {
			return current[i].RecipeID < current[j].RecipeID
		}
		return current[i].ID < current[j].ID
	})

	byRecipe := make(map[entities.RecipeID]*entities.ProductionBatch, len(current))
	var diff BatchDiff
	for _, batch := range current {
		if _, dup := byRecipe[batch.RecipeID]; dup {
			diff.Stale = append(diff.Stale, batch)
			continue
		}
		byRecipe[batch.RecipeID] = batch
	}

	wanted := make(map[entities.RecipeID]bool, len(desired))
	for _, want := range desired {
		wanted[want.RecipeID] = true
		if have, ok := byRecipe[want.RecipeID]; ok {
			diff.Matches = append(diff.Matches, BatchMatch{Existing: have, Desired: want})
		} else {
			diff.Creates = append(diff.Creates, want)
		}
	}

	for _, batch := range current {
		if byRecipe[batch.RecipeID] == batch && !wanted[batch.RecipeID] {
			diff.Stale = append(diff.Stale, batch)
		}
	}
	sort.Slice(diff.Stale, func(i, j int) bool { return diff.Stale[i].ID < diff.Stale[j].ID })

	return diff
}
