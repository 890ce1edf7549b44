package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
)

// WriteCounts tallies the committed writes of a ProductionRepository
type WriteCounts struct {
	BatchInserts int
	BatchUpdates int
	ItemInserts  int
	ItemUpdates  int
	ItemDeletes  int
}

// Total returns the number of committed writes
func (c WriteCounts) Total() int {
	return c.BatchInserts + c.BatchUpdates + c.ItemInserts + c.ItemUpdates + c.ItemDeletes
}

// FailureFunc decides whether a write should fail. batch is the batch being
// written or owning the item; productID is zero for batch writes. It runs
// with the repository locked.
type FailureFunc func(op string, batch entities.ProductionBatch, productID entities.ProductID) error

// ProductionRepository provides in-memory production batch storage.
// (Date, RecipeID) and (ProductionID, ProductID) are unique, as in Postgres.
type ProductionRepository struct {
	mu        sync.Mutex
	batches   map[entities.BatchID]entities.ProductionBatch
	items     map[entities.BatchItemID]entities.ProductionBatchItem
	nextBatch entities.BatchID
	nextItem  entities.BatchItemID
	writes    WriteCounts
	failure   FailureFunc
	now       func() time.Time
}

// NewProductionRepository creates a new in-memory production repository
func NewProductionRepository() *ProductionRepository {
	return &ProductionRepository{
		batches: make(map[entities.BatchID]entities.ProductionBatch),
		items:   make(map[entities.BatchItemID]entities.ProductionBatchItem),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Verify interface compliance
var _ repositories.ProductionRepository = (*ProductionRepository)(nil)

// SetFailure installs fn to be consulted before every write; nil removes it
func (r *ProductionRepository) SetFailure(fn FailureFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure = fn
}

// SetClock replaces the clock used for created_at and updated_at
func (r *ProductionRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Writes returns the writes committed so far
func (r *ProductionRepository) Writes() WriteCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// LoadBatches loads persisted batches and their items, keeping their ids
func (r *ProductionRepository) LoadBatches(batches []*entities.ProductionBatch, items []*entities.ProductionBatchItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range batches {
		batch := *b
		batch.Date = entities.NormalizeDate(batch.Date)
		if r.findBatch(batch.Date, batch.RecipeID) != nil {
			return fmt.Errorf("batch for recipe %d on %s: %w", batch.RecipeID, batch.Date.Format(entities.DateLayout), repositories.ErrConflict)
		}
		r.batches[batch.ID] = batch
		if batch.ID > r.nextBatch {
			r.nextBatch = batch.ID
		}
	}
	for _, i := range items {
		if _, ok := r.batches[i.ProductionID]; !ok {
			return fmt.Errorf("item %d references unknown batch %d: %w", i.ID, i.ProductionID, repositories.ErrNotFound)
		}
		if r.findItem(i.ProductionID, i.ProductID) != nil {
			return fmt.Errorf("item for product %d in batch %d: %w", i.ProductID, i.ProductionID, repositories.ErrConflict)
		}
		r.items[i.ID] = *i
		if i.ID > r.nextItem {
			r.nextItem = i.ID
		}
	}
	return nil
}

// RecordProgress stores operator-entered progress on an item
func (r *ProductionRepository) RecordProgress(id entities.BatchItemID, actual, completed *int, isCompleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("item %d: %w", id, repositories.ErrNotFound)
	}
	item.ActualQuantity = copyInt(actual)
	item.CompletedQuantity = copyInt(completed)
	item.IsCompleted = isCompleted
	r.items[id] = item
	return nil
}

// SetBatchStatus stores an operator-set batch status
func (r *ProductionRepository) SetBatchStatus(id entities.BatchID, status entities.BatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return fmt.Errorf("batch %d: %w", id, repositories.ErrNotFound)
	}
	batch.Status = status
	r.batches[id] = batch
	return nil
}

// GetBatchesForDate returns the batches of a date ordered by recipe id
func (r *ProductionRepository) GetBatchesForDate(ctx context.Context, date time.Time) ([]*entities.ProductionBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	day := entities.NormalizeDate(date)

	r.mu.Lock()
	defer r.mu.Unlock()

	var batches []*entities.ProductionBatch
	for _, b := range r.batches {
		if b.Date.Equal(day) {
			batch := b
			batches = append(batches, &batch)
		}
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].RecipeID < batches[j].RecipeID })
	return batches, nil
}

// GetBatchItems returns the items of the batches ordered by batch and product id
func (r *ProductionRepository) GetBatchItems(ctx context.Context, batchIDs []entities.BatchID) ([]*entities.ProductionBatchItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[entities.BatchID]bool, len(batchIDs))
	for _, id := range batchIDs {
		wanted[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var items []*entities.ProductionBatchItem
	for _, i := range r.items {
		if wanted[i.ProductionID] {
			items = append(items, cloneItem(i))
		}
	}
	sortItems(items)
	return items, nil
}

// ListProductionDates returns the distinct batch dates in [from, to]
func (r *ProductionRepository) ListProductionDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from, to = entities.NormalizeDate(from), entities.NormalizeDate(to)

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, b := range r.batches {
		if b.Date.Before(from) || b.Date.After(to) || seen[b.Date] {
			continue
		}
		seen[b.Date] = true
		dates = append(dates, b.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// WithinBatch runs fn as one unit of work. Writes become visible immediately
// and are undone in reverse order when fn fails; committed counts are only
// recorded on success.
func (r *ProductionRepository) WithinBatch(ctx context.Context, fn func(w repositories.ProductionWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w := &productionWriter{repo: r}
	if err := fn(w); err != nil {
		w.rollback()
		return err
	}

	r.mu.Lock()
	r.writes.BatchInserts += w.pending.BatchInserts
	r.writes.BatchUpdates += w.pending.BatchUpdates
	r.writes.ItemInserts += w.pending.ItemInserts
	r.writes.ItemUpdates += w.pending.ItemUpdates
	r.writes.ItemDeletes += w.pending.ItemDeletes
	r.mu.Unlock()
	return nil
}

// productionWriter applies writes of one unit of work and remembers how to undo them
type productionWriter struct {
	repo    *ProductionRepository
	undo    []func()
	pending WriteCounts
}

var _ repositories.ProductionWriter = (*productionWriter)(nil)

func (w *productionWriter) GetItems(ctx context.Context, batchID entities.BatchID) ([]*entities.ProductionBatchItem, error) {
	return w.repo.GetBatchItems(ctx, []entities.BatchID{batchID})
}

func (w *productionWriter) InsertBatch(ctx context.Context, batch *entities.ProductionBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := w.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fail("insert_batch", *batch, 0); err != nil {
		return err
	}
	date := entities.NormalizeDate(batch.Date)
	if r.findBatch(date, batch.RecipeID) != nil {
		return fmt.Errorf("batch for recipe %d on %s: %w", batch.RecipeID, date.Format(entities.DateLayout), repositories.ErrConflict)
	}

	r.nextBatch++
	now := r.now()
	batch.ID = r.nextBatch
	batch.Date = date
	batch.CreatedAt = now
	batch.UpdatedAt = now
	if batch.Status == "" {
		batch.Status = entities.BatchInProgress
	}
	r.batches[batch.ID] = *batch

	id := batch.ID
	w.undo = append(w.undo, func() { delete(r.batches, id) })
	w.pending.BatchInserts++
	return nil
}

func (w *productionWriter) UpdateBatch(ctx context.Context, batch *entities.ProductionBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := w.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.batches[batch.ID]
	if !ok {
		return fmt.Errorf("batch %d: %w", batch.ID, repositories.ErrNotFound)
	}
	if err := r.fail("update_batch", stored, 0); err != nil {
		return err
	}

	previous := stored
	stored.OwnerID = batch.OwnerID
	stored.Notes = batch.Notes
	stored.UpdatedAt = r.now()
	r.batches[batch.ID] = stored
	batch.UpdatedAt = stored.UpdatedAt

	w.undo = append(w.undo, func() { r.batches[previous.ID] = previous })
	w.pending.BatchUpdates++
	return nil
}

func (w *productionWriter) InsertItem(ctx context.Context, item *entities.ProductionBatchItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := w.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[item.ProductionID]
	if !ok {
		return fmt.Errorf("batch %d: %w", item.ProductionID, repositories.ErrNotFound)
	}
	if err := r.fail("insert_item", batch, item.ProductID); err != nil {
		return err
	}
	if r.findItem(item.ProductionID, item.ProductID) != nil {
		return fmt.Errorf("item for product %d in batch %d: %w", item.ProductID, item.ProductionID, repositories.ErrConflict)
	}

	r.nextItem++
	item.ID = r.nextItem
	r.items[item.ID] = *cloneItem(*item)

	id := item.ID
	w.undo = append(w.undo, func() { delete(r.items, id) })
	w.pending.ItemInserts++
	return nil
}

func (w *productionWriter) UpdateItemPlan(ctx context.Context, item *entities.ProductionBatchItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := w.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("item %d: %w", item.ID, repositories.ErrNotFound)
	}
	if err := r.fail("update_item", r.batches[stored.ProductionID], stored.ProductID); err != nil {
		return err
	}

	previous := stored
	stored.PlannedQuantity = item.PlannedQuantity
	stored.RecipeQuantity = item.RecipeQuantity
	stored.Cost = item.Cost
	r.items[item.ID] = stored

	w.undo = append(w.undo, func() { r.items[previous.ID] = previous })
	w.pending.ItemUpdates++
	return nil
}

func (w *productionWriter) DeleteItem(ctx context.Context, id entities.BatchItemID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := w.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[id]
	if !ok {
		return fmt.Errorf("item %d: %w", id, repositories.ErrNotFound)
	}
	if err := r.fail("delete_item", r.batches[stored.ProductionID], stored.ProductID); err != nil {
		return err
	}

	delete(r.items, id)
	w.undo = append(w.undo, func() { r.items[stored.ID] = stored })
	w.pending.ItemDeletes++
	return nil
}

func (w *productionWriter) rollback() {
	r := w.repo
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(w.undo) - 1; i >= 0; i-- {
		w.undo[i]()
	}
	w.undo = nil
}

// fail consults the failure hook. Callers hold the lock.
func (r *ProductionRepository) fail(op string, batch entities.ProductionBatch, productID entities.ProductID) error {
	if r.failure == nil {
		return nil
	}
	return r.failure(op, batch, productID)
}

func (r *ProductionRepository) findBatch(date time.Time, recipeID entities.RecipeID) *entities.ProductionBatch {
	for _, b := range r.batches {
		if b.RecipeID == recipeID && b.Date.Equal(date) {
			return &b
		}
	}
	return nil
}

func (r *ProductionRepository) findItem(batchID entities.BatchID, productID entities.ProductID) *entities.ProductionBatchItem {
	for _, i := range r.items {
		if i.ProductionID == batchID && i.ProductID == productID {
			return &i
		}
	}
	return nil
}

func cloneItem(i entities.ProductionBatchItem) *entities.ProductionBatchItem {
	i.ActualQuantity = copyInt(i.ActualQuantity)
	i.CompletedQuantity = copyInt(i.CompletedQuantity)
	return &i
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func sortItems(items []*entities.ProductionBatchItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ProductionID != items[j].ProductionID {
			return items[i].ProductionID < items[j].ProductionID
		}
		return items[i].ProductID < items[j].ProductID
	})
}
