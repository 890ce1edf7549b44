package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
)

// Config bounds the reconciler's parallelism and storage calls
type Config struct {
	// Workers is the number of batches reconciled concurrently
	Workers int
	// StorageTimeout bounds every single storage call; zero disables it
	StorageTimeout time.Duration
	// BatchTimeout bounds one batch's unit of work including begin and
	// commit. Zero derives it from StorageTimeout and the batch size.
	BatchTimeout time.Duration
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		StorageTimeout: 10 * time.Second,
	}
}

// Reconciler makes the persisted production of a date match a desired plan
// with the fewest writes. Operator-entered item fields are never written.
type Reconciler struct {
	repo   repositories.ProductionRepository
	cfg    Config
	logger zerolog.Logger
}

// NewReconciler creates a new production reconciler
func NewReconciler(repo repositories.ProductionRepository, cfg Config, logger zerolog.Logger) *Reconciler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Reconciler{
		repo:   repo,
		cfg:    cfg,
		logger: logger.With().Str("component", "reconciler").Logger(),
	}
}

// BatchNotes returns the notes written on every synchronised batch
func BatchNotes(recipeName string) string {
	return fmt.Sprintf("Synchronised from orders for recipe: %s", recipeName)
}

type batchOutcome struct {
	summary dto.RecipeSummary
	stats   dto.WriteStats
	err     error
	skipped bool
}

// Apply reconciles the persisted batches of date against plan.
//
// Each batch is its own unit of work: a failure rolls back that batch only
// and is reported as a *BatchError inside the returned error, while the
// result still describes every batch that committed. Once ctx is cancelled
// no further batches are started; batches already writing run to completion.
func (r *Reconciler) Apply(ctx context.Context, date time.Time, plan dto.ProductionPlan) (*dto.ReconcileResult, error) {
	date = entities.NormalizeDate(date)
	result := &dto.ReconcileResult{
		Date:       date.Format(entities.DateLayout),
		Unresolved: plan.Unresolved,
		Anomalies:  plan.Anomalies,
	}

	if len(plan.Batches) == 0 {
		r.logger.Info().Str("date", result.Date).Msg("no demand with a recipe, nothing to reconcile")
		return result, nil
	}

	var existing []*entities.ProductionBatch
	err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		existing, err = r.repo.GetBatchesForDate(ctx, date)
		return err
	})
	if err != nil {
		return nil, &BatchError{Date: date, Op: OpLoadBatches, Err: err}
	}

	diff := DiffBatches(plan.Batches, existing)
	existingByRecipe := make(map[entities.RecipeID]*entities.ProductionBatch, len(diff.Matches))
	for _, m := range diff.Matches {
		existingByRecipe[m.Desired.RecipeID] = m.Existing
	}
	for _, stale := range diff.Stale {
		r.logger.Info().
			Str("date", result.Date).
			Int64("batch_id", int64(stale.ID)).
			Int64("recipe_id", int64(stale.RecipeID)).
			Msg("batch has no demand left, leaving it in place")
	}

	outcomes := make([]batchOutcome, len(plan.Batches))
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for i, desired := range plan.Batches {
		if ctx.Err() != nil {
			outcomes[i] = batchOutcome{skipped: true}
			continue
		}

		existingBatch := existingByRecipe[desired.RecipeID]
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i] = batchOutcome{skipped: true}
				return nil
			}
			summary, stats, err := r.reconcileBatch(ctx, date, desired, existingBatch)
			outcomes[i] = batchOutcome{summary: summary, stats: stats, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, outcome := range outcomes {
		recipeID := plan.Batches[i].RecipeID
		switch {
		case outcome.skipped:
			result.Skipped = append(result.Skipped, recipeID)
		case outcome.err != nil:
			result.Failed = append(result.Failed, recipeID)
			errs = append(errs, outcome.err)
			r.logger.Error().Err(outcome.err).
				Str("date", result.Date).
				Int64("recipe_id", int64(recipeID)).
				Msg("batch reconciliation failed")
		default:
			result.Recipes = append(result.Recipes, outcome.summary)
			result.Stats.Add(outcome.stats)
		}
	}

	if len(result.Skipped) > 0 {
		errs = append(errs, fmt.Errorf("reconcile %s: %d batches not started: %w", result.Date, len(result.Skipped), ctx.Err()))
	}

	r.logger.Info().
		Str("date", result.Date).
		Int("batches", len(result.Recipes)).
		Int("failed", len(result.Failed)).
		Int("skipped", len(result.Skipped)).
		Int("writes", result.Stats.Writes()).
		Msg("reconciliation finished")

	return result, errors.Join(errs...)
}

// batchCalls is the number of storage calls a batch makes besides its item
// writes: begin, load or insert batch, update batch, commit
const batchCalls = 4

// batchTimeout returns the deadline of one batch's unit of work. Each desired
// item may cost a delete and a write.
func (r *Reconciler) batchTimeout(desired dto.PlannedBatch) time.Duration {
	if r.cfg.BatchTimeout > 0 {
		return r.cfg.BatchTimeout
	}
	if r.cfg.StorageTimeout <= 0 {
		return 0
	}
	return r.cfg.StorageTimeout * time.Duration(batchCalls+2*len(desired.Items))
}

// reconcileBatch applies one batch's diff inside a single unit of work.
// Writes run detached from ctx cancellation so a started batch is never cut
// short, but the whole unit of work is bounded by batchTimeout.
func (r *Reconciler) reconcileBatch(
	ctx context.Context,
	date time.Time,
	desired dto.PlannedBatch,
	existing *entities.ProductionBatch,
) (dto.RecipeSummary, dto.WriteStats, error) {
	summary := dto.RecipeSummary{
		RecipeID:             desired.RecipeID,
		RecipeName:           desired.RecipeName,
		ProductCount:         len(desired.Items),
		TotalPlannedQuantity: desired.TotalPlannedQuantity(),
	}
	notes := BatchNotes(desired.RecipeName)
	wctx := context.WithoutCancel(ctx)
	if timeout := r.batchTimeout(desired); timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(wctx, timeout)
		defer cancel()
	}

	var stats dto.WriteStats
	err := r.repo.WithinBatch(wctx, func(w repositories.ProductionWriter) error {
		stats = dto.WriteStats{}
		batchErr := func(op Op, err error) *BatchError {
			return &BatchError{Date: date, RecipeID: desired.RecipeID, Op: op, Err: err}
		}

		var batch entities.ProductionBatch
		var current []*entities.ProductionBatchItem
		if existing == nil {
			created, err := entities.NewProductionBatch(date, desired.RecipeID, desired.OwnerID, notes)
			if err != nil {
				return batchErr(OpInsertBatch, err)
			}
			if err := r.withTimeout(wctx, func(ctx context.Context) error { return w.InsertBatch(ctx, created) }); err != nil {
				return batchErr(OpInsertBatch, err)
			}
			stats.BatchesCreated++
			batch = *created
		} else {
			batch = *existing
			err := r.withTimeout(wctx, func(ctx context.Context) error {
				var err error
				current, err = w.GetItems(ctx, batch.ID)
				return err
			})
			if err != nil {
				e := batchErr(OpLoadItems, err)
				e.BatchID = batch.ID
				return e
			}
		}

		itemStats, err := r.applyItems(wctx, w, date, batch.ID, desired, current)
		stats.Add(itemStats)
		if err != nil {
			return err
		}

		ownerChanged := batch.OwnerID != desired.OwnerID
		if existing != nil && (ownerChanged || batch.Notes != notes || itemStats.Writes() > 0) {
			batch.OwnerID = desired.OwnerID
			batch.Notes = notes
			if err := r.withTimeout(wctx, func(ctx context.Context) error { return w.UpdateBatch(ctx, &batch) }); err != nil {
				e := batchErr(OpUpdateBatch, err)
				e.BatchID = batch.ID
				return e
			}
			stats.BatchesUpdated++
		}

		summary.BatchID = batch.ID
		return nil
	})
	if err != nil {
		var be *BatchError
		if !errors.As(err, &be) {
			err = &BatchError{Date: date, RecipeID: desired.RecipeID, BatchID: summary.BatchID, Op: OpCommit, Err: err}
		}
		return summary, dto.WriteStats{}, err
	}

	summary.Created = stats.BatchesCreated > 0
	summary.Updated = stats.BatchesUpdated > 0

	r.logger.Debug().
		Str("date", date.Format(entities.DateLayout)).
		Int64("recipe_id", int64(desired.RecipeID)).
		Int64("batch_id", int64(summary.BatchID)).
		Int("inserted", stats.ItemsInserted).
		Int("updated", stats.ItemsUpdated).
		Int("deleted", stats.ItemsDeleted).
		Msg("batch reconciled")

	return summary, stats, nil
}

// applyItems issues the item writes of one batch in product order
func (r *Reconciler) applyItems(
	ctx context.Context,
	w repositories.ProductionWriter,
	date time.Time,
	batchID entities.BatchID,
	desired dto.PlannedBatch,
	current []*entities.ProductionBatchItem,
) (dto.WriteStats, error) {
	var stats dto.WriteStats
	diff := DiffItems(desired.Items, current)

	itemErr := func(op Op, itemID entities.BatchItemID, productID entities.ProductID, err error) error {
		return &BatchError{
			Date:      date,
			RecipeID:  desired.RecipeID,
			BatchID:   batchID,
			ItemID:    itemID,
			ProductID: productID,
			Op:        op,
			Err:       err,
		}
	}

	for _, stale := range diff.Deletes {
		if err := r.withTimeout(ctx, func(ctx context.Context) error { return w.DeleteItem(ctx, stale.ID) }); err != nil {
			return stats, itemErr(OpDeleteItem, stale.ID, stale.ProductID, err)
		}
		stats.ItemsDeleted++
	}

	for _, u := range diff.Updates {
		item := *u.Existing
		item.PlannedQuantity = u.Desired.PlannedQuantity
		item.RecipeQuantity = u.Desired.RecipeQuantity
		item.Cost = u.Desired.Cost
		if err := r.withTimeout(ctx, func(ctx context.Context) error { return w.UpdateItemPlan(ctx, &item) }); err != nil {
			return stats, itemErr(OpUpdateItem, item.ID, item.ProductID, err)
		}
		stats.ItemsUpdated++
	}

	for _, want := range diff.Inserts {
		item := &entities.ProductionBatchItem{
			ProductionID:    batchID,
			ProductID:       want.ProductID,
			PlannedQuantity: want.PlannedQuantity,
			RecipeQuantity:  want.RecipeQuantity,
			Cost:            want.Cost,
		}
		if err := r.withTimeout(ctx, func(ctx context.Context) error { return w.InsertItem(ctx, item) }); err != nil {
			return stats, itemErr(OpInsertItem, 0, want.ProductID, err)
		}
		stats.ItemsInserted++
	}

	return stats, nil
}

func (r *Reconciler) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if r.cfg.StorageTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StorageTimeout)
	defer cancel()
	return fn(ctx)
}
