package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/application/services/consumption"
	"github.com/vsinha/bakeplan/pkg/application/services/planner"
	"github.com/vsinha/bakeplan/pkg/application/services/reconcile"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
	"github.com/vsinha/bakeplan/pkg/infrastructure/events"
)

// Engine is the entry point of production planning. It derives a date's
// desired production from its orders, reconciles the persisted batches
// against it and serves the read-only production view.
type Engine struct {
	plans      *planner.PlanService
	reconciler *reconcile.Reconciler
	catalog    repositories.CatalogRepository
	production repositories.ProductionRepository
	events     events.EventStore
	locks      *dateLocks
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewEngine creates a new engine. eventStore may be nil, in which case no
// events are recorded.
func NewEngine(
	orders repositories.OrderRepository,
	catalog repositories.CatalogRepository,
	production repositories.ProductionRepository,
	eventStore events.EventStore,
	cfg reconcile.Config,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		plans:      planner.NewPlanService(orders, catalog, production, cfg.StorageTimeout, logger),
		reconciler: reconcile.NewReconciler(production, cfg, logger),
		catalog:    catalog,
		production: production,
		events:     eventStore,
		locks:      newDateLocks(),
		timeout:    cfg.StorageTimeout,
		logger:     logger.With().Str("component", "engine").Logger(),
	}
}

// Reconcile brings the batches of one date in line with its orders. When
// ownerID is set it becomes the owner of every batch; otherwise each batch
// is owned by the first owner demanding it.
//
// A non-nil result is returned whenever the date's plan could be computed,
// even if some batches failed; the error then joins every *reconcile.BatchError.
func (e *Engine) Reconcile(ctx context.Context, date time.Time, ownerID *uuid.UUID) (*dto.ReconcileResult, error) {
	date = entities.NormalizeDate(date)
	day := date.Format(entities.DateLayout)

	unlock, err := e.locks.lock(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", day, err)
	}
	defer unlock()

	desired, err := e.plans.Desired(ctx, date, ownerID)
	if err != nil {
		e.publish(events.NewProductionReconcileFailed(day, err))
		return nil, err
	}

	result, err := e.reconciler.Apply(ctx, date, desired)
	if result == nil {
		e.publish(events.NewProductionReconcileFailed(day, err))
		return nil, err
	}

	if len(result.Recipes) > 0 || len(result.Failed) > 0 {
		e.publish(events.NewProductionReconciled(result))
	}
	return result, err
}

// ReconcileRange reconciles every date from start to end inclusive, one date
// at a time. A failing date is reported in its summary and does not stop the
// range; cancellation does. The returned error joins the errors of all
// failed dates.
func (e *Engine) ReconcileRange(ctx context.Context, start, end time.Time, ownerID *uuid.UUID) ([]dto.DateSummary, error) {
	dates, err := entities.DatesBetween(start, end)
	if err != nil {
		return nil, fmt.Errorf("invalid range: %w", err)
	}

	var summaries []dto.DateSummary
	var errs []error
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("range stopped before %s: %w", date.Format(entities.DateLayout), err))
			break
		}

		summary := dto.DateSummary{Date: date.Format(entities.DateLayout)}
		result, err := e.Reconcile(ctx, date, ownerID)
		if result != nil {
			summary.BatchesCreated = result.Stats.BatchesCreated
			summary.BatchesUpdated = result.Stats.BatchesUpdated
		}
		if err != nil {
			summary.Error = err.Error()
			errs = append(errs, err)
		}
		summaries = append(summaries, summary)
	}

	e.logger.Info().
		Str("from", dates[0].Format(entities.DateLayout)).
		Str("to", dates[len(dates)-1].Format(entities.DateLayout)).
		Int("dates", len(summaries)).
		Int("failed", len(errs)).
		Msg("range reconciliation finished")

	return summaries, errors.Join(errs...)
}

// GetPlan returns the production view of a date without writing anything
func (e *Engine) GetPlan(ctx context.Context, date time.Time) (*dto.Plan, error) {
	return e.plans.GetPlan(ctx, date)
}

// IngredientConsumption reports the ingredient weights the production view
// of a date requires
func (e *Engine) IngredientConsumption(ctx context.Context, date time.Time) (dto.ConsumptionReport, error) {
	plan, err := e.plans.GetPlan(ctx, date)
	if err != nil {
		return dto.ConsumptionReport{}, err
	}

	var recipes []*entities.Recipe
	if ids := consumption.RecipeIDs(plan); len(ids) > 0 {
		err = e.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			recipes, err = e.catalog.GetRecipes(ctx, ids)
			return err
		})
		if err != nil {
			return dto.ConsumptionReport{}, fmt.Errorf("failed to load recipes: %w", err)
		}
	}

	report := consumption.Report(plan, recipes)
	for _, a := range report.Anomalies {
		e.logger.Warn().
			Str("date", report.Date).
			Int64("recipe_id", int64(a.RecipeID)).
			Str("kind", a.Kind.String()).
			Msg(a.Message)
	}
	return report, nil
}

// ProductionDates returns the dates in [from, to] that already have batches
func (e *Engine) ProductionDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		dates, err = e.production.ListProductionDates(ctx, entities.NormalizeDate(from), entities.NormalizeDate(to))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list production dates: %w", err)
	}
	return dates, nil
}

func (e *Engine) publish(event events.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.AppendEvent(event.StreamID(), event); err != nil {
		e.logger.Error().Err(err).Str("event_type", event.Type()).Msg("failed to record event")
	}
}

func (e *Engine) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if e.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return fn(ctx)
}
