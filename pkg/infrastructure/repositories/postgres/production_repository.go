package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
)

// ProductionRepository stores batches in the bakers table and their items
// in baker_items. Each unit of work is one transaction.
type ProductionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Verify interface compliance
var _ repositories.ProductionRepository = (*ProductionRepository)(nil)

func NewProductionRepository(pool *pgxpool.Pool, logger zerolog.Logger) *ProductionRepository {
	return &ProductionRepository{
		pool:   pool,
		logger: logger.With().Str("component", "production_repository").Logger(),
	}
}

const batchColumns = `id, date, recipe_id, owner_id, status, notes, created_at, updated_at`

const itemColumns = `id, production_id, product_id, planned_quantity, recipe_quantity,
	actual_quantity, completed_quantity, is_completed, cost`

func (r *ProductionRepository) GetBatchesForDate(ctx context.Context, date time.Time) ([]*entities.ProductionBatch, error) {
	date = entities.NormalizeDate(date)
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+` FROM bakers WHERE date = $1 ORDER BY recipe_id, id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches for %s: %w", date.Format(entities.DateLayout), mapError(err))
	}
	defer rows.Close()

	var batches []*entities.ProductionBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}

func (r *ProductionRepository) GetBatchItems(ctx context.Context, batchIDs []entities.BatchID) ([]*entities.ProductionBatchItem, error) {
	if len(batchIDs) == 0 {
		return nil, nil
	}
	return queryItems(ctx, r.pool, `SELECT `+itemColumns+` FROM baker_items
		WHERE production_id = ANY($1)
		ORDER BY production_id, product_id, id`, int64s(batchIDs))
}

func (r *ProductionRepository) ListProductionDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT date FROM bakers
		WHERE date BETWEEN $1 AND $2
		ORDER BY date`, entities.NormalizeDate(from), entities.NormalizeDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query production dates: %w", mapError(err))
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan production date: %w", err)
		}
		dates = append(dates, entities.NormalizeDate(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating production dates: %w", err)
	}
	return dates, nil
}

// rollbackTimeout bounds a rollback issued after the unit of work's own
// context has ended
const rollbackTimeout = 5 * time.Second

// WithinBatch runs fn in a transaction. It commits when fn succeeds and
// rolls back otherwise, including when fn panics. Begin and commit are
// bounded by ctx; rollback gets its own deadline so an expired ctx still
// releases the connection.
func (r *ProductionRepository) WithinBatch(ctx context.Context, fn func(w repositories.ProductionWriter) error) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}

	rollback := func(msg string) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if rbErr := tx.Rollback(rctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error().Err(rbErr).Msg(msg)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			rollback("failed to roll back after panic")
			panic(p)
		}
		if err != nil {
			rollback("failed to roll back transaction")
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", mapError(commitErr))
		}
	}()

	return fn(&productionWriter{tx: tx})
}

// productionWriter issues the writes of one transaction
type productionWriter struct {
	tx pgx.Tx
}

var _ repositories.ProductionWriter = (*productionWriter)(nil)

func (w *productionWriter) GetItems(ctx context.Context, batchID entities.BatchID) ([]*entities.ProductionBatchItem, error) {
	return queryItems(ctx, w.tx, `SELECT `+itemColumns+` FROM baker_items
		WHERE production_id = $1
		ORDER BY product_id, id
		FOR UPDATE`, int64(batchID))
}

func (w *productionWriter) InsertBatch(ctx context.Context, batch *entities.ProductionBatch) error {
	if batch.Status == "" {
		batch.Status = entities.BatchInProgress
	}
	err := w.tx.QueryRow(ctx, `
		INSERT INTO bakers (date, recipe_id, owner_id, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		entities.NormalizeDate(batch.Date), int64(batch.RecipeID), batch.OwnerID, string(batch.Status), batch.Notes,
	).Scan(&batch.ID, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch for recipe %d: %w", batch.RecipeID, mapError(err))
	}
	batch.Date = entities.NormalizeDate(batch.Date)
	return nil
}

func (w *productionWriter) UpdateBatch(ctx context.Context, batch *entities.ProductionBatch) error {
	err := w.tx.QueryRow(ctx, `
		UPDATE bakers SET owner_id = $2, notes = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		int64(batch.ID), batch.OwnerID, batch.Notes,
	).Scan(&batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update batch %d: %w", batch.ID, mapError(err))
	}
	return nil
}

func (w *productionWriter) InsertItem(ctx context.Context, item *entities.ProductionBatchItem) error {
	err := w.tx.QueryRow(ctx, `
		INSERT INTO baker_items (production_id, product_id, planned_quantity, recipe_quantity, cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		int64(item.ProductionID), int64(item.ProductID), item.PlannedQuantity, item.RecipeQuantity, item.Cost,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to insert item for product %d: %w", item.ProductID, mapError(err))
	}
	return nil
}

func (w *productionWriter) UpdateItemPlan(ctx context.Context, item *entities.ProductionBatchItem) error {
	tag, err := w.tx.Exec(ctx, `
		UPDATE baker_items SET planned_quantity = $2, recipe_quantity = $3, cost = $4
		WHERE id = $1`,
		int64(item.ID), item.PlannedQuantity, item.RecipeQuantity, item.Cost,
	)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", item.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d: %w", item.ID, repositories.ErrNotFound)
	}
	return nil
}

func (w *productionWriter) DeleteItem(ctx context.Context, id entities.BatchItemID) error {
	tag, err := w.tx.Exec(ctx, `DELETE FROM baker_items WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func scanBatch(row pgx.Row) (*entities.ProductionBatch, error) {
	var (
		b      entities.ProductionBatch
		status string
	)
	err := row.Scan(&b.ID, &b.Date, &b.RecipeID, &b.OwnerID, &status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	b.Date = entities.NormalizeDate(b.Date)
	b.Status = entities.BatchStatus(status)
	return &b, nil
}

func queryItems(ctx context.Context, db querier, query string, args ...any) ([]*entities.ProductionBatchItem, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch items: %w", mapError(err))
	}
	defer rows.Close()

	var items []*entities.ProductionBatchItem
	for rows.Next() {
		var item entities.ProductionBatchItem
		err := rows.Scan(
			&item.ID, &item.ProductionID, &item.ProductID, &item.PlannedQuantity, &item.RecipeQuantity,
			&item.ActualQuantity, &item.CompletedQuantity, &item.IsCompleted, &item.Cost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch items: %w", err)
	}
	return items, nil
}
