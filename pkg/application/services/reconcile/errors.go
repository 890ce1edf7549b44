package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// Op names the storage operation a reconciliation failed on
type Op string

const (
	OpLoadBatches Op = "load_batches"
	OpInsertBatch Op = "insert_batch"
	OpUpdateBatch Op = "update_batch"
	OpLoadItems   Op = "load_items"
	OpInsertItem  Op = "insert_item"
	OpUpdateItem  Op = "update_item"
	OpDeleteItem  Op = "delete_item"
	OpCommit      Op = "commit"
)

// BatchError reports a storage failure that aborted one batch. Re-running the
// reconciliation for Date retries it.
type BatchError struct {
	Date      time.Time
	RecipeID  entities.RecipeID
	BatchID   entities.BatchID
	ItemID    entities.BatchItemID
	ProductID entities.ProductID
	Op        Op
	Err       error
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "reconcile %s", e.Date.Format(entities.DateLayout))
	if e.RecipeID != 0 {
		fmt.Fprintf(&b, " recipe %d", e.RecipeID)
	}
	fmt.Fprintf(&b, ": %s", e.Op)
	if e.BatchID != 0 {
		fmt.Fprintf(&b, " batch %d", e.BatchID)
	}
	if e.ItemID != 0 {
		fmt.Fprintf(&b, " item %d", e.ItemID)
	}
	if e.ProductID != 0 {
		fmt.Fprintf(&b, " product %d", e.ProductID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
