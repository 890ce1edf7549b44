package events

import (
	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// Production event types
const (
	ProductionReconciledEvent      = "production.reconciled"
	ProductionReconcileFailedEvent = "production.reconcile_failed"
)

// ProductionStream names the event stream of one production date
func ProductionStream(date string) string {
	return "production-" + date
}

// ProductionReconciled is published after a date's batches were brought in
// line with its orders. It is also published when some batches failed;
// Failed and Skipped then list the affected recipes.
type ProductionReconciled struct {
	Date       string               `json:"date"`
	Recipes    []dto.RecipeSummary  `json:"recipes"`
	Stats      dto.WriteStats       `json:"stats"`
	Unresolved []entities.ProductID `json:"unresolved,omitempty"`
	Failed     []entities.RecipeID  `json:"failed,omitempty"`
	Skipped    []entities.RecipeID  `json:"skipped,omitempty"`
}

// ProductionReconcileFailed is published when a date could not be reconciled
// at all, e.g. because its orders could not be loaded
type ProductionReconcileFailed struct {
	Date  string `json:"date"`
	Error string `json:"error"`
}

// NewProductionReconciled builds the event for a reconcile result
func NewProductionReconciled(result *dto.ReconcileResult) Event {
	payload := ProductionReconciled{
		Date:    result.Date,
		Recipes: result.Recipes,
		Stats:   result.Stats,
		Failed:  result.Failed,
		Skipped: result.Skipped,
	}
	for _, pd := range result.Unresolved {
		payload.Unresolved = append(payload.Unresolved, pd.ProductID)
	}
	return NewEvent(ProductionReconciledEvent, ProductionStream(result.Date), payload)
}

// NewProductionReconcileFailed builds the event for a date that failed before
// any batch was attempted
func NewProductionReconcileFailed(date string, err error) Event {
	return NewEvent(ProductionReconcileFailedEvent, ProductionStream(date), ProductionReconcileFailed{
		Date:  date,
		Error: err.Error(),
	})
}
