package repositories

import (
	"context"
	"time"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

// OrderRepository provides read access to customer orders.
// Orders are owned by the ordering subsystem and never written here.
type OrderRepository interface {
	// GetOrdersForDate returns the orders of one calendar day with their items,
	// products and categories joined.
	GetOrdersForDate(ctx context.Context, date time.Time) ([]*entities.Order, error)
}
