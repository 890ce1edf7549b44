package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
)

// OrderRepository reads orders from the orders and order_items tables
type OrderRepository struct {
	db querier
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(db querier) *OrderRepository {
	return &OrderRepository{db: db}
}

const ordersForDateQuery = `
	SELECT o.id, o.date, o.owner_id, o.status,
	       oi.product_id, oi.quantity,
	       p.name, p.category_id, p.price, c.name
	FROM orders o
	JOIN order_items oi ON oi.order_id = o.id
	LEFT JOIN products p ON p.id = oi.product_id
	LEFT JOIN categories c ON c.id = p.category_id
	WHERE o.date = $1
	ORDER BY o.id, oi.id`

func (r *OrderRepository) GetOrdersForDate(ctx context.Context, date time.Time) ([]*entities.Order, error) {
	date = entities.NormalizeDate(date)
	rows, err := r.db.Query(ctx, ordersForDateQuery, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for %s: %w", date.Format(entities.DateLayout), mapError(err))
	}
	defer rows.Close()

	var orders []*entities.Order
	var current *entities.Order
	for rows.Next() {
		var (
			order        entities.Order
			item         entities.OrderItem
			productName  *string
			categoryID   *int64
			price        decimal.NullDecimal
			categoryName *string
		)
		err := rows.Scan(
			&order.ID, &order.Date, &order.OwnerID, &order.Status,
			&item.ProductID, &item.Quantity,
			&productName, &categoryID, &price, &categoryName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}

		if current == nil || current.ID != order.ID {
			order.Date = entities.NormalizeDate(order.Date)
			current = &order
			orders = append(orders, current)
		}

		if productName != nil {
			product := &entities.Product{ID: item.ProductID, Name: *productName, Price: price}
			if categoryID != nil {
				product.CategoryID = entities.CategoryID(*categoryID)
				if categoryName != nil {
					product.Category = &entities.Category{ID: product.CategoryID, Name: *categoryName}
				}
			}
			item.Product = product
		}
		current.Items = append(current.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
