package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
)

// OrderRepository provides in-memory order storage. Products are joined from
// the catalog on read.
type OrderRepository struct {
	mu      sync.RWMutex
	orders  []entities.Order
	catalog *CatalogRepository
}

// NewOrderRepository creates a new in-memory order repository
func NewOrderRepository(catalog *CatalogRepository) *OrderRepository {
	return &OrderRepository{
		orders:  []entities.Order{},
		catalog: catalog,
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// LoadOrders loads orders into the repository
func (r *OrderRepository) LoadOrders(orders []*entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range orders {
		o := *order
		o.Date = entities.NormalizeDate(o.Date)
		o.Items = append([]entities.OrderItem(nil), order.Items...)
		r.orders = append(r.orders, o)
	}
	return nil
}

// SetItemQuantity changes the ordered quantity of a product on an order,
// adding the line when it does not exist. It stands in for the ordering
// subsystem editing an order.
func (r *OrderRepository) SetItemQuantity(orderID entities.OrderID, productID entities.ProductID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.orders {
		if r.orders[i].ID != orderID {
			continue
		}
		for j := range r.orders[i].Items {
			if r.orders[i].Items[j].ProductID == productID {
				r.orders[i].Items[j].Quantity = quantity
				return nil
			}
		}
		r.orders[i].Items = append(r.orders[i].Items, entities.OrderItem{ProductID: productID, Quantity: quantity})
		return nil
	}
	return repositories.ErrNotFound
}

// GetOrdersForDate returns the orders of one calendar day ordered by id
func (r *OrderRepository) GetOrdersForDate(ctx context.Context, date time.Time) ([]*entities.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	day := entities.NormalizeDate(date)

	r.mu.RLock()
	var orders []*entities.Order
	var productIDs []entities.ProductID
	for _, o := range r.orders {
		if !o.Date.Equal(day) {
			continue
		}
		order := o
		order.Items = append([]entities.OrderItem(nil), o.Items...)
		for _, item := range order.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		orders = append(orders, &order)
	}
	r.mu.RUnlock()

	if r.catalog != nil && len(productIDs) > 0 {
		products, err := r.catalog.GetProducts(ctx, productIDs)
		if err != nil {
			return nil, err
		}
		byID := make(map[entities.ProductID]*entities.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		for _, order := range orders {
			for i := range order.Items {
				order.Items[i].Product = byID[order.Items[i].ProductID]
			}
		}
	}

	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}
