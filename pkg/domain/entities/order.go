package entities

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// OrderID identifies a customer order
type OrderID int64

// OrderStatus is the lifecycle state set by the ordering subsystem
type OrderStatus string

const (
	OrderNew       OrderStatus = "new"
	OrderConfirmed OrderStatus = "confirmed"
	OrderExpedited OrderStatus = "expedited"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderItem is one ordered product line
type OrderItem struct {
	ProductID ProductID
	Quantity  int
	Product   *Product
}

// Order represents a customer's order for one delivery date
type Order struct {
	ID      OrderID
	Date    time.Time
	OwnerID uuid.UUID
	Status  OrderStatus
	Items   []OrderItem
}

// NewOrder creates a validated Order with its date normalised to a calendar day
func NewOrder(id OrderID, date time.Time, ownerID uuid.UUID, status OrderStatus, items []OrderItem) (*Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("order id must be positive, got %d", id)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("order date cannot be empty")
	}
	for _, item := range items {
		if item.Quantity < 0 {
			return nil, fmt.Errorf("order %d: quantity cannot be negative, got %d for product %d", id, item.Quantity, item.ProductID)
		}
	}

	return &Order{
		ID:      id,
		Date:    NormalizeDate(date),
		OwnerID: ownerID,
		Status:  status,
		Items:   items,
	}, nil
}
