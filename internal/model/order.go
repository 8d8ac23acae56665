package model

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = map[OrderStatus]bool{
	OrderPending:   true,
	OrderConfirmed: true,
	OrderShipped:   true,
	OrderDelivered: true,
	OrderCancelled: true,
}

func (s OrderStatus) IsValid() bool {
	return validOrderStatuses[s]
}

// Order references a user and a list of products. TotalAmount is the sum of
// the product prices at the time ProductIDs was last written.
type Order struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	ProductIDs  []int64     `json:"product_ids"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// OrderDetail is an order with its still-existing products resolved.
type OrderDetail struct {
	Order
	Products []Product `json:"products"`
}

// OrderCreate is the request body for placing an order.
type OrderCreate struct {
	UserID     int64       `json:"user_id"`
	ProductIDs []int64     `json:"product_ids"`
	Status     OrderStatus `json:"status,omitempty"`
}

// OrderUpdate is a partial update of an order.
type OrderUpdate struct {
	UserID     Optional[int64]       `json:"user_id,omitzero"`
	ProductIDs Optional[[]int64]     `json:"product_ids,omitzero"`
	Status     Optional[OrderStatus] `json:"status,omitzero"`
}

func (in OrderCreate) Build() Order {
	o := Order{
		UserID:     in.UserID,
		ProductIDs: in.ProductIDs,
		Status:     in.Status,
	}
	if o.Status == "" {
		o.Status = OrderPending
	}
	return o
}

func (p OrderUpdate) Validate() error {
	var ve ValidationError
	if v, ok := p.UserID.Get(); ok {
		ve.Add("user_id", checkID(v))
	}
	if v, ok := p.ProductIDs.Get(); ok {
		ve.Add("product_ids", checkProductIDs(v))
	}
	if v, ok := p.Status.Get(); ok {
		ve.Add("status", checkOrderStatus(v))
	}
	return ve.Err()
}

// Apply merges p into o. TotalAmount is left to the caller, which must
// recompute it when ProductIDs changes.
func (p OrderUpdate) Apply(o *Order) {
	if v, ok := p.UserID.Get(); ok {
		o.UserID = v
	}
	if v, ok := p.ProductIDs.Get(); ok {
		o.ProductIDs = v
	}
	if v, ok := p.Status.Get(); ok {
		o.Status = v
	}
}

// ValidateOrder checks an Order for constraint violations.
func ValidateOrder(o *Order) error {
	var ve ValidationError
	ve.Add("user_id", checkID(o.UserID))
	ve.Add("product_ids", checkProductIDs(o.ProductIDs))
	ve.Add("status", checkOrderStatus(o.Status))
	return ve.Err()
}

func checkProductIDs(ids []int64) string {
	if len(ids) == 0 {
		return "must contain at least one product"
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Sprintf("invalid product id %d", id)
		}
	}
	return ""
}

func checkOrderStatus(s OrderStatus) string {
	if !s.IsValid() {
		return fmt.Sprintf("invalid value %q", s)
	}
	return ""
}
