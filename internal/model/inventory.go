package model

import (
	"strings"
	"time"
)

const (
	DefaultMinStock = 10
	DefaultMaxStock = 1000
	DefaultLocation = "main warehouse"
)

// Inventory is the stock level of a product at one location.
type Inventory struct {
	ID          int64      `json:"id"`
	ProductID   int64      `json:"product_id"`
	Quantity    int        `json:"quantity"`
	MinStock    int        `json:"min_stock"`
	MaxStock    int        `json:"max_stock"`
	Location    string     `json:"location"`
	LastUpdated time.Time  `json:"last_updated"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// LowStock reports whether the quantity is at or below the minimum.
func (inv *Inventory) LowStock() bool {
	return inv.Quantity <= inv.MinStock
}

type InventoryCreate struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	MinStock  *int    `json:"min_stock,omitempty"`
	MaxStock  *int    `json:"max_stock,omitempty"`
	Location  *string `json:"location,omitempty"`
}

type InventoryUpdate struct {
	Quantity Optional[int]    `json:"quantity,omitzero"`
	MinStock Optional[int]    `json:"min_stock,omitzero"`
	MaxStock Optional[int]    `json:"max_stock,omitzero"`
	Location Optional[string] `json:"location,omitzero"`
}

func (in InventoryCreate) Build() Inventory {
	inv := Inventory{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		MinStock:  DefaultMinStock,
		MaxStock:  DefaultMaxStock,
		Location:  DefaultLocation,
	}
	if in.MinStock != nil {
		inv.MinStock = *in.MinStock
	}
	if in.MaxStock != nil {
		inv.MaxStock = *in.MaxStock
	}
	if in.Location != nil {
		inv.Location = strings.TrimSpace(*in.Location)
	}
	return inv
}

// Validate checks the set fields on their own. The min/max relation is
// checked by ValidateInventory once the update has been merged.
func (p InventoryUpdate) Validate() error {
	var ve ValidationError
	if v, ok := p.Quantity.Get(); ok {
		ve.Add("quantity", checkStock(v))
	}
	if v, ok := p.MinStock.Get(); ok {
		ve.Add("min_stock", checkStock(v))
	}
	if v, ok := p.MaxStock.Get(); ok && v <= 0 {
		ve.Add("max_stock", "must be greater than 0")
	}
	if v, ok := p.Location.Get(); ok {
		ve.Add("location", checkText(v, true, 100))
	}
	return ve.Err()
}

func (p InventoryUpdate) Apply(inv *Inventory) {
	if v, ok := p.Quantity.Get(); ok {
		inv.Quantity = v
	}
	if v, ok := p.MinStock.Get(); ok {
		inv.MinStock = v
	}
	if v, ok := p.MaxStock.Get(); ok {
		inv.MaxStock = v
	}
	if v, ok := p.Location.Get(); ok {
		inv.Location = strings.TrimSpace(v)
	}
}

// ValidateInventory checks an Inventory for constraint violations.
func ValidateInventory(inv *Inventory) error {
	var ve ValidationError
	ve.Add("product_id", checkID(inv.ProductID))
	ve.Add("quantity", checkStock(inv.Quantity))
	ve.Add("min_stock", checkStock(inv.MinStock))
	switch {
	case inv.MaxStock <= 0:
		ve.Add("max_stock", "must be greater than 0")
	case inv.MaxStock <= inv.MinStock:
		ve.Add("max_stock", "must be greater than min_stock")
	}
	ve.Add("location", checkText(inv.Location, true, 100))
	return ve.Err()
}
