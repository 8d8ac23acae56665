package model

import (
	"strings"
	"time"
)

// Product is an item for sale.
type Product struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Stock       int        `json:"stock"`
	IsAvailable bool       `json:"is_available"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ProductCreate is the request body for creating a product. When IsAvailable
// is omitted it follows the stock level.
type ProductCreate struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	IsAvailable *bool   `json:"is_available,omitempty"`
}

// ProductUpdate is a partial update of a product.
type ProductUpdate struct {
	Name        Optional[string]  `json:"name,omitzero"`
	Description Optional[string]  `json:"description,omitzero"`
	Price       Optional[float64] `json:"price,omitzero"`
	Stock       Optional[int]     `json:"stock,omitzero"`
	IsAvailable Optional[bool]    `json:"is_available,omitzero"`
}

func (in ProductCreate) Build() Product {
	p := Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		IsAvailable: in.Stock > 0,
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	return p
}

func (p ProductUpdate) Validate() error {
	var ve ValidationError
	if v, ok := p.Name.Get(); ok {
		ve.Add("name", checkText(v, true, 100))
	}
	if v, ok := p.Description.Get(); ok {
		ve.Add("description", checkText(v, false, 500))
	}
	if v, ok := p.Price.Get(); ok {
		ve.Add("price", checkPrice(v))
	}
	if v, ok := p.Stock.Get(); ok {
		ve.Add("stock", checkStock(v))
	}
	return ve.Err()
}

// Apply merges p into prod. A new stock level without an explicit
// availability recomputes availability from the stock.
func (p ProductUpdate) Apply(prod *Product) {
	if v, ok := p.Name.Get(); ok {
		prod.Name = strings.TrimSpace(v)
	}
	if v, ok := p.Description.Get(); ok {
		prod.Description = strings.TrimSpace(v)
	}
	if v, ok := p.Price.Get(); ok {
		prod.Price = v
	}
	if v, ok := p.Stock.Get(); ok {
		prod.Stock = v
		if !p.IsAvailable.Set {
			prod.IsAvailable = v > 0
		}
	}
	if v, ok := p.IsAvailable.Get(); ok {
		prod.IsAvailable = v
	}
}

// ValidateProduct checks a Product for constraint violations.
func ValidateProduct(p *Product) error {
	var ve ValidationError
	ve.Add("name", checkText(p.Name, true, 100))
	ve.Add("description", checkText(p.Description, false, 500))
	ve.Add("price", checkPrice(p.Price))
	ve.Add("stock", checkStock(p.Stock))
	return ve.Err()
}

func checkPrice(v float64) string {
	if v <= 0 {
		return "must be greater than 0"
	}
	return ""
}

func checkStock(v int) string {
	if v < 0 {
		return "must not be negative"
	}
	return ""
}
