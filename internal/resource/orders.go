package resource

import (
	"context"
	"math"

	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

// CreateOrder places an order for an existing user. Every product must exist
// and be available; the same product may appear more than once.
func (s *Service) CreateOrder(ctx context.Context, in model.OrderCreate) (*model.OrderDetail, error) {
	o := in.Build()
	if err := model.ValidateOrder(&o); err != nil {
		return nil, err
	}

	var detail *model.OrderDetail
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := exists(ctx, tx, Users, "user", o.UserID); err != nil {
			return err
		}
		products, total, err := priceProducts(ctx, tx, o.ProductIDs)
		if err != nil {
			return err
		}
		o.TotalAmount = total

		created, err := insertAs(ctx, tx, Orders, &o)
		if err != nil {
			return err
		}
		detail = &model.OrderDetail{Order: *created, Products: products}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Orders, events.ActionCreated, detail.ID, &detail.Order, nil)
	return detail, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*model.OrderDetail, error) {
	o, err := mustGet[model.Order](ctx, s.store, Orders, "order", id)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return resolve(o, catalog), nil
}

func (s *Service) ListOrders(ctx context.Context, where store.Fields) ([]model.OrderDetail, error) {
	orders, err := selectAs[model.Order](ctx, s.store, Orders, where)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog(ctx, s.store)
	if err != nil {
		return nil, err
	}
	out := make([]model.OrderDetail, 0, len(orders))
	for i := range orders {
		out = append(out, *resolve(&orders[i], catalog))
	}
	return out, nil
}

// UpdateOrder changes the status, owner or product list of an order. A new
// product list is checked like on creation and the total is recomputed.
func (s *Service) UpdateOrder(ctx context.Context, id int64, u model.OrderUpdate) (*model.OrderDetail, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var detail *model.OrderDetail
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		o, err := mustGet[model.Order](ctx, tx, Orders, "order", id)
		if err != nil {
			return err
		}
		u.Apply(o)
		if err := model.ValidateOrder(o); err != nil {
			return err
		}
		if u.UserID.Set {
			if err := exists(ctx, tx, Users, "user", o.UserID); err != nil {
				return err
			}
		}
		if u.ProductIDs.Set {
			if _, o.TotalAmount, err = priceProducts(ctx, tx, o.ProductIDs); err != nil {
				return err
			}
		}
		updated, err := updateAs(ctx, tx, Orders, "order", id, o)
		if err != nil {
			return err
		}
		catalog, err := s.catalog(ctx, tx)
		if err != nil {
			return err
		}
		detail = resolve(updated, catalog)
		return nil
	})
	if err != nil {
		return nil, err
	}

	changes := changesOf(u)
	if u.ProductIDs.Set {
		changes["total_amount"] = detail.TotalAmount
	}
	s.publish(ctx, Orders, events.ActionUpdated, id, &detail.Order, changes)
	return detail, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := deleteRecord(ctx, s.store, Orders, "order", id); err != nil {
		return err
	}
	s.publish(ctx, Orders, events.ActionDeleted, id, nil, nil)
	return nil
}

// priceProducts loads each product in ids, in order, and sums their prices.
// A missing product is a NotFoundError; an unavailable one a ConflictError.
func priceProducts(ctx context.Context, st store.Store, ids []int64) ([]model.Product, float64, error) {
	products := make([]model.Product, 0, len(ids))
	var total float64
	for _, id := range ids {
		p, err := mustGet[model.Product](ctx, st, Products, "product", id)
		if err != nil {
			return nil, 0, err
		}
		if !p.IsAvailable {
			return nil, 0, conflictf("product %d (%s) is not available", p.ID, p.Name)
		}
		products = append(products, *p)
		total += p.Price
	}
	return products, roundCents(total), nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// catalog indexes all products by id.
func (s *Service) catalog(ctx context.Context, st store.Store) (map[int64]model.Product, error) {
	products, err := selectAs[model.Product](ctx, st, Products, nil)
	if err != nil {
		return nil, err
	}
	m := make(map[int64]model.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m, nil
}

// resolve attaches the products of o that still exist, in product_ids order.
func resolve(o *model.Order, catalog map[int64]model.Product) *model.OrderDetail {
	d := &model.OrderDetail{Order: *o, Products: []model.Product{}}
	for _, id := range o.ProductIDs {
		if p, ok := catalog[id]; ok {
			d.Products = append(d.Products, p)
		}
	}
	return d
}
