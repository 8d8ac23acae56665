package resource

import (
	"context"

	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

func (s *Service) CreateProduct(ctx context.Context, in model.ProductCreate) (*model.Product, error) {
	p := in.Build()
	if err := model.ValidateProduct(&p); err != nil {
		return nil, err
	}

	var created *model.Product
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := ensureUnique(ctx, tx, Products, "name", p.Name, 0); err != nil {
			return err
		}
		var err error
		created, err = insertAs(ctx, tx, Products, &p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Products, events.ActionCreated, created.ID, created, nil)
	return created, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return mustGet[model.Product](ctx, s.store, Products, "product", id)
}

func (s *Service) ListProducts(ctx context.Context, where store.Fields) ([]model.Product, error) {
	return selectAs[model.Product](ctx, s.store, Products, where)
}

// AvailableProducts returns the products that can currently be ordered.
func (s *Service) AvailableProducts(ctx context.Context) ([]model.Product, error) {
	return s.ListProducts(ctx, store.Fields{"is_available": true})
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, u model.ProductUpdate) (*model.Product, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var updated *model.Product
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		p, err := mustGet[model.Product](ctx, tx, Products, "product", id)
		if err != nil {
			return err
		}
		u.Apply(p)
		if err := model.ValidateProduct(p); err != nil {
			return err
		}
		if u.Name.Set {
			if err := ensureUnique(ctx, tx, Products, "name", p.Name, id); err != nil {
				return err
			}
		}
		updated, err = updateAs(ctx, tx, Products, "product", id, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Products, events.ActionUpdated, id, updated, changesOf(u))
	return updated, nil
}

// DeleteProduct removes a product. Existing orders keep the stale id in
// product_ids; it is skipped when their products are resolved.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := deleteRecord(ctx, s.store, Products, "product", id); err != nil {
		return err
	}
	s.publish(ctx, Products, events.ActionDeleted, id, nil, nil)
	return nil
}
