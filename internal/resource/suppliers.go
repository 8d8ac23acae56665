package resource

import (
	"context"

	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

func (s *Service) CreateSupplier(ctx context.Context, in model.SupplierCreate) (*model.Supplier, error) {
	sup := in.Build()
	if err := model.ValidateSupplier(&sup); err != nil {
		return nil, err
	}

	var created *model.Supplier
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := ensureUnique(ctx, tx, Suppliers, "company_name", sup.CompanyName, 0); err != nil {
			return err
		}
		var err error
		created, err = insertAs(ctx, tx, Suppliers, &sup)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Suppliers, events.ActionCreated, created.ID, created, nil)
	return created, nil
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (*model.Supplier, error) {
	return mustGet[model.Supplier](ctx, s.store, Suppliers, "supplier", id)
}

func (s *Service) ListSuppliers(ctx context.Context, where store.Fields) ([]model.Supplier, error) {
	return selectAs[model.Supplier](ctx, s.store, Suppliers, where)
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, u model.SupplierUpdate) (*model.Supplier, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var updated *model.Supplier
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		sup, err := mustGet[model.Supplier](ctx, tx, Suppliers, "supplier", id)
		if err != nil {
			return err
		}
		u.Apply(sup)
		if err := model.ValidateSupplier(sup); err != nil {
			return err
		}
		if u.CompanyName.Set {
			if err := ensureUnique(ctx, tx, Suppliers, "company_name", sup.CompanyName, id); err != nil {
				return err
			}
		}
		updated, err = updateAs(ctx, tx, Suppliers, "supplier", id, sup)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Suppliers, events.ActionUpdated, id, updated, changesOf(u))
	return updated, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	if err := deleteRecord(ctx, s.store, Suppliers, "supplier", id); err != nil {
		return err
	}
	s.publish(ctx, Suppliers, events.ActionDeleted, id, nil, nil)
	return nil
}
