package resource

import (
	"context"

	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

// CreateInventory records the stock of a product at a location. A product
// has at most one inventory per location.
func (s *Service) CreateInventory(ctx context.Context, in model.InventoryCreate) (*model.Inventory, error) {
	inv := in.Build()
	if err := model.ValidateInventory(&inv); err != nil {
		return nil, err
	}
	inv.LastUpdated = s.now().UTC()

	var created *model.Inventory
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := exists(ctx, tx, Products, "product", inv.ProductID); err != nil {
			return err
		}
		if err := ensureUniqueLocation(ctx, tx, inv.ProductID, inv.Location, 0); err != nil {
			return err
		}
		var err error
		created, err = insertAs(ctx, tx, Inventories, &inv)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Inventories, events.ActionCreated, created.ID, created, nil)
	return created, nil
}

func (s *Service) GetInventory(ctx context.Context, id int64) (*model.Inventory, error) {
	return mustGet[model.Inventory](ctx, s.store, Inventories, "inventory", id)
}

func (s *Service) ListInventories(ctx context.Context, where store.Fields) ([]model.Inventory, error) {
	return selectAs[model.Inventory](ctx, s.store, Inventories, where)
}

// LowStockInventories returns the inventories at or below their minimum.
func (s *Service) LowStockInventories(ctx context.Context) ([]model.Inventory, error) {
	all, err := s.ListInventories(ctx, nil)
	if err != nil {
		return nil, err
	}
	low := make([]model.Inventory, 0, len(all))
	for _, inv := range all {
		if inv.LowStock() {
			low = append(low, inv)
		}
	}
	return low, nil
}

func (s *Service) UpdateInventory(ctx context.Context, id int64, u model.InventoryUpdate) (*model.Inventory, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var updated *model.Inventory
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		inv, err := mustGet[model.Inventory](ctx, tx, Inventories, "inventory", id)
		if err != nil {
			return err
		}
		u.Apply(inv)
		if err := model.ValidateInventory(inv); err != nil {
			return err
		}
		if u.Location.Set {
			if err := ensureUniqueLocation(ctx, tx, inv.ProductID, inv.Location, id); err != nil {
				return err
			}
		}
		inv.LastUpdated = s.now().UTC()
		updated, err = updateAs(ctx, tx, Inventories, "inventory", id, inv)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Inventories, events.ActionUpdated, id, updated, changesOf(u))
	return updated, nil
}

func (s *Service) DeleteInventory(ctx context.Context, id int64) error {
	if err := deleteRecord(ctx, s.store, Inventories, "inventory", id); err != nil {
		return err
	}
	s.publish(ctx, Inventories, events.ActionDeleted, id, nil, nil)
	return nil
}

func ensureUniqueLocation(ctx context.Context, st store.Store, productID int64, location string, selfID int64) error {
	matches, err := st.Select(ctx, Inventories, store.Fields{"product_id": productID, "location": location})
	if err != nil {
		return err
	}
	for _, r := range matches {
		if r.ID != selfID {
			return conflictf("product %d already has an inventory at %q", productID, location)
		}
	}
	return nil
}
