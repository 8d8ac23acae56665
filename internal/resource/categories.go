package resource

import (
	"context"

	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

// maxCategoryDepth bounds the parent walk used for cycle detection.
const maxCategoryDepth = 64

func (s *Service) CreateCategory(ctx context.Context, in model.CategoryCreate) (*model.Category, error) {
	c := in.Build()
	if err := model.ValidateCategory(&c); err != nil {
		return nil, err
	}

	var created *model.Category
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := ensureUnique(ctx, tx, Categories, "name", c.Name, 0); err != nil {
			return err
		}
		if c.ParentCategoryID != nil {
			if err := exists(ctx, tx, Categories, "parent category", *c.ParentCategoryID); err != nil {
				return err
			}
		}
		var err error
		created, err = insertAs(ctx, tx, Categories, &c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Categories, events.ActionCreated, created.ID, created, nil)
	return created, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	return mustGet[model.Category](ctx, s.store, Categories, "category", id)
}

func (s *Service) ListCategories(ctx context.Context, where store.Fields) ([]model.Category, error) {
	return selectAs[model.Category](ctx, s.store, Categories, where)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, u model.CategoryUpdate) (*model.Category, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var updated *model.Category
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		c, err := mustGet[model.Category](ctx, tx, Categories, "category", id)
		if err != nil {
			return err
		}
		u.Apply(c)
		if err := model.ValidateCategory(c); err != nil {
			return err
		}
		if u.Name.Set {
			if err := ensureUnique(ctx, tx, Categories, "name", c.Name, id); err != nil {
				return err
			}
		}
		if u.ParentCategoryID.Set {
			if err := checkParent(ctx, tx, id, *c.ParentCategoryID); err != nil {
				return err
			}
		}
		updated, err = updateAs(ctx, tx, Categories, "category", id, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Categories, events.ActionUpdated, id, updated, changesOf(u))
	return updated, nil
}

// DeleteCategory refuses to remove a category that still has subcategories.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		children, err := tx.Select(ctx, Categories, store.Fields{"parent_category_id": id})
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return conflictf("category %d has %d subcategories", id, len(children))
		}
		return deleteRecord(ctx, tx, Categories, "category", id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, Categories, events.ActionDeleted, id, nil, nil)
	return nil
}

// checkParent verifies that parent exists and that making it the parent of
// id does not create a cycle.
func checkParent(ctx context.Context, st store.Store, id, parent int64) error {
	if parent == id {
		return conflictf("category %d cannot be its own parent", id)
	}
	cur := parent
	for range maxCategoryDepth {
		c, err := getAs[model.Category](ctx, st, Categories, cur)
		if err != nil {
			return err
		}
		if c == nil {
			if cur == parent {
				return notFound("parent category", parent)
			}
			return nil
		}
		if c.ParentCategoryID == nil {
			return nil
		}
		if *c.ParentCategoryID == id {
			return conflictf("category %d cannot be a descendant of itself", id)
		}
		cur = *c.ParentCategoryID
	}
	return conflictf("category hierarchy deeper than %d levels", maxCategoryDepth)
}
