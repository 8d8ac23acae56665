package resource

import (
	"context"

	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

func (s *Service) CreateReview(ctx context.Context, in model.ReviewCreate) (*model.Review, error) {
	r := in.Build()
	if err := model.ValidateReview(&r); err != nil {
		return nil, err
	}

	var created *model.Review
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := exists(ctx, tx, Products, "product", r.ProductID); err != nil {
			return err
		}
		if err := exists(ctx, tx, Users, "user", r.UserID); err != nil {
			return err
		}
		var err error
		created, err = insertAs(ctx, tx, Reviews, &r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Reviews, events.ActionCreated, created.ID, created, nil)
	return created, nil
}

func (s *Service) GetReview(ctx context.Context, id int64) (*model.Review, error) {
	return mustGet[model.Review](ctx, s.store, Reviews, "review", id)
}

func (s *Service) ListReviews(ctx context.Context, where store.Fields) ([]model.Review, error) {
	return selectAs[model.Review](ctx, s.store, Reviews, where)
}

func (s *Service) UpdateReview(ctx context.Context, id int64, u model.ReviewUpdate) (*model.Review, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var updated *model.Review
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		r, err := mustGet[model.Review](ctx, tx, Reviews, "review", id)
		if err != nil {
			return err
		}
		u.Apply(r)
		if err := model.ValidateReview(r); err != nil {
			return err
		}
		updated, err = updateAs(ctx, tx, Reviews, "review", id, r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Reviews, events.ActionUpdated, id, updated, changesOf(u))
	return updated, nil
}

func (s *Service) DeleteReview(ctx context.Context, id int64) error {
	if err := deleteRecord(ctx, s.store, Reviews, "review", id); err != nil {
		return err
	}
	s.publish(ctx, Reviews, events.ActionDeleted, id, nil, nil)
	return nil
}
