package resource

import (
	"context"

	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

func (s *Service) CreateUser(ctx context.Context, in model.UserCreate) (*model.User, error) {
	u := in.Build()
	if err := model.ValidateUser(&u); err != nil {
		return nil, err
	}

	var created *model.User
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := ensureUnique(ctx, tx, Users, "username", u.Username, 0); err != nil {
			return err
		}
		if err := ensureUnique(ctx, tx, Users, "email", u.Email, 0); err != nil {
			return err
		}
		var err error
		created, err = insertAs(ctx, tx, Users, &u)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Users, events.ActionCreated, created.ID, created, nil)
	return created, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return mustGet[model.User](ctx, s.store, Users, "user", id)
}

func (s *Service) ListUsers(ctx context.Context, where store.Fields) ([]model.User, error) {
	return selectAs[model.User](ctx, s.store, Users, where)
}

func (s *Service) UpdateUser(ctx context.Context, id int64, p model.UserUpdate) (*model.User, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var updated *model.User
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		u, err := mustGet[model.User](ctx, tx, Users, "user", id)
		if err != nil {
			return err
		}
		p.Apply(u)
		if err := model.ValidateUser(u); err != nil {
			return err
		}
		if p.Username.Set {
			if err := ensureUnique(ctx, tx, Users, "username", u.Username, id); err != nil {
				return err
			}
		}
		if p.Email.Set {
			if err := ensureUnique(ctx, tx, Users, "email", u.Email, id); err != nil {
				return err
			}
		}
		updated, err = updateAs(ctx, tx, Users, "user", id, u)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Users, events.ActionUpdated, id, updated, changesOf(p))
	return updated, nil
}

// DeleteUser removes a user. Orders and reviews that reference the user are
// kept as they are.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := deleteRecord(ctx, s.store, Users, "user", id); err != nil {
		return err
	}
	s.publish(ctx, Users, events.ActionDeleted, id, nil, nil)
	return nil
}
