// Package store adapts the remote store contract to the domain repository
// interfaces. Concrete backends live in the memory and mongo subpackages.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quickswap/internal/app/syncer"
	"quickswap/internal/domain/user"
	"quickswap/internal/infra/wire"
)

// Users reads and writes user rows through the store contract.
type Users struct {
	Store syncer.Store
}

func (r Users) ByID(ctx context.Context, id user.ID) (*user.User, error) {
	row, err := r.Store.SelectOne(ctx, wire.TableUsers, string(id))
	if errors.Is(err, syncer.ErrNotFound) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(row)
}

func (r Users) ByEmail(ctx context.Context, email string) (*user.User, error) {
	rows, err := r.Store.Select(ctx, wire.TableUsers, syncer.Filter{"email": email}, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, user.ErrNotFound
	}
	return decodeUser(rows[0])
}

// Save inserts a new user or replaces the stored row for an existing one.
func (r Users) Save(ctx context.Context, u *user.User) error {
	rec := wire.NewUserRecord(u)
	row, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode user: %w", err)
	}
	_, err = r.Store.SelectOne(ctx, wire.TableUsers, rec.ID)
	if errors.Is(err, syncer.ErrNotFound) {
		return r.Store.Insert(ctx, wire.TableUsers, row)
	}
	if err != nil {
		return err
	}
	var patch map[string]any
	if err := json.Unmarshal(row, &patch); err != nil {
		return fmt.Errorf("store: encode user patch: %w", err)
	}
	delete(patch, "id")
	return r.Store.Update(ctx, wire.TableUsers, patch, syncer.Filter{"id": rec.ID})
}

func decodeUser(row json.RawMessage) (*user.User, error) {
	var rec wire.UserRecord
	if err := json.Unmarshal(row, &rec); err != nil {
		return nil, fmt.Errorf("store: decode user: %w", err)
	}
	return rec.ToDomain(), nil
}

var _ user.Repository = Users{}
