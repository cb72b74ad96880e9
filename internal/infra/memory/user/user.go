package infra_memory_user

import (
	"context"
	"sync"

	"github.com/planpoker/core/internal/model"
	usecase_user "github.com/planpoker/core/internal/usecase/user"
)

// Driver keeps users in process memory, for running without a database.
type Driver struct {
	mu      sync.RWMutex
	byID    map[int64]model.User
	byLogin map[string]int64
	nextID  int64
}

func New() *Driver {
	return &Driver{
		byID:    make(map[int64]model.User),
		byLogin: make(map[string]int64),
	}
}

func (d *Driver) Create(_ context.Context, user model.User) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byLogin[user.Login]; ok {
		return 0, usecase_user.ErrLoginIsBusy
	}

	d.nextID++
	user.ID = d.nextID
	d.byID[user.ID] = user
	d.byLogin[user.Login] = user.ID
	return user.ID, nil
}

func (d *Driver) ByLogin(_ context.Context, login string) (model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byLogin[login]
	if !ok {
		return model.User{}, usecase_user.ErrNotFound
	}
	return d.byID[id], nil
}

func (d *Driver) ByID(_ context.Context, userID int64) (model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byID[userID]
	if !ok {
		return model.User{}, usecase_user.ErrNotFound
	}
	return user, nil
}

func (d *Driver) UpdateName(_ context.Context, userID int64, firstName, lastName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[userID]
	if !ok {
		return usecase_user.ErrNotFound
	}
	user.FirstName = firstName
	user.LastName = lastName
	d.byID[userID] = user
	return nil
}

func (d *Driver) UpdatePassword(_ context.Context, userID int64, password []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[userID]
	if !ok {
		return usecase_user.ErrNotFound
	}
	user.Password = password
	d.byID[userID] = user
	return nil
}
