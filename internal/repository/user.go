package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskvault/taskvault/internal/entitystore"
)

// User is one user record.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Users is the user repository.
type Users struct {
	store *entitystore.Store
	now   func() time.Time
}

// NewUsers creates the user repository over st.
func NewUsers(st *entitystore.Store) *Users {
	return &Users{store: st, now: time.Now}
}

// List returns every user in stored order.
func (r *Users) List() []User {
	return loadAll[User](r.store, EntityUsers)
}

// Get returns the user with the given id.
func (r *Users) Get(id string) (User, error) {
	for _, u := range r.List() {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// Add appends a user, assigning a UUID when the ID is empty.
func (r *Users) Add(u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ts := timestamp(r.now)
	u.CreatedAt = ts
	u.UpdatedAt = ts

	all := append(r.List(), u)
	if err := saveAll(r.store, EntityUsers, all); err != nil {
		return User{}, err
	}
	return u, nil
}

// Update replaces the user with u.ID, preserving CreatedAt.
func (r *Users) Update(u User) (User, error) {
	all := r.List()
	for i := range all {
		if all[i].ID != u.ID {
			continue
		}
		u.CreatedAt = all[i].CreatedAt
		u.UpdatedAt = timestamp(r.now)
		all[i] = u
		if err := saveAll(r.store, EntityUsers, all); err != nil {
			return User{}, err
		}
		return u, nil
	}
	return User{}, ErrNotFound
}

// Delete removes the user with the given id.
func (r *Users) Delete(id string) error {
	all := r.List()
	for i := range all {
		if all[i].ID != id {
			continue
		}
		all = append(all[:i], all[i+1:]...)
		return saveAll(r.store, EntityUsers, all)
	}
	return ErrNotFound
}
