package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskvault/taskvault/internal/entitystore"
)

// Task is one task record. Priority is free-form ("low", "medium",
// "high" by convention); the store does not interpret it.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Completed   bool   `json:"completed"`
	AssigneeID  string `json:"assignee_id,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Tasks is the task repository.
type Tasks struct {
	store *entitystore.Store
	now   func() time.Time
}

// NewTasks creates the task repository over st.
func NewTasks(st *entitystore.Store) *Tasks {
	return &Tasks{store: st, now: time.Now}
}

// List returns every task in stored order.
func (r *Tasks) List() []Task {
	return loadAll[Task](r.store, EntityTasks)
}

// Get returns the task with the given id.
func (r *Tasks) Get(id string) (Task, error) {
	for _, t := range r.List() {
		if t.ID == id {
			return t, nil
		}
	}
	return Task{}, ErrNotFound
}

// Add appends a task. An empty ID gets a fresh UUID; created/updated
// timestamps are stamped here. The stored task is returned.
func (r *Tasks) Add(t Task) (Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	ts := timestamp(r.now)
	t.CreatedAt = ts
	t.UpdatedAt = ts

	all := append(r.List(), t)
	if err := saveAll(r.store, EntityTasks, all); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Update replaces the task with t.ID, preserving its CreatedAt and
// refreshing UpdatedAt.
func (r *Tasks) Update(t Task) (Task, error) {
	all := r.List()
	for i := range all {
		if all[i].ID != t.ID {
			continue
		}
		t.CreatedAt = all[i].CreatedAt
		t.UpdatedAt = timestamp(r.now)
		all[i] = t
		if err := saveAll(r.store, EntityTasks, all); err != nil {
			return Task{}, err
		}
		return t, nil
	}
	return Task{}, ErrNotFound
}

// Delete removes the task with the given id.
func (r *Tasks) Delete(id string) error {
	all := r.List()
	for i := range all {
		if all[i].ID != id {
			continue
		}
		all = append(all[:i], all[i+1:]...)
		return saveAll(r.store, EntityTasks, all)
	}
	return ErrNotFound
}

// Toggle flips a task's completion state.
func (r *Tasks) Toggle(id string) (Task, error) {
	t, err := r.Get(id)
	if err != nil {
		return Task{}, err
	}
	t.Completed = !t.Completed
	return r.Update(t)
}
