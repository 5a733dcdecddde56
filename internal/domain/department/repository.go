package department

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"shiftrota/internal/platform/docstore"
)

const configKey = "departments"

// Repository loads and saves the department directory as a single document.
// Defaults, when set, is served whenever the stored document is missing or
// unreadable.
type Repository struct {
	Store    docstore.Store
	Defaults *Directory

	mu sync.Mutex
}

func NewRepository(store docstore.Store, defaults *Directory) *Repository {
	return &Repository{Store: store, Defaults: defaults}
}

func (r *Repository) Load(ctx context.Context) *Directory {
	raw, err := r.Store.Get(ctx, docstore.CollectionConfig, configKey)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			slog.Warn("department config unreadable, using defaults", "err", err)
		}
		return r.defaults()
	}
	dir := &Directory{}
	if err := json.Unmarshal(raw, dir); err != nil {
		slog.Warn("department config corrupt, using defaults", "err", err)
		return r.defaults()
	}
	return dir
}

// Exists reports whether a department document has been persisted.
func (r *Repository) Exists(ctx context.Context) (bool, error) {
	_, err := r.Store.Get(ctx, docstore.CollectionConfig, configKey)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if errors.Is(err, docstore.ErrCorrupt) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) Get(ctx context.Context, name string) (*Department, error) {
	dept, ok := r.Load(ctx).Get(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return dept, nil
}

func (r *Repository) Save(ctx context.Context, dir *Directory) error {
	dir.Normalize()
	payload, err := json.Marshal(dir)
	if err != nil {
		return fmt.Errorf("encode departments: %w", err)
	}
	return r.Store.Put(ctx, docstore.CollectionConfig, configKey, payload)
}

// Update applies fn to one department and saves the whole directory when fn
// succeeds. Nothing is written when fn returns an error.
func (r *Repository) Update(ctx context.Context, name string, fn func(*Department) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := r.Load(ctx)
	dept, ok := dir.Get(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err := fn(dept); err != nil {
		return err
	}
	return r.Save(ctx, dir)
}

func (r *Repository) defaults() *Directory {
	if r.Defaults == nil {
		return NewDirectory()
	}
	// hand out a copy so callers can mutate freely
	raw, err := json.Marshal(r.Defaults)
	if err != nil {
		return NewDirectory()
	}
	dir := &Directory{}
	if err := json.Unmarshal(raw, dir); err != nil {
		return NewDirectory()
	}
	return dir
}
