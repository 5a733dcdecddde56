package rota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"shiftrota/internal/platform/docstore"
)

// Store reads and writes rota periods. A period that cannot be read is
// served as empty so a damaged document never blocks the grid.
type Store struct {
	Docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{Docs: docs}
}

func (s *Store) GetPeriod(ctx context.Context, key PeriodKey) Overrides {
	raw, err := s.Docs.Get(ctx, docstore.CollectionRota, key.String())
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			slog.Warn("rota period unreadable", "period", key.String(), "err", err)
		}
		return Overrides{}
	}
	out := Overrides{}
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Warn("rota period corrupt", "period", key.String(), "err", err)
		return Overrides{}
	}
	return out
}

func (s *Store) SetPeriod(ctx context.Context, key PeriodKey, overrides Overrides) error {
	if overrides == nil {
		overrides = Overrides{}
	}
	payload, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encode period %s: %w", key, err)
	}
	if err := s.Docs.Put(ctx, docstore.CollectionRota, key.String(), payload); err != nil {
		return fmt.Errorf("save period %s: %w", key, err)
	}
	return nil
}
