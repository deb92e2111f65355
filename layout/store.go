package layout

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/kvstore"
)

// PositionStore persists the position map of one campaign. Storage failures
// are logged and otherwise ignored; the layout keeps working without memory.
type PositionStore struct {
	kv  kvstore.Store
	key string
}

// NewPositionStore returns a store for the campaign. A nil kv disables
// persistence.
func NewPositionStore(kv kvstore.Store, campaignID int64) *PositionStore {
	return &PositionStore{kv: kv, key: questlog.LayoutKey(campaignID)}
}

func (s *PositionStore) Key() string { return s.key }

func (s *PositionStore) Load(ctx context.Context) map[string]Point {
	positions := map[string]Point{}
	if s.kv == nil {
		return positions
	}

	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return positions
	}
	if err != nil {
		s.warn(ctx, "load", err)
		return positions
	}
	if err := json.Unmarshal(raw, &positions); err != nil {
		s.warn(ctx, "decode", err)
		return map[string]Point{}
	}
	return positions
}

// Save overwrites the stored map.
func (s *PositionStore) Save(ctx context.Context, positions map[string]Point) {
	if s.kv == nil {
		return
	}
	raw, err := json.Marshal(positions)
	if err != nil {
		s.warn(ctx, "encode", err)
		return
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		s.warn(ctx, "save", err)
	}
}

// Merge writes a single entry into the stored map, dropping entries whose
// node is not in present.
func (s *PositionStore) Merge(ctx context.Context, id string, p Point, present map[string]struct{}) {
	if s.kv == nil {
		return
	}
	positions := s.Load(ctx)
	for stored := range positions {
		if _, ok := present[stored]; !ok {
			delete(positions, stored)
		}
	}
	positions[id] = p
	s.Save(ctx, positions)
}

func (s *PositionStore) Clear(ctx context.Context) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Clear(ctx, s.key); err != nil {
		s.warn(ctx, "clear", err)
	}
}

func (s *PositionStore) warn(ctx context.Context, op string, err error) {
	slog.WarnContext(
		ctx, "layout storage unavailable",
		slog.String("op", op),
		slog.String("key", s.key),
		slog.String("error", err.Error()),
		slog.String("module", "layout"),
	)
}
