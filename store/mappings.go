package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/jesseboth/autocross/models"
)

// Mappings persists the car and track friendly-name dictionaries.
type Mappings struct {
	db *bun.DB
}

// All returns the whole dictionary for one kind.
func (s *Mappings) All(ctx context.Context, kind models.MappingKind) (map[string]string, error) {
	rows := []models.NameMapping{}
	err := s.db.NewSelect().
		Model(&rows).
		Where("nm.kind = ?", kind).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s mappings: %w", kind, err)
	}

	out := make(map[string]string, len(rows))
	for _, m := range rows {
		out[m.ExternalID] = m.Name
	}
	return out, nil
}

// Set upserts one friendly name. Overwriting an existing id replaces the
// name.
func (s *Mappings) Set(ctx context.Context, kind models.MappingKind, id, name string) error {
	if strings.TrimSpace(id) == "" {
		return models.Missing("id")
	}
	if strings.TrimSpace(name) == "" {
		return models.Missing("name")
	}

	m := &models.NameMapping{Kind: kind, ExternalID: id, Name: name}
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (kind, external_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("setting %s mapping: %w", kind, err)
	}
	return nil
}

// ResolveMany looks up friendly names for the requested ids. Unknown ids
// simply have no entry in the result; callers supply their own fallback.
func (s *Mappings) ResolveMany(ctx context.Context, kind models.MappingKind, ids []string) (map[string]string, error) {
	out := map[string]string{}
	if len(ids) == 0 {
		return out, nil
	}

	rows := []models.NameMapping{}
	err := s.db.NewSelect().
		Model(&rows).
		Where("nm.kind = ?", kind).
		Where("nm.external_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving %s mappings: %w", kind, err)
	}

	for _, m := range rows {
		out[m.ExternalID] = m.Name
	}
	return out, nil
}
