package models

import "github.com/uptrace/bun"

// MappingKind selects which friendly-name dictionary a mapping belongs to.
type MappingKind string

const (
	MappingCar   MappingKind = "car"
	MappingTrack MappingKind = "track"
)

// NameMapping is one identifier → friendly-name pair, store-wide.
type NameMapping struct {
	bun.BaseModel `bun:"table:name_mappings,alias:nm"`

	Kind       MappingKind `bun:"kind,pk" json:"-"`
	ExternalID string      `bun:"external_id,pk" json:"id"`
	Name       string      `bun:"name,notnull" json:"name"`
}
