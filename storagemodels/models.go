/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Direction is a sort direction, stored the way the driver expects it (1 / -1).
type Direction int

const (
	// Ascending sorts smallest first.
	Ascending Direction = 1
	// Descending sorts largest first.
	Descending Direction = -1
)

// Valid reports whether d is Ascending or Descending.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// FindParams defines parameters for a find operation.
// The filter itself travels separately so the same params can be reused.
type FindParams struct {
	// Sort is an ordered sort specification, e.g. bson.D{{"up", -1}, {"mod", 1}}.
	Sort bson.D
	// Skip is the number of matching documents to skip.
	Skip int64
	// Limit caps the number of returned documents; 0 means no limit.
	Limit int64
	// Projection restricts returned fields (inclusion or exclusion map).
	Projection bson.M
	// MaxTime is forwarded verbatim to the driver as a server-side time limit.
	MaxTime time.Duration
	// BatchSize is a driver hint for cursor batches.
	BatchSize int32
}

// FindOption is a functional option for configuring a find
type FindOption func(*FindParams)

// NewFindParams applies opts to an empty FindParams.
func NewFindParams(opts ...FindOption) *FindParams {
	p := &FindParams{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clone returns a deep enough copy for the sort slice to be appended independently.
func (p *FindParams) Clone() *FindParams {
	c := *p
	if p.Sort != nil {
		c.Sort = append(bson.D(nil), p.Sort...)
	}
	return &c
}

// WithSort sets the sort specification
func WithSort(sort bson.D) FindOption {
	return func(p *FindParams) {
		p.Sort = sort
	}
}

// WithSkip sets the number of documents to skip
func WithSkip(skip int64) FindOption {
	return func(p *FindParams) {
		p.Skip = skip
	}
}

// WithLimit sets the maximum number of documents
func WithLimit(limit int64) FindOption {
	return func(p *FindParams) {
		p.Limit = limit
	}
}

// WithProjection sets the projection
func WithProjection(projection bson.M) FindOption {
	return func(p *FindParams) {
		p.Projection = projection
	}
}

// WithMaxTime sets the server-side time limit
func WithMaxTime(d time.Duration) FindOption {
	return func(p *FindParams) {
		p.MaxTime = d
	}
}

// WithBatchSize sets the cursor batch size hint
func WithBatchSize(n int32) FindOption {
	return func(p *FindParams) {
		p.BatchSize = n
	}
}

// UpdateParams defines how a class-level update is forwarded.
type UpdateParams struct {
	// Multi selects update_many instead of update_one.
	Multi bool
	// Upsert inserts a document when nothing matches.
	Upsert bool
}

// UpdateOption is a functional option for configuring an update
type UpdateOption func(*UpdateParams)

// NewUpdateParams applies opts to an empty UpdateParams.
func NewUpdateParams(opts ...UpdateOption) *UpdateParams {
	p := &UpdateParams{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithMulti updates every matching document
func WithMulti() UpdateOption {
	return func(p *UpdateParams) {
		p.Multi = true
	}
}

// WithUpsert inserts when nothing matches
func WithUpsert() UpdateOption {
	return func(p *UpdateParams) {
		p.Upsert = true
	}
}

// UpdateResult mirrors the driver's update result.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	UpsertedID    interface{}
}

// IndexSpec declares an index on a collection.
type IndexSpec struct {
	// Keys is the ordered key specification, e.g. bson.D{{"name", 1}}.
	Keys bson.D
	// Name is optional; drivers derive one from Keys when empty.
	Name string
	// Unique rejects duplicate key values.
	Unique bool
	// Sparse skips documents missing the indexed fields.
	Sparse bool
}

// DefaultName derives the conventional index name ("name_1_age_-1").
func (s IndexSpec) DefaultName() string {
	if s.Name != "" {
		return s.Name
	}
	name := ""
	for i, e := range s.Keys {
		if i > 0 {
			name += "_"
		}
		name += e.Key + "_" + formatIndexValue(e.Value)
	}
	return name
}
