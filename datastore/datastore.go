/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
)

// Database is a named database handle registered under a connection alias.
type Database interface {
	Name() string

	Collection(name string) Collection

	Ping(ctx context.Context) error

	Close(ctx context.Context) error
}

// Collection is the document-level surface the object layer needs.
// Filters and updates are anything the bson codec accepts (bson.M, bson.D, maps).
type Collection interface {
	Name() string

	Find(ctx context.Context, filter any, params *storagemodels.FindParams) (Cursor, error)

	// FindOne returns (nil, nil) when nothing matches.
	FindOne(ctx context.Context, filter any, params *storagemodels.FindParams) (bson.M, error)

	// InsertOne returns the stored id, assigned by the store when doc has none.
	InsertOne(ctx context.Context, doc bson.M) (any, error)

	InsertMany(ctx context.Context, docs []bson.M) ([]any, error)

	UpdateOne(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error)

	UpdateMany(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error)

	ReplaceOne(ctx context.Context, filter any, doc bson.M) (*storagemodels.UpdateResult, error)

	DeleteOne(ctx context.Context, filter any) (int64, error)

	DeleteMany(ctx context.Context, filter any) (int64, error)

	CountDocuments(ctx context.Context, filter any) (int64, error)

	Distinct(ctx context.Context, field string, filter any) ([]any, error)

	Aggregate(ctx context.Context, pipeline any) (Cursor, error)

	CreateIndex(ctx context.Context, spec storagemodels.IndexSpec) (string, error)

	Drop(ctx context.Context) error
}

// Cursor iterates raw documents. *mongo.Cursor satisfies it as is.
type Cursor interface {
	Next(ctx context.Context) bool

	Decode(v any) error

	Err() error

	Close(ctx context.Context) error
}
