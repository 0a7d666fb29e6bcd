/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/docmodel/datastore"
	"github.com/suparena/docmodel/datastore/docquery"
	"github.com/suparena/docmodel/errors"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// duplicateKeyCode is the server error code for unique index violations.
const duplicateKeyCode = 11000

// Database is an in-memory datastore.Database
type Database struct {
	mu          sync.RWMutex
	name        string
	collections map[string]*Collection
	closed      bool
}

// NewDatabase creates an empty in-memory database
func NewDatabase(name string) *Database {
	return &Database{
		name:        name,
		collections: make(map[string]*Collection),
	}
}

// Name returns the database name
func (d *Database) Name() string {
	return d.name
}

// Collection returns the named collection, creating it on first use
func (d *Database) Collection(name string) datastore.Collection {
	return d.MockCollection(name)
}

// MockCollection is Collection with the concrete type, for error injection in tests
func (d *Database) MockCollection(name string) *Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		c = &Collection{name: name, calls: make(map[string]int), filters: make(map[string][]any)}
		d.collections[name] = c
	}
	return c
}

// CollectionNames lists collections that have been touched, sorted
func (d *Database) CollectionNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.collections))
	for n := range d.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Ping fails once the database has been closed
func (d *Database) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fmt.Errorf("memory database %q is closed", d.name)
	}
	return nil
}

// Close marks the database closed; stored data is kept
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Collection is an in-memory datastore.Collection
type Collection struct {
	mu          sync.RWMutex
	name        string
	docs        docquery.List
	indexes     []storagemodels.IndexSpec
	calls       map[string]int
	filters     map[string][]any
	findError   error
	insertError error
	updateError error
	deleteError error
}

// WithFindError makes read operations return an error
func (c *Collection) WithFindError(err error) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findError = err
	return c
}

// WithInsertError makes insert operations return an error
func (c *Collection) WithInsertError(err error) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertError = err
	return c
}

// WithUpdateError makes update and replace operations return an error
func (c *Collection) WithUpdateError(err error) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateError = err
	return c
}

// WithDeleteError makes delete operations return an error
func (c *Collection) WithDeleteError(err error) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteError = err
	return c
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// Find returns a cursor over a snapshot of the matching documents
func (c *Collection) Find(ctx context.Context, filter any, params *storagemodels.FindParams) (datastore.Cursor, error) {
	docs, err := c.find(ctx, "find", filter, params)
	if err != nil {
		return nil, err
	}
	return docquery.NewCursor(docs), nil
}

// FindOne returns the first matching document or (nil, nil)
func (c *Collection) FindOne(ctx context.Context, filter any, params *storagemodels.FindParams) (bson.M, error) {
	p := storagemodels.NewFindParams()
	if params != nil {
		p = params.Clone()
	}
	p.Limit = 1
	docs, err := c.find(ctx, "findOne", filter, p)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docquery.Map(docs[0])
}

func (c *Collection) find(ctx context.Context, op string, filter any, params *storagemodels.FindParams) (docquery.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := docquery.Convert(filter)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.record(op, filter)
	findErr := c.findError
	c.mu.Unlock()
	if findErr != nil {
		return nil, findErr
	}

	c.mu.RLock()
	matched, err := docquery.Filter(c.docs, f)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make(docquery.List, 0, len(matched))
	for _, d := range matched {
		out = append(out, docquery.Clone(d))
	}
	if params == nil {
		return out, nil
	}
	if out, err = docquery.Sort(out, params.Sort); err != nil {
		return nil, err
	}
	out = docquery.Window(out, params.Skip, params.Limit)
	if len(params.Projection) > 0 {
		return docquery.Project(out, params.Projection)
	}
	return out, nil
}

// InsertOne stores a copy of doc, assigning an ObjectID when _id is absent
func (c *Collection) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	ids, err := c.InsertMany(ctx, []bson.M{doc})
	if err != nil {
		return nil, err
	}
	return ids[0], nil
}

// InsertMany stores copies of docs in order, each with _id as its first field
func (c *Collection) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["insert"]++
	if c.insertError != nil {
		return nil, c.insertError
	}

	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		stored, err := docquery.Convert(doc)
		if err != nil {
			return nil, err
		}
		id := docquery.ID(stored)
		if id == nil {
			id = primitive.NewObjectID()
		}
		stored = docquery.WithID(stored, id)
		if err := c.checkUnique(stored, -1); err != nil {
			return nil, err
		}
		c.docs = append(c.docs, stored)
		ids = append(ids, docquery.ID(stored))
	}
	return ids, nil
}

// UpdateOne applies update to the first matching document
func (c *Collection) UpdateOne(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error) {
	return c.update(ctx, filter, update, params, false)
}

// UpdateMany applies update to every matching document
func (c *Collection) UpdateMany(ctx context.Context, filter, update any, params *storagemodels.UpdateParams) (*storagemodels.UpdateResult, error) {
	return c.update(ctx, filter, update, params, true)
}

// ReplaceOne overwrites the first matching document, keeping its _id
func (c *Collection) ReplaceOne(ctx context.Context, filter any, doc bson.M) (*storagemodels.UpdateResult, error) {
	replacement, err := docquery.Convert(doc)
	if err != nil {
		return nil, err
	}
	if docquery.IsOperatorUpdate(replacement) {
		return nil, errors.NewValidationError("replacement", "must not contain update operators")
	}
	return c.update(ctx, filter, replacement, nil, false)
}

func (c *Collection) update(ctx context.Context, filter, update any, params *storagemodels.UpdateParams, multi bool) (*storagemodels.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := docquery.Convert(filter)
	if err != nil {
		return nil, err
	}
	u, err := docquery.Convert(update)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = storagemodels.NewUpdateParams()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("update", filter)
	if c.updateError != nil {
		return nil, c.updateError
	}

	result := &storagemodels.UpdateResult{}
	for i, d := range c.docs {
		ok, err := docquery.Match(d, f)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		result.MatchedCount++
		next, err := docquery.Apply(d, f, u, false)
		if err != nil {
			return nil, err
		}
		if err := c.checkUnique(next, i); err != nil {
			return nil, err
		}
		if !docquery.Same(d, next) {
			c.docs[i] = next
			result.ModifiedCount++
		}
		if !multi {
			break
		}
	}

	if result.MatchedCount == 0 && params.Upsert {
		doc, err := docquery.Apply(docquery.Seed(f), f, u, true)
		if err != nil {
			return nil, err
		}
		if docquery.ID(doc) == nil {
			doc = docquery.WithID(doc, primitive.NewObjectID())
		}
		if err := c.checkUnique(doc, -1); err != nil {
			return nil, err
		}
		c.docs = append(c.docs, doc)
		result.UpsertedCount = 1
		result.UpsertedID = docquery.ID(doc)
	}
	return result, nil
}

// DeleteOne removes the first matching document
func (c *Collection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	return c.delete(ctx, filter, false)
}

// DeleteMany removes every matching document
func (c *Collection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	return c.delete(ctx, filter, true)
}

func (c *Collection) delete(ctx context.Context, filter any, multi bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := docquery.Convert(filter)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("delete", filter)
	if c.deleteError != nil {
		return 0, c.deleteError
	}

	var deleted int64
	kept := c.docs[:0]
	for _, d := range c.docs {
		if multi || deleted == 0 {
			ok, err := docquery.Match(d, f)
			if err != nil {
				return 0, err
			}
			if ok {
				deleted++
				continue
			}
		}
		kept = append(kept, d)
	}
	c.docs = kept
	return deleted, nil
}

// CountDocuments counts the matching documents
func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	docs, err := c.find(ctx, "count", filter, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

// Distinct returns the distinct values of field among matching documents
func (c *Collection) Distinct(ctx context.Context, field string, filter any) ([]any, error) {
	docs, err := c.find(ctx, "distinct", filter, nil)
	if err != nil {
		return nil, err
	}
	return docquery.Distinct(docs, field), nil
}

// Aggregate runs pipeline over all documents of the collection
func (c *Collection) Aggregate(ctx context.Context, pipeline any) (datastore.Cursor, error) {
	docs, err := c.find(ctx, "aggregate", nil, nil)
	if err != nil {
		return nil, err
	}
	out, err := docquery.Aggregate(docs, pipeline)
	if err != nil {
		return nil, err
	}
	return docquery.NewCursor(out), nil
}

// CreateIndex records spec; unique indexes are enforced on later writes
func (c *Collection) CreateIndex(ctx context.Context, spec storagemodels.IndexSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(spec.Keys) == 0 {
		return "", errors.NewValidationError("keys", "index needs at least one key")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	name := spec.DefaultName()
	for _, existing := range c.indexes {
		if existing.DefaultName() == name {
			return name, nil
		}
	}
	spec.Name = name
	c.indexes = append(c.indexes, spec)
	return name, nil
}

// Indexes returns the declared indexes
func (c *Collection) Indexes() []storagemodels.IndexSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]storagemodels.IndexSpec(nil), c.indexes...)
}

// Drop removes all documents and indexes
func (c *Collection) Drop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["drop"]++
	c.docs = nil
	c.indexes = nil
	return nil
}

// Helper methods for testing

// Documents returns copies of the stored documents in insertion order
func (c *Collection) Documents() []bson.M {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out, _ := docquery.Maps(c.docs)
	return out
}

// Ordered returns copies of the stored documents with their key order
func (c *Collection) Ordered() []bson.D {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]bson.D, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, *docquery.Clone(d))
	}
	return out
}

// Len returns the number of stored documents
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Calls returns how many times an operation class (find, findOne, insert,
// update, delete, count, distinct, aggregate, drop) reached the collection
func (c *Collection) Calls(op string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[op]
}

// Filters returns the filters an operation class received, as passed in
func (c *Collection) Filters(op string) []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]any(nil), c.filters[op]...)
}

// record counts a call and keeps its filter; c.mu must be held
func (c *Collection) record(op string, filter any) {
	c.calls[op]++
	c.filters[op] = append(c.filters[op], filter)
}

// checkUnique enforces _id and unique indexes; skip is the position being replaced
func (c *Collection) checkUnique(doc docquery.Doc, skip int) error {
	specs := append([]storagemodels.IndexSpec{{Name: "_id_", Keys: bson.D{{Key: "_id", Value: 1}}, Unique: true}}, c.indexes...)
	for _, spec := range specs {
		if !spec.Unique {
			continue
		}
		for i, other := range c.docs {
			if i == skip {
				continue
			}
			if sameKey(doc, other, spec) {
				return duplicateKeyError(c.name, spec)
			}
		}
	}
	return nil
}

func sameKey(a, b docquery.Doc, spec storagemodels.IndexSpec) bool {
	for _, k := range spec.Keys {
		va, okA := docquery.Lookup(a, k.Key)
		vb, okB := docquery.Lookup(b, k.Key)
		if spec.Sparse && (!okA || !okB) {
			return false
		}
		if !docquery.Equal(va, vb) {
			return false
		}
	}
	return true
}

func duplicateKeyError(collection string, spec storagemodels.IndexSpec) error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{
			Code:    duplicateKeyCode,
			Message: fmt.Sprintf("E11000 duplicate key error collection: %s index: %s", collection, spec.DefaultName()),
		}},
	}
}
