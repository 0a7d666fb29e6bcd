/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/suparena/docmodel/datastore"
	"github.com/suparena/docmodel/datastore/docquery"
	"github.com/suparena/docmodel/errors"
	"github.com/suparena/docmodel/registry"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
)

// IDKind selects how identities are produced.
type IDKind int

const (
	// ObjectIDs are assigned by the store on insert.
	ObjectIDs IDKind = iota
	// UUIDs are generated client side as canonical strings.
	UUIDs
	// AnyIDs accepts whatever identity the application sets.
	AnyIDs
)

// ModelRef is what a reference field points at: any model, or a catalog
// entry that names one.
type ModelRef interface {
	Name() string
	CollectionName() string
	resolve(ctx context.Context, id any) (Instance, error)
}

type schema struct {
	name       string
	collection string
	alias      string
	idKey      string
	idKind     IDKind
	fields     map[string]Field
	order      []string
	indexes    []storagemodels.IndexSpec
	conns      *Connections

	// set on polymorphic children
	scopeKey   string
	scopeValue any
	stamp      any
	polyKey    string
}

func (s *schema) clone() *schema {
	c := *s
	c.fields = make(map[string]Field, len(s.fields))
	for k, v := range s.fields {
		c.fields[k] = v
	}
	c.order = append([]string(nil), s.order...)
	c.indexes = append([]storagemodels.IndexSpec(nil), s.indexes...)
	c.scopeKey, c.scopeValue, c.stamp = "", nil, nil
	return &c
}

func (s *schema) addField(f Field) {
	if _, ok := s.fields[f.name]; !ok {
		s.order = append(s.order, f.name)
	}
	s.fields[f.name] = f
}

func (s *schema) coll(ctx context.Context) (datastore.Collection, error) {
	db, err := s.conns.Database(ctx, s.alias)
	if err != nil {
		return nil, err
	}
	return db.Collection(s.collection), nil
}

// scoped adds the discriminator of a polymorphic child to filter unless the
// caller already constrained it. Ordered filters stay ordered; only struct
// filters are converted.
func (s *schema) scoped(filter any) (any, error) {
	if s.scopeKey == "" {
		return filter, nil
	}
	switch f := filter.(type) {
	case nil:
		return bson.D{{Key: s.scopeKey, Value: s.scopeValue}}, nil
	case bson.D:
		return s.scopeOrdered(f), nil
	case *bson.D:
		if f == nil {
			return bson.D{{Key: s.scopeKey, Value: s.scopeValue}}, nil
		}
		return s.scopeOrdered(*f), nil
	case bson.M:
		return s.scopeMap(f), nil
	case map[string]any:
		return s.scopeMap(f), nil
	}
	doc, err := docquery.Convert(filter)
	if err != nil {
		return nil, err
	}
	return s.scopeOrdered(*doc), nil
}

func (s *schema) scopeOrdered(f bson.D) bson.D {
	out := append(make(bson.D, 0, len(f)+1), f...)
	for _, e := range f {
		if e.Key == s.scopeKey {
			return out
		}
	}
	return append(out, bson.E{Key: s.scopeKey, Value: s.scopeValue})
}

func (s *schema) scopeMap(f map[string]any) bson.M {
	out := make(bson.M, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	if _, ok := out[s.scopeKey]; !ok {
		out[s.scopeKey] = s.scopeValue
	}
	return out
}

// discriminator is the value new instances of a polymorphic model carry.
func (s *schema) discriminator() any {
	if s.stamp != nil {
		return s.stamp
	}
	v, _ := s.staticDefault(s.polyKey)
	return v
}

func (s *schema) staticDefault(name string) (any, bool) {
	if f, ok := s.fields[name]; ok {
		return f.staticDefault()
	}
	return nil, false
}

// Option configures a model.
type Option func(*schema)

// WithFields declares fields. A field replaces an earlier one of the same name.
func WithFields(fields ...Field) Option {
	return func(s *schema) {
		for _, f := range fields {
			s.addField(f)
		}
	}
}

// WithCollection overrides the collection name, which defaults to the
// lower-cased model name.
func WithCollection(name string) Option {
	return func(s *schema) { s.collection = name }
}

// WithIDKey changes the identity key from "_id".
func WithIDKey(key string) Option {
	return func(s *schema) { s.idKey = key }
}

func WithIDs(kind IDKind) Option {
	return func(s *schema) { s.idKind = kind }
}

// WithIndex declares an index created by EnsureIndexes.
func WithIndex(spec storagemodels.IndexSpec) Option {
	return func(s *schema) { s.indexes = append(s.indexes, spec) }
}

// UseAlias binds the model to a connection alias other than DefaultAlias.
func UseAlias(alias string) Option {
	return func(s *schema) { s.alias = alias }
}

// WithConnections binds the model to a registry other than Default().
func WithConnections(c *Connections) Option {
	return func(s *schema) { s.conns = c }
}

// Model binds a collection to the application type T that wraps its records.
type Model[T Instance] struct {
	s    *schema
	wrap func(*Record) T
	fam  *family[T]
}

// NewModel declares a model. wrap builds the application value around a record,
// typically func(r *docmodel.Record) *Ship { return &Ship{Record: r} }.
func NewModel[T Instance](name string, wrap func(*Record) T, opts ...Option) *Model[T] {
	s := &schema{
		name:       name,
		collection: strings.ToLower(name),
		alias:      DefaultAlias,
		idKey:      "_id",
		fields:     make(map[string]Field),
		conns:      Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	registry.RegisterIndexes(s.collection, s.indexes...)
	return &Model[T]{s: s, wrap: wrap}
}

// Plain declares a model whose instances are bare records.
func Plain(name string, opts ...Option) *Model[*Record] {
	return NewModel(name, func(r *Record) *Record { return r }, opts...)
}

func (m *Model[T]) Name() string { return m.s.name }

func (m *Model[T]) CollectionName() string { return m.s.collection }

// IDKey returns the name of the identity field.
func (m *Model[T]) IDKey() string { return m.s.idKey }

// Fields returns the declared fields in declaration order.
func (m *Model[T]) Fields() []Field {
	out := make([]Field, 0, len(m.s.order))
	for _, name := range m.s.order {
		out = append(out, m.s.fields[name])
	}
	return out
}

// Collection returns the driver collection for the alias active in ctx.
func (m *Model[T]) Collection(ctx context.Context) (datastore.Collection, error) {
	return m.s.coll(ctx)
}

// Wrap instantiates a raw document, picking the registered variant for
// polymorphic models.
func (m *Model[T]) Wrap(doc bson.M) T {
	s, wrap := m.pick(doc)
	return wrap(newRecord(s, doc))
}

func (m *Model[T]) pick(doc bson.M) (*schema, func(*Record) T) {
	if m.fam == nil {
		return m.s, m.wrap
	}
	v, ok := doc[m.fam.key]
	if !ok {
		v = m.s.discriminator()
	}
	if target, found := m.fam.variants.Lookup(discriminator(v)); found {
		return target.s, target.wrap
	}
	return m.s, m.wrap
}

// New builds an unsaved instance with defaults applied and fields assigned
// through their checks.
func (m *Model[T]) New(fields bson.M) (T, error) {
	var zero T
	s, wrap := m.pick(fields)
	r := newRecord(s, nil)
	for _, name := range s.order {
		if d, ok := s.fields[name].defaultValue(); ok {
			r.doc[name] = d
			r.markDirty(name)
		}
	}
	if s.stamp != nil {
		if _, ok := fields[s.polyKey]; !ok {
			r.doc[s.polyKey] = s.stamp
			r.markDirty(s.polyKey)
		}
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.Set(name, fields[name]); err != nil {
			return zero, err
		}
	}
	return wrap(r), nil
}

// Create builds an instance and saves it.
func (m *Model[T]) Create(ctx context.Context, fields bson.M) (T, error) {
	var zero T
	inst, err := m.New(fields)
	if err != nil {
		return zero, err
	}
	if _, err := inst.Base().Save(ctx); err != nil {
		return zero, err
	}
	return inst, nil
}

// Find returns a cursor over the matching documents. Nothing is sent to the
// store until the cursor is iterated.
func (m *Model[T]) Find(filter any, opts ...storagemodels.FindOption) *Cursor[T] {
	return newCursor(m, filter, storagemodels.NewFindParams(opts...))
}

// FindOne returns the first match, or the zero T when nothing matches.
func (m *Model[T]) FindOne(ctx context.Context, filter any, opts ...storagemodels.FindOption) (T, error) {
	var zero T
	coll, err := m.s.coll(ctx)
	if err != nil {
		return zero, err
	}
	f, err := m.s.scoped(filter)
	if err != nil {
		return zero, err
	}
	doc, err := coll.FindOne(ctx, f, storagemodels.NewFindParams(opts...))
	if err != nil || doc == nil {
		return zero, err
	}
	return m.Wrap(doc), nil
}

// Search finds documents whose fields equal the given values. Instances are
// matched through their refs.
func (m *Model[T]) Search(fields bson.M, opts ...storagemodels.FindOption) *Cursor[T] {
	filter := make(bson.M, len(fields))
	for k, v := range fields {
		filter[k] = storable(v)
	}
	return m.Find(filter, opts...)
}

func (m *Model[T]) Count(ctx context.Context, filter any) (int64, error) {
	coll, err := m.s.coll(ctx)
	if err != nil {
		return 0, err
	}
	f, err := m.s.scoped(filter)
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, f)
}

// Grab looks up an instance by identity. For ObjectID models a hex string is
// accepted in place of the ObjectID.
func (m *Model[T]) Grab(ctx context.Context, id any) (T, error) {
	if s, ok := id.(string); ok && m.s.idKind == ObjectIDs {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			var zero T
			return zero, errors.NewValidationError(m.s.idKey, fmt.Sprintf("%q is not an ObjectID", s))
		}
		id = oid
	}
	return m.FindOne(ctx, bson.M{m.s.idKey: id})
}

// Remove deletes every matching document. A nil filter or an instance is
// refused before the store is contacted; pass bson.M{} to delete everything.
func (m *Model[T]) Remove(ctx context.Context, filter any) (int64, error) {
	if filter == nil {
		return 0, errors.NewUsageError("remove", "filter must not be nil")
	}
	if _, ok := filter.(Instance); ok {
		return 0, errors.NewUsageError("remove", "called with an instance, use Delete")
	}
	coll, err := m.s.coll(ctx)
	if err != nil {
		return 0, err
	}
	f, err := m.s.scoped(filter)
	if err != nil {
		return 0, err
	}
	n, err := coll.DeleteMany(ctx, f)
	if err != nil {
		return 0, err
	}
	log().Debugw("removed documents", "model", m.s.name, "collection", m.s.collection, "deleted", n)
	return n, nil
}

// Drop deletes the whole collection.
func (m *Model[T]) Drop(ctx context.Context) error {
	coll, err := m.s.coll(ctx)
	if err != nil {
		return err
	}
	log().Infow("dropping collection", "model", m.s.name, "collection", m.s.collection)
	return coll.Drop(ctx)
}

// Update forwards to the driver without any model semantics.
// storagemodels.WithMulti updates every match.
func (m *Model[T]) Update(ctx context.Context, filter, update any, opts ...storagemodels.UpdateOption) (*storagemodels.UpdateResult, error) {
	coll, err := m.s.coll(ctx)
	if err != nil {
		return nil, err
	}
	params := storagemodels.NewUpdateParams(opts...)
	if params.Multi {
		return coll.UpdateMany(ctx, filter, update, params)
	}
	return coll.UpdateOne(ctx, filter, update, params)
}

func (m *Model[T]) Distinct(ctx context.Context, field string, filter any) ([]any, error) {
	coll, err := m.s.coll(ctx)
	if err != nil {
		return nil, err
	}
	f, err := m.s.scoped(filter)
	if err != nil {
		return nil, err
	}
	return coll.Distinct(ctx, field, f)
}

// Aggregate runs a pipeline and returns the raw result cursor.
func (m *Model[T]) Aggregate(ctx context.Context, pipeline any) (datastore.Cursor, error) {
	coll, err := m.s.coll(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Aggregate(ctx, pipeline)
}

func (m *Model[T]) CreateIndex(ctx context.Context, spec storagemodels.IndexSpec) (string, error) {
	coll, err := m.s.coll(ctx)
	if err != nil {
		return "", err
	}
	return coll.CreateIndex(ctx, spec)
}

// EnsureIndexes creates every index declared for the collection.
func (m *Model[T]) EnsureIndexes(ctx context.Context) error {
	specs, _ := registry.GetIndexes(m.s.collection)
	var errs error
	for _, spec := range specs {
		if _, err := m.CreateIndex(ctx, spec); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("index %s: %w", spec.DefaultName(), err))
		}
	}
	return errs
}

// MakeRef builds a handle to the document with the given identity.
func (m *Model[T]) MakeRef(id any) Ref {
	return Ref{Collection: m.s.collection, ID: id}
}

func (m *Model[T]) resolve(ctx context.Context, id any) (Instance, error) {
	coll, err := m.s.coll(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := coll.FindOne(ctx, bson.M{m.s.idKey: id}, nil)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.NewNotFoundError(m.s.collection, idString(id))
	}
	return m.Wrap(doc), nil
}
