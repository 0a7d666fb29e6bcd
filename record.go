/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"
	"github.com/suparena/docmodel/datastore/docquery"
	"github.com/suparena/docmodel/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
)

// Instance is implemented by every model value. Application types get it by
// embedding *Record.
type Instance interface {
	Base() *Record
}

// Record is a stored document with identity and change tracking.
type Record struct {
	s     *schema
	doc   bson.M
	dirty []string
}

func newRecord(s *schema, doc bson.M) *Record {
	if doc == nil {
		doc = bson.M{}
	}
	return &Record{s: s, doc: doc}
}

// Base returns r itself.
func (r *Record) Base() *Record { return r }

// Model returns the name of the model r was instantiated as.
func (r *Record) Model() string { return r.s.name }

// ID returns the identity value, nil until the record is saved.
func (r *Record) ID() any {
	return r.doc[r.s.idKey]
}

// Get returns a field value through its declared transforms. Reference fields
// are resolved against the store on every call.
func (r *Record) Get(ctx context.Context, name string) (any, error) {
	f, declared := r.s.fields[name]
	v, ok := r.doc[name]
	if !declared {
		return v, nil
	}
	if !ok {
		d, has := f.defaultValue()
		if !has && f.required {
			return nil, errors.NewRequiredFieldError(name)
		}
		if has {
			r.doc[name] = d
			r.markDirty(name)
			v = d
		}
	}
	return f.read(ctx, r, v)
}

// GetAs is Get with the result converted to V. Stored integers come back from
// the driver as int32 or int64 and are converted to any integer V.
func GetAs[V any](ctx context.Context, r *Record, name string) (V, error) {
	var zero V
	v, err := r.Get(ctx, name)
	if err != nil || v == nil {
		return zero, err
	}
	if out, ok := v.(V); ok {
		return out, nil
	}
	t := reflect.TypeOf((*V)(nil)).Elem()
	if out, ok := conform(v, t); ok {
		return out.(V), nil
	}
	return zero, errors.NewTypeMismatchError(name, t.String(), fmt.Sprintf("%T", v))
}

// Raw returns the stored value without transforms.
func (r *Record) Raw(name string) any {
	return r.doc[name]
}

// SetRaw stores v without checks. The identity key cannot be reassigned.
func (r *Record) SetRaw(name string, v any) error {
	if err := r.guardID(name, v); err != nil {
		return err
	}
	r.doc[name] = v
	r.markDirty(name)
	return nil
}

// Set assigns a field through its declared checks and transforms. Names the
// model does not declare are stored as they are.
func (r *Record) Set(name string, v any) error {
	if err := r.guardID(name, v); err != nil {
		return err
	}
	if f, ok := r.s.fields[name]; ok {
		out, err := f.assign(r, v)
		if err != nil {
			return err
		}
		v = out
	}
	r.doc[name] = v
	r.markDirty(name)
	return nil
}

// Unset removes a field from the document.
func (r *Record) Unset(name string) error {
	if name == r.s.idKey && r.ID() != nil {
		return errors.NewUsageError("unset", "identity cannot be removed")
	}
	if _, ok := r.doc[name]; ok {
		delete(r.doc, name)
		r.markDirty(name)
	}
	return nil
}

func (r *Record) guardID(name string, v any) error {
	if name != r.s.idKey {
		return nil
	}
	if cur := r.ID(); cur != nil && !docquery.Equal(cur, v) {
		return errors.NewUsageError("set", "identity cannot be reassigned")
	}
	return nil
}

func (r *Record) markDirty(name string) {
	for _, d := range r.dirty {
		if d == name {
			return
		}
	}
	r.dirty = append(r.dirty, name)
}

func (r *Record) clean(names ...string) {
	if len(names) == 0 {
		r.dirty = nil
		return
	}
	kept := r.dirty[:0]
	for _, d := range r.dirty {
		if !contains(names, d) {
			kept = append(kept, d)
		}
	}
	r.dirty = kept
}

// Dirty returns the names changed since the record was loaded or saved.
func (r *Record) Dirty() []string {
	return append([]string(nil), r.dirty...)
}

// Save inserts a new record or overwrites the stored document when anything
// changed, and returns the identity.
func (r *Record) Save(ctx context.Context) (any, error) {
	var errs error
	for _, name := range r.s.order {
		if f := r.s.fields[name]; f.required {
			if v, ok := r.doc[name]; !ok || v == nil {
				errs = multierr.Append(errs, errors.NewRequiredFieldError(name))
			}
		}
	}
	if errs != nil {
		return nil, errs
	}

	coll, err := r.s.coll(ctx)
	if err != nil {
		return nil, err
	}

	id := r.ID()
	if id == nil {
		if id = r.s.newID(); id != nil {
			r.doc[r.s.idKey] = id
		}
		stored, err := coll.InsertOne(ctx, r.storable())
		if err != nil {
			if id != nil {
				delete(r.doc, r.s.idKey)
			}
			return nil, err
		}
		if id == nil {
			id = stored
			r.doc[r.s.idKey] = id
		}
		log().Debugw("inserted document", "model", r.s.name, "collection", r.s.collection, "id", id)
		r.clean()
		return id, nil
	}

	if len(r.dirty) == 0 {
		return id, nil
	}
	res, err := coll.ReplaceOne(ctx, r.idFilter(), r.storable())
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		if _, err := coll.InsertOne(ctx, r.storable()); err != nil {
			return nil, err
		}
	}
	log().Debugw("overwrote document", "model", r.s.name, "collection", r.s.collection, "id", id, "dirty", r.dirty)
	r.clean()
	return id, nil
}

// Update assigns fields and writes only those fields to the stored document.
// The stored document is not re-read.
func (r *Record) Update(ctx context.Context, fields bson.M) (any, error) {
	id := r.ID()
	if id == nil {
		return nil, errors.NewUsageError("update", "record has not been saved")
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	set := bson.M{}
	for _, name := range names {
		if f, ok := r.s.fields[name]; ok && f.required && fields[name] == nil {
			return nil, errors.NewRequiredFieldError(name)
		}
		if err := r.Set(name, fields[name]); err != nil {
			return nil, err
		}
		set[name] = storable(r.doc[name])
	}
	if len(set) == 0 {
		return id, nil
	}

	coll, err := r.s.coll(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := coll.UpdateOne(ctx, r.idFilter(), bson.M{"$set": set}, nil); err != nil {
		return nil, err
	}
	log().Debugw("updated document", "model", r.s.name, "collection", r.s.collection, "id", id, "fields", names)
	r.clean(names...)
	return id, nil
}

// Delete removes the stored document and reports how many were deleted.
// A record that was never saved deletes nothing.
func (r *Record) Delete(ctx context.Context) (int64, error) {
	if r.ID() == nil {
		return 0, nil
	}
	coll, err := r.s.coll(ctx)
	if err != nil {
		return 0, err
	}
	n, err := coll.DeleteOne(ctx, r.idFilter())
	if err != nil {
		return 0, err
	}
	log().Debugw("deleted document", "model", r.s.name, "collection", r.s.collection, "id", r.ID(), "deleted", n)
	return n, nil
}

// Reload replaces the in-memory document with the stored one.
func (r *Record) Reload(ctx context.Context) error {
	id := r.ID()
	if id == nil {
		return errors.NewUsageError("reload", "record has not been saved")
	}
	coll, err := r.s.coll(ctx)
	if err != nil {
		return err
	}
	doc, err := coll.FindOne(ctx, r.idFilter(), nil)
	if err != nil {
		return err
	}
	if doc == nil {
		return errors.NewNotFoundError(r.s.collection, idString(id))
	}
	r.doc = doc
	r.clean()
	return nil
}

// Ref returns a handle to the stored document.
func (r *Record) Ref() Ref {
	return Ref{Collection: r.s.collection, ID: r.ID()}
}

// Equal reports whether both records are the same stored document.
func (r *Record) Equal(other Instance) bool {
	if other == nil {
		return false
	}
	o := other.Base()
	if o == nil || r.s.collection != o.s.collection {
		return false
	}
	a, b := r.ID(), o.ID()
	return a != nil && b != nil && docquery.Equal(a, b)
}

func (r *Record) String() string {
	return fmt.Sprintf("<Model:%s id:%v>", r.s.name, r.ID())
}

// Document returns a copy of the document as it would be stored.
func (r *Record) Document() bson.M {
	doc := r.storable()
	if c, err := docquery.Copy(doc); err == nil {
		return c
	}
	return doc
}

// MarshalJSON renders the document as relaxed Extended JSON.
func (r *Record) MarshalJSON() ([]byte, error) {
	return bson.MarshalExtJSON(r.storable(), false, false)
}

func (r *Record) idFilter() bson.M {
	return bson.M{r.s.idKey: r.ID()}
}

// storable is a shallow copy of the document ready for the store.
func (r *Record) storable() bson.M {
	out := make(bson.M, len(r.doc))
	for k, v := range r.doc {
		out[k] = storable(v)
	}
	return out
}

// storable replaces instances with their refs. Refs decoded as maps are
// turned back into Ref so $ref stays ahead of $id.
func storable(v any) any {
	switch tv := v.(type) {
	case Instance:
		if tv != nil {
			if b := tv.Base(); b != nil {
				return b.Ref()
			}
		}
	case bson.M, map[string]any:
		if ref, ok := parseRef(tv); ok {
			return ref
		}
	}
	return v
}

func idString(id any) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}

// newID returns a client-generated identity, or nil when the store assigns it.
func (s *schema) newID() any {
	switch s.idKind {
	case UUIDs:
		return uuid.NewString()
	case ObjectIDs, AnyIDs:
		if s.idKey != "_id" {
			return primitive.NewObjectID()
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
