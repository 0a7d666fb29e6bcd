/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schemafile

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/suparena/docmodel"
	"github.com/suparena/docmodel/errors"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// File is the top level of a schema file.
type File struct {
	Models []ModelSpec `yaml:"models"`
}

// ModelSpec declares one model, or the base of a polymorphic family when
// Discriminator is set.
type ModelSpec struct {
	Name          string        `yaml:"name"`
	Collection    string        `yaml:"collection,omitempty"`
	Alias         string        `yaml:"alias,omitempty"`
	IDKey         string        `yaml:"idKey,omitempty"`
	IDs           string        `yaml:"ids,omitempty"`
	Discriminator string        `yaml:"discriminator,omitempty"`
	Fields        []FieldSpec   `yaml:"fields,omitempty"`
	Indexes       []IndexSpec   `yaml:"indexes,omitempty"`
	Variants      []VariantSpec `yaml:"variants,omitempty"`
}

// VariantSpec declares a child of a polymorphic model. Without Value it is
// registered under its discriminator default, or its lower-cased name.
type VariantSpec struct {
	Name   string      `yaml:"name"`
	Value  any         `yaml:"value,omitempty"`
	Fields []FieldSpec `yaml:"fields,omitempty"`
}

type FieldSpec struct {
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type,omitempty"`
	Default  any       `yaml:"default,omitempty"`
	Required bool      `yaml:"required,omitempty"`
	Format   string    `yaml:"format,omitempty"`
	Enum     []any     `yaml:"enum,omitempty"`
	Ref      string    `yaml:"ref,omitempty"`
	Constant bool      `yaml:"constant,omitempty"`
	Length   []int     `yaml:"length,omitempty"`
	Range    []float64 `yaml:"range,omitempty"`
}

// IndexSpec lists index keys as field names, prefixed with "-" for
// descending order.
type IndexSpec struct {
	Name   string   `yaml:"name,omitempty"`
	Keys   []string `yaml:"keys"`
	Unique bool     `yaml:"unique,omitempty"`
	Sparse bool     `yaml:"sparse,omitempty"`
}

var fieldTypes = map[string]func(string) docmodel.Field{
	"":         docmodel.Any,
	"any":      docmodel.Any,
	"string":   docmodel.Typed[string],
	"int":      docmodel.Typed[int],
	"int64":    docmodel.Typed[int64],
	"float":    docmodel.Typed[float64],
	"bool":     docmodel.Typed[bool],
	"time":     docmodel.Typed[time.Time],
	"objectid": docmodel.Typed[primitive.ObjectID],
	"list":     docmodel.Typed[bson.A],
	"document": docmodel.Typed[bson.M],
}

var idKinds = map[string]docmodel.IDKind{
	"":         docmodel.ObjectIDs,
	"objectid": docmodel.ObjectIDs,
	"uuid":     docmodel.UUIDs,
	"any":      docmodel.AnyIDs,
}

// Load reads and parses a schema file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a schema file.
func Parse(data []byte) (*File, error) {
	f := &File{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	return f, nil
}

// Set holds the models built from a file.
type Set struct {
	models map[string]*docmodel.Model[*docmodel.Record]
	poly   map[string]*docmodel.PolyModel[*docmodel.Record]
}

// Model returns a model by name. Members of polymorphic families are included.
func (s *Set) Model(name string) (*docmodel.Model[*docmodel.Record], bool) {
	m, ok := s.models[name]
	return m, ok
}

// Poly returns a polymorphic model, base or variant, by name.
func (s *Set) Poly(name string) (*docmodel.PolyModel[*docmodel.Record], bool) {
	p, ok := s.poly[name]
	return p, ok
}

// Names returns every model name, sorted.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.models))
	for name := range s.models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build declares the models of f and adds them to catalog. opts apply to
// every model, typically docmodel.WithConnections.
func (f *File) Build(catalog *docmodel.Catalog, opts ...docmodel.Option) (*Set, error) {
	set := &Set{
		models: make(map[string]*docmodel.Model[*docmodel.Record]),
		poly:   make(map[string]*docmodel.PolyModel[*docmodel.Record]),
	}
	for i, spec := range f.Models {
		if err := set.build(catalog, spec, opts); err != nil {
			name := spec.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
	}
	return set, nil
}

func wrapRecord(r *docmodel.Record) *docmodel.Record { return r }

func (s *Set) build(catalog *docmodel.Catalog, spec ModelSpec, common []docmodel.Option) error {
	if spec.Name == "" {
		return errors.NewValidationError("name", "model name is required")
	}
	opts, err := spec.options(catalog, common)
	if err != nil {
		return err
	}

	if spec.Discriminator == "" {
		if len(spec.Variants) > 0 {
			return errors.NewValidationError("variants", "variants need a discriminator")
		}
		m := docmodel.NewModel(spec.Name, wrapRecord, opts...)
		if err := catalog.Add(m); err != nil {
			return err
		}
		s.models[spec.Name] = m
		return nil
	}

	base := docmodel.NewPolyModel(spec.Name, spec.Discriminator, wrapRecord, opts...)
	if err := catalog.Add(base); err != nil {
		return err
	}
	s.models[spec.Name], s.poly[spec.Name] = base.Model, base
	for _, v := range spec.Variants {
		if v.Name == "" {
			return errors.NewValidationError("variants", "variant name is required")
		}
		fields, err := buildFields(catalog, v.Fields)
		if err != nil {
			return fmt.Errorf("variant %s: %w", v.Name, err)
		}
		child := base.Extend(v.Name, wrapRecord, docmodel.WithFields(fields...))
		if v.Value != nil {
			err = base.RegisterAs(v.Value, child)
		} else {
			err = base.Register(child)
		}
		if err != nil {
			return fmt.Errorf("variant %s: %w", v.Name, err)
		}
		if err := catalog.Add(child); err != nil {
			return err
		}
		s.models[v.Name], s.poly[v.Name] = child.Model, child
	}
	return nil
}

func (spec ModelSpec) options(catalog *docmodel.Catalog, common []docmodel.Option) ([]docmodel.Option, error) {
	opts := append([]docmodel.Option(nil), common...)
	if spec.Collection != "" {
		opts = append(opts, docmodel.WithCollection(spec.Collection))
	}
	if spec.Alias != "" {
		opts = append(opts, docmodel.UseAlias(spec.Alias))
	}
	if spec.IDKey != "" {
		opts = append(opts, docmodel.WithIDKey(spec.IDKey))
	}
	kind, ok := idKinds[strings.ToLower(spec.IDs)]
	if !ok {
		return nil, errors.NewValidationError("ids", fmt.Sprintf("unknown id kind %q", spec.IDs))
	}
	opts = append(opts, docmodel.WithIDs(kind))

	fields, err := buildFields(catalog, spec.Fields)
	if err != nil {
		return nil, err
	}
	opts = append(opts, docmodel.WithFields(fields...))

	for _, idx := range spec.Indexes {
		is, err := idx.build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, docmodel.WithIndex(is))
	}
	return opts, nil
}

func buildFields(catalog *docmodel.Catalog, specs []FieldSpec) ([]docmodel.Field, error) {
	var errs error
	fields := make([]docmodel.Field, 0, len(specs))
	for _, fs := range specs {
		f, err := fs.build(catalog)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		fields = append(fields, f)
	}
	return fields, errs
}

func (fs FieldSpec) build(catalog *docmodel.Catalog) (docmodel.Field, error) {
	if fs.Name == "" {
		return docmodel.Field{}, errors.NewValidationError("fields", "field name is required")
	}
	special := fs.Ref != "" || len(fs.Enum) > 0 || fs.Constant
	if special && fs.Type != "" {
		return docmodel.Field{}, errors.NewValidationError(fs.Name, "type cannot be combined with ref, enum or constant")
	}

	var f docmodel.Field
	switch {
	case fs.Ref != "":
		f = docmodel.Reference(fs.Name, catalog.Ref(fs.Ref))
	case len(fs.Enum) > 0:
		f = docmodel.Enum(fs.Name, fs.Enum...)
	case fs.Constant:
		f = docmodel.Constant(fs.Name)
	default:
		build, ok := fieldTypes[strings.ToLower(fs.Type)]
		if !ok {
			return docmodel.Field{}, errors.NewValidationError(fs.Name, fmt.Sprintf("unknown type %q", fs.Type))
		}
		f = build(fs.Name)
	}

	if fs.Default != nil {
		f = f.Default(fs.Default)
	}
	if fs.Required {
		f = f.Required()
	}
	if fs.Format != "" {
		f = f.Format(fs.Format)
	}
	switch len(fs.Length) {
	case 0:
	case 1:
		f = f.Validate(docmodel.Length(fs.Length[0], 0))
	case 2:
		f = f.Validate(docmodel.Length(fs.Length[0], fs.Length[1]))
	default:
		return docmodel.Field{}, errors.NewValidationError(fs.Name, "length takes [min] or [min, max]")
	}
	switch len(fs.Range) {
	case 0:
	case 1:
		f = f.Validate(docmodel.Range(fs.Range[0], 0))
	case 2:
		f = f.Validate(docmodel.Range(fs.Range[0], fs.Range[1]))
	default:
		return docmodel.Field{}, errors.NewValidationError(fs.Name, "range takes [min] or [min, max]")
	}
	return f, nil
}

func (idx IndexSpec) build() (storagemodels.IndexSpec, error) {
	if len(idx.Keys) == 0 {
		return storagemodels.IndexSpec{}, errors.NewValidationError("indexes", "an index needs keys")
	}
	keys := make(bson.D, 0, len(idx.Keys))
	for _, k := range idx.Keys {
		dir := storagemodels.Ascending
		if strings.HasPrefix(k, "-") {
			dir, k = storagemodels.Descending, k[1:]
		}
		if k == "" {
			return storagemodels.IndexSpec{}, errors.NewValidationError("indexes", "empty key")
		}
		keys = append(keys, bson.E{Key: k, Value: int(dir)})
	}
	return storagemodels.IndexSpec{Keys: keys, Name: idx.Name, Unique: idx.Unique, Sparse: idx.Sparse}, nil
}
