/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"fmt"

	"github.com/256dpi/lungo/bsonkit"
	"go.mongodb.org/mongo-driver/bson"
)

// Doc is an ordered document as the evaluator works on it.
type Doc = bsonkit.Doc

// List is an ordered set of documents.
type List = bsonkit.List

// Convert turns any bson-encodable document (bson.M, bson.D, map, struct) into
// an ordered document with driver-native value types. Key order of bson.D
// values and structs is kept at every level. A nil input yields an empty document.
func Convert(v any) (Doc, error) {
	if v == nil {
		return &bson.D{}, nil
	}
	doc, err := bsonkit.Convert(v)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	return doc, nil
}

// ConvertAll converts every document of docs.
func ConvertAll(docs []bson.M) (List, error) {
	list := make(List, 0, len(docs))
	for _, d := range docs {
		doc, err := Convert(d)
		if err != nil {
			return nil, err
		}
		list = append(list, doc)
	}
	return list, nil
}

// Map decodes doc into a bson.M, the way the driver decodes into one.
func Map(doc Doc) (bson.M, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := bson.Marshal(*doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	out := bson.M{}
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

// Maps decodes every document of list.
func Maps(list List) ([]bson.M, error) {
	out := make([]bson.M, 0, len(list))
	for _, doc := range list {
		m, err := Map(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Copy returns a deep copy of doc.
func Copy(doc bson.M) (bson.M, error) {
	d, err := Convert(doc)
	if err != nil {
		return nil, err
	}
	return Map(d)
}

// Clone returns a deep copy of doc.
func Clone(doc Doc) Doc {
	return bsonkit.Clone(doc)
}

// Lookup resolves a dotted path.
func Lookup(doc Doc, path string) (any, bool) {
	v := bsonkit.Get(doc, path)
	if v == bsonkit.Missing {
		return nil, false
	}
	return v, true
}

// ID returns the _id of doc, nil when it has none.
func ID(doc Doc) any {
	v, _ := Lookup(doc, "_id")
	return v
}

// WithID returns doc with id as its leading _id field. An existing _id is replaced.
func WithID(doc Doc, id any) Doc {
	out := bson.D{{Key: "_id", Value: id}}
	for _, e := range *doc {
		if e.Key != "_id" {
			out = append(out, e)
		}
	}
	return &out
}

// Equal compares two values with the server's ordering: numbers compare by
// value across widths, documents compare field by field in order.
func Equal(a, b any) bool {
	va, errA := value(a)
	vb, errB := value(b)
	if errA != nil || errB != nil {
		return false
	}
	return bsonkit.Compare(va, vb) == 0
}

// Compare orders two values the way the server does.
func Compare(a, b any) int {
	va, errA := value(a)
	vb, errB := value(b)
	if errA != nil || errB != nil {
		return 0
	}
	return bsonkit.Compare(va, vb)
}

// Same reports whether two documents are identical.
func Same(a, b Doc) bool {
	return bsonkit.Compare(*a, *b) == 0
}

// value converts a Go value into its driver-native form.
func value(v any) (any, error) {
	doc, err := bsonkit.Convert(bson.D{{Key: "v", Value: v}})
	if err != nil {
		return nil, err
	}
	return bsonkit.Get(doc, "v"), nil
}
