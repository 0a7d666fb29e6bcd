/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"strings"

	"github.com/256dpi/lungo/mongokit"
	"go.mongodb.org/mongo-driver/bson"
)

// IsOperatorUpdate reports whether update uses update operators rather than
// being a replacement document.
func IsOperatorUpdate(update Doc) bool {
	if update == nil {
		return false
	}
	for _, e := range *update {
		if strings.HasPrefix(e.Key, "$") {
			return true
		}
	}
	return false
}

// Apply applies update to a copy of doc and returns the result. filter is the
// query that selected doc; positional operators refer to it. A replacement
// document keeps the original _id.
func Apply(doc, filter, update Doc, upsert bool) (Doc, error) {
	if !IsOperatorUpdate(update) {
		out := Clone(update)
		if id := ID(doc); id != nil {
			out = WithID(out, id)
		}
		return out, nil
	}
	out := Clone(doc)
	if _, err := mongokit.Apply(out, refPaths(filter), update, upsert, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// Seed builds the document an upsert starts from: the plain equality fields
// of filter.
func Seed(filter Doc) Doc {
	seed := bson.D{}
	if filter == nil {
		return &seed
	}
	for _, e := range *filter {
		if strings.HasPrefix(e.Key, "$") || strings.Contains(e.Key, ".") || IsOperatorValue(e.Value) {
			continue
		}
		seed = append(seed, e)
	}
	return &seed
}

// IsOperatorValue reports whether v is a document of query operators.
func IsOperatorValue(v any) bool {
	d, ok := v.(bson.D)
	return ok && len(d) > 0 && strings.HasPrefix(d[0].Key, "$") && !isDBRef(v)
}
