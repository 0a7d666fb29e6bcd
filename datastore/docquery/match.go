/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"github.com/256dpi/lungo/mongokit"
	"go.mongodb.org/mongo-driver/bson"
)

// Match reports whether doc satisfies filter.
func Match(doc, filter Doc) (bool, error) {
	return mongokit.Match(doc, refPaths(filter))
}

// Filter returns the documents of list matching filter, in order.
func Filter(list List, filter Doc) (List, error) {
	query := refPaths(filter)
	out := make(List, 0, len(list))
	for _, doc := range list {
		ok, err := mongokit.Match(doc, query)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// refPaths rewrites equality on a DBRef ({"owner": {"$ref": .., "$id": ..}})
// into equality on its "$ref" and "$id" paths. The server accepts a DBRef as a
// plain value; the evaluator would read "$ref" as an operator. Stores that do
// not keep key order (DynamoDB maps) still match.
func refPaths(filter Doc) Doc {
	if filter == nil {
		return &bson.D{}
	}
	out := make(bson.D, 0, len(*filter))
	for _, e := range *filter {
		switch {
		case e.Key == "$and" || e.Key == "$or" || e.Key == "$nor":
			arr, ok := e.Value.(bson.A)
			if !ok {
				out = append(out, e)
				continue
			}
			clauses := make(bson.A, len(arr))
			for i, c := range arr {
				if d, ok := c.(bson.D); ok {
					clauses[i] = *refPaths(&d)
				} else {
					clauses[i] = c
				}
			}
			out = append(out, bson.E{Key: e.Key, Value: clauses})
		case isDBRef(e.Value):
			for _, part := range e.Value.(bson.D) {
				out = append(out, bson.E{Key: e.Key + "." + part.Key, Value: part.Value})
			}
		default:
			out = append(out, e)
		}
	}
	return &out
}

func isDBRef(v any) bool {
	d, ok := v.(bson.D)
	if !ok || len(d) < 2 {
		return false
	}
	hasRef, hasID := false, false
	for _, e := range d {
		switch e.Key {
		case "$ref":
			hasRef = true
		case "$id":
			hasID = true
		case "$db":
		default:
			return false
		}
	}
	return hasRef && hasID
}
