/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Ref is a stored reference to a document in another collection, encoded with
// the DBRef convention ({"$ref": collection, "$id": id}).
type Ref struct {
	Collection string `bson:"$ref" json:"$ref"`
	ID         any    `bson:"$id" json:"$id"`
	Database   string `bson:"$db,omitempty" json:"$db,omitempty"`
}

// IsZero reports whether r points nowhere.
func (r Ref) IsZero() bool {
	return r.Collection == "" && r.ID == nil
}

func (r Ref) String() string {
	return fmt.Sprintf("Ref(%s, %v)", r.Collection, r.ID)
}

// parseRef recognizes a reference in any of the shapes it takes on the way
// through a driver: the struct itself, or a decoded document.
func parseRef(v any) (Ref, bool) {
	switch tv := v.(type) {
	case Ref:
		return tv, true
	case *Ref:
		if tv == nil {
			return Ref{}, false
		}
		return *tv, true
	case bson.M:
		return refFromMap(tv)
	case map[string]any:
		return refFromMap(tv)
	case bson.D:
		return refFromMap(tv.Map())
	}
	return Ref{}, false
}

func refFromMap(m map[string]any) (Ref, bool) {
	coll, ok := m["$ref"].(string)
	if !ok {
		return Ref{}, false
	}
	id, ok := m["$id"]
	if !ok {
		return Ref{}, false
	}
	db, _ := m["$db"].(string)
	return Ref{Collection: coll, ID: id, Database: db}, true
}
