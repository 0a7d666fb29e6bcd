/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"sort"

	"github.com/256dpi/lungo/bsonkit"
	"github.com/256dpi/lungo/mongokit"
)

// Sort returns list ordered by the keys of spec, in order. Missing fields sort
// first. Ties keep their original order.
func Sort(list List, spec any) (List, error) {
	columns, err := Convert(spec)
	if err != nil {
		return nil, err
	}
	out := append(List(nil), list...)
	if len(*columns) == 0 {
		return out, nil
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, col := range *columns {
			c := bsonkit.Compare(bsonkit.Get(out[i], col.Key), bsonkit.Get(out[j], col.Key))
			if bsonkit.Compare(col.Value, int32(0)) < 0 {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out, nil
}

// Window applies skip and limit (0 means unlimited).
func Window(list List, skip, limit int64) List {
	if skip > 0 {
		if skip >= int64(len(list)) {
			return nil
		}
		list = list[skip:]
	}
	if limit > 0 && limit < int64(len(list)) {
		list = list[:limit]
	}
	return list
}

// Project applies an inclusion or exclusion projection to every document.
func Project(list List, projection any) (List, error) {
	p, err := Convert(projection)
	if err != nil {
		return nil, err
	}
	if len(*p) == 0 {
		return list, nil
	}
	return mongokit.ProjectList(list, p)
}

// Distinct returns the distinct values of field across list, flattening arrays.
func Distinct(list List, field string) []any {
	var out []any
	for _, v := range mongokit.Distinct(list, field) {
		out = append(out, v)
	}
	return out
}
