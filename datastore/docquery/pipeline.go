/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"fmt"

	"github.com/256dpi/lungo/bsonkit"
	"github.com/suparena/docmodel/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// Aggregate runs a pipeline (mongo.Pipeline, []bson.D, []bson.M, bson.A) over list.
// Supported stages: $match $sort $skip $limit $project $count.
func Aggregate(list List, pipeline any) (List, error) {
	stages, err := pipelineStages(pipeline)
	if err != nil {
		return nil, err
	}

	current := list
	for i, stage := range stages {
		if len(stage) != 1 {
			return nil, errors.NewValidationError(fmt.Sprintf("pipeline[%d]", i), "a stage must have exactly one operator")
		}
		op, arg := stage[0].Key, stage[0].Value
		switch op {
		case "$match", "$sort", "$project":
			d, ok := arg.(bson.D)
			if !ok {
				return nil, errors.NewValidationError(op, "expects a document")
			}
			switch op {
			case "$match":
				current, err = Filter(current, &d)
			case "$sort":
				current, err = Sort(current, d)
			default:
				current, err = Project(current, d)
			}
			if err != nil {
				return nil, err
			}
		case "$skip", "$limit":
			n, ok := toInt64(arg)
			if !ok {
				return nil, errors.NewValidationError(op, "expects a number")
			}
			if op == "$skip" {
				current = Window(current, n, 0)
			} else {
				current = Window(current, 0, n)
			}
		case "$count":
			name, ok := arg.(string)
			if !ok || name == "" {
				return nil, errors.NewValidationError("$count", "expects a field name")
			}
			current = List{&bson.D{{Key: name, Value: int32(len(current))}}}
		default:
			return nil, errors.NewUnsupportedError("docquery", "pipeline stage "+op)
		}
	}
	return current, nil
}

func pipelineStages(pipeline any) ([]bson.D, error) {
	if pipeline == nil {
		return nil, nil
	}
	wrapped, err := Convert(bson.D{{Key: "p", Value: pipeline}})
	if err != nil {
		return nil, err
	}
	arr, ok := bsonkit.Get(wrapped, "p").(bson.A)
	if !ok {
		return nil, errors.NewValidationError("pipeline", "expects an array of stages")
	}
	stages := make([]bson.D, 0, len(arr))
	for i, s := range arr {
		d, ok := s.(bson.D)
		if !ok {
			return nil, errors.NewValidationError(fmt.Sprintf("pipeline[%d]", i), "a stage must be a document")
		}
		stages = append(stages, d)
	}
	return stages, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), n == float64(int64(n))
	}
	return 0, false
}
