/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Cursor iterates a fixed list of documents. It satisfies datastore.Cursor
// for stores that evaluate queries in memory.
type Cursor struct {
	docs    List
	pos     int
	current Doc
	err     error
	closed  bool
}

// NewCursor returns a cursor over docs
func NewCursor(docs List) *Cursor {
	return &Cursor{docs: docs}
}

// Next advances to the next document
func (c *Cursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.docs) {
		c.current = nil
		return false
	}
	c.current = c.docs[c.pos]
	c.pos++
	return true
}

// Decode unmarshals the current document into v
func (c *Cursor) Decode(v any) error {
	if c.current == nil {
		return fmt.Errorf("no current document")
	}
	data, err := bson.Marshal(*c.current)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, v)
}

// Err returns the error that stopped iteration, if any
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the cursor
func (c *Cursor) Close(ctx context.Context) error {
	c.closed = true
	c.current = nil
	return nil
}
