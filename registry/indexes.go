/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"sync"

	"github.com/suparena/docmodel/storagemodels"
)

// indexRegistry associates collection names with their declared indexes.
var (
	indexRegistry = make(map[string][]storagemodels.IndexSpec)
	mu            sync.RWMutex
)

// RegisterIndexes declares indexes for a collection. Specs whose derived name
// is already declared are ignored.
func RegisterIndexes(collection string, specs ...storagemodels.IndexSpec) {
	mu.Lock()
	defer mu.Unlock()

	existing := indexRegistry[collection]
	for _, spec := range specs {
		dup := false
		for _, e := range existing {
			if e.DefaultName() == spec.DefaultName() {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, spec)
		}
	}
	indexRegistry[collection] = existing
}

// GetIndexes returns the indexes declared for a collection, if any.
func GetIndexes(collection string) ([]storagemodels.IndexSpec, bool) {
	mu.RLock()
	defer mu.RUnlock()
	specs, ok := indexRegistry[collection]
	return append([]storagemodels.IndexSpec(nil), specs...), ok
}
