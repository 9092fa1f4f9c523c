package engine

import (
	"strings"

	"gearline/internal/domain"
)

// buildIndex gives O(1) id lookups over a collection. Later duplicates of
// an id are ignored; the first occurrence wins.
func buildIndex(items []domain.Record) map[string]domain.Record {
	lookup := make(map[string]domain.Record, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, ok := lookup[it.ID]; !ok {
			lookup[it.ID] = it
		}
	}
	return lookup
}

// resolveRootSlot walks parent links from rec until it finds the record
// whose parent is the equipment root, and returns that record's slot name.
// Cycles and over-deep chains are logged and reported as unresolved rather
// than failing the restore. The walk never mutates the collection.
func resolveRootSlot(rec domain.Record, rootID string, lookup map[string]domain.Record, maxDepth int, log Logger) (string, bool) {
	visited := make(map[string]struct{}, 8)
	current := rec
	for depth := 0; ; depth++ {
		if depth > maxDepth {
			log.Warnf("parent chain for item %s exceeds depth %d, possible corrupt hierarchy", current.ID, maxDepth)
			return "", false
		}
		if current.ID != "" {
			if _, seen := visited[current.ID]; seen {
				log.Warnf("parent chain cycle at item %s", current.ID)
				return "", false
			}
			visited[current.ID] = struct{}{}
		}
		if current.ParentID == "" {
			return "", false
		}
		if current.ParentID == rootID {
			return current.SlotName, true
		}
		parent, ok := lookup[current.ParentID]
		if !ok {
			return "", false
		}
		current = parent
	}
}

// buildRootSlotMap resolves every item's root container slot, lowercased.
// Items with no resolvable root slot are simply absent.
func buildRootSlotMap(items []domain.Record, rootID string, lookup map[string]domain.Record, maxDepth int, log Logger) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if slot, ok := resolveRootSlot(it, rootID, lookup, maxDepth, log); ok {
			out[it.ID] = strings.ToLower(slot)
		}
	}
	return out
}
