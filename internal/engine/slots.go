package engine

import (
	"strings"

	"gearline/internal/domain"
)

// toLowerSet builds a case-insensitive membership set.
func toLowerSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = struct{}{}
	}
	return out
}

// directChildSlots collects the lowercased slot names occupied directly
// under the given root.
func directChildSlots(items []domain.Record, rootID string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, it := range items {
		if it.ParentID == rootID && it.SlotName != "" {
			out[strings.ToLower(it.SlotName)] = struct{}{}
		}
	}
	return out
}

// isManaged decides whether a slot may be overwritten by this restore.
// A non-empty includedSlots list is authoritative (modern snapshots);
// otherwise the slot is managed when the snapshot occupied it or recorded
// it as empty (legacy inference). Pure and total.
func isManaged(slotName string, included, snapshotSlots, empty map[string]struct{}) bool {
	s := strings.ToLower(slotName)
	if len(included) > 0 {
		_, ok := included[s]
		return ok
	}
	if _, ok := snapshotSlots[s]; ok {
		return true
	}
	_, ok := empty[s]
	return ok
}
