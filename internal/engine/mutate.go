package engine

import (
	"gearline/internal/domain"
)

// removeManagedSlotItems drops every record sitting in a managed slot under
// rootID, plus all transitive descendants. The collection is rewritten in
// place preserving survivor order; the number of dropped records is
// returned.
func removeManagedSlotItems(collection *[]domain.Record, rootID string, included, snapshotSlots, empty map[string]struct{}, maxPasses int, log Logger) int {
	items := *collection
	doomed := map[string]struct{}{}
	for _, it := range items {
		if it.ID == "" || it.ParentID != rootID {
			continue
		}
		if isManaged(it.SlotName, included, snapshotSlots, empty) {
			doomed[it.ID] = struct{}{}
		}
	}
	if len(doomed) == 0 {
		return 0
	}

	// Transitive closure over parent links. Each pass can only discover
	// one more level, so the traversal depth budget caps the passes too.
	for pass := 0; ; pass++ {
		if pass >= maxPasses {
			log.Warnf("descendant sweep stopped at pass cap %d, possible corrupt hierarchy", maxPasses)
			break
		}
		grew := false
		for _, it := range items {
			if it.ID == "" || it.ParentID == "" {
				continue
			}
			if _, gone := doomed[it.ID]; gone {
				continue
			}
			if _, parentGone := doomed[it.ParentID]; parentGone {
				doomed[it.ID] = struct{}{}
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	kept := items[:0]
	for _, it := range items {
		if it.ID != "" {
			if _, gone := doomed[it.ID]; gone {
				continue
			}
		}
		kept = append(kept, it)
	}
	removed := len(items) - len(kept)
	*collection = kept
	return removed
}

type addResult struct {
	added      int
	duplicates int
	nonManaged int
}

// addSnapshotItems appends snapshot records to the collection. The check
// order is fixed: the equipment root itself is never re-added, records with
// missing fields are dropped, then slot containment, then dedup. Parent
// links pointing at the snapshot's root are remapped to the target root;
// placement and state are copied by value.
func addSnapshotItems(collection *[]domain.Record, snapItems []domain.Record, rootID, snapRootID string,
	included map[string]struct{}, rootSlots map[string]string, existing map[string]struct{},
	rootTypeID string, log Logger) addResult {

	var res addResult
	for _, it := range snapItems {
		if it.TypeID == rootTypeID {
			continue
		}
		if it.ID == "" || it.TypeID == "" {
			log.Warnf("snapshot item with missing id or typeId skipped")
			continue
		}
		if slot, known := rootSlots[it.ID]; known && len(included) > 0 {
			if _, managed := included[slot]; !managed {
				res.nonManaged++
				continue
			}
		}
		if _, dup := existing[it.ID]; dup {
			res.duplicates++
			continue
		}
		rec := it.Clone()
		if rec.ParentID == snapRootID {
			rec.ParentID = rootID
		}
		*collection = append(*collection, rec)
		existing[rec.ID] = struct{}{}
		res.added++
	}
	return res
}
