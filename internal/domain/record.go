package domain

// Record is one inventory item entry in a profile or snapshot. Records form
// a forest: ParentID links an item to its containing Record, SlotName names
// the position inside that parent. A Record with no ParentID is a root.
type Record struct {
	ID       string     `json:"id"`
	TypeID   string     `json:"typeId"`
	ParentID string     `json:"parentId,omitempty"`
	SlotName string     `json:"slotName,omitempty"`
	Location *Placement `json:"location,omitempty"`
	State    *State     `json:"state,omitempty"`
}

// Clone returns a value copy of the record. Placement and state are copied
// field by field so the clone never shares mutable structure with the source.
func (r Record) Clone() Record {
	out := r
	out.Location = r.Location.Clone()
	out.State = r.State.Clone()
	return out
}

// CloneRecords deep-copies a whole collection, preserving order.
func CloneRecords(items []Record) []Record {
	if items == nil {
		return nil
	}
	out := make([]Record, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
