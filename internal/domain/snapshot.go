package domain

// Snapshot is the captured equipment state used as a restoration source.
// Items is required and non-empty. IncludedSlots, when present, is the
// authoritative list of slots the restore may overwrite; EmptySlots lists
// root slots that held nothing at capture time, so a restore clears them
// without adding a replacement. ModVersion identifies the producer; its
// absence marks a legacy capture the engine refuses to apply.
type Snapshot struct {
	Items         []Record `json:"items"`
	IncludedSlots []string `json:"includedSlots,omitempty"`
	EmptySlots    []string `json:"emptySlots,omitempty"`
	ModVersion    string   `json:"modVersion,omitempty"`

	// Descriptive metadata the engine carries but never interprets.
	Identity   string `json:"identity,omitempty"`
	CapturedAt string `json:"capturedAt,omitempty"`
	Location   string `json:"location,omitempty"`
}
