package server

import (
	"encoding/json"
	"fmt"

	"gearline/internal/domain"
)

// apiRecord is the wire model for records. Placement and state are carried
// as raw JSON so the variant shapes (grid object vs bare ordinal) pass
// schema validation untouched; the domain decoder picks the case.
type apiRecord struct {
	ID       string          `json:"id"`
	TypeID   string          `json:"typeId"`
	ParentID string          `json:"parentId,omitempty"`
	SlotName string          `json:"slotName,omitempty"`
	Location json.RawMessage `json:"location,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
}

func toDomainRecords(in []apiRecord) ([]domain.Record, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	var out []domain.Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}

func fromDomainRecords(in []domain.Record) ([]apiRecord, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	var out []apiRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}
