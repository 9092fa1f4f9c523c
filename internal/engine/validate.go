package engine

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"gearline/internal/domain"
)

// validateStructure checks well-formedness of the raw payload before any
// typed decode. Checks run in order and the first violation wins.
func validateStructure(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("payload is not valid JSON")
	}
	payload := gjson.ParseBytes(data)
	if !payload.IsObject() {
		return fmt.Errorf("payload is not an object")
	}
	items := payload.Get("items")
	if !items.Exists() {
		return fmt.Errorf("missing required field: items")
	}
	if !items.IsArray() {
		return fmt.Errorf("items must be an array")
	}
	arr := items.Array()
	if len(arr) == 0 {
		return fmt.Errorf("items array is empty")
	}
	for i, el := range arr {
		if !el.IsObject() {
			return fmt.Errorf("items[%d] is not an object", i)
		}
		if id := el.Get("id"); id.Type != gjson.String || id.Str == "" {
			return fmt.Errorf("items[%d] missing id", i)
		}
		if tpl := el.Get("typeId"); tpl.Type != gjson.String || tpl.Str == "" {
			return fmt.Errorf("items[%d] missing typeId", i)
		}
	}
	return nil
}

// decodeSnapshot validates structure and then decodes the typed snapshot.
func decodeSnapshot(data []byte) (*domain.Snapshot, error) {
	if err := validateStructure(data); err != nil {
		return nil, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
