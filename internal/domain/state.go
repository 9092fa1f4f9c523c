package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Durability tracks the current/maximum wear pair of a repairable item.
type Durability struct {
	Current float64 `json:"durability"`
	Max     float64 `json:"maxDurability"`
}

// Resource tracks the remaining quantity of a consumable.
type Resource struct {
	Value float64 `json:"value"`
}

// Toggle tracks an on/off device state.
type Toggle struct {
	On bool `json:"on"`
}

// Fold tracks whether a foldable item is folded.
type Fold struct {
	Folded bool `json:"folded"`
}

// Tag is a player-assigned label.
type Tag struct {
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// State carries the mutable per-item sub-fields. Each field is independent
// and optional. Sub-field kinds this code does not know about are preserved
// verbatim in Extra so a newer producer's data survives a round trip.
type State struct {
	StackCount *int        `json:"-"`
	Durability *Durability `json:"-"`
	Resource   *Resource   `json:"-"`
	Toggle     *Toggle     `json:"-"`
	Fold       *Fold       `json:"-"`
	Tag        *Tag        `json:"-"`

	Extra map[string]json.RawMessage `json:"-"`
}

const (
	stateKeyStack    = "stackCount"
	stateKeyRepair   = "repairable"
	stateKeyResource = "resource"
	stateKeyToggle   = "togglable"
	stateKeyFold     = "foldable"
	stateKeyTag      = "tag"
)

func (s *State) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode state blob: %w", err)
	}
	*s = State{}
	for key, val := range raw {
		var err error
		switch key {
		case stateKeyStack:
			s.StackCount = new(int)
			err = json.Unmarshal(val, s.StackCount)
		case stateKeyRepair:
			s.Durability = new(Durability)
			err = json.Unmarshal(val, s.Durability)
		case stateKeyResource:
			s.Resource = new(Resource)
			err = json.Unmarshal(val, s.Resource)
		case stateKeyToggle:
			s.Toggle = new(Toggle)
			err = json.Unmarshal(val, s.Toggle)
		case stateKeyFold:
			s.Fold = new(Fold)
			err = json.Unmarshal(val, s.Fold)
		case stateKeyTag:
			s.Tag = new(Tag)
			err = json.Unmarshal(val, s.Tag)
		default:
			if s.Extra == nil {
				s.Extra = map[string]json.RawMessage{}
			}
			s.Extra[key] = append(json.RawMessage(nil), val...)
		}
		if err != nil {
			return fmt.Errorf("decode state field %q: %w", key, err)
		}
	}
	return nil
}

func (s State) MarshalJSON() ([]byte, error) {
	raw := map[string]json.RawMessage{}
	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode state field %q: %w", key, err)
		}
		raw[key] = b
		return nil
	}
	if s.StackCount != nil {
		if err := put(stateKeyStack, *s.StackCount); err != nil {
			return nil, err
		}
	}
	if s.Durability != nil {
		if err := put(stateKeyRepair, s.Durability); err != nil {
			return nil, err
		}
	}
	if s.Resource != nil {
		if err := put(stateKeyResource, s.Resource); err != nil {
			return nil, err
		}
	}
	if s.Toggle != nil {
		if err := put(stateKeyToggle, s.Toggle); err != nil {
			return nil, err
		}
	}
	if s.Fold != nil {
		if err := put(stateKeyFold, s.Fold); err != nil {
			return nil, err
		}
	}
	if s.Tag != nil {
		if err := put(stateKeyTag, s.Tag); err != nil {
			return nil, err
		}
	}
	for key, val := range s.Extra {
		raw[key] = val
	}
	// Deterministic key order keeps encoded blobs comparable in tests.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, raw[k]...)
	}
	return append(buf, '}'), nil
}

// Clone copies every sub-field by value; Extra entries are copied byte-wise.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{}
	if s.StackCount != nil {
		n := *s.StackCount
		out.StackCount = &n
	}
	if s.Durability != nil {
		d := *s.Durability
		out.Durability = &d
	}
	if s.Resource != nil {
		r := *s.Resource
		out.Resource = &r
	}
	if s.Toggle != nil {
		t := *s.Toggle
		out.Toggle = &t
	}
	if s.Fold != nil {
		f := *s.Fold
		out.Fold = &f
	}
	if s.Tag != nil {
		t := *s.Tag
		out.Tag = &t
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}
