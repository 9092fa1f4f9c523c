package domain

import (
	"encoding/json"
	"fmt"
)

// GridPlacement positions an item inside a container grid.
type GridPlacement struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Rotation string `json:"r,omitempty"`
	Searched bool   `json:"isSearched,omitempty"`
}

// Placement is a two-case variant: an item sits either at a grid coordinate
// or at an integer ordinal (cartridge position, mod index). Exactly one case
// is populated. On the wire the grid case is a JSON object and the ordinal
// case a bare number; decoding picks the case from the token shape.
type Placement struct {
	Grid    *GridPlacement
	Ordinal *int
}

// PlacementAt returns an ordinal placement.
func PlacementAt(ordinal int) *Placement {
	return &Placement{Ordinal: &ordinal}
}

// PlacementIn returns a grid placement.
func PlacementIn(g GridPlacement) *Placement {
	return &Placement{Grid: &g}
}

func (p *Placement) UnmarshalJSON(data []byte) error {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			var g GridPlacement
			if err := json.Unmarshal(data, &g); err != nil {
				return fmt.Errorf("decode grid placement: %w", err)
			}
			p.Grid = &g
			p.Ordinal = nil
			return nil
		default:
			var n int
			if err := json.Unmarshal(data, &n); err != nil {
				return fmt.Errorf("decode ordinal placement: %w", err)
			}
			p.Ordinal = &n
			p.Grid = nil
			return nil
		}
	}
	return fmt.Errorf("empty placement value")
}

func (p Placement) MarshalJSON() ([]byte, error) {
	switch {
	case p.Grid != nil:
		return json.Marshal(p.Grid)
	case p.Ordinal != nil:
		return json.Marshal(*p.Ordinal)
	default:
		return []byte("null"), nil
	}
}

// Clone copies the populated case by value.
func (p *Placement) Clone() *Placement {
	if p == nil {
		return nil
	}
	out := &Placement{}
	if p.Grid != nil {
		g := *p.Grid
		out.Grid = &g
	}
	if p.Ordinal != nil {
		n := *p.Ordinal
		out.Ordinal = &n
	}
	return out
}
