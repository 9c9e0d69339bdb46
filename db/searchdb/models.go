package searchdb

import (
	"encoding/json"
	"fmt"
	"time"
)

type Document struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Content string    `json:"content"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Pair is the wire shape of a single search hit: a JSON 2-tuple of
// [path, rank], not an object.
type Pair struct {
	Path string
	Rank float64
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Path, p.Rank})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("expected a [path, rank] pair, got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &p.Path); err != nil {
		return fmt.Errorf("pair path is not a string: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &p.Rank); err != nil {
		return fmt.Errorf("pair rank is not a number: %w", err)
	}
	return nil
}

type Response struct {
	Pairs      []Pair `json:"pairs"`
	Total      uint64 `json:"total"`
	SearchTime string `json:"search_time"`
}
