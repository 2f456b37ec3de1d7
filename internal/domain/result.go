package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FieldValues is an insertion-ordered field name → value map.
// It encodes as a JSON object with keys in insertion order.
type FieldValues struct {
	keys   []string
	values map[string]any
}

// NewFieldValues creates an empty FieldValues
func NewFieldValues() *FieldValues {
	return &FieldValues{values: make(map[string]any)}
}

// Set stores a value, keeping the original position of an existing key
func (v *FieldValues) Set(name string, value any) {
	if v.values == nil {
		v.values = make(map[string]any)
	}
	if _, ok := v.values[name]; !ok {
		v.keys = append(v.keys, name)
	}
	v.values[name] = value
}

// Get returns the value stored for name
func (v *FieldValues) Get(name string) (any, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.values[name]
	return val, ok
}

// Keys returns field names in insertion order
func (v *FieldValues) Keys() []string {
	if v == nil {
		return nil
	}
	return v.keys
}

// Len returns the number of fields
func (v *FieldValues) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Map returns an unordered copy of the values
func (v *FieldValues) Map() map[string]any {
	out := make(map[string]any, v.Len())
	for _, k := range v.Keys() {
		out[k] = v.values[k]
	}
	return out
}

// MarshalJSON implements json.Marshaler
func (v FieldValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order
func (v *FieldValues) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("field values: expected object, got %v", tok)
	}

	*v = FieldValues{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("field values: expected key, got %v", tok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		v.Set(key, val)
	}

	_, err = dec.Token()
	return err
}

// DimensionScore is the per-dimension part of a similarity comparison
type DimensionScore struct {
	Field   string  `json:"field"`
	Method  string  `json:"method"`
	Weight  float64 `json:"weight"`
	Score   float64 `json:"score"`
	Skipped bool    `json:"skipped"`
}

// Comparison is the weighted similarity of two documents
type Comparison struct {
	Score      float64          `json:"score"`
	Dimensions []DimensionScore `json:"dimensions"`
}

// SimilarityMatch is one ranked document
type SimilarityMatch struct {
	Path       string           `json:"path"`
	Score      float64          `json:"score"`
	Dimensions []DimensionScore `json:"dimensions"`
	Title      string           `json:"title"`
}

// WidgetResult is the computed output of one widget.
// Aggregate widgets fill Values, similarity widgets fill Matches.
type WidgetResult struct {
	WidgetID      string            `json:"widgetId"`
	Name          string            `json:"name"`
	Type          WidgetType        `json:"type"`
	Location      Location          `json:"location"`
	Display       map[string]any    `json:"display,omitempty"`
	Values        *FieldValues      `json:"values,omitempty"`
	Matches       []SimilarityMatch `json:"matches,omitempty"`
	Editable      bool              `json:"editable"`
	IsEmpty       bool              `json:"isEmpty"`
	EmptyReason   string            `json:"emptyReason,omitempty"`
	ComputeTimeMs int64             `json:"computeTimeMs"`
}

// NewWidgetResult creates a result shell carrying the widget's identity
func NewWidgetResult(w WidgetConfig) WidgetResult {
	return WidgetResult{
		WidgetID: w.ID,
		Name:     w.Name,
		Type:     w.Type,
		Location: w.Location,
		Display:  w.Display,
		Editable: w.Editable,
	}
}

// GroundResponse is the answer to a request for all ground widgets
type GroundResponse struct {
	Widgets    []WidgetResult `json:"widgets"`
	IsStale    bool           `json:"isStale"`
	ComputedAt time.Time      `json:"computedAt"`
}

// InvalidatedWidget reports the cache entries dropped for one widget
type InvalidatedWidget struct {
	WidgetID string `json:"widgetId"`
	Entries  int    `json:"entries"`
}

// ChangeReport is the outcome of handling a batch of changed files
type ChangeReport struct {
	InvalidatedWidgets []InvalidatedWidget `json:"invalidatedWidgets"`
	Recomputing        []string            `json:"recomputing,omitempty"`
}

// CacheStats summarises the result cache
type CacheStats struct {
	UsingFallback     bool `json:"usingFallback"`
	WidgetEntries     int  `json:"widgetEntries"`
	SimilarityEntries int  `json:"similarityEntries"`
}
