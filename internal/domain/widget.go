package domain

import "fmt"

// WidgetType distinguishes aggregate widgets from similarity widgets
type WidgetType string

const (
	WidgetTypeAggregate  WidgetType = "aggregate"
	WidgetTypeSimilarity WidgetType = "similarity"
)

// ParseWidgetType converts a config string into a WidgetType
func ParseWidgetType(s string) (WidgetType, error) {
	switch WidgetType(s) {
	case WidgetTypeAggregate, WidgetTypeSimilarity:
		return WidgetType(s), nil
	default:
		return "", fmt.Errorf("unknown widget type: %q", s)
	}
}

// Location says where a widget is shown: once for the whole vault (ground)
// or relative to the document being viewed (recall)
type Location string

const (
	LocationGround Location = "ground"
	LocationRecall Location = "recall"
)

// ParseLocation converts a config string into a Location
func ParseLocation(s string) (Location, error) {
	switch Location(s) {
	case LocationGround, LocationRecall:
		return Location(s), nil
	default:
		return "", fmt.Errorf("unknown widget location: %q", s)
	}
}

// AggregatorKind names a scalar aggregation
type AggregatorKind string

const (
	AggregatorNone   AggregatorKind = ""
	AggregatorCount  AggregatorKind = "count"
	AggregatorSum    AggregatorKind = "sum"
	AggregatorAvg    AggregatorKind = "avg"
	AggregatorMin    AggregatorKind = "min"
	AggregatorMax    AggregatorKind = "max"
	AggregatorStddev AggregatorKind = "stddev"
)

// PathAggregators are the aggregators that require a field path
var PathAggregators = []AggregatorKind{
	AggregatorSum,
	AggregatorAvg,
	AggregatorMin,
	AggregatorMax,
	AggregatorStddev,
}

// FieldConfig defines how a single widget field is computed.
// Exactly one of Aggregate, Expr or HasValue is set.
type FieldConfig struct {
	Aggregate AggregatorKind
	Path      string // raw field path for Aggregate; empty for a bare count
	Expr      string
	Value     any
	HasValue  bool
	Hidden    bool
	Label     string
	Format    string
}

// IsAggregator reports whether the field is computed over the whole collection
func (f FieldConfig) IsAggregator() bool {
	return f.Aggregate != AggregatorNone
}

// IsExpression reports whether the field is an expression
func (f FieldConfig) IsExpression() bool {
	return f.Expr != ""
}

// IsLiteral reports whether the field is a constant value
func (f FieldConfig) IsLiteral() bool {
	return f.HasValue
}

// Visible reports whether the field appears in the widget output
func (f FieldConfig) Visible() bool {
	return !f.Hidden
}

// Field is a named FieldConfig
type Field struct {
	Name string
	FieldConfig
}

// Fields is the ordered set of fields of one aggregate widget.
// Order is the declaration order from the widget config.
type Fields []Field

// Lookup finds a field by name
func (fs Fields) Lookup(name string) (FieldConfig, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.FieldConfig, true
		}
	}
	return FieldConfig{}, false
}

// Names returns the field names in declaration order
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// DimensionConfig is one weighted comparison axis of a similarity widget
type DimensionConfig struct {
	Field  string  `json:"field"`
	Method string  `json:"method"`
	Weight float64 `json:"weight"`
}

// SourceConfig selects the documents a widget is computed over
type SourceConfig struct {
	Pattern string
}

// WidgetConfig is an immutable widget definition
type WidgetConfig struct {
	ID         string
	Name       string
	Type       WidgetType
	Location   Location
	Source     SourceConfig
	Fields     Fields            // aggregate only
	Dimensions []DimensionConfig // similarity only
	Limit      int               // similarity only
	Display    map[string]any
	Editable   bool
}

// IsGround reports whether the widget is computed once for the whole vault
func (w WidgetConfig) IsGround() bool {
	return w.Location == LocationGround
}
