// Package widgetconfig loads widget definitions from a YAML file.
package widgetconfig

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tessera/internal/application"
	"tessera/internal/domain"
	"tessera/internal/ports"
)

// DefaultLimit is the similarity limit used when neither the widget nor the loader sets one
const DefaultLimit = 10

// Loader implements ports.WidgetLoader for a widgets.yaml file
type Loader struct {
	path         string
	defaultLimit int
	logger       *slog.Logger
}

// Ensure Loader implements WidgetLoader
var _ ports.WidgetLoader = (*Loader)(nil)

// New creates a Loader reading path
func New(path string, defaultLimit int, logger *slog.Logger) *Loader {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{path: path, defaultLimit: defaultLimit, logger: logger}
}

// Path returns the widget definitions file
func (l *Loader) Path() string {
	return l.path
}

// Load reads and parses the widget definitions file
func (l *Loader) Load(ctx context.Context) ([]domain.WidgetConfig, []error) {
	if err := ctx.Err(); err != nil {
		return nil, []error{err}
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, []error{fmt.Errorf("read widget definitions: %w", err)}
	}

	widgets, errs := Parse(data, l.defaultLimit)
	l.logger.Debug("widget definitions parsed", "path", l.path, "widgets", len(widgets), "errors", len(errs))
	return widgets, errs
}

type rawFile struct {
	Widgets []rawWidget `yaml:"widgets"`
}

type rawWidget struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Location string `yaml:"location"`
	Source   struct {
		Pattern string `yaml:"pattern"`
	} `yaml:"source"`
	Fields     yaml.Node      `yaml:"fields"`
	Dimensions []rawDimension `yaml:"dimensions"`
	Limit      *int           `yaml:"limit"`
	Display    map[string]any `yaml:"display"`
	Editable   bool           `yaml:"editable"`
}

type rawDimension struct {
	Field  string   `yaml:"field"`
	Method string   `yaml:"method"`
	Weight *float64 `yaml:"weight"`
}

type rawField struct {
	Count   yaml.Node `yaml:"count"`
	Sum     string    `yaml:"sum"`
	Avg     string    `yaml:"avg"`
	Min     string    `yaml:"min"`
	Max     string    `yaml:"max"`
	Stddev  string    `yaml:"stddev"`
	Expr    string    `yaml:"expr"`
	Value   yaml.Node `yaml:"value"`
	Visible *bool     `yaml:"visible"`
	Label   string    `yaml:"label"`
	Format  string    `yaml:"format"`
}

// Parse converts a widget definitions document into widget configs.
// Invalid widgets are reported and left out; the remaining widgets keep file order.
func Parse(data []byte, defaultLimit int) ([]domain.WidgetConfig, []error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	var file rawFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, []error{fmt.Errorf("parse widget definitions: %w", err)}
	}

	var (
		widgets []domain.WidgetConfig
		errs    []error
		seen    = make(map[string]bool)
	)
	for i, raw := range file.Widgets {
		w, widgetErrs := convertWidget(raw, defaultLimit)
		if len(widgetErrs) == 0 {
			widgetErrs = application.ValidateWidget(w)
		}
		if w.ID != "" && seen[w.ID] {
			widgetErrs = append(widgetErrs, &application.ValidationError{
				Field:   fmt.Sprintf("widgets[%d].id", i),
				Message: fmt.Sprintf("duplicate widget id %q", w.ID),
			})
		}
		if len(widgetErrs) > 0 {
			errs = append(errs, widgetErrs...)
			continue
		}
		seen[w.ID] = true
		widgets = append(widgets, w)
	}
	return widgets, errs
}

func convertWidget(raw rawWidget, defaultLimit int) (domain.WidgetConfig, []error) {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &application.ValidationError{
			Field:   fmt.Sprintf("widgets[%s].%s", raw.ID, field),
			Message: fmt.Sprintf(format, args...),
		})
	}

	w := domain.WidgetConfig{
		ID:       strings.TrimSpace(raw.ID),
		Name:     raw.Name,
		Source:   domain.SourceConfig{Pattern: strings.TrimSpace(raw.Source.Pattern)},
		Display:  raw.Display,
		Editable: raw.Editable,
	}
	if w.Name == "" {
		w.Name = w.ID
	}

	typ := raw.Type
	if typ == "" {
		typ = string(domain.WidgetTypeAggregate)
	}
	t, err := domain.ParseWidgetType(typ)
	if err != nil {
		fail("type", "%s", err)
	}
	w.Type = t

	loc := raw.Location
	if loc == "" {
		loc = string(domain.LocationGround)
	}
	l, err := domain.ParseLocation(loc)
	if err != nil {
		fail("location", "%s", err)
	}
	w.Location = l

	if raw.Fields.Kind != 0 {
		fields, fieldErrs := convertFields(raw.ID, &raw.Fields)
		errs = append(errs, fieldErrs...)
		w.Fields = fields
	}

	for _, d := range raw.Dimensions {
		weight := 1.0
		if d.Weight != nil {
			weight = *d.Weight
		}
		w.Dimensions = append(w.Dimensions, domain.DimensionConfig{
			Field:  strings.TrimSpace(d.Field),
			Method: d.Method,
			Weight: weight,
		})
	}

	if w.Type == domain.WidgetTypeSimilarity {
		w.Limit = defaultLimit
		if raw.Limit != nil {
			w.Limit = *raw.Limit
		}
	}

	if labels := fieldDisplay(w.Fields); len(labels) > 0 {
		display := make(map[string]any, len(w.Display)+1)
		for k, v := range w.Display {
			display[k] = v
		}
		display["fields"] = labels
		w.Display = display
	}

	return w, errs
}

// convertFields walks the fields mapping node so declaration order survives
func convertFields(widgetID string, node *yaml.Node) (domain.Fields, []error) {
	var errs []error
	fail := func(name, format string, args ...any) {
		errs = append(errs, &application.ValidationError{
			Field:   fmt.Sprintf("widgets[%s].fields.%s", widgetID, name),
			Message: fmt.Sprintf(format, args...),
		})
	}

	if node.Kind != yaml.MappingNode {
		fail("", "fields must be a mapping of field name to definition")
		return nil, errs
	}

	var fields domain.Fields
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := strings.TrimSpace(node.Content[i].Value)

		var raw rawField
		if err := node.Content[i+1].Decode(&raw); err != nil {
			fail(name, "invalid field definition: %s", err)
			continue
		}

		cfg, err := convertField(raw)
		if err != nil {
			fail(name, "%s", err)
			continue
		}
		fields = append(fields, domain.Field{Name: name, FieldConfig: cfg})
	}
	return fields, errs
}

func convertField(raw rawField) (domain.FieldConfig, error) {
	cfg := domain.FieldConfig{
		Expr:   strings.TrimSpace(raw.Expr),
		Label:  raw.Label,
		Format: raw.Format,
		Hidden: raw.Visible != nil && !*raw.Visible,
	}

	var kinds []domain.AggregatorKind
	if raw.Count.Kind == yaml.ScalarNode {
		switch raw.Count.Tag {
		case "!!bool":
			var on bool
			if err := raw.Count.Decode(&on); err != nil {
				return cfg, err
			}
			if on {
				kinds = append(kinds, domain.AggregatorCount)
			}
		case "!!null":
		default:
			kinds = append(kinds, domain.AggregatorCount)
			cfg.Path = strings.TrimSpace(raw.Count.Value)
		}
	} else if raw.Count.Kind != 0 {
		return cfg, fmt.Errorf("count must be true or a field path")
	}

	for _, sel := range []struct {
		kind domain.AggregatorKind
		path string
	}{
		{domain.AggregatorSum, raw.Sum},
		{domain.AggregatorAvg, raw.Avg},
		{domain.AggregatorMin, raw.Min},
		{domain.AggregatorMax, raw.Max},
		{domain.AggregatorStddev, raw.Stddev},
	} {
		if strings.TrimSpace(sel.path) != "" {
			kinds = append(kinds, sel.kind)
			cfg.Path = strings.TrimSpace(sel.path)
		}
	}
	if len(kinds) > 1 {
		return cfg, fmt.Errorf("only one aggregator per field, got %d", len(kinds))
	}
	if len(kinds) == 1 {
		cfg.Aggregate = kinds[0]
	}

	if raw.Value.Kind != 0 {
		var v any
		if err := raw.Value.Decode(&v); err != nil {
			return cfg, fmt.Errorf("invalid value: %w", err)
		}
		cfg.Value = v
		cfg.HasValue = true
	}

	return cfg, nil
}

// fieldDisplay collects label and format hints per field
func fieldDisplay(fields domain.Fields) map[string]any {
	out := make(map[string]any)
	for _, f := range fields {
		hints := map[string]any{}
		if f.Label != "" {
			hints["label"] = f.Label
		}
		if f.Format != "" {
			hints["format"] = f.Format
		}
		if len(hints) > 0 {
			out[f.Name] = hints
		}
	}
	return out
}
