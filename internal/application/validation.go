package application

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"tessera/internal/domain"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", formatFieldName(fieldName)),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "widgetID" -> "widget ID")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"widgetID":       "widget ID",
		"sourcePath":     "source path",
		"source.pattern": "source pattern",
		"vaultPath":      "vault path",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}
	return fieldName
}

// ValidatePattern checks that a glob pattern is well formed
func ValidatePattern(fieldName, pattern string) error {
	if err := ValidateRequired(fieldName, pattern); err != nil {
		return err
	}
	if !doublestar.ValidatePattern(pattern) {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("malformed glob pattern: %s", pattern),
		}
	}
	return nil
}

var dimensionMethods = map[string]bool{
	"exact":   true,
	"numeric": true,
	"jaccard": true,
	"text":    true,
}

// ValidateWidget checks a loaded widget definition and returns every problem found
func ValidateWidget(w domain.WidgetConfig) []error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Field:   fmt.Sprintf("widgets[%s].%s", w.ID, field),
			Message: fmt.Sprintf(format, args...),
		})
	}

	if err := ValidateRequired("widgetID", w.ID); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePattern("source.pattern", w.Source.Pattern); err != nil {
		add("source.pattern", "%s", err.(*ValidationError).Message)
	}

	if w.Location != domain.LocationGround && w.Location != domain.LocationRecall {
		add("location", "unknown widget location %q", w.Location)
	}

	switch w.Type {
	case domain.WidgetTypeAggregate:
		if len(w.Fields) == 0 {
			add("fields", "aggregate widget needs at least one field")
		}
		seen := make(map[string]bool, len(w.Fields))
		for _, f := range w.Fields {
			if seen[f.Name] {
				add("fields."+f.Name, "duplicate field name")
			}
			seen[f.Name] = true

			kinds := 0
			for _, set := range []bool{f.IsAggregator(), f.IsExpression(), f.IsLiteral()} {
				if set {
					kinds++
				}
			}
			if kinds != 1 {
				add("fields."+f.Name, "exactly one of count, sum, avg, min, max, stddev, expr or value is required")
			}
			if f.Aggregate != domain.AggregatorCount && f.IsAggregator() && strings.TrimSpace(f.Path) == "" {
				add("fields."+f.Name, "%s needs a field path", f.Aggregate)
			}
		}
	case domain.WidgetTypeSimilarity:
		if len(w.Dimensions) == 0 {
			add("dimensions", "similarity widget needs at least one dimension")
		}
		for i, d := range w.Dimensions {
			if strings.TrimSpace(d.Field) == "" {
				add(fmt.Sprintf("dimensions[%d].field", i), "field is required")
			}
			if !dimensionMethods[d.Method] {
				add(fmt.Sprintf("dimensions[%d].method", i), "unknown method %q", d.Method)
			}
			if d.Weight < 0 {
				add(fmt.Sprintf("dimensions[%d].weight", i), "weight must not be negative")
			}
		}
		if w.Location != domain.LocationRecall {
			add("location", "similarity widgets need a source document and must use location recall")
		}
		if w.Limit < 0 {
			add("limit", "limit must not be negative")
		}
	default:
		add("type", "unknown widget type %q", w.Type)
	}

	return errs
}
