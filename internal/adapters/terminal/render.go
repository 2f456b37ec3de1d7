package terminal

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"tessera/internal/domain"
)

// Renderer writes human-readable output
type Renderer struct {
	w     io.Writer
	theme Theme
}

// NewRenderer creates a renderer writing to w
func NewRenderer(w io.Writer, theme Theme) *Renderer {
	return &Renderer{w: w, theme: theme}
}

func (r *Renderer) line(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

// Ground renders a ground widgets response
func (r *Renderer) Ground(resp domain.GroundResponse) {
	if resp.IsStale {
		r.line("%s", r.theme.Stale.Render("(cached result, refreshing in background)"))
	}
	r.Results(resp.Widgets)
}

// Results renders widget results in order, separated by blank lines
func (r *Renderer) Results(results []domain.WidgetResult) {
	if len(results) == 0 {
		r.line("%s", r.theme.MutedText.Render("no widgets"))
		return
	}
	for i, res := range results {
		if i > 0 {
			r.line("")
		}
		r.Result(res)
	}
}

// Result renders one widget result
func (r *Renderer) Result(res domain.WidgetResult) {
	r.line("%s %s", r.theme.Title.Render(res.Name), r.theme.MutedText.Render("("+res.WidgetID+")"))

	if res.IsEmpty {
		r.line("  %s", r.theme.Subtitle.Render(res.EmptyReason))
		return
	}

	switch res.Type {
	case domain.WidgetTypeSimilarity:
		for i, m := range res.Matches {
			r.line("  %d. %s %s %s", i+1,
				r.theme.Score.Render(strconv.FormatFloat(m.Score, 'f', 2, 64)),
				r.theme.Value.Render(m.Title),
				r.theme.MutedText.Render(m.Path))
		}
	default:
		hints := fieldHints(res.Display)
		width := 0
		for _, k := range res.Values.Keys() {
			width = max(width, len(labelFor(k, hints)))
		}
		for _, k := range res.Values.Keys() {
			v, _ := res.Values.Get(k)
			label := labelFor(k, hints)
			r.line("  %s %s",
				r.theme.Label.Render(label+":"+strings.Repeat(" ", width-len(label))),
				r.theme.Value.Render(FormatValue(v, formatFor(k, hints))))
		}
	}
}

// Plan renders a computation plan
func (r *Renderer) Plan(widgetID string, plan domain.ComputationPlan) {
	r.line("%s", r.theme.Title.Render("Plan for "+widgetID))
	for i, p := range plan.Phases {
		r.line("  %s %s %s",
			r.theme.Label.Render(fmt.Sprintf("phase %d", i+1)),
			r.theme.MutedText.Render("["+string(p.Scope)+"]"),
			strings.Join(p.Fields, ", "))
	}
	if len(plan.CycleFields) > 0 {
		r.line("  %s %s", r.theme.ErrorMsg.Render("cyclic:"), strings.Join(plan.CycleFields, ", "))
	}
	for _, w := range plan.Warnings {
		r.line("  %s %s", r.theme.WarningMsg.Render("warning:"), w)
	}
}

// Issues renders health issues
func (r *Renderer) Issues(issues []domain.Issue) {
	for _, issue := range issues {
		style := r.theme.WarningMsg
		if issue.Severity == domain.SeverityError {
			style = r.theme.ErrorMsg
		}
		r.line("%s %s", style.Render(string(issue.Severity)+":"), issue.Message)
	}
}

// Widgets renders the configured widgets and any configuration errors
func (r *Renderer) Widgets(widgets []domain.WidgetConfig, errs []error) {
	for _, w := range widgets {
		r.line("%s %s %s %s",
			r.theme.Label.Render(w.ID),
			r.theme.MutedText.Render(string(w.Type)+"/"+string(w.Location)),
			w.Source.Pattern,
			r.theme.Subtitle.Render(w.Name))
	}
	for _, err := range errs {
		r.line("%s %s", r.theme.ErrorMsg.Render("error:"), err)
	}
}

// Stats renders cache statistics
func (r *Renderer) Stats(stats domain.CacheStats) {
	r.line("%s %d", r.theme.Label.Render("widget entries:    "), stats.WidgetEntries)
	r.line("%s %d", r.theme.Label.Render("similarity entries:"), stats.SimilarityEntries)
	if stats.UsingFallback {
		r.line("%s", r.theme.WarningMsg.Render("cache unavailable, results are not persisted"))
	}
}

// Changes renders a file change report
func (r *Renderer) Changes(report domain.ChangeReport) {
	if len(report.InvalidatedWidgets) == 0 {
		r.line("%s", r.theme.MutedText.Render("no widgets affected"))
		return
	}
	for _, inv := range report.InvalidatedWidgets {
		r.line("%s %s", r.theme.Label.Render(inv.WidgetID), r.theme.MutedText.Render(fmt.Sprintf("%d entries invalidated", inv.Entries)))
	}
	if len(report.Recomputing) > 0 {
		r.line("%s %s", r.theme.Stale.Render("recomputing:"), strings.Join(report.Recomputing, ", "))
	}
}

// FormatValue renders a field value. format is an optional fmt verb for numbers.
func FormatValue(v any, format string) string {
	switch val := v.(type) {
	case nil:
		return "n/a"
	case float64:
		if format != "" {
			return fmt.Sprintf(format, val)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item, format)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + FormatValue(val[k], format)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(val)
	}
}

// fieldHints extracts the per-field label and format hints from a widget's display map
func fieldHints(display map[string]any) map[string]map[string]any {
	raw, ok := display["fields"].(map[string]any)
	if !ok {
		return nil
	}
	hints := make(map[string]map[string]any, len(raw))
	for name, h := range raw {
		if m, ok := h.(map[string]any); ok {
			hints[name] = m
		}
	}
	return hints
}

func labelFor(field string, hints map[string]map[string]any) string {
	if label, ok := hints[field]["label"].(string); ok && label != "" {
		return label
	}
	return field
}

func formatFor(field string, hints map[string]map[string]any) string {
	format, _ := hints[field]["format"].(string)
	return format
}
