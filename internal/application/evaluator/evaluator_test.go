package evaluator

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// fakeExpr evaluates expressions through a table of Go functions
type fakeExpr map[string]func(ctx ports.ExprContext) (any, error)

func (f fakeExpr) Evaluate(expr string, ctx ports.ExprContext) (any, error) {
	fn, ok := f[expr]
	if !ok {
		return nil, errors.New("unknown expression " + expr)
	}
	return fn(ctx)
}

func num(m map[string]any, key string) (float64, error) {
	n := domain.ToNumber(m[key])
	if n == nil {
		return 0, errors.New(key + " is not a number")
	}
	return *n, nil
}

// fakeAgg implements the aggregators used in these tests
type fakeAgg struct{}

func (fakeAgg) Aggregate(kind domain.AggregatorKind, values []*float64) (float64, bool) {
	var nums []float64
	for _, v := range values {
		if v != nil {
			nums = append(nums, *v)
		}
	}
	switch kind {
	case domain.AggregatorCount:
		return float64(len(nums)), true
	case domain.AggregatorSum:
		s := 0.0
		for _, n := range nums {
			s += n
		}
		return s, true
	case domain.AggregatorAvg:
		if len(nums) == 0 {
			return 0, false
		}
		s := 0.0
		for _, n := range nums {
			s += n
		}
		return s / float64(len(nums)), true
	case domain.AggregatorMax:
		if len(nums) == 0 {
			return 0, false
		}
		m := math.Inf(-1)
		for _, n := range nums {
			m = math.Max(m, n)
		}
		return m, true
	}
	return 0, false
}

type recordingSink struct {
	mu     sync.Mutex
	issues []domain.Issue
}

func (s *recordingSink) Report(issue domain.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues = append(s.issues, issue)
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.issues))
	for i, issue := range s.issues {
		ids[i] = issue.ID
	}
	return ids
}

func doc(path string, meta domain.Metadata) domain.DocumentRecord {
	return domain.DocumentRecord{Path: path, Metadata: meta}
}

func widget(fields ...domain.Field) domain.WidgetConfig {
	return domain.WidgetConfig{
		ID:       "w",
		Type:     domain.WidgetTypeAggregate,
		Location: domain.LocationGround,
		Fields:   fields,
	}
}

func exprField(name, text string) domain.Field {
	return domain.Field{Name: name, FieldConfig: domain.FieldConfig{Expr: text}}
}

func aggField(name string, kind domain.AggregatorKind, path string) domain.Field {
	return domain.Field{Name: name, FieldConfig: domain.FieldConfig{Aggregate: kind, Path: path}}
}

var exprs = fakeExpr{
	"this.rating * 2": func(ctx ports.ExprContext) (any, error) {
		r, err := num(ctx.This, "rating")
		return r * 2, err
	},
	"this.rating + 1": func(ctx ports.ExprContext) (any, error) {
		r, err := num(ctx.This, "rating")
		return r + 1, err
	},
	"result.y * 2 + result.bonus": func(ctx ports.ExprContext) (any, error) {
		y, err := num(ctx.Result, "y")
		if err != nil {
			return nil, err
		}
		b, err := num(ctx.Result, "bonus")
		return y*2 + b, err
	},
	"result.total / result.count": func(ctx ports.ExprContext) (any, error) {
		total, err := num(ctx.Result, "total")
		if err != nil {
			return nil, err
		}
		n, err := num(ctx.Stats, "count")
		return total / n, err
	},
	"result.a + 1": func(ctx ports.ExprContext) (any, error) {
		a, err := num(ctx.Result, "a")
		return a + 1, err
	},
	"result.b + 1": func(ctx ports.ExprContext) (any, error) {
		b, err := num(ctx.Result, "b")
		return b + 1, err
	},
	"boom": func(ports.ExprContext) (any, error) {
		return nil, errors.New("syntax error")
	},
	"'ok'": func(ports.ExprContext) (any, error) {
		return "ok", nil
	},
	"3": func(ports.ExprContext) (any, error) {
		return 3, nil
	},
	"1 / 0": func(ports.ExprContext) (any, error) {
		return math.Inf(1), nil
	},
}

func TestEvaluate_AggregateOverPerDocumentExpression(t *testing.T) {
	sink := &recordingSink{}
	e := New(exprs, fakeAgg{}, sink, nil)

	w := widget(
		aggField("avg_score", domain.AggregatorAvg, "result.z"),
		exprField("z", "this.rating * 2"),
	)
	docs := []domain.DocumentRecord{
		doc("a.md", domain.Metadata{"rating": 3}),
		doc("b.md", domain.Metadata{"rating": 5}),
	}

	got := e.Evaluate(w, docs, nil)

	avg, _ := got.Get("avg_score")
	assert.Equal(t, 8.0, avg)

	// Ground evaluation has no current document, so z itself cannot be computed
	z, ok := got.Get("z")
	assert.True(t, ok)
	assert.Nil(t, z)
	assert.Equal(t, []string{"widget-expr:w:z"}, sink.ids())
}

func TestEvaluate_NestedResultChain(t *testing.T) {
	e := New(exprs, fakeAgg{}, nil, nil)

	w := widget(
		aggField("total", domain.AggregatorSum, "result.z"),
		exprField("z", "result.y * 2 + result.bonus"),
		exprField("y", "this.rating + 1"),
		domain.Field{Name: "bonus", FieldConfig: domain.FieldConfig{Value: 10, HasValue: true}},
	)
	docs := []domain.DocumentRecord{
		doc("a.md", domain.Metadata{"rating": 1}),
		doc("b.md", domain.Metadata{"rating": 2}),
	}

	got := e.Evaluate(w, docs, nil)

	// y = 2, 3 -> z = 14, 16
	total, _ := got.Get("total")
	assert.Equal(t, 30.0, total)
	bonus, _ := got.Get("bonus")
	assert.Equal(t, 10.0, bonus)
}

func TestEvaluate_FailingDocumentContributesNothing(t *testing.T) {
	e := New(exprs, fakeAgg{}, nil, nil)

	w := widget(
		aggField("best", domain.AggregatorMax, "result.z"),
		aggField("avg", domain.AggregatorAvg, "result.z"),
		domain.Field{Name: "z", FieldConfig: domain.FieldConfig{Expr: "this.rating * 2", Hidden: true}},
	)
	docs := []domain.DocumentRecord{
		doc("a.md", domain.Metadata{"rating": 4}),
		doc("b.md", domain.Metadata{"title": "unrated"}),
		doc("c.md", domain.Metadata{"rating": "1"}),
	}

	got := e.Evaluate(w, docs, nil)

	best, _ := got.Get("best")
	avg, _ := got.Get("avg")
	assert.Equal(t, 8.0, best)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, []string{"best", "avg"}, got.Keys())
}

func TestEvaluate_CycleFieldsAreNulled(t *testing.T) {
	sink := &recordingSink{}
	e := New(exprs, fakeAgg{}, sink, nil)

	w := widget(
		exprField("a", "result.b + 1"),
		exprField("b", "result.a + 1"),
		aggField("total", domain.AggregatorSum, "pages"),
		exprField("per_doc", "result.total / result.count"),
	)
	docs := []domain.DocumentRecord{
		doc("a.md", domain.Metadata{"pages": 100}),
		doc("b.md", domain.Metadata{"pages": 300}),
	}

	got := e.Evaluate(w, docs, nil)

	a, ok := got.Get("a")
	assert.True(t, ok)
	assert.Nil(t, a)
	b, _ := got.Get("b")
	assert.Nil(t, b)

	total, _ := got.Get("total")
	assert.Equal(t, 400.0, total)
	perDoc, _ := got.Get("per_doc")
	assert.Equal(t, 200.0, perDoc)

	assert.Equal(t, []string{"widget-cycle:w:a", "widget-cycle:w:b"}, sink.ids())
}

func TestEvaluate_SelfReferenceWarnsOnce(t *testing.T) {
	sink := &recordingSink{}
	e := New(exprs, fakeAgg{}, sink, nil)

	got := e.Evaluate(widget(exprField("a", "result.a + 1")), nil, nil)

	a, _ := got.Get("a")
	assert.Nil(t, a)
	require.Len(t, sink.issues, 1)
	assert.Equal(t, domain.SeverityWarning, sink.issues[0].Severity)
	assert.Contains(t, sink.issues[0].Message, "references itself")
}

func TestEvaluate_ExpressionErrorDoesNotStopOtherFields(t *testing.T) {
	sink := &recordingSink{}
	e := New(exprs, fakeAgg{}, sink, nil)

	got := e.Evaluate(widget(
		exprField("broken", "boom"),
		exprField("fine", "'ok'"),
	), nil, nil)

	broken, _ := got.Get("broken")
	fine, _ := got.Get("fine")
	assert.Nil(t, broken)
	assert.Equal(t, "ok", fine)

	require.Len(t, sink.issues, 1)
	assert.Equal(t, "widget-expr:w:broken", sink.issues[0].ID)
	assert.Equal(t, "boom", sink.issues[0].Details["expr"])
}

func TestEvaluate_BroadcastsCollectionValues(t *testing.T) {
	e := New(exprs, fakeAgg{}, nil, nil)

	w := widget(
		domain.Field{Name: "n", FieldConfig: domain.FieldConfig{Aggregate: domain.AggregatorCount}},
		aggField("s", domain.AggregatorSum, "result.n"),
	)
	docs := []domain.DocumentRecord{doc("a.md", nil), doc("b.md", nil), doc("c.md", nil)}

	got := e.Evaluate(w, docs, nil)

	n, _ := got.Get("n")
	s, _ := got.Get("s")
	assert.Equal(t, 3.0, n)
	assert.Equal(t, 9.0, s)
}

func TestEvaluate_CountOverPathCountsNumbers(t *testing.T) {
	e := New(exprs, fakeAgg{}, nil, nil)

	got := e.Evaluate(widget(aggField("rated", domain.AggregatorCount, "this.rating")), []domain.DocumentRecord{
		doc("a.md", domain.Metadata{"rating": 1}),
		doc("b.md", domain.Metadata{}),
		doc("c.md", domain.Metadata{"rating": 2.5}),
	}, nil)

	rated, _ := got.Get("rated")
	assert.Equal(t, 2.0, rated)
}

func TestEvaluate_OutputOnlyDeclaredVisibleFields(t *testing.T) {
	e := New(exprs, fakeAgg{}, nil, nil)

	w := widget(
		exprField("three", "3"),
		domain.Field{Name: "hidden", FieldConfig: domain.FieldConfig{Value: "x", HasValue: true, Hidden: true}},
		aggField("avg", domain.AggregatorAvg, "rating"),
	)

	got := e.Evaluate(w, nil, nil)

	assert.Equal(t, []string{"three", "avg"}, got.Keys())
	_, hasCount := got.Get(CountField)
	assert.False(t, hasCount)

	three, _ := got.Get("three")
	assert.Equal(t, 3.0, three, "numbers are normalised to float64")
	avg, _ := got.Get("avg")
	assert.Nil(t, avg, "average of nothing is undefined")
}

func TestEvaluate_RecallUsesCurrentDocument(t *testing.T) {
	e := New(exprs, fakeAgg{}, nil, nil)

	w := widget(exprField("z", "this.rating * 2"))
	w.Location = domain.LocationRecall
	current := doc("a.md", domain.Metadata{"rating": 4})

	got := e.Evaluate(w, []domain.DocumentRecord{current}, &current)

	z, _ := got.Get("z")
	assert.Equal(t, 8.0, z)
}

func TestEvaluate_NonFiniteNumbersBecomeNil(t *testing.T) {
	e := New(exprs, fakeAgg{}, nil, nil)

	w := widget(
		exprField("ratio", "1 / 0"),
		domain.Field{Name: "lit", FieldConfig: domain.FieldConfig{Value: math.NaN(), HasValue: true}},
		aggField("best", domain.AggregatorMax, "pages"),
		aggField("total", domain.AggregatorSum, "pages"),
		aggField("n", domain.AggregatorCount, "pages"),
	)
	docs := []domain.DocumentRecord{
		doc("a.md", domain.Metadata{"pages": math.Inf(1)}),
		doc("b.md", domain.Metadata{"pages": 10}),
	}

	got := e.Evaluate(w, docs, nil)

	for _, name := range []string{"ratio", "lit", "best", "total"} {
		v, ok := got.Get(name)
		assert.True(t, ok, name)
		assert.Nil(t, v, name)
	}
	n, _ := got.Get("n")
	assert.Equal(t, 2.0, n)

	_, err := json.Marshal(got)
	assert.NoError(t, err)
}

func TestNormalize(t *testing.T) {
	in := map[string]any{
		"i":    int64(2),
		"list": []any{1, "a", map[string]any{"u": uint8(3)}},
	}
	in["inf"] = math.Inf(-1)
	in["nan"] = []any{math.NaN()}
	want := map[string]any{
		"inf":  nil,
		"nan":  []any{nil},
		"i":    2.0,
		"list": []any{1.0, "a", map[string]any{"u": 3.0}},
	}
	assert.Equal(t, want, normalize(in))
}
