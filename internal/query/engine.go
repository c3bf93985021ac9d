package query

import (
	"sort"
	"strconv"
	"time"

	"github.com/arkilian/quarry/pkg/types"
)

// Engine evaluates QuerySpec values against tables. Evaluation is a pure
// function of (table, spec); the engine itself carries no state.
type Engine struct{}

// NewEngine creates a query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Result is the ordered output of one evaluation. Elapsed is the wall-clock
// duration of the call, exposed so callers can compare cached and uncached
// runs; it is observational, not part of correctness.
type Result struct {
	Columns []string
	Rows    []types.Row
	Elapsed time.Duration
}

// group holds one GROUP BY bucket during evaluation.
type group struct {
	keyVals []interface{}
	agg     *partialAggregate
}

// Evaluate runs the query: filter rows, partition by the group-by key
// tuple, aggregate per group, round, apply HAVING, sort. Groups that no row
// falls into never appear, so an unfiltered ungrouped query over an empty
// table yields zero rows rather than a NULL aggregate.
func (e *Engine) Evaluate(table *types.Table, spec QuerySpec) (*Result, error) {
	start := time.Now()

	if err := spec.Validate(table.Schema); err != nil {
		return nil, err
	}

	groups := make(map[string]*group)
	var order []string // group keys in first-seen order

	for _, row := range table.Rows {
		if !matchesFilters(row, spec.Filters) {
			continue
		}

		keyVals := make([]interface{}, len(spec.GroupBy))
		for i, g := range spec.GroupBy {
			keyVals[i] = groupValue(row, g)
		}
		key := groupKeyString(keyVals)

		grp, ok := groups[key]
		if !ok {
			grp = &group{
				keyVals: keyVals,
				agg:     newPartialAggregate(spec.Aggregate.Func),
			}
			groups[key] = grp
			order = append(order, key)
		}
		grp.agg.accumulate(row[spec.Aggregate.Column])
	}

	columns := spec.OutputColumns()
	aggName := spec.Aggregate.OutputName()

	rows := make([]types.Row, 0, len(groups))
	for _, key := range order {
		grp := groups[key]

		val := grp.agg.result()
		if f, ok := val.(float64); ok && spec.Aggregate.RoundDigits != nil {
			val = RoundHalfUp(f, *spec.Aggregate.RoundDigits)
		}

		if spec.Having != nil && !passesHaving(val, spec.Having) {
			continue
		}

		out := make(types.Row, len(columns))
		for i, g := range spec.GroupBy {
			out[g.OutputName()] = grp.keyVals[i]
		}
		out[aggName] = val
		rows = append(rows, out)
	}

	if spec.OrderBy != "" {
		col := spec.OrderBy
		sort.SliceStable(rows, func(i, j int) bool {
			return types.Compare(rows[i][col], rows[j][col]) < 0
		})
	}

	return &Result{
		Columns: columns,
		Rows:    rows,
		Elapsed: time.Since(start),
	}, nil
}

// matchesFilters reports whether a row satisfies every filter. NULL values
// fail every predicate, matching SQL comparison semantics.
func matchesFilters(row types.Row, filters []Filter) bool {
	for _, f := range filters {
		v := row[f.Column]
		if v == nil {
			return false
		}
		if !applyOperator(types.Compare(v, f.Value), f.Op) {
			return false
		}
	}
	return true
}

// groupValue computes one group key component for a row.
func groupValue(row types.Row, g GroupKey) interface{} {
	v := row[g.Column]
	if g.Extract == ExtractYear {
		if t, ok := v.(time.Time); ok {
			return int64(t.Year())
		}
		return nil
	}
	return v
}

// groupKeyString produces a deterministic string key from the key tuple.
// Components are quoted before joining so a separator inside a string value
// cannot make distinct tuples collide. NULL components use the shared null
// token, so rows with missing keys form their own group.
func groupKeyString(vals []interface{}) string {
	key := ""
	for i, v := range vals {
		if i > 0 {
			key += "|"
		}
		key += strconv.Quote(types.Format(v))
	}
	return key
}

// passesHaving applies the HAVING predicate to an aggregated value.
// Groups whose aggregate is NULL are dropped.
func passesHaving(val interface{}, h *Having) bool {
	f, ok := types.AsFloat(val)
	if !ok {
		return false
	}
	return applyOperator(types.Compare(f, h.Threshold), h.Op)
}

// applyOperator interprets a three-way comparison under an operator.
func applyOperator(cmp int, op Operator) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}
