// Package query provides the aggregate query engine: evaluation of a closed
// family of SELECT-like aggregate query shapes against an in-memory table.
// Queries are structured QuerySpec values, not SQL text; free-form parsing
// is out of scope.
package query

import (
	"fmt"
	"strings"

	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/pkg/types"
)

// Operator is a comparison operator used by filters and HAVING clauses.
type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
)

// Extraction names a derived value taken from a column instead of the raw
// column value. Only year-of-date extraction is supported.
type Extraction string

const (
	ExtractNone Extraction = ""
	ExtractYear Extraction = "year"
)

// GroupKey is one GROUP BY key: a plain column, or a year extraction over a
// date column. As names the output column; it defaults to the column name
// (or "year" for an extraction).
type GroupKey struct {
	Column  string     `json:"column"`
	Extract Extraction `json:"extract,omitempty"`
	As      string     `json:"as,omitempty"`
}

// OutputName returns the result column name for this group key.
func (g GroupKey) OutputName() string {
	if g.As != "" {
		return g.As
	}
	if g.Extract == ExtractYear {
		return "year"
	}
	return g.Column
}

// Filter is one ANDed row predicate: column op value.
type Filter struct {
	Column string      `json:"column"`
	Op     Operator    `json:"op"`
	Value  interface{} `json:"value"`
}

// AggregateFunc names an aggregate function.
type AggregateFunc string

const (
	AggAvg   AggregateFunc = "AVG"
	AggSum   AggregateFunc = "SUM"
	AggCount AggregateFunc = "COUNT"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// Aggregate describes the single aggregate computed per group.
// RoundDigits, when set, rounds the aggregated value half-up to that many
// decimal digits.
type Aggregate struct {
	Func        AggregateFunc `json:"func"`
	Column      string        `json:"column"`
	As          string        `json:"as,omitempty"`
	RoundDigits *int          `json:"round_digits,omitempty"`
}

// OutputName returns the result column name for the aggregate.
func (a Aggregate) OutputName() string {
	if a.As != "" {
		return a.As
	}
	return strings.ToLower(string(a.Func)) + "_" + a.Column
}

// Having filters groups by their aggregated value, after rounding.
type Having struct {
	Op        Operator `json:"op"`
	Threshold float64  `json:"threshold"`
}

// QuerySpec is one query in the closed aggregate family:
//
//	SELECT <groupBy...>, <agg> FROM t
//	WHERE <filters ANDed>
//	GROUP BY <groupBy...>
//	HAVING <agg> <op> <threshold>
//	ORDER BY <orderBy> ASC
type QuerySpec struct {
	GroupBy   []GroupKey `json:"group_by,omitempty"`
	Filters   []Filter   `json:"filters,omitempty"`
	Aggregate Aggregate  `json:"aggregate"`
	Having    *Having    `json:"having,omitempty"`
	OrderBy   string     `json:"order_by,omitempty"`
}

// OutputColumns returns the result column names in order: group keys in
// GROUP BY order, then the aggregate output.
func (q QuerySpec) OutputColumns() []string {
	cols := make([]string, 0, len(q.GroupBy)+1)
	for _, g := range q.GroupBy {
		cols = append(cols, g.OutputName())
	}
	return append(cols, q.Aggregate.OutputName())
}

// Validate checks the spec against a table schema. Every referenced column
// must exist; AVG and SUM require a numeric target; year extraction
// requires a date column; OrderBy must name an output column.
func (q QuerySpec) Validate(schema types.Schema) error {
	for _, f := range q.Filters {
		if _, ok := schema.Column(f.Column); !ok {
			return qerrors.NewColumnNotFound(f.Column)
		}
	}

	for _, g := range q.GroupBy {
		col, ok := schema.Column(g.Column)
		if !ok {
			return qerrors.NewColumnNotFound(g.Column)
		}
		if g.Extract == ExtractYear && col.Type != types.TypeDate {
			return qerrors.NewTypeMismatch(g.Column,
				fmt.Sprintf("year extraction requires a date column, got %s", col.Type))
		}
		if g.Extract != ExtractNone && g.Extract != ExtractYear {
			return qerrors.New(qerrors.ErrCategoryQuery, qerrors.CodeInvalidSpec,
				fmt.Sprintf("unknown extraction %q", g.Extract))
		}
	}

	switch q.Aggregate.Func {
	case AggAvg, AggSum, AggCount, AggMin, AggMax:
	default:
		return qerrors.New(qerrors.ErrCategoryQuery, qerrors.CodeInvalidSpec,
			fmt.Sprintf("unknown aggregate function %q", q.Aggregate.Func))
	}

	col, ok := schema.Column(q.Aggregate.Column)
	if !ok {
		return qerrors.NewColumnNotFound(q.Aggregate.Column)
	}
	if (q.Aggregate.Func == AggAvg || q.Aggregate.Func == AggSum) && !col.Type.IsNumeric() {
		return qerrors.NewTypeMismatch(q.Aggregate.Column,
			fmt.Sprintf("cannot %s a %s column", q.Aggregate.Func, col.Type))
	}

	if q.OrderBy != "" {
		found := false
		for _, c := range q.OutputColumns() {
			if c == q.OrderBy {
				found = true
				break
			}
		}
		if !found {
			return qerrors.NewColumnNotFound(q.OrderBy)
		}
	}

	return nil
}
