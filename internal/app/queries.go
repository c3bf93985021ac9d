package app

import "github.com/arkilian/quarry/internal/query"

// demoQuery pairs a timing label with a QuerySpec.
type demoQuery struct {
	label string
	spec  query.QuerySpec
}

func round2() *int {
	n := 2
	return &n
}

// demoQueries returns the four fixed home-sales queries, in tutorial order:
//
//  1. average price of 4-bedroom houses per year sold
//  2. average price per build year for 3 bed / 3 bath houses
//  3. same, restricted to 2 floors and at least 2000 sqft
//  4. average price per view rating, keeping ratings averaging >= 350k
func demoQueries() []demoQuery {
	return []demoQuery{
		{
			label: "avg-price-4br-by-year",
			spec: query.QuerySpec{
				GroupBy: []query.GroupKey{{Column: "date", Extract: query.ExtractYear}},
				Filters: []query.Filter{
					{Column: "bedrooms", Op: query.OpEq, Value: int64(4)},
				},
				Aggregate: query.Aggregate{
					Func: query.AggAvg, Column: "price", As: "average_price", RoundDigits: round2(),
				},
				OrderBy: "year",
			},
		},
		{
			label: "avg-price-3br3ba-by-built",
			spec: query.QuerySpec{
				GroupBy: []query.GroupKey{{Column: "date_built"}},
				Filters: []query.Filter{
					{Column: "bedrooms", Op: query.OpEq, Value: int64(3)},
					{Column: "bathrooms", Op: query.OpEq, Value: int64(3)},
				},
				Aggregate: query.Aggregate{
					Func: query.AggAvg, Column: "price", As: "average_price", RoundDigits: round2(),
				},
				OrderBy: "date_built",
			},
		},
		{
			label: "avg-price-3br3ba-2fl-by-built",
			spec: query.QuerySpec{
				GroupBy: []query.GroupKey{{Column: "date_built"}},
				Filters: []query.Filter{
					{Column: "bedrooms", Op: query.OpEq, Value: int64(3)},
					{Column: "bathrooms", Op: query.OpEq, Value: int64(3)},
					{Column: "floors", Op: query.OpEq, Value: int64(2)},
					{Column: "sqft_living", Op: query.OpGe, Value: 2000.0},
				},
				Aggregate: query.Aggregate{
					Func: query.AggAvg, Column: "price", As: "average_price", RoundDigits: round2(),
				},
				OrderBy: "date_built",
			},
		},
		{
			label: "view-rating-uncached",
			spec: query.QuerySpec{
				GroupBy: []query.GroupKey{{Column: "view"}},
				Aggregate: query.Aggregate{
					Func: query.AggAvg, Column: "price", As: "average_price", RoundDigits: round2(),
				},
				Having:  &query.Having{Op: query.OpGe, Threshold: 350000},
				OrderBy: "view",
			},
		},
	}
}
