package query

import (
	"github.com/arkilian/quarry/pkg/types"
)

// partialAggregate accumulates one aggregate over a group's rows. For AVG,
// both Sum and Count are tracked so the mean is computed once at the end.
type partialAggregate struct {
	fn    AggregateFunc
	count int64
	sum   float64
	min   interface{}
	max   interface{}
	isSet bool
}

func newPartialAggregate(fn AggregateFunc) *partialAggregate {
	return &partialAggregate{fn: fn}
}

// accumulate adds a single value. NULL values are ignored by every
// aggregate function.
func (p *partialAggregate) accumulate(value interface{}) {
	if value == nil {
		return
	}

	switch p.fn {
	case AggCount:
		p.count++
		p.isSet = true

	case AggSum, AggAvg:
		if f, ok := types.AsFloat(value); ok {
			p.sum += f
			p.count++
			p.isSet = true
		}

	case AggMin:
		if !p.isSet || types.Compare(value, p.min) < 0 {
			p.min = value
		}
		p.count++
		p.isSet = true

	case AggMax:
		if !p.isSet || types.Compare(value, p.max) > 0 {
			p.max = value
		}
		p.count++
		p.isSet = true
	}
}

// result returns the final value of the aggregate, or nil when no non-NULL
// value was seen (COUNT returns zero instead).
func (p *partialAggregate) result() interface{} {
	if !p.isSet {
		if p.fn == AggCount {
			return int64(0)
		}
		return nil
	}

	switch p.fn {
	case AggCount:
		return p.count
	case AggSum:
		return p.sum
	case AggMin:
		return p.min
	case AggMax:
		return p.max
	case AggAvg:
		if p.count == 0 {
			return nil
		}
		return p.sum / float64(p.count)
	}
	return nil
}
