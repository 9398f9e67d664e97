// Package rollup evaluates staged summation chains: each stage sums its member
// input fields plus totals carried forward from earlier stages, in declared order.
package rollup

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/domain"
)

// Stage is one named group of cost fields whose sum is a single subtotal.
type Stage struct {
	Name   string   // audit label
	Total  string   // output name of the subtotal
	Fields []string // member input fields, absent = 0
	Carry  []string // totals of earlier stages added in
}

// Table is an ordered, validated list of stages for one business object.
type Table struct {
	name    string
	stages  []Stage
	fields  []string
	tracked []string
}

// NewTable validates the stage list and builds a Table.
// Panics if a total name is reused, shadows an input field, or a carry
// references a total that no earlier stage produces (programming error).
func NewTable(name string, stages ...Stage) *Table {
	produced := make(map[string]bool, len(stages))
	var fields []string

	for _, s := range stages {
		fields = append(fields, s.Fields...)
	}
	fields = lo.Uniq(fields)
	isField := lo.SliceToMap(fields, func(f string) (string, bool) { return f, true })

	for _, s := range stages {
		if s.Total == "" {
			panic(fmt.Sprintf("rollup %s: stage %q has no total name", name, s.Name))
		}
		if produced[s.Total] {
			panic(fmt.Sprintf("rollup %s: duplicate total %q", name, s.Total))
		}
		if isField[s.Total] {
			panic(fmt.Sprintf("rollup %s: total %q shadows an input field", name, s.Total))
		}
		for _, c := range s.Carry {
			if !produced[c] {
				panic(fmt.Sprintf("rollup %s: stage %q carries %q which is not yet computed", name, s.Name, c))
			}
		}
		produced[s.Total] = true
	}

	return &Table{name: name, stages: stages, fields: fields}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Track returns a copy of the table that also accepts fields which are carried
// through to the result as entered but never summed into any stage.
// Panics if a tracked field collides with a stage total.
func (t *Table) Track(fields ...string) *Table {
	for _, f := range fields {
		for _, s := range t.stages {
			if s.Total == f {
				panic(fmt.Sprintf("rollup %s: tracked field %q shadows a total", t.name, f))
			}
		}
	}
	tracked := lo.Uniq(append(append([]string(nil), t.tracked...), fields...))
	return &Table{name: t.name, stages: t.stages, fields: t.fields, tracked: tracked}
}

// Fields returns every input field the table reads: stage members in first-use
// order, then tracked fields.
func (t *Table) Fields() []string {
	return lo.Uniq(append(append([]string(nil), t.fields...), t.tracked...))
}

// Stages returns a copy of the stage list.
func (t *Table) Stages() []Stage {
	return append([]Stage(nil), t.stages...)
}

// StageTotal is one entry of the audit trail.
type StageTotal struct {
	Stage string          `json:"stage"`
	Total string          `json:"total"`
	Value decimal.Decimal `json:"value"`
}

// Result holds every computed total plus the ordered audit trail.
type Result struct {
	Totals map[string]decimal.Decimal
	Trail  []StageTotal
}

// Total returns the named total, or zero if the table does not produce it.
func (r Result) Total(name string) decimal.Decimal {
	return r.Totals[name]
}

// Evaluate runs every stage in declared order. It is pure: identical inputs
// always produce identical results.
func (t *Table) Evaluate(in Inputs) Result {
	res := Result{
		Totals: make(map[string]decimal.Decimal, len(t.stages)),
		Trail:  make([]StageTotal, 0, len(t.stages)),
	}

	for _, s := range t.stages {
		total := lo.Reduce(s.Fields, func(acc decimal.Decimal, f string, _ int) decimal.Decimal {
			return domain.SafeSum(acc, in.Get(f))
		}, decimal.Zero)
		total = lo.Reduce(s.Carry, func(acc decimal.Decimal, c string, _ int) decimal.Decimal {
			return domain.SafeSum(acc, res.Totals[c])
		}, total)

		res.Totals[s.Total] = total
		res.Trail = append(res.Trail, StageTotal{Stage: s.Name, Total: s.Total, Value: total})
	}

	return res
}

// RoundTrail returns a copy of the trail with values rounded for presentation.
func RoundTrail(trail []StageTotal, places int32) []StageTotal {
	return lo.Map(trail, func(st StageTotal, _ int) StageTotal {
		st.Value = st.Value.Round(places)
		return st
	})
}
