// Package pricing dispatches a calculation by kind to the matching calculator.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/buildup"
	"github.com/mtlprog/fuelprice/internal/reference"
	"github.com/mtlprog/fuelprice/internal/rollup"
)

// Kind names a business object that can be priced.
type Kind string

const (
	MiningReference    Kind = "mining-reference"
	NonMiningReference Kind = "nonmining-reference"
	MiningBuildUp      Kind = "mining-buildup"
	NonMiningBuildUp   Kind = "nonmining-buildup"
)

// Kinds lists every supported kind.
var Kinds = []Kind{MiningReference, NonMiningReference, MiningBuildUp, NonMiningBuildUp}

// ErrUnknownKind is returned for an unsupported kind.
var ErrUnknownKind = errors.New("unknown pricing kind")

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// IsBuildUp reports whether the kind is a USD cost build-up.
func (k Kind) IsBuildUp() bool {
	return k == MiningBuildUp || k == NonMiningBuildUp
}

func (k Kind) variant() buildup.Variant {
	if k == NonMiningBuildUp {
		return buildup.NonMining
	}
	return buildup.Mining
}

// Options carries kind-specific switches.
type Options struct {
	IncludePMFFiscal bool `json:"includePmfFiscal,omitempty"`
}

// Table returns the stage table used for a kind.
func Table(k Kind, opts Options) (*rollup.Table, error) {
	switch k {
	case MiningReference:
		return reference.MiningTable(), nil
	case NonMiningReference:
		return reference.NonMiningTable(reference.NonMiningOptions{IncludePMFFiscal: opts.IncludePMFFiscal}), nil
	case MiningBuildUp, NonMiningBuildUp:
		return buildup.Table(k.variant()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// Output is the result of one calculation. Exactly one of the result fields is set.
type Output struct {
	Kind      Kind                       `json:"kind"`
	Mining    *reference.MiningResult    `json:"mining,omitempty"`
	NonMining *reference.NonMiningResult `json:"nonMining,omitempty"`
	BuildUp   *buildup.Result            `json:"buildUp,omitempty"`
}

// Compute prices inputs as the given kind. rate is CDF per USD; zero means unavailable.
func Compute(k Kind, in rollup.Inputs, rate decimal.Decimal, opts Options) (Output, error) {
	switch k {
	case MiningReference:
		r := reference.ComputeMining(in, rate)
		return Output{Kind: k, Mining: &r}, nil
	case NonMiningReference:
		r := reference.ComputeNonMining(in, rate, reference.NonMiningOptions{IncludePMFFiscal: opts.IncludePMFFiscal})
		return Output{Kind: k, NonMining: &r}, nil
	case MiningBuildUp, NonMiningBuildUp:
		r, err := buildup.Compute(k.variant(), in, rate)
		if err != nil {
			return Output{}, err
		}
		return Output{Kind: k, BuildUp: &r}, nil
	default:
		return Output{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// Rounded returns a copy rounded for presentation.
func (o Output) Rounded(places int32) Output {
	switch {
	case o.Mining != nil:
		r := o.Mining.Rounded(places)
		o.Mining = &r
	case o.NonMining != nil:
		r := o.NonMining.Rounded(places)
		o.NonMining = &r
	case o.BuildUp != nil:
		r := o.BuildUp.Rounded(places)
		o.BuildUp = &r
	}
	return o
}

// Trail returns the stage audit trail of whichever result is set.
func (o Output) Trail() []rollup.StageTotal {
	switch {
	case o.Mining != nil:
		return o.Mining.Trail
	case o.NonMining != nil:
		return o.NonMining.Trail
	case o.BuildUp != nil:
		return o.BuildUp.Trail
	default:
		return nil
	}
}

// Headline is the final price of a calculation with its unit.
type Headline struct {
	Name string              `json:"name"`
	CDF  decimal.NullDecimal `json:"cdf"`
	USD  decimal.NullDecimal `json:"usd"`
}

// Headline returns the final price of the result.
func (o Output) Headline() Headline {
	switch {
	case o.Mining != nil:
		return Headline{Name: "priceRef", CDF: decimal.NewNullDecimal(o.Mining.PriceRefCDF), USD: o.Mining.PriceRefUSD}
	case o.NonMining != nil:
		return Headline{Name: "appliedPrice", CDF: decimal.NewNullDecimal(o.NonMining.AppliedPriceCDF), USD: o.NonMining.AppliedPriceUSD}
	case o.BuildUp != nil:
		return Headline{Name: "priceDDP", CDF: o.BuildUp.PriceDDPCDF, USD: decimal.NewNullDecimal(o.BuildUp.PriceDDPUSD)}
	default:
		return Headline{}
	}
}
