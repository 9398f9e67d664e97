// Package reference computes official per-m³ price reference structures for the
// mining and non-mining markets. All inputs are CDF amounts.
package reference

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/domain"
	"github.com/mtlprog/fuelprice/internal/fx"
	"github.com/mtlprog/fuelprice/internal/rollup"
)

// Input field names shared by both structures.
const (
	FieldPMFCommercialCDF   = "pmfCommercialCDF"
	FieldFonerCDF           = "fonerCDF"
	FieldVATAtSaleCDF       = "vatAtSaleCDF"
	FieldCustomsDutyCDF     = "customsDutyCDF"
	FieldConsumptionDutyCDF = "consumptionDutyCDF" // signed
	FieldImportVATCDF       = "importVATCDF"
	FieldNetVATCDF          = "netVATCDF"
)

// Mining-only input fields.
const (
	FieldLogisticsFeeCDF         = "logisticsFeeCDF"
	FieldCommercialFeeCDF        = "commercialFeeCDF"
	FieldCommercialMarginCDF     = "commercialMarginCDF"
	FieldMolecularMarkingCDF     = "molecularMarkingCDF"
	FieldReconstructionEffortCDF = "reconstructionEffortCDF"
	FieldStrategicStockCDF       = "strategicStockCDF"
	FieldEconomicInterventionCDF = "economicInterventionCDF"
	FieldSecurityStockCDF        = "securityStockCDF"
)

// Stage totals.
const (
	TotalLogistics     = "totalLogistics"
	TotalCommercial    = "totalCommercial"
	TotalParafiscality = "totalParafiscality"
	TotalFiscality1    = "totalFiscality1"
	TotalFiscality2    = "totalFiscality2"
	TotalDistribution  = "totalDistribution"
	TotalSecurity      = "totalSecurity"
	TotalPriceRefCDF   = "priceRefCDF"
)

// unitsPerCubicMetre scales a per-m³ figure down to a per-litre figure.
var unitsPerCubicMetre = decimal.NewFromInt(1000)

var miningTable = rollup.NewTable("mining-reference",
	rollup.Stage{Name: "Logistics", Total: TotalLogistics, Fields: []string{FieldLogisticsFeeCDF}},
	rollup.Stage{Name: "Commercial", Total: TotalCommercial, Fields: []string{FieldCommercialFeeCDF, FieldCommercialMarginCDF}},
	rollup.Stage{Name: "Parafiscality", Total: TotalParafiscality, Fields: []string{
		FieldFonerCDF,
		FieldMolecularMarkingCDF,
		FieldReconstructionEffortCDF,
		FieldStrategicStockCDF,
		FieldEconomicInterventionCDF,
		FieldSecurityStockCDF,
	}},
	rollup.Stage{Name: "Fiscality 1", Total: TotalFiscality1, Fields: []string{FieldCustomsDutyCDF, FieldConsumptionDutyCDF, FieldImportVATCDF}},
	rollup.Stage{Name: "Fiscality 2", Total: TotalFiscality2, Fields: []string{FieldNetVATCDF}, Carry: []string{TotalFiscality1}},
	rollup.Stage{Name: "Reference price", Total: TotalPriceRefCDF,
		Fields: []string{FieldPMFCommercialCDF},
		Carry:  []string{TotalLogistics, TotalCommercial, TotalParafiscality, TotalFiscality2},
	},
).Track(FieldVATAtSaleCDF) // reported, not part of the reference price

// MiningTable returns the stage table of the mining price reference.
func MiningTable() *rollup.Table { return miningTable }

// MiningResult is the computed mining price reference. USD figures are null
// when no usable rate was supplied; CDF figures are always present.
type MiningResult struct {
	PMFCommercialCDF    decimal.Decimal     `json:"pmfCommercialCDF"`
	PMFCommercialUSD    decimal.NullDecimal `json:"pmfCommercialUSD"`
	TotalLogistics      decimal.Decimal     `json:"totalLogistics"`
	TotalCommercial     decimal.Decimal     `json:"totalCommercial"`
	TotalParafiscality  decimal.Decimal     `json:"totalParafiscality"`
	VATAtSaleCDF        decimal.Decimal     `json:"vatAtSaleCDF"`
	TotalFiscality1     decimal.Decimal     `json:"totalFiscality1"`
	TotalFiscality2     decimal.Decimal     `json:"totalFiscality2"`
	PriceRefCDF         decimal.Decimal     `json:"priceRefCDF"`
	PriceRefUSD         decimal.NullDecimal `json:"priceRefUSD"`
	PriceRefUSDPerLitre decimal.NullDecimal `json:"priceRefUSDPerLitre"`
	Trail               []rollup.StageTotal `json:"trail"`
}

// ComputeMining derives the mining reference price from CDF inputs and a CDF-per-USD rate.
func ComputeMining(in rollup.Inputs, rate decimal.Decimal) MiningResult {
	res := miningTable.Evaluate(in)

	priceRefCDF := res.Total(TotalPriceRefCDF)
	priceRefUSD := fx.ToUSD(priceRefCDF, rate)

	return MiningResult{
		PMFCommercialCDF:    in.Get(FieldPMFCommercialCDF),
		PMFCommercialUSD:    fx.ToUSD(in.Get(FieldPMFCommercialCDF), rate),
		TotalLogistics:      res.Total(TotalLogistics),
		TotalCommercial:     res.Total(TotalCommercial),
		TotalParafiscality:  res.Total(TotalParafiscality),
		VATAtSaleCDF:        in.Get(FieldVATAtSaleCDF),
		TotalFiscality1:     res.Total(TotalFiscality1),
		TotalFiscality2:     res.Total(TotalFiscality2),
		PriceRefCDF:         priceRefCDF,
		PriceRefUSD:         priceRefUSD,
		PriceRefUSDPerLitre: fx.DivNull(priceRefUSD, unitsPerCubicMetre),
		Trail:               res.Trail,
	}
}

// Rounded returns a copy with every figure rounded for presentation.
func (r MiningResult) Rounded(places int32) MiningResult {
	r.PMFCommercialCDF = r.PMFCommercialCDF.Round(places)
	r.PMFCommercialUSD = domain.PresentNull(r.PMFCommercialUSD, places)
	r.TotalLogistics = r.TotalLogistics.Round(places)
	r.TotalCommercial = r.TotalCommercial.Round(places)
	r.TotalParafiscality = r.TotalParafiscality.Round(places)
	r.VATAtSaleCDF = r.VATAtSaleCDF.Round(places)
	r.TotalFiscality1 = r.TotalFiscality1.Round(places)
	r.TotalFiscality2 = r.TotalFiscality2.Round(places)
	r.PriceRefCDF = r.PriceRefCDF.Round(places)
	r.PriceRefUSD = domain.PresentNull(r.PriceRefUSD, places)
	r.PriceRefUSDPerLitre = domain.PresentNull(r.PriceRefUSDPerLitre, places)
	r.Trail = rollup.RoundTrail(r.Trail, places)
	return r
}
