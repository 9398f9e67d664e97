package reference

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/domain"
	"github.com/mtlprog/fuelprice/internal/fx"
	"github.com/mtlprog/fuelprice/internal/rollup"
)

// Non-mining-only input fields.
const (
	FieldStorageFeeCDF             = "storageFeeCDF"
	FieldTransportFeeCDF           = "transportFeeCDF"
	FieldDistributorMarginCDF      = "distributorMarginCDF"
	FieldRetailerMarginCDF         = "retailerMarginCDF"
	FieldLossAllowanceCDF          = "lossAllowanceCDF"
	FieldBankChargesCDF            = "bankChargesCDF"
	FieldSecurityStockLogisticsCDF = "securityStockLogisticsCDF"
	FieldSecurityStockStrategicCDF = "securityStockStrategicCDF"
	FieldPMFFiscalCDF              = "pmfFiscalCDF" // signed adjustment, may subsidize the price
)

// NonMiningOptions selects between the observed and the alternative reference composition.
type NonMiningOptions struct {
	// IncludePMFFiscal adds the PMF fiscal adjustment into priceRefCDF.
	// Off by default: the adjustment is tracked in totalParafiscality only.
	IncludePMFFiscal bool `json:"includePmfFiscal"`
}

func nonMiningStages(referenceFields ...string) []rollup.Stage {
	return []rollup.Stage{
		{Name: "Distribution", Total: TotalDistribution, Fields: []string{
			FieldLogisticsFeeCDF,
			FieldStorageFeeCDF,
			FieldTransportFeeCDF,
			FieldDistributorMarginCDF,
			FieldRetailerMarginCDF,
			FieldLossAllowanceCDF,
			FieldBankChargesCDF,
		}},
		{Name: "Security stock", Total: TotalSecurity, Fields: []string{
			FieldSecurityStockCDF,
			FieldSecurityStockLogisticsCDF,
			FieldSecurityStockStrategicCDF,
		}},
		{Name: "Parafiscality", Total: TotalParafiscality, Fields: []string{FieldFonerCDF, FieldPMFFiscalCDF}},
		{Name: "Fiscality 1", Total: TotalFiscality1, Fields: []string{FieldCustomsDutyCDF, FieldConsumptionDutyCDF, FieldImportVATCDF}},
		{Name: "Fiscality 2", Total: TotalFiscality2, Fields: []string{FieldNetVATCDF}, Carry: []string{TotalFiscality1}},
		{Name: "Reference price", Total: TotalPriceRefCDF,
			Fields: referenceFields,
			Carry:  []string{TotalDistribution, TotalSecurity, TotalFiscality2},
		},
	}
}

var (
	nonMiningTable = rollup.NewTable("nonmining-reference",
		nonMiningStages(FieldPMFCommercialCDF, FieldFonerCDF)...).Track(FieldVATAtSaleCDF)
	nonMiningWithFiscalTable = rollup.NewTable("nonmining-reference-pmf-fiscal",
		nonMiningStages(FieldPMFCommercialCDF, FieldFonerCDF, FieldPMFFiscalCDF)...).Track(FieldVATAtSaleCDF)
)

// NonMiningTable returns the stage table selected by opts.
func NonMiningTable(opts NonMiningOptions) *rollup.Table {
	if opts.IncludePMFFiscal {
		return nonMiningWithFiscalTable
	}
	return nonMiningTable
}

// NonMiningResult is the computed non-mining price structure.
type NonMiningResult struct {
	PMFCommercialCDF   decimal.Decimal     `json:"pmfCommercialCDF"`
	PMFCommercialUSD   decimal.NullDecimal `json:"pmfCommercialUSD"`
	TotalDistribution  decimal.Decimal     `json:"totalDistribution"`
	TotalSecurity      decimal.Decimal     `json:"totalSecurity"`
	FonerCDF           decimal.Decimal     `json:"fonerCDF"`
	PMFFiscalCDF       decimal.Decimal     `json:"pmfFiscalCDF"`
	TotalParafiscality decimal.Decimal     `json:"totalParafiscality"`
	VATAtSaleCDF       decimal.Decimal     `json:"vatAtSaleCDF"`
	TotalFiscality1    decimal.Decimal     `json:"totalFiscality1"`
	TotalFiscality2    decimal.Decimal     `json:"totalFiscality2"`
	PriceRefCDF        decimal.Decimal     `json:"priceRefCDF"`
	AppliedPriceCDF    decimal.Decimal     `json:"appliedPriceCDF"`
	AppliedPriceUSD    decimal.NullDecimal `json:"appliedPriceUSD"`
	Trail              []rollup.StageTotal `json:"trail"`
}

// ComputeNonMining derives the non-mining reference and applied prices.
func ComputeNonMining(in rollup.Inputs, rate decimal.Decimal, opts NonMiningOptions) NonMiningResult {
	res := NonMiningTable(opts).Evaluate(in)

	priceRefCDF := res.Total(TotalPriceRefCDF)
	appliedCDF := priceRefCDF.Div(unitsPerCubicMetre)

	return NonMiningResult{
		PMFCommercialCDF:   in.Get(FieldPMFCommercialCDF),
		PMFCommercialUSD:   fx.ToUSD(in.Get(FieldPMFCommercialCDF), rate),
		TotalDistribution:  res.Total(TotalDistribution),
		TotalSecurity:      res.Total(TotalSecurity),
		FonerCDF:           in.Get(FieldFonerCDF),
		PMFFiscalCDF:       in.Get(FieldPMFFiscalCDF),
		TotalParafiscality: res.Total(TotalParafiscality),
		VATAtSaleCDF:       in.Get(FieldVATAtSaleCDF),
		TotalFiscality1:    res.Total(TotalFiscality1),
		TotalFiscality2:    res.Total(TotalFiscality2),
		PriceRefCDF:        priceRefCDF,
		AppliedPriceCDF:    appliedCDF,
		AppliedPriceUSD:    fx.ToUSD(appliedCDF, rate),
		Trail:              res.Trail,
	}
}

// Rounded returns a copy with every figure rounded for presentation.
func (r NonMiningResult) Rounded(places int32) NonMiningResult {
	r.PMFCommercialCDF = r.PMFCommercialCDF.Round(places)
	r.PMFCommercialUSD = domain.PresentNull(r.PMFCommercialUSD, places)
	r.TotalDistribution = r.TotalDistribution.Round(places)
	r.TotalSecurity = r.TotalSecurity.Round(places)
	r.FonerCDF = r.FonerCDF.Round(places)
	r.PMFFiscalCDF = r.PMFFiscalCDF.Round(places)
	r.TotalParafiscality = r.TotalParafiscality.Round(places)
	r.VATAtSaleCDF = r.VATAtSaleCDF.Round(places)
	r.TotalFiscality1 = r.TotalFiscality1.Round(places)
	r.TotalFiscality2 = r.TotalFiscality2.Round(places)
	r.PriceRefCDF = r.PriceRefCDF.Round(places)
	r.AppliedPriceCDF = r.AppliedPriceCDF.Round(places)
	r.AppliedPriceUSD = domain.PresentNull(r.AppliedPriceUSD, places)
	r.Trail = rollup.RoundTrail(r.Trail, places)
	return r
}
