// Package buildup computes the USD cost build-up of an import: FOB plus transport
// up to the selling price DDU, then customs, levies and final transport up to DDP.
package buildup

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/domain"
	"github.com/mtlprog/fuelprice/internal/fx"
	"github.com/mtlprog/fuelprice/internal/rollup"
)

// Variant selects the levy set of a build-up.
type Variant string

const (
	Mining    Variant = "mining"
	NonMining Variant = "nonmining"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case Mining, NonMining:
		return v, nil
	default:
		return "", fmt.Errorf("unknown build-up variant %q", s)
	}
}

// Input fields, all USD amounts.
const (
	FieldPlattsFOBUSD               = "plattsFOBUSD"
	FieldTruckTransportUSD          = "truckTransportUSD"
	FieldAgencyCustomsUSD           = "agencyCustomsUSD"
	FieldStorageHospitalityUSD      = "storageHospitalityUSD"
	FieldANRDechargementUSD         = "anrDechargementUSD"
	FieldSupplierMarginUSD          = "supplierMarginUSD"
	FieldCustomsDutyUSD             = "customsDutyUSD"
	FieldImportVATUSD               = "importVATUSD"
	FieldFonerUSD                   = "fonerUSD"
	FieldMolecularMarkingOrStockUSD = "molecularMarkingOrStockUSD"
	FieldReconstructionStrategicUSD = "reconstructionStrategicUSD"
	FieldEconomicInterventionUSD    = "economicInterventionUSD"
	FieldSecurityStockUSD           = "securityStockUSD"    // non-mining only
	FieldStrategicReserveUSD        = "strategicReserveUSD" // non-mining only
	FieldFreightToMineUSD           = "freightToMineUSD"
	FieldLossesLitresPerTruck       = "lossesLitresPerTruck" // already a USD amount
)

// Totals.
const (
	TotalBrutCFUSD          = "brutCFUSD"
	TotalAcquisitionCostUSD = "acquisitionCostUSD"
	TotalSellingPriceDDUUSD = "sellingPriceDDUUSD"
	TotalSubtotalUSD        = "subtotalUSD"
	TotalLeviesUSD          = "totalLeviesUSD"
	TotalTransportFinalUSD  = "totalTransportFinalUSD"
	TotalPriceDDUUSD        = "priceDDUUSD"
	TotalCustomsUSD         = "totalCustomsUSD"
	TotalPriceDDPUSD        = "priceDDPUSD"
)

var miningLevies = []string{
	FieldFonerUSD,
	FieldMolecularMarkingOrStockUSD,
	FieldReconstructionStrategicUSD,
	FieldEconomicInterventionUSD,
}

var nonMiningLevies = append(append([]string(nil), miningLevies...),
	FieldSecurityStockUSD,
	FieldStrategicReserveUSD,
)

func stages(levies []string) []rollup.Stage {
	return []rollup.Stage{
		{Name: "Brut C&F", Total: TotalBrutCFUSD, Fields: []string{FieldPlattsFOBUSD, FieldTruckTransportUSD}},
		{Name: "Acquisition cost", Total: TotalAcquisitionCostUSD, Fields: []string{FieldAgencyCustomsUSD}, Carry: []string{TotalBrutCFUSD}},
		{Name: "Selling price DDU", Total: TotalSellingPriceDDUUSD,
			Fields: []string{FieldStorageHospitalityUSD, FieldANRDechargementUSD, FieldSupplierMarginUSD},
			Carry:  []string{TotalAcquisitionCostUSD},
		},
		{Name: "Customs subtotal", Total: TotalSubtotalUSD, Fields: []string{FieldCustomsDutyUSD, FieldImportVATUSD}},
		{Name: "Levies", Total: TotalLeviesUSD, Fields: levies},
		{Name: "Final transport", Total: TotalTransportFinalUSD, Fields: []string{FieldFreightToMineUSD, FieldLossesLitresPerTruck}},
		{Name: "Price DDU", Total: TotalPriceDDUUSD, Carry: []string{TotalSellingPriceDDUUSD, TotalTransportFinalUSD}},
		{Name: "Total customs", Total: TotalCustomsUSD, Carry: []string{TotalSubtotalUSD, TotalLeviesUSD}},
		{Name: "Price DDP", Total: TotalPriceDDPUSD,
			Carry: []string{TotalSellingPriceDDUUSD, TotalSubtotalUSD, TotalLeviesUSD, TotalTransportFinalUSD},
		},
	}
}

var tables = map[Variant]*rollup.Table{
	Mining:    rollup.NewTable("mining-buildup", stages(miningLevies)...),
	NonMining: rollup.NewTable("nonmining-buildup", stages(nonMiningLevies)...),
}

// Table returns the stage table of a variant, or nil for an unknown variant.
func Table(v Variant) *rollup.Table {
	return tables[v]
}

// Levies returns the levy fields summed into totalLeviesUSD for the variant.
func Levies(v Variant) []string {
	if v == NonMining {
		return append([]string(nil), nonMiningLevies...)
	}
	return append([]string(nil), miningLevies...)
}

// Result is a computed cost build-up. SellingPriceDDUUSD excludes final transport and
// losses; PriceDDUUSD includes them.
type Result struct {
	Variant                Variant             `json:"variant"`
	BrutCFUSD              decimal.Decimal     `json:"brutCFUSD"`
	AcquisitionCostUSD     decimal.Decimal     `json:"acquisitionCostUSD"`
	SupplierMarginUSD      decimal.Decimal     `json:"supplierMarginUSD"`
	SellingPriceDDUUSD     decimal.Decimal     `json:"sellingPriceDDUUSD"`
	SubtotalUSD            decimal.Decimal     `json:"subtotalUSD"`
	TotalLeviesUSD         decimal.Decimal     `json:"totalLeviesUSD"`
	FreightToMineUSD       decimal.Decimal     `json:"freightToMineUSD"`
	TotalTransportFinalUSD decimal.Decimal     `json:"totalTransportFinalUSD"`
	PriceDDUUSD            decimal.Decimal     `json:"priceDDUUSD"`
	TotalCustomsUSD        decimal.Decimal     `json:"totalCustomsUSD"`
	PriceDDPUSD            decimal.Decimal     `json:"priceDDPUSD"`
	PriceDDPCDF            decimal.NullDecimal `json:"priceDDPCDF"`
	Trail                  []rollup.StageTotal `json:"trail"`
}

// Compute runs the build-up for a variant. rate (CDF per USD) is optional and only
// feeds the priceDDPCDF preview; pass zero when none is known. Any numeric supplier
// margin is accepted here.
func Compute(v Variant, in rollup.Inputs, rate decimal.Decimal) (Result, error) {
	t := Table(v)
	if t == nil {
		return Result{}, fmt.Errorf("unknown build-up variant %q", v)
	}
	res := t.Evaluate(in)

	return Result{
		Variant:                v,
		BrutCFUSD:              res.Total(TotalBrutCFUSD),
		AcquisitionCostUSD:     res.Total(TotalAcquisitionCostUSD),
		SupplierMarginUSD:      in.Get(FieldSupplierMarginUSD),
		SellingPriceDDUUSD:     res.Total(TotalSellingPriceDDUUSD),
		SubtotalUSD:            res.Total(TotalSubtotalUSD),
		TotalLeviesUSD:         res.Total(TotalLeviesUSD),
		FreightToMineUSD:       in.Get(FieldFreightToMineUSD),
		TotalTransportFinalUSD: res.Total(TotalTransportFinalUSD),
		PriceDDUUSD:            res.Total(TotalPriceDDUUSD),
		TotalCustomsUSD:        res.Total(TotalCustomsUSD),
		PriceDDPUSD:            res.Total(TotalPriceDDPUSD),
		PriceDDPCDF:            fx.ToCDF(res.Total(TotalPriceDDPUSD), rate),
		Trail:                  res.Trail,
	}, nil
}

// Rounded returns a copy with every figure rounded for presentation.
func (r Result) Rounded(places int32) Result {
	for _, p := range []*decimal.Decimal{
		&r.BrutCFUSD, &r.AcquisitionCostUSD, &r.SupplierMarginUSD, &r.SellingPriceDDUUSD,
		&r.SubtotalUSD, &r.TotalLeviesUSD, &r.FreightToMineUSD, &r.TotalTransportFinalUSD,
		&r.PriceDDUUSD, &r.TotalCustomsUSD, &r.PriceDDPUSD,
	} {
		*p = domain.Present(*p, places)
	}
	r.PriceDDPCDF = domain.PresentNull(r.PriceDDPCDF, places)
	r.Trail = rollup.RoundTrail(r.Trail, places)
	return r
}
