package buildup

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/rollup"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func goldenInputs() rollup.Inputs {
	return rollup.Inputs{
		FieldPlattsFOBUSD:               d("635"),
		FieldTruckTransportUSD:          d("95"),
		FieldAgencyCustomsUSD:           d("0"),
		FieldStorageHospitalityUSD:      d("13"),
		FieldANRDechargementUSD:         d("3"),
		FieldSupplierMarginUSD:          d("100"),
		FieldCustomsDutyUSD:             d("42.3"),
		FieldImportVATUSD:               d("170.4"),
		FieldFonerUSD:                   d("120"),
		FieldMolecularMarkingOrStockUSD: d("40"),
		FieldReconstructionStrategicUSD: d("180"),
		FieldEconomicInterventionUSD:    d("100"),
		FieldFreightToMineUSD:           d("153.5"),
		FieldLossesLitresPerTruck:       d("7.3"),
	}
}

func TestCompute_MiningGolden(t *testing.T) {
	r, err := Compute(Mining, goldenInputs(), decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"brutCFUSD", r.BrutCFUSD, "730"},
		{"acquisitionCostUSD", r.AcquisitionCostUSD, "730"},
		{"sellingPriceDDUUSD", r.SellingPriceDDUUSD, "846"},
		{"subtotalUSD", r.SubtotalUSD, "212.7"},
		{"totalLeviesUSD", r.TotalLeviesUSD, "440"},
		{"totalTransportFinalUSD", r.TotalTransportFinalUSD, "160.8"},
		{"priceDDUUSD", r.PriceDDUUSD, "1006.8"},
		{"totalCustomsUSD", r.TotalCustomsUSD, "652.7"},
		{"priceDDPUSD", r.PriceDDPUSD, "1659.5"},
		{"supplierMarginUSD", r.SupplierMarginUSD, "100"},
		{"freightToMineUSD", r.FreightToMineUSD, "153.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equal(d(tt.want)) {
				t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
			}
		})
	}

	if r.PriceDDPCDF.Valid {
		t.Errorf("priceDDPCDF should be unavailable without a rate, got %s", r.PriceDDPCDF.Decimal)
	}
}

func TestCompute_PriceDDPCDF(t *testing.T) {
	r, err := Compute(Mining, goldenInputs(), d("2800"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.PriceDDPCDF.Valid || !r.PriceDDPCDF.Decimal.Equal(d("4646600")) {
		t.Errorf("priceDDPCDF = %v, want 4646600", r.PriceDDPCDF)
	}
}

func TestCompute_NonMiningLevies(t *testing.T) {
	in := goldenInputs().
		With(FieldSecurityStockUSD, d("25")).
		With(FieldStrategicReserveUSD, d("15"))

	mining, _ := Compute(Mining, in, decimal.Zero)
	nonMining, err := Compute(NonMining, in, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !mining.TotalLeviesUSD.Equal(d("440")) {
		t.Errorf("mining levies = %s, want 440 (security and reserve ignored)", mining.TotalLeviesUSD)
	}
	if !nonMining.TotalLeviesUSD.Equal(d("480")) {
		t.Errorf("non-mining levies = %s, want 480", nonMining.TotalLeviesUSD)
	}
	if !nonMining.PriceDDPUSD.Equal(d("1699.5")) {
		t.Errorf("non-mining priceDDPUSD = %s, want 1699.5", nonMining.PriceDDPUSD)
	}
}

func TestCompute_UnknownVariant(t *testing.T) {
	if _, err := Compute(Variant("marine"), goldenInputs(), decimal.Zero); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"mining", Mining, false},
		{"nonmining", NonMining, false},
		{"", "", true},
		{"Mining", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVariant(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompute_DDPNotBelowDDU(t *testing.T) {
	inputs := []rollup.Inputs{
		{},
		goldenInputs(),
		{FieldPlattsFOBUSD: d("600"), FieldFreightToMineUSD: d("10")},
		{FieldCustomsDutyUSD: d("1"), FieldFonerUSD: d("0.5")},
	}
	for _, v := range []Variant{Mining, NonMining} {
		for i, in := range inputs {
			r, _ := Compute(v, in, decimal.Zero)
			if r.PriceDDPUSD.LessThan(r.PriceDDUUSD) {
				t.Errorf("%s case %d: priceDDP %s < priceDDU %s", v, i, r.PriceDDPUSD, r.PriceDDUUSD)
			}
			if r.PriceDDUUSD.LessThan(r.SellingPriceDDUUSD) {
				t.Errorf("%s case %d: priceDDU %s < sellingPriceDDU %s", v, i, r.PriceDDUUSD, r.SellingPriceDDUUSD)
			}
		}
	}
}

func TestCompute_DeltaPropagation(t *testing.T) {
	base, _ := Compute(NonMining, goldenInputs(), decimal.Zero)
	delta := d("2.5")

	for _, f := range Table(NonMining).Fields() {
		in := goldenInputs()
		r, _ := Compute(NonMining, in.With(f, in.Get(f).Add(delta)), decimal.Zero)

		if got := r.PriceDDPUSD.Sub(base.PriceDDPUSD); !got.Equal(delta) {
			t.Errorf("bumping %s moved priceDDPUSD by %s, want %s", f, got, delta)
		}
	}
}

func TestCompute_AnyMarginAccepted(t *testing.T) {
	for _, m := range []string{"0", "10", "39.99", "-5"} {
		in := goldenInputs().With(FieldSupplierMarginUSD, d(m))
		r, err := Compute(Mining, in, decimal.Zero)
		if err != nil {
			t.Fatalf("margin %s: unexpected error: %v", m, err)
		}
		want := d("746").Add(d(m))
		if !r.SellingPriceDDUUSD.Equal(want) {
			t.Errorf("margin %s: sellingPriceDDUUSD = %s, want %s", m, r.SellingPriceDDUUSD, want)
		}
	}
}

func TestCompute_AbsentFieldsAreZero(t *testing.T) {
	r, err := Compute(Mining, rollup.Inputs{FieldPlattsFOBUSD: d("500")}, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range []decimal.Decimal{r.BrutCFUSD, r.AcquisitionCostUSD, r.SellingPriceDDUUSD, r.PriceDDUUSD, r.PriceDDPUSD} {
		if !v.Equal(d("500")) {
			t.Errorf("got %s, want 500", v)
		}
	}
}

func TestCompute_Idempotent(t *testing.T) {
	a, _ := Compute(Mining, goldenInputs(), d("2800"))
	b, _ := Compute(Mining, goldenInputs(), d("2800"))
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("results differ:\n%s\n%s", ja, jb)
	}
}

func TestLevies(t *testing.T) {
	if got := len(Levies(Mining)); got != 4 {
		t.Errorf("mining levies = %d, want 4", got)
	}
	if got := len(Levies(NonMining)); got != 6 {
		t.Errorf("non-mining levies = %d, want 6", got)
	}
}

func TestResult_Rounded(t *testing.T) {
	in := rollup.Inputs{FieldPlattsFOBUSD: d("100.25"), FieldFreightToMineUSD: d("0.04")}
	r, _ := Compute(Mining, in, d("3"))
	r = r.Rounded(1)

	if !r.BrutCFUSD.Equal(d("100.3")) {
		t.Errorf("brutCFUSD = %s, want 100.3", r.BrutCFUSD)
	}
	if !r.PriceDDPUSD.Equal(d("100.3")) {
		t.Errorf("priceDDPUSD = %s, want 100.3", r.PriceDDPUSD)
	}
	if !r.PriceDDPCDF.Decimal.Equal(d("300.9")) {
		t.Errorf("priceDDPCDF = %s, want 300.9", r.PriceDDPCDF.Decimal)
	}
}
