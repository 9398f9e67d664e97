package quote

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/buildup"
	"github.com/mtlprog/fuelprice/internal/rollup"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func goldenBuildUp(t *testing.T) buildup.Result {
	t.Helper()
	r, err := buildup.Compute(buildup.Mining, rollup.Inputs{
		buildup.FieldPlattsFOBUSD:               d("635"),
		buildup.FieldTruckTransportUSD:          d("95"),
		buildup.FieldStorageHospitalityUSD:      d("13"),
		buildup.FieldANRDechargementUSD:         d("3"),
		buildup.FieldSupplierMarginUSD:          d("100"),
		buildup.FieldCustomsDutyUSD:             d("42.3"),
		buildup.FieldImportVATUSD:               d("170.4"),
		buildup.FieldFonerUSD:                   d("120"),
		buildup.FieldMolecularMarkingOrStockUSD: d("40"),
		buildup.FieldReconstructionStrategicUSD: d("180"),
		buildup.FieldEconomicInterventionUSD:    d("100"),
		buildup.FieldFreightToMineUSD:           d("153.5"),
		buildup.FieldLossesLitresPerTruck:       d("7.3"),
	}, decimal.Zero)
	if err != nil {
		t.Fatalf("computing build-up: %v", err)
	}
	return r
}

func TestDeriveBase(t *testing.T) {
	base := DeriveBase(goldenBuildUp(t))

	if !base.DDU.Equal(d("746")) {
		t.Errorf("baseDDU = %s, want 746", base.DDU)
	}
	if !base.DDP.Equal(d("1506")) {
		t.Errorf("baseDDP = %s, want 1506", base.DDP)
	}
}

func TestDeriveBase_ClampsAtZero(t *testing.T) {
	b := buildup.Result{
		SellingPriceDDUUSD: d("30"),
		SupplierMarginUSD:  d("50"),
		PriceDDPUSD:        d("10"),
		FreightToMineUSD:   d("25"),
	}
	base := DeriveBase(b)
	if !base.DDU.IsZero() || !base.DDP.IsZero() {
		t.Errorf("base = %+v, want zeros", base)
	}
}

func TestApply(t *testing.T) {
	totals := Apply(Base{DDU: d("746"), DDP: d("1506")}, d("60"), d("120"))

	if !totals.DDU.Equal(d("806")) {
		t.Errorf("totalDDU = %s, want 806", totals.DDU)
	}
	if !totals.DDP.Equal(d("1626")) {
		t.Errorf("totalDDP = %s, want 1626", totals.DDP)
	}
	if !totals.UnitPrice(TermDDP).Equal(d("1626")) || !totals.UnitPrice(TermDDU).Equal(d("806")) {
		t.Error("UnitPrice picked the wrong total")
	}
}

func TestVAT(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		applicable bool
		wantVAT    string
		wantGrand  string
	}{
		{"applicable", "1000", true, "160", "1160"},
		{"not applicable", "1000", false, "0", "1000"},
		{"zero line", "0", true, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vat := VAT(d(tt.line), tt.applicable)
			if !vat.Equal(d(tt.wantVAT)) {
				t.Errorf("VAT = %s, want %s", vat, tt.wantVAT)
			}
			if grand := d(tt.line).Add(vat); !grand.Equal(d(tt.wantGrand)) {
				t.Errorf("grand total = %s, want %s", grand, tt.wantGrand)
			}
		})
	}
}

func TestVATRate(t *testing.T) {
	if !VATRate().Equal(d("0.16")) {
		t.Errorf("VATRate = %s, want 0.16", VATRate())
	}
}

func TestPrice(t *testing.T) {
	b := goldenBuildUp(t)

	tests := []struct {
		name      string
		terms     Terms
		wantUnit  string
		wantLine  string
		wantVAT   string
		wantGrand string
	}{
		{
			name:      "DDU with VAT",
			terms:     Terms{Term: TermDDU, Quantity: d("10"), MarginUSD: d("54"), VATApplicable: true},
			wantUnit:  "800",
			wantLine:  "8000",
			wantVAT:   "1280",
			wantGrand: "9280",
		},
		{
			name:      "DDP without VAT",
			terms:     Terms{Term: TermDDP, Quantity: d("2"), FreightToMineUSD: d("94")},
			wantUnit:  "1600",
			wantLine:  "3200",
			wantVAT:   "0",
			wantGrand: "3200",
		},
		{
			name:      "zero quantity",
			terms:     Terms{Term: TermDDU, Quantity: decimal.Zero, VATApplicable: true},
			wantUnit:  "746",
			wantLine:  "0",
			wantVAT:   "0",
			wantGrand: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Price(b, tt.terms)
			if !p.UnitPrice.Equal(d(tt.wantUnit)) {
				t.Errorf("unitPrice = %s, want %s", p.UnitPrice, tt.wantUnit)
			}
			if !p.LineTotal.Equal(d(tt.wantLine)) {
				t.Errorf("lineTotal = %s, want %s", p.LineTotal, tt.wantLine)
			}
			if !p.VATAmount.Equal(d(tt.wantVAT)) {
				t.Errorf("vatAmount = %s, want %s", p.VATAmount, tt.wantVAT)
			}
			if !p.GrandTotal.Equal(d(tt.wantGrand)) {
				t.Errorf("grandTotal = %s, want %s", p.GrandTotal, tt.wantGrand)
			}
		})
	}
}

func TestParseTerm(t *testing.T) {
	tests := []struct {
		in      string
		want    Term
		wantErr bool
	}{
		{"", TermDDU, false},
		{"DDU", TermDDU, false},
		{"DDP", TermDDP, false},
		{"ddp", "", true},
		{"CIF", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTerm(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPricing_Rounded(t *testing.T) {
	p := Price(buildup.Result{SellingPriceDDUUSD: d("10.04")}, Terms{Term: TermDDU, Quantity: d("3"), VATApplicable: true}).Rounded(1)

	// line 30.12, VAT 4.8192
	if !p.LineTotal.Equal(d("30.1")) || !p.VATAmount.Equal(d("4.8")) || !p.GrandTotal.Equal(d("34.9")) {
		t.Errorf("rounded pricing = %+v", p)
	}
}
