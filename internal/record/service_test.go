package record

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/buildup"
	"github.com/mtlprog/fuelprice/internal/fx"
	"github.com/mtlprog/fuelprice/internal/pricing"
	"github.com/mtlprog/fuelprice/internal/reference"
	"github.com/mtlprog/fuelprice/internal/rollup"
	"github.com/mtlprog/fuelprice/internal/validate"
)

type mockRepo struct {
	records map[int64]Record
	nextID  int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[int64]Record)}
}

func (m *mockRepo) Create(_ context.Context, r Record) (Record, error) {
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.records[r.ID] = r
	return r, nil
}

func (m *mockRepo) Update(_ context.Context, r Record) (Record, error) {
	old, ok := m.records[r.ID]
	if !ok {
		return Record{}, ErrNotFound
	}
	r.CreatedAt = old.CreatedAt
	r.UpdatedAt = time.Now()
	m.records[r.ID] = r
	return r, nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (Record, error) {
	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *mockRepo) List(_ context.Context, kind pricing.Kind, _ int) ([]Record, error) {
	var out []Record
	for _, r := range m.records {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

type mockRates struct {
	rates []fx.Rate
}

func (m *mockRates) Get(_ context.Context, id int64) (fx.Rate, error) {
	for _, r := range m.rates {
		if r.ID == id {
			return r, nil
		}
	}
	return fx.Rate{}, fx.ErrNotFound
}

func (m *mockRates) Latest(_ context.Context) (fx.Rate, error) {
	if len(m.rates) == 0 {
		return fx.Rate{}, fx.ErrNotFound
	}
	return m.rates[len(m.rates)-1], nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(rates ...fx.Rate) (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, &mockRates{rates: rates}, validate.DefaultSupplierMarginFloorUSD), repo
}

func buildUpInputs(margin string) rollup.Inputs {
	return rollup.Inputs{
		buildup.FieldPlattsFOBUSD:      d("635"),
		buildup.FieldTruckTransportUSD: d("95"),
		buildup.FieldSupplierMarginUSD: d(margin),
		buildup.FieldFreightToMineUSD:  d("150"),
	}
}

func TestService_Create_BuildUp(t *testing.T) {
	svc, repo := newTestService(fx.Rate{ID: 1, Value: d("2000")}, fx.Rate{ID: 2, Value: d("2800")})

	in := buildUpInputs("100").With(buildup.TotalPriceDDPUSD, d("1"))
	saved, err := svc.Create(context.Background(), SaveParams{Kind: pricing.MiningBuildUp, Label: "Lubumbashi", Inputs: in})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if saved.RateID == nil || *saved.RateID != 2 {
		t.Errorf("rateId = %v, want latest (2)", saved.RateID)
	}
	if saved.Role != string(validate.RoleCommercial) {
		t.Errorf("role = %q, want commercial default", saved.Role)
	}
	if !saved.Output.BuildUp.PriceDDPUSD.Equal(d("980")) {
		t.Errorf("priceDDPUSD = %s, want 980", saved.Output.BuildUp.PriceDDPUSD)
	}
	if !saved.Output.BuildUp.PriceDDPCDF.Decimal.Equal(d("2744000")) {
		t.Errorf("priceDDPCDF = %s, want 2744000", saved.Output.BuildUp.PriceDDPCDF.Decimal)
	}

	stored := repo.records[saved.ID]
	if strings.Contains(string(stored.Inputs), buildup.TotalPriceDDPUSD) {
		t.Errorf("derived total stored as input: %s", stored.Inputs)
	}
	var out pricing.Output
	if err := json.Unmarshal(stored.Outputs, &out); err != nil {
		t.Fatalf("stored outputs: %v", err)
	}
	if !out.BuildUp.PriceDDPUSD.Equal(d("980")) {
		t.Errorf("stored priceDDPUSD = %s, want 980", out.BuildUp.PriceDDPUSD)
	}
}

func TestService_Create_MarginFloor(t *testing.T) {
	tests := []struct {
		name    string
		kind    pricing.Kind
		role    validate.Role
		margin  string
		wantErr error
	}{
		{"commercial below floor", pricing.MiningBuildUp, validate.RoleCommercial, "10", validate.ErrMarginBelowFloor},
		{"commercial at floor", pricing.NonMiningBuildUp, validate.RoleCommercial, "40", nil},
		{"regulator below floor", pricing.MiningBuildUp, validate.RoleRegulator, "10", nil},
		{"reference kind unchecked", pricing.MiningReference, validate.RoleCommercial, "0", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()
			_, err := svc.Create(context.Background(), SaveParams{Kind: tt.kind, Role: tt.role, Inputs: buildUpInputs(tt.margin)})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && len(repo.records) != 0 {
				t.Error("rejected record must not be stored")
			}
		})
	}
}

func TestService_Preview_SkipsMarginFloor(t *testing.T) {
	svc, _ := newTestService()
	out, err := svc.Preview(context.Background(), SaveParams{Kind: pricing.MiningBuildUp, Inputs: buildUpInputs("0")})
	if err != nil {
		t.Fatalf("preview should not enforce the margin floor: %v", err)
	}
	if !out.BuildUp.SellingPriceDDUUSD.Equal(d("730")) {
		t.Errorf("sellingPriceDDUUSD = %s, want 730", out.BuildUp.SellingPriceDDUUSD)
	}
}

func TestService_Create_NoRate(t *testing.T) {
	svc, _ := newTestService()
	saved, err := svc.Create(context.Background(), SaveParams{
		Kind:   pricing.MiningReference,
		Inputs: rollup.Inputs{reference.FieldPMFCommercialCDF: d("1000000")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.RateID != nil {
		t.Errorf("rateId = %d, want nil", *saved.RateID)
	}
	if saved.Output.Mining.PriceRefUSD.Valid {
		t.Error("priceRefUSD should be unavailable without a rate")
	}
	if !saved.Output.Mining.PriceRefCDF.Equal(d("1000000")) {
		t.Errorf("priceRefCDF = %s", saved.Output.Mining.PriceRefCDF)
	}
}

func TestService_Create_KeepsVATAtSale(t *testing.T) {
	for _, kind := range []pricing.Kind{pricing.MiningReference, pricing.NonMiningReference} {
		t.Run(string(kind), func(t *testing.T) {
			svc, repo := newTestService(fx.Rate{ID: 1, Value: d("2500")})
			p := SaveParams{
				Kind: kind,
				Inputs: rollup.Inputs{
					reference.FieldPMFCommercialCDF: d("1000"),
					reference.FieldVATAtSaleCDF:     d("180"),
				},
			}

			preview, err := svc.Preview(context.Background(), p)
			if err != nil {
				t.Fatalf("preview: %v", err)
			}
			saved, err := svc.Create(context.Background(), p)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			var stored rollup.Inputs
			if err := json.Unmarshal(repo.records[saved.ID].Inputs, &stored); err != nil {
				t.Fatalf("stored inputs: %v", err)
			}
			if got := stored.Get(reference.FieldVATAtSaleCDF); !got.Equal(d("180")) {
				t.Errorf("stored vatAtSaleCDF = %s, want 180", got)
			}

			got, err := svc.Get(context.Background(), saved.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			a, _ := json.Marshal(preview)
			b, _ := json.Marshal(got.Output)
			if string(a) != string(b) {
				t.Errorf("read-back output differs from preview:\npreview %s\nsaved   %s", a, b)
			}
		})
	}
}

func TestService_Create_Errors(t *testing.T) {
	missing := int64(42)
	tests := []struct {
		name    string
		params  SaveParams
		wantErr error
	}{
		{"unknown kind", SaveParams{Kind: "retail"}, pricing.ErrUnknownKind},
		{"unknown rate", SaveParams{Kind: pricing.MiningReference, RateID: &missing}, fx.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			if _, err := svc.Create(context.Background(), tt.params); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Update_KeepsKind(t *testing.T) {
	svc, _ := newTestService(fx.Rate{ID: 1, Value: d("2500")})
	ctx := context.Background()

	saved, err := svc.Create(ctx, SaveParams{Kind: pricing.MiningBuildUp, Inputs: buildUpInputs("100")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.Update(ctx, saved.ID, SaveParams{Kind: pricing.MiningReference, Inputs: buildUpInputs("200")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Kind != pricing.MiningBuildUp {
		t.Errorf("kind = %q, want mining-buildup", updated.Kind)
	}
	if !updated.Output.BuildUp.SellingPriceDDUUSD.Equal(d("930")) {
		t.Errorf("sellingPriceDDUUSD = %s, want 930", updated.Output.BuildUp.SellingPriceDDUUSD)
	}
}

func TestService_BuildUp(t *testing.T) {
	svc, _ := newTestService(fx.Rate{ID: 1, Value: d("2500")})
	ctx := context.Background()

	bu, err := svc.Create(ctx, SaveParams{Kind: pricing.NonMiningBuildUp, Inputs: buildUpInputs("100")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ref, err := svc.Create(ctx, SaveParams{Kind: pricing.MiningReference})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r, err := svc.BuildUp(ctx, bu.ID)
	if err != nil {
		t.Fatalf("BuildUp: %v", err)
	}
	if !r.SupplierMarginUSD.Equal(d("100")) || r.Variant != buildup.NonMining {
		t.Errorf("build-up = %+v", r)
	}

	if _, err := svc.BuildUp(ctx, ref.ID); !errors.Is(err, ErrNotBuildUp) {
		t.Errorf("err = %v, want ErrNotBuildUp", err)
	}
	if _, err := svc.BuildUp(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestService_Verify(t *testing.T) {
	svc, repo := newTestService(fx.Rate{ID: 1, Value: d("2500")})
	ctx := context.Background()

	saved, err := svc.Create(ctx, SaveParams{Kind: pricing.MiningBuildUp, Inputs: buildUpInputs("100")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	drift, err := svc.Verify(ctx, repo.records[saved.ID])
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if drift != nil {
		t.Fatalf("fresh record reported drift: %+v", drift)
	}

	tampered := repo.records[saved.ID]
	var out pricing.Output
	if err := json.Unmarshal(tampered.Outputs, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out.BuildUp.PriceDDPUSD = d("1")
	tampered.Outputs, _ = json.Marshal(out)
	repo.records[saved.ID] = tampered

	drift, err = svc.Verify(ctx, tampered)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if drift == nil || drift.ID != saved.ID {
		t.Fatalf("drift = %+v, want drift for record %d", drift, saved.ID)
	}
	if !drift.Fresh.USD.Decimal.Equal(d("980")) {
		t.Errorf("fresh headline = %s, want 980", drift.Fresh.USD.Decimal)
	}

	checked, drifts, err := svc.VerifyAll(ctx, 100)
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if checked != 1 || len(drifts) != 1 {
		t.Errorf("checked %d, drifts %d; want 1, 1", checked, len(drifts))
	}
}

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	saved, err := svc.Create(ctx, SaveParams{Kind: pricing.MiningReference})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
