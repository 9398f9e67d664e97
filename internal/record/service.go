// Package record stores priced objects. Outputs are always recomputed from the stored
// inputs and rate on save, so a stored record never disagrees with the calculators.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/buildup"
	"github.com/mtlprog/fuelprice/internal/fx"
	"github.com/mtlprog/fuelprice/internal/pricing"
	"github.com/mtlprog/fuelprice/internal/rollup"
	"github.com/mtlprog/fuelprice/internal/validate"
)

// ErrNotBuildUp is returned when a build-up is requested from a reference record.
var ErrNotBuildUp = errors.New("record is not a cost build-up")

// RateSource looks up stored exchange rates.
type RateSource interface {
	Get(ctx context.Context, id int64) (fx.Rate, error)
	Latest(ctx context.Context) (fx.Rate, error)
}

// SaveParams are the user-entered parts of a record.
type SaveParams struct {
	Kind    pricing.Kind    `json:"kind"`
	Label   string          `json:"label"`
	Role    validate.Role   `json:"role"`
	RateID  *int64          `json:"rateId"`
	Options pricing.Options `json:"options"`
	Inputs  rollup.Inputs   `json:"inputs"`
}

// Saved is a stored record with its freshly computed output.
type Saved struct {
	Record
	Output pricing.Output `json:"output"`
}

// Drift reports a stored record whose outputs no longer match a fresh computation.
type Drift struct {
	ID     int64            `json:"id"`
	Kind   pricing.Kind     `json:"kind"`
	Stored pricing.Headline `json:"stored"`
	Fresh  pricing.Headline `json:"fresh"`
}

// Service saves and verifies priced records.
type Service struct {
	repo        Repository
	rates       RateSource
	marginFloor decimal.Decimal
}

// NewService creates a new record Service. marginFloor is the minimum supplier margin
// (USD) accepted on commercial build-ups.
func NewService(repo Repository, rates RateSource, marginFloor decimal.Decimal) *Service {
	return &Service{repo: repo, rates: rates, marginFloor: marginFloor}
}

// ResolveRate returns the rate to price with. A nil id selects the latest rate; when no
// rate has been recorded yet the rate is zero (USD figures unavailable) and the id nil.
func (s *Service) ResolveRate(ctx context.Context, id *int64) (decimal.Decimal, *int64, error) {
	if id != nil {
		rate, err := s.rates.Get(ctx, *id)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("getting rate %d: %w", *id, err)
		}
		return rate.Value, &rate.ID, nil
	}

	rate, err := s.rates.Latest(ctx)
	if err != nil {
		if errors.Is(err, fx.ErrNotFound) {
			return decimal.Zero, nil, nil
		}
		return decimal.Zero, nil, fmt.Errorf("getting latest rate: %w", err)
	}
	return rate.Value, &rate.ID, nil
}

// Preview computes without storing and without policy checks.
func (s *Service) Preview(ctx context.Context, p SaveParams) (pricing.Output, error) {
	rate, _, err := s.ResolveRate(ctx, p.RateID)
	if err != nil {
		return pricing.Output{}, err
	}
	return pricing.Compute(p.Kind, p.Inputs, rate, p.Options)
}

// Create validates, computes and stores a new record.
func (s *Service) Create(ctx context.Context, p SaveParams) (Saved, error) {
	rec, out, err := s.prepare(ctx, p)
	if err != nil {
		return Saved{}, err
	}
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return Saved{}, err
	}
	slog.Info("record saved", "id", created.ID, "kind", created.Kind)
	return Saved{Record: created, Output: out}, nil
}

// Update replaces the inputs of an existing record and recomputes its outputs.
// The kind of a record never changes.
func (s *Service) Update(ctx context.Context, id int64, p SaveParams) (Saved, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Saved{}, err
	}
	p.Kind = existing.Kind

	rec, out, err := s.prepare(ctx, p)
	if err != nil {
		return Saved{}, err
	}
	rec.ID = id

	updated, err := s.repo.Update(ctx, rec)
	if err != nil {
		return Saved{}, err
	}
	slog.Info("record updated", "id", updated.ID, "kind", updated.Kind)
	return Saved{Record: updated, Output: out}, nil
}

func (s *Service) prepare(ctx context.Context, p SaveParams) (Record, pricing.Output, error) {
	table, err := pricing.Table(p.Kind, p.Options)
	if err != nil {
		return Record{}, pricing.Output{}, err
	}
	role, err := validate.ParseRole(string(p.Role))
	if err != nil {
		return Record{}, pricing.Output{}, err
	}

	// Derived totals are never accepted as inputs.
	in := p.Inputs.Only(table.Fields())

	if p.Kind.IsBuildUp() {
		if err := validate.SupplierMargin(role, in.Get(buildup.FieldSupplierMarginUSD), s.marginFloor); err != nil {
			return Record{}, pricing.Output{}, err
		}
	}

	rate, rateID, err := s.ResolveRate(ctx, p.RateID)
	if err != nil {
		return Record{}, pricing.Output{}, err
	}
	out, err := pricing.Compute(p.Kind, in, rate, p.Options)
	if err != nil {
		return Record{}, pricing.Output{}, err
	}

	inputs, err := json.Marshal(in)
	if err != nil {
		return Record{}, pricing.Output{}, fmt.Errorf("encoding inputs: %w", err)
	}
	outputs, err := json.Marshal(out)
	if err != nil {
		return Record{}, pricing.Output{}, fmt.Errorf("encoding outputs: %w", err)
	}

	return Record{
		Kind:    p.Kind,
		Label:   p.Label,
		Role:    string(role),
		RateID:  rateID,
		Options: p.Options,
		Inputs:  inputs,
		Outputs: outputs,
	}, out, nil
}

// Get returns a stored record with its output recomputed.
func (s *Service) Get(ctx context.Context, id int64) (Saved, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Saved{}, err
	}
	out, err := s.recompute(ctx, rec)
	if err != nil {
		return Saved{}, err
	}
	return Saved{Record: rec, Output: out}, nil
}

// List returns recent records. An empty kind lists every kind.
func (s *Service) List(ctx context.Context, kind pricing.Kind, limit int) ([]Record, error) {
	return s.repo.List(ctx, kind, limit)
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// BuildUp returns the freshly computed build-up of a stored build-up record.
func (s *Service) BuildUp(ctx context.Context, id int64) (buildup.Result, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return buildup.Result{}, err
	}
	if !rec.Kind.IsBuildUp() {
		return buildup.Result{}, fmt.Errorf("record %d (%s): %w", id, rec.Kind, ErrNotBuildUp)
	}
	out, err := s.recompute(ctx, rec)
	if err != nil {
		return buildup.Result{}, err
	}
	return *out.BuildUp, nil
}

func (s *Service) recompute(ctx context.Context, rec Record) (pricing.Output, error) {
	var in rollup.Inputs
	if len(rec.Inputs) > 0 {
		if err := json.Unmarshal(rec.Inputs, &in); err != nil {
			return pricing.Output{}, fmt.Errorf("decoding inputs of record %d: %w", rec.ID, err)
		}
	}

	rate := decimal.Zero
	if rec.RateID != nil {
		r, err := s.rates.Get(ctx, *rec.RateID)
		if err != nil {
			return pricing.Output{}, fmt.Errorf("getting rate %d of record %d: %w", *rec.RateID, rec.ID, err)
		}
		rate = r.Value
	}
	return pricing.Compute(rec.Kind, in, rate, rec.Options)
}

// Verify recomputes a stored record and reports a drift when the stored outputs differ.
func (s *Service) Verify(ctx context.Context, rec Record) (*Drift, error) {
	fresh, err := s.recompute(ctx, rec)
	if err != nil {
		return nil, err
	}

	var stored pricing.Output
	if err := json.Unmarshal(rec.Outputs, &stored); err != nil {
		return nil, fmt.Errorf("decoding outputs of record %d: %w", rec.ID, err)
	}

	// Compare canonical encodings; jsonb does not preserve the stored byte layout.
	a, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding stored outputs: %w", err)
	}
	b, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("encoding fresh outputs: %w", err)
	}
	if string(a) == string(b) {
		return nil, nil
	}
	return &Drift{ID: rec.ID, Kind: rec.Kind, Stored: stored.Headline(), Fresh: fresh.Headline()}, nil
}

// VerifyAll checks up to limit recent records and returns every drift found.
func (s *Service) VerifyAll(ctx context.Context, limit int) (int, []Drift, error) {
	records, err := s.repo.List(ctx, "", limit)
	if err != nil {
		return 0, nil, err
	}

	var drifts []Drift
	for _, rec := range records {
		drift, err := s.Verify(ctx, rec)
		if err != nil {
			slog.Warn("record verification failed", "id", rec.ID, "error", err)
			continue
		}
		if drift != nil {
			drifts = append(drifts, *drift)
		}
	}
	return len(records), drifts, nil
}
