package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/buildup"
)

// ErrInvalidQuote is returned for quote parameters that cannot be priced.
var ErrInvalidQuote = errors.New("invalid quote")

// BuildUpSource resolves a stored build-up record to its freshly computed result.
type BuildUpSource interface {
	BuildUp(ctx context.Context, id int64) (buildup.Result, error)
}

// Priced is a quote together with its derived pricing.
type Priced struct {
	Quote
	Pricing Pricing `json:"pricing"`
}

// CreateParams are the inputs of a new quote.
type CreateParams struct {
	BuildUpID        int64           `json:"buildUpId"`
	Description      string          `json:"description"`
	Term             Term            `json:"term"`
	Quantity         decimal.Decimal `json:"quantity"`
	MarginUSD        decimal.Decimal `json:"marginUSD"`
	FreightToMineUSD decimal.Decimal `json:"freightToMineUSD"`
	VATApplicable    bool            `json:"vatApplicable"`
}

// UpdateParams carries the mutable fields; nil leaves a field unchanged.
type UpdateParams struct {
	Description      *string          `json:"description"`
	Term             *Term            `json:"term"`
	Quantity         *decimal.Decimal `json:"quantity"`
	MarginUSD        *decimal.Decimal `json:"marginUSD"`
	FreightToMineUSD *decimal.Decimal `json:"freightToMineUSD"`
	VATApplicable    *bool            `json:"vatApplicable"`
}

// Service manages sales quotes.
type Service struct {
	repo     Repository
	buildUps BuildUpSource
}

// NewService creates a new quote Service.
func NewService(repo Repository, buildUps BuildUpSource) *Service {
	return &Service{repo: repo, buildUps: buildUps}
}

func validate(q Quote) error {
	if _, err := ParseTerm(string(q.Term)); err != nil {
		return err
	}
	if q.Quantity.IsNegative() {
		return fmt.Errorf("%w: negative quantity %s", ErrInvalidQuote, q.Quantity)
	}
	return nil
}

// Create stores a new quote referencing an existing build-up.
func (s *Service) Create(ctx context.Context, p CreateParams) (Priced, error) {
	b, err := s.buildUps.BuildUp(ctx, p.BuildUpID)
	if err != nil {
		return Priced{}, fmt.Errorf("loading build-up %d: %w", p.BuildUpID, err)
	}

	term, err := ParseTerm(string(p.Term))
	if err != nil {
		return Priced{}, err
	}
	q := Quote{
		ID:               uuid.New(),
		BuildUpID:        p.BuildUpID,
		Description:      p.Description,
		Term:             term,
		Quantity:         p.Quantity,
		MarginUSD:        p.MarginUSD,
		FreightToMineUSD: p.FreightToMineUSD,
		VATApplicable:    p.VATApplicable,
	}
	if err := validate(q); err != nil {
		return Priced{}, err
	}

	created, err := s.repo.Create(ctx, q)
	if err != nil {
		return Priced{}, err
	}
	slog.Info("quote created", "id", created.ID, "buildUpId", created.BuildUpID)
	return Priced{Quote: created, Pricing: Price(b, created.Terms())}, nil
}

// Get returns a quote priced against the current state of its build-up.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Priced, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Priced{}, err
	}
	return s.price(ctx, q)
}

// ListByBuildUp returns every quote of a build-up, priced.
func (s *Service) ListByBuildUp(ctx context.Context, buildUpID int64) ([]Priced, error) {
	b, err := s.buildUps.BuildUp(ctx, buildUpID)
	if err != nil {
		return nil, fmt.Errorf("loading build-up %d: %w", buildUpID, err)
	}
	quotes, err := s.repo.ListByBuildUp(ctx, buildUpID)
	if err != nil {
		return nil, err
	}

	priced := make([]Priced, 0, len(quotes))
	for _, q := range quotes {
		priced = append(priced, Priced{Quote: q, Pricing: Price(b, q.Terms())})
	}
	return priced, nil
}

// Update applies the given changes and reprices the quote.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (Priced, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Priced{}, err
	}

	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Term != nil {
		term, err := ParseTerm(string(*p.Term))
		if err != nil {
			return Priced{}, err
		}
		q.Term = term
	}
	if p.Quantity != nil {
		q.Quantity = *p.Quantity
	}
	if p.MarginUSD != nil {
		q.MarginUSD = *p.MarginUSD
	}
	if p.FreightToMineUSD != nil {
		q.FreightToMineUSD = *p.FreightToMineUSD
	}
	if p.VATApplicable != nil {
		q.VATApplicable = *p.VATApplicable
	}
	if err := validate(q); err != nil {
		return Priced{}, err
	}

	updated, err := s.repo.Update(ctx, q)
	if err != nil {
		return Priced{}, err
	}
	return s.price(ctx, updated)
}

// Delete removes a quote. The referenced build-up is untouched.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) price(ctx context.Context, q Quote) (Priced, error) {
	b, err := s.buildUps.BuildUp(ctx, q.BuildUpID)
	if err != nil {
		return Priced{}, fmt.Errorf("loading build-up %d: %w", q.BuildUpID, err)
	}
	return Priced{Quote: q, Pricing: Price(b, q.Terms())}, nil
}
