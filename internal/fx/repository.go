package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that the requested rate was not found.
var ErrNotFound = errors.New("exchange rate not found")

// RateRepository defines persistent storage for exchange rates.
// There is deliberately no update operation: rates are insert-only.
type RateRepository interface {
	Save(ctx context.Context, rate Rate) (Rate, error)
	Get(ctx context.Context, id int64) (Rate, error)
	Latest(ctx context.Context) (Rate, error)
	List(ctx context.Context, limit int) ([]Rate, error)
}

// PgRateRepository implements RateRepository with PostgreSQL.
type PgRateRepository struct {
	pool *pgxpool.Pool
}

// NewPgRateRepository creates a new PostgreSQL rate repository.
func NewPgRateRepository(pool *pgxpool.Pool) *PgRateRepository {
	return &PgRateRepository{pool: pool}
}

func (r *PgRateRepository) Save(ctx context.Context, rate Rate) (Rate, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exchange_rates (rate, effective_date)
		 VALUES ($1, $2)
		 RETURNING id, rate, created_at`,
		rate.Value, rate.EffectiveDate).Scan(&rate.ID, &rate.Value, &rate.CreatedAt)
	if err != nil {
		return Rate{}, fmt.Errorf("saving exchange rate: %w", err)
	}
	return rate, nil
}

func (r *PgRateRepository) Get(ctx context.Context, id int64) (Rate, error) {
	var rate Rate
	err := r.pool.QueryRow(ctx,
		`SELECT id, rate, effective_date, created_at FROM exchange_rates WHERE id = $1`,
		id).Scan(&rate.ID, &rate.Value, &rate.EffectiveDate, &rate.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrNotFound
		}
		return Rate{}, fmt.Errorf("getting exchange rate %d: %w", id, err)
	}
	return rate, nil
}

func (r *PgRateRepository) Latest(ctx context.Context) (Rate, error) {
	var rate Rate
	err := r.pool.QueryRow(ctx,
		`SELECT id, rate, effective_date, created_at
		 FROM exchange_rates
		 ORDER BY effective_date DESC, id DESC
		 LIMIT 1`).Scan(&rate.ID, &rate.Value, &rate.EffectiveDate, &rate.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrNotFound
		}
		return Rate{}, fmt.Errorf("getting latest exchange rate: %w", err)
	}
	return rate, nil
}

func (r *PgRateRepository) List(ctx context.Context, limit int) ([]Rate, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, rate, effective_date, created_at
		 FROM exchange_rates
		 ORDER BY effective_date DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing exchange rates: %w", err)
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.ID, &rate.Value, &rate.EffectiveDate, &rate.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exchange rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

// Service records and looks up exchange rates.
type Service struct {
	repo RateRepository
}

// NewService creates a new rate Service.
func NewService(repo RateRepository) *Service {
	return &Service{repo: repo}
}

// Record validates and stores a new rate.
func (s *Service) Record(ctx context.Context, value decimal.Decimal, effective time.Time) (Rate, error) {
	rate, err := NewRate(value, effective)
	if err != nil {
		return Rate{}, err
	}
	return s.repo.Save(ctx, rate)
}

// Get returns the rate with the given ID.
func (s *Service) Get(ctx context.Context, id int64) (Rate, error) {
	return s.repo.Get(ctx, id)
}

// Latest returns the most recent rate by effective date.
func (s *Service) Latest(ctx context.Context) (Rate, error) {
	return s.repo.Latest(ctx)
}

// List returns recent rates, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Rate, error) {
	return s.repo.List(ctx, limit)
}
