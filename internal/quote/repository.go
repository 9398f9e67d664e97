package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that the requested quote was not found.
var ErrNotFound = errors.New("quote not found")

// Quote is a stored sales quote. Prices are never stored; they are derived from the
// referenced build-up on every read.
type Quote struct {
	ID               uuid.UUID       `json:"id"`
	BuildUpID        int64           `json:"buildUpId"`
	Description      string          `json:"description"`
	Term             Term            `json:"term"`
	Quantity         decimal.Decimal `json:"quantity"`
	MarginUSD        decimal.Decimal `json:"marginUSD"`
	FreightToMineUSD decimal.Decimal `json:"freightToMineUSD"`
	VATApplicable    bool            `json:"vatApplicable"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Terms returns the pricing parameters of the quote.
func (q Quote) Terms() Terms {
	return Terms{
		Term:             q.Term,
		Quantity:         q.Quantity,
		MarginUSD:        q.MarginUSD,
		FreightToMineUSD: q.FreightToMineUSD,
		VATApplicable:    q.VATApplicable,
	}
}

// Repository defines persistent storage for quotes.
type Repository interface {
	Create(ctx context.Context, q Quote) (Quote, error)
	Get(ctx context.Context, id uuid.UUID) (Quote, error)
	ListByBuildUp(ctx context.Context, buildUpID int64) ([]Quote, error)
	Update(ctx context.Context, q Quote) (Quote, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL quote repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const quoteColumns = `id, buildup_id, description, term, quantity, margin_usd, freight_to_mine_usd,
	vat_applicable, created_at, updated_at`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.BuildUpID, &q.Description, &q.Term, &q.Quantity, &q.MarginUSD,
		&q.FreightToMineUSD, &q.VATApplicable, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (r *PgRepository) Create(ctx context.Context, q Quote) (Quote, error) {
	created, err := scanQuote(r.pool.QueryRow(ctx,
		`INSERT INTO sales_quotes (id, buildup_id, description, term, quantity, margin_usd,
		   freight_to_mine_usd, vat_applicable)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+quoteColumns,
		q.ID, q.BuildUpID, q.Description, q.Term, q.Quantity, q.MarginUSD, q.FreightToMineUSD, q.VATApplicable))
	if err != nil {
		return Quote{}, fmt.Errorf("creating quote: %w", err)
	}
	return created, nil
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM sales_quotes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, fmt.Errorf("getting quote %s: %w", id, err)
	}
	return q, nil
}

func (r *PgRepository) ListByBuildUp(ctx context.Context, buildUpID int64) ([]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quoteColumns+`
		 FROM sales_quotes
		 WHERE buildup_id = $1
		 ORDER BY created_at DESC`, buildUpID)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quotes: %w", err)
	}
	return quotes, nil
}

// Update writes the mutable fields. created_at and buildup_id never change.
func (r *PgRepository) Update(ctx context.Context, q Quote) (Quote, error) {
	updated, err := scanQuote(r.pool.QueryRow(ctx,
		`UPDATE sales_quotes
		 SET description = $2, term = $3, quantity = $4, margin_usd = $5,
		     freight_to_mine_usd = $6, vat_applicable = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+quoteColumns,
		q.ID, q.Description, q.Term, q.Quantity, q.MarginUSD, q.FreightToMineUSD, q.VATApplicable))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, fmt.Errorf("updating quote %s: %w", q.ID, err)
	}
	return updated, nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales_quotes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting quote %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
