package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/fuelprice/internal/pricing"
)

// ErrNotFound indicates that the requested record was not found.
var ErrNotFound = errors.New("record not found")

// Record is a stored priced object: the raw inputs, the rate used and the outputs
// computed from them at save time.
type Record struct {
	ID        int64           `json:"id"`
	Kind      pricing.Kind    `json:"kind"`
	Label     string          `json:"label"`
	Role      string          `json:"role"`
	RateID    *int64          `json:"rateId"`
	Options   pricing.Options `json:"options"`
	Inputs    json.RawMessage `json:"inputs"`
	Outputs   json.RawMessage `json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Repository defines persistent storage for priced records.
type Repository interface {
	Create(ctx context.Context, r Record) (Record, error)
	Update(ctx context.Context, r Record) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	List(ctx context.Context, kind pricing.Kind, limit int) ([]Record, error)
	Delete(ctx context.Context, id int64) error
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL record repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const recordColumns = `id, kind, label, role, rate_id, options, inputs, outputs, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var (
		r    Record
		opts []byte
	)
	if err := row.Scan(&r.ID, &r.Kind, &r.Label, &r.Role, &r.RateID, &opts, &r.Inputs, &r.Outputs, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Record{}, err
	}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &r.Options); err != nil {
			return Record{}, fmt.Errorf("decoding options of record %d: %w", r.ID, err)
		}
	}
	return r, nil
}

func (p *PgRepository) Create(ctx context.Context, r Record) (Record, error) {
	opts, err := json.Marshal(r.Options)
	if err != nil {
		return Record{}, fmt.Errorf("encoding options: %w", err)
	}
	created, err := scanRecord(p.pool.QueryRow(ctx,
		`INSERT INTO priced_records (kind, label, role, rate_id, options, inputs, outputs)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb)
		 RETURNING `+recordColumns,
		r.Kind, r.Label, r.Role, r.RateID, opts, r.Inputs, r.Outputs))
	if err != nil {
		return Record{}, fmt.Errorf("creating record: %w", err)
	}
	return created, nil
}

func (p *PgRepository) Update(ctx context.Context, r Record) (Record, error) {
	opts, err := json.Marshal(r.Options)
	if err != nil {
		return Record{}, fmt.Errorf("encoding options: %w", err)
	}
	updated, err := scanRecord(p.pool.QueryRow(ctx,
		`UPDATE priced_records
		 SET label = $2, role = $3, rate_id = $4, options = $5::jsonb,
		     inputs = $6::jsonb, outputs = $7::jsonb, updated_at = now()
		 WHERE id = $1
		 RETURNING `+recordColumns,
		r.ID, r.Label, r.Role, r.RateID, opts, r.Inputs, r.Outputs))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("updating record %d: %w", r.ID, err)
	}
	return updated, nil
}

func (p *PgRepository) Get(ctx context.Context, id int64) (Record, error) {
	r, err := scanRecord(p.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM priced_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("getting record %d: %w", id, err)
	}
	return r, nil
}

// List returns recent records, newest first. An empty kind lists every kind.
func (p *PgRepository) List(ctx context.Context, kind pricing.Kind, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM priced_records
		 WHERE $1 = '' OR kind = $1
		 ORDER BY updated_at DESC, id DESC
		 LIMIT $2`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// Delete removes a record. Quotes referencing a build-up record go with it (ON DELETE CASCADE).
func (p *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM priced_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
