package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/titulaflow/titulaflow/internal/platform/db"
	"github.com/titulaflow/titulaflow/internal/shared"
)

// Repository persists periods and the single active-period pointer.
type Repository interface {
	Create(ctx context.Context, period Period) (Period, error)
	Get(ctx context.Context, id int64) (Period, error)
	List(ctx context.Context) ([]Period, error)
	Activate(ctx context.Context, id int64, now time.Time) (Period, error)
	GetActive(ctx context.Context, now time.Time) (*Period, error)
	Close(ctx context.Context, id int64) (Period, error)
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const periodColumns = `id, name, start_date, end_date, status, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Create(ctx context.Context, period Period) (Period, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO periods (name, start_date, end_date, status)
VALUES ($1, $2, $3, $4) RETURNING `+periodColumns,
		period.Name, period.StartDate, period.EndDate, PeriodStatusDraft)
	return scanPeriod(row)
}

func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id=$1`, id)
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Activate promotes the target period and demotes every other period in a
// single transaction, then points the active_period singleton row at the
// target. Concurrent activations contend on the same rows; the loser surfaces
// as ErrConflict and never observes a half-applied switch.
func (r *repository) Activate(ctx context.Context, id int64, now time.Time) (Period, error) {
	var activated Period
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE periods SET status=$1, updated_at=NOW() WHERE status=$2 AND id <> $3`,
			PeriodStatusClosed, PeriodStatusActive, id); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `UPDATE periods SET status=$1, updated_at=NOW()
WHERE id=$2 AND end_date >= $3 RETURNING `+periodColumns, PeriodStatusActive, id, now)
		p, err := scanPeriod(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Distinguish absent from expired.
				var exists bool
				if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM periods WHERE id=$1)`, id).Scan(&exists); err != nil {
					return err
				}
				if !exists {
					return shared.ErrNotFound
				}
				return fmt.Errorf("%w: period end date has passed", shared.ErrConflict)
			}
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO active_period (singleton, period_id) VALUES (TRUE, $1)
ON CONFLICT (singleton) DO UPDATE SET period_id=EXCLUDED.period_id`, id); err != nil {
			return err
		}
		activated = p
		return nil
	})
	if err != nil {
		return Period{}, mapSerializationFailure(err)
	}
	return activated, nil
}

// GetActive returns the current active period, closing it first if its end
// date has passed. Expiration and pointer cleanup happen in the same
// transaction as the read.
func (r *repository) GetActive(ctx context.Context, now time.Time) (*Period, error) {
	var active *Period
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE periods SET status=$1, updated_at=NOW() WHERE status=$2 AND end_date < $3`,
			PeriodStatusClosed, PeriodStatusActive, now); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM active_period ap USING periods p
WHERE ap.period_id = p.id AND p.status <> $1`, PeriodStatusActive); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods p
JOIN active_period ap ON ap.period_id = p.id`)
		p, err := scanPeriod(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		active = &p
		return nil
	})
	if err != nil {
		return nil, mapSerializationFailure(err)
	}
	return active, nil
}

func (r *repository) Close(ctx context.Context, id int64) (Period, error) {
	var closed Period
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE periods SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING `+periodColumns,
			PeriodStatusClosed, id)
		p, err := scanPeriod(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM active_period WHERE period_id=$1`, id); err != nil {
			return err
		}
		closed = p
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	return closed, nil
}

// CloseExpired closes every active period whose end date has passed and clears
// the pointer. Used by the nightly sweep; GetActive performs the same cleanup
// lazily on read.
func (r *repository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE periods SET status=$1, updated_at=NOW() WHERE status=$2 AND end_date < $3`,
			PeriodStatusClosed, PeriodStatusActive, now)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		_, err = tx.Exec(ctx, `DELETE FROM active_period ap USING periods p
WHERE ap.period_id = p.id AND p.status <> $1`, PeriodStatusActive)
		return err
	})
	return n, err
}

// mapSerializationFailure converts a repeatable-read write conflict into the
// engine's Conflict error so a losing activation reads as "not currently
// allowed" rather than an internal failure.
func mapSerializationFailure(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return fmt.Errorf("%w: concurrent update lost", shared.ErrConflict)
	}
	return err
}
