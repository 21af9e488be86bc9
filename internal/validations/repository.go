package validations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/titulaflow/titulaflow/internal/shared"
)

// Key identifies one ledger row.
type Key struct {
	Process   Process
	PeriodID  int64
	StudentID int64
}

// Repository persists the validation ledger. Every transition is a single
// guarded statement keyed on (process, period, student); there is no
// read-then-write pair anywhere on the mutation path.
type Repository interface {
	Approve(ctx context.Context, key Key) (Record, ValidationState, error)
	Reject(ctx context.Context, key Key, observation *string) (Record, ValidationState, error)
	Reconsider(ctx context.Context, key Key) (Record, error)
	Get(ctx context.Context, key Key) (Record, error)
	ListByProcess(ctx context.Context, process Process, periodID int64) ([]Record, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const recordColumns = `id, process, period_id, student_id, state, observation, document_id, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Process, &rec.PeriodID, &rec.StudentID, &rec.State, &rec.Observation, &rec.DocumentID, &rec.UpdatedAt)
	return rec, err
}

// Approve upserts the row into APPROVED. Allowed from a missing row, PENDING
// or APPROVED (idempotent). A REJECTED row is not silently flipped; the caller
// gets Conflict and must reconsider first.
func (r *repository) Approve(ctx context.Context, key Key) (Record, ValidationState, error) {
	row := r.pool.QueryRow(ctx, `WITH prev AS (
	SELECT state FROM validations WHERE process=$1 AND period_id=$2 AND student_id=$3
), up AS (
	INSERT INTO validations (process, period_id, student_id, state, updated_at)
	VALUES ($1, $2, $3, 'APPROVED', NOW())
	ON CONFLICT (process, period_id, student_id) DO UPDATE
		SET state='APPROVED', updated_at=NOW()
		WHERE validations.state IN ('PENDING', 'APPROVED')
	RETURNING `+recordColumns+`
)
SELECT up.*, COALESCE((SELECT state FROM prev), '') FROM up`, key.Process, key.PeriodID, key.StudentID)
	return r.scanTransition(row, "cannot approve a rejected clearance; reconsider it first")
}

// Reject upserts the row into REJECTED with an optional observation. Allowed
// from a missing row, PENDING, REJECTED (idempotent observation overwrite) or
// APPROVED while no certificate is linked.
func (r *repository) Reject(ctx context.Context, key Key, observation *string) (Record, ValidationState, error) {
	row := r.pool.QueryRow(ctx, `WITH prev AS (
	SELECT state FROM validations WHERE process=$1 AND period_id=$2 AND student_id=$3
), up AS (
	INSERT INTO validations (process, period_id, student_id, state, observation, updated_at)
	VALUES ($1, $2, $3, 'REJECTED', $4, NOW())
	ON CONFLICT (process, period_id, student_id) DO UPDATE
		SET state='REJECTED', observation=EXCLUDED.observation, updated_at=NOW()
		WHERE validations.state IN ('PENDING', 'REJECTED')
			OR (validations.state = 'APPROVED' AND validations.document_id IS NULL)
	RETURNING `+recordColumns+`
)
SELECT up.*, COALESCE((SELECT state FROM prev), '') FROM up`, key.Process, key.PeriodID, key.StudentID, observation)
	return r.scanTransition(row, "cannot reject once a certificate exists")
}

func (r *repository) scanTransition(row pgx.Row, conflictDetail string) (Record, ValidationState, error) {
	var rec Record
	var prev ValidationState
	err := row.Scan(&rec.ID, &rec.Process, &rec.PeriodID, &rec.StudentID, &rec.State, &rec.Observation, &rec.DocumentID, &rec.UpdatedAt, &prev)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The guard refused the transition.
			return Record{}, "", fmt.Errorf("%w: %s", shared.ErrConflict, conflictDetail)
		}
		return Record{}, "", err
	}
	return rec, prev, nil
}

// Reconsider moves a REJECTED row back to PENDING, refused once a certificate
// is linked. The guard and the write are one statement, so a racing issuance
// cannot slip a document in between.
func (r *repository) Reconsider(ctx context.Context, key Key) (Record, error) {
	row := r.pool.QueryRow(ctx, `UPDATE validations
SET state='PENDING', observation=NULL, updated_at=NOW()
WHERE process=$1 AND period_id=$2 AND student_id=$3
	AND state='REJECTED' AND document_id IS NULL
RETURNING `+recordColumns, key.Process, key.PeriodID, key.StudentID)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, err
	}
	// Zero rows: inspect the row to report the precise refusal.
	existing, getErr := r.Get(ctx, key)
	if getErr != nil {
		return Record{}, getErr
	}
	if existing.DocumentID != nil {
		return Record{}, fmt.Errorf("%w: cannot reconsider once a certificate exists", shared.ErrConflict)
	}
	return Record{}, fmt.Errorf("%w: only rejected clearances can be reconsidered", shared.ErrConflict)
}

func (r *repository) Get(ctx context.Context, key Key) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM validations
WHERE process=$1 AND period_id=$2 AND student_id=$3`, key.Process, key.PeriodID, key.StudentID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, shared.ErrNotFound
	}
	return rec, err
}

func (r *repository) ListByProcess(ctx context.Context, process Process, periodID int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+` FROM validations
WHERE process=$1 AND period_id=$2 ORDER BY student_id`, process, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Process, &rec.PeriodID, &rec.StudentID, &rec.State, &rec.Observation, &rec.DocumentID, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
