package eligibility

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/titulaflow/titulaflow/internal/validations"
)

// Repository reads the validation ledger for eligibility computation. It never
// writes; eligibility is always derived state.
type Repository interface {
	ApprovedForAll(ctx context.Context, processes []validations.Process, periodID int64) ([]int64, error)
	StandingRows(ctx context.Context, processes []validations.Process, periodID int64) (map[int64]map[validations.Process]validations.ValidationState, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// ApprovedForAll returns the students holding an APPROVED row for every one
// of the given processes in the period. Absence is not approval.
func (r *repository) ApprovedForAll(ctx context.Context, processes []validations.Process, periodID int64) ([]int64, error) {
	tags := make([]string, len(processes))
	for i, p := range processes {
		tags[i] = string(p)
	}
	rows, err := r.pool.Query(ctx, `SELECT student_id FROM validations
WHERE period_id=$1 AND process=ANY($2) AND state='APPROVED'
GROUP BY student_id
HAVING COUNT(DISTINCT process) = $3
ORDER BY student_id`, periodID, tags, len(processes))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// StandingRows returns, per student, the ledger state of each prerequisite
// that has a row. Prerequisites without a row are simply absent from the
// inner map.
func (r *repository) StandingRows(ctx context.Context, processes []validations.Process, periodID int64) (map[int64]map[validations.Process]validations.ValidationState, error) {
	tags := make([]string, len(processes))
	for i, p := range processes {
		tags[i] = string(p)
	}
	rows, err := r.pool.Query(ctx, `SELECT student_id, process, state FROM validations
WHERE period_id=$1 AND process=ANY($2) ORDER BY student_id`, periodID, tags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]map[validations.Process]validations.ValidationState)
	for rows.Next() {
		var studentID int64
		var process validations.Process
		var state validations.ValidationState
		if err := rows.Scan(&studentID, &process, &state); err != nil {
			return nil, err
		}
		if out[studentID] == nil {
			out[studentID] = make(map[validations.Process]validations.ValidationState)
		}
		out[studentID][process] = state
	}
	return out, rows.Err()
}
