package assignments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/titulaflow/titulaflow/internal/platform/db"
	"github.com/titulaflow/titulaflow/internal/shared"
)

// Repository persists role assignments and the subject-load catalog facet.
// Mutations lock the (period, student) row so two concurrent writes to the
// same assignment serialize instead of interleaving.
type Repository interface {
	AssignRole(ctx context.Context, periodID, studentID int64, role Role, staffID int64) (Assignment, *int64, error)
	AssignPanel(ctx context.Context, periodID, studentID int64, staffIDs []int64, replace bool) (Assignment, error)
	Get(ctx context.Context, periodID, studentID int64) (Assignment, error)
	RegisterSubject(ctx context.Context, load SubjectLoad) (SubjectLoad, error)
	ListSubjects(ctx context.Context, unitID, careerID, periodID int64) ([]SubjectLoad, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const assignmentColumns = `id, period_id, student_id, tutor_id, reader_id, panel1_id, panel2_id, panel3_id, updated_at`

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.PeriodID, &a.StudentID, &a.TutorID, &a.ReaderID, &a.Panel1ID, &a.Panel2ID, &a.Panel3ID, &a.UpdatedAt)
	return a, err
}

// lockRow upserts the assignment row for the key and returns it locked for
// the remainder of the transaction.
func lockRow(ctx context.Context, tx pgx.Tx, periodID, studentID int64) (Assignment, error) {
	if _, err := tx.Exec(ctx, `INSERT INTO assignments (period_id, student_id)
VALUES ($1, $2) ON CONFLICT (period_id, student_id) DO NOTHING`, periodID, studentID); err != nil {
		return Assignment{}, err
	}
	row := tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments
WHERE period_id=$1 AND student_id=$2 FOR UPDATE`, periodID, studentID)
	return scanAssignment(row)
}

// AssignRole writes the tutor or reader slot, returning the updated row and
// the previous holder (nil when the slot was empty or unchanged holder).
func (r *repository) AssignRole(ctx context.Context, periodID, studentID int64, role Role, staffID int64) (Assignment, *int64, error) {
	var updated Assignment
	var previous *int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := lockRow(ctx, tx, periodID, studentID)
		if err != nil {
			return err
		}
		if current.occupies(staffID, role) {
			return fmt.Errorf("%w: role conflict", shared.ErrInvalidArgument)
		}
		var column string
		switch role {
		case RoleTutor:
			column = "tutor_id"
			previous = current.TutorID
		case RoleReader:
			column = "reader_id"
			previous = current.ReaderID
		default:
			return fmt.Errorf("%w: unknown role %q", shared.ErrInvalidArgument, role)
		}
		if previous != nil && *previous == staffID {
			previous = nil // same holder; nothing to announce
		}
		row := tx.QueryRow(ctx, `UPDATE assignments SET `+column+`=$1, updated_at=NOW()
WHERE period_id=$2 AND student_id=$3 RETURNING `+assignmentColumns, staffID, periodID, studentID)
		updated, err = scanAssignment(row)
		return err
	})
	if err != nil {
		return Assignment{}, nil, err
	}
	return updated, previous, nil
}

// AssignPanel records the three panel seats in one write. With replace false
// the panel is assign-once; with replace true an existing panel is swapped
// atomically so no two people ever transiently share a seat.
func (r *repository) AssignPanel(ctx context.Context, periodID, studentID int64, staffIDs []int64, replace bool) (Assignment, error) {
	var updated Assignment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := lockRow(ctx, tx, periodID, studentID)
		if err != nil {
			return err
		}
		hasPanel := current.PanelIDs() != nil
		if hasPanel && !replace {
			return fmt.Errorf("%w: panel already recorded", shared.ErrConflict)
		}
		if !hasPanel && replace {
			return fmt.Errorf("%w: no panel to replace", shared.ErrConflict)
		}
		for _, id := range staffIDs {
			if current.TutorID != nil && *current.TutorID == id {
				return fmt.Errorf("%w: role conflict", shared.ErrInvalidArgument)
			}
			if current.ReaderID != nil && *current.ReaderID == id {
				return fmt.Errorf("%w: role conflict", shared.ErrInvalidArgument)
			}
		}
		row := tx.QueryRow(ctx, `UPDATE assignments
SET panel1_id=$1, panel2_id=$2, panel3_id=$3, updated_at=NOW()
WHERE period_id=$4 AND student_id=$5 RETURNING `+assignmentColumns,
			staffIDs[0], staffIDs[1], staffIDs[2], periodID, studentID)
		updated, err = scanAssignment(row)
		return err
	})
	if err != nil {
		return Assignment{}, err
	}
	return updated, nil
}

func (r *repository) Get(ctx context.Context, periodID, studentID int64) (Assignment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments
WHERE period_id=$1 AND student_id=$2`, periodID, studentID)
	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, shared.ErrNotFound
	}
	return a, err
}

// RegisterSubject inserts a catalog registration, holding an advisory lock on
// the (unit, career, period) triple while the capacity is checked so a racing
// fifth registration cannot slip past the count.
func (r *repository) RegisterSubject(ctx context.Context, load SubjectLoad) (SubjectLoad, error) {
	var out SubjectLoad
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		key := shared.SubjectLoadLockKey(load.UnitID, load.CareerID, load.PeriodID)
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM subject_loads
WHERE unit_id=$1 AND career_id=$2 AND period_id=$3`,
			load.UnitID, load.CareerID, load.PeriodID).Scan(&count); err != nil {
			return err
		}
		if count >= MaxSubjectsPerCareer {
			return fmt.Errorf("%w: subject limit of %d reached for this career and period",
				shared.ErrConflict, MaxSubjectsPerCareer)
		}
		row := tx.QueryRow(ctx, `INSERT INTO subject_loads (unit_id, career_id, period_id, subject_id, tutor_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, unit_id, career_id, period_id, subject_id, tutor_id, created_at`,
			load.UnitID, load.CareerID, load.PeriodID, load.SubjectID, load.TutorID)
		return row.Scan(&out.ID, &out.UnitID, &out.CareerID, &out.PeriodID, &out.SubjectID, &out.TutorID, &out.CreatedAt)
	})
	if err != nil {
		return SubjectLoad{}, err
	}
	return out, nil
}

func (r *repository) ListSubjects(ctx context.Context, unitID, careerID, periodID int64) ([]SubjectLoad, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, unit_id, career_id, period_id, subject_id, tutor_id, created_at
FROM subject_loads WHERE unit_id=$1 AND career_id=$2 AND period_id=$3 ORDER BY id`, unitID, careerID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SubjectLoad
	for rows.Next() {
		var l SubjectLoad
		if err := rows.Scan(&l.ID, &l.UnitID, &l.CareerID, &l.PeriodID, &l.SubjectID, &l.TutorID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
