package issuance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/titulaflow/titulaflow/internal/platform/db"
	"github.com/titulaflow/titulaflow/internal/shared"
	"github.com/titulaflow/titulaflow/internal/validations"
)

// Repository persists documents and links them onto the validation ledger.
type Repository interface {
	InsertAndLink(ctx context.Context, doc Document, key validations.Key) error
	GetDocument(ctx context.Context, id uuid.UUID) (Document, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// InsertAndLink writes the document and links it onto the validation row in
// one transaction. The link re-checks APPROVED state and an empty document
// slot at write time, so a rejection or a competing issuance that landed
// after the caller's pre-check rolls the whole insert back.
func (r *repository) InsertAndLink(ctx context.Context, doc Document, key validations.Key) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO documents (id, kind, student_id, period_id, issuer_id, storage_ref)
VALUES ($1, $2, $3, $4, $5, $6)`,
			doc.ID, doc.Kind, doc.StudentID, doc.PeriodID, doc.IssuerID, doc.StorageRef); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: already issued", shared.ErrConflict)
			}
			return err
		}
		row := tx.QueryRow(ctx, `UPDATE validations SET document_id=$1, updated_at=NOW()
WHERE process=$2 AND period_id=$3 AND student_id=$4
	AND state='APPROVED' AND document_id IS NULL
RETURNING id`, doc.ID, key.Process, key.PeriodID, key.StudentID)
		var linked int64
		if err := row.Scan(&linked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: validation state changed during issuance", shared.ErrConflict)
			}
			return err
		}
		return nil
	})
	return err
}

func (r *repository) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, kind, student_id, period_id, issuer_id, storage_ref, created_at
FROM documents WHERE id=$1`, id)
	var doc Document
	err := row.Scan(&doc.ID, &doc.Kind, &doc.StudentID, &doc.PeriodID, &doc.IssuerID, &doc.StorageRef, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, shared.ErrNotFound
	}
	return doc, err
}
