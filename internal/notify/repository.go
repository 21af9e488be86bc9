package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/titulaflow/titulaflow/internal/shared"
)

// Repository persists notifications.
type Repository interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	ListFor(ctx context.Context, userID int64, roles []string) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const notificationColumns = `id, target_user_id, target_role, title, body, read, created_at`

func (r *repository) Insert(ctx context.Context, n Notification) (Notification, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO notifications (target_user_id, target_role, title, body)
VALUES ($1, $2, $3, $4) RETURNING `+notificationColumns,
		n.TargetUserID, n.TargetRole, n.Title, n.Body)
	var out Notification
	err := row.Scan(&out.ID, &out.TargetUserID, &out.TargetRole, &out.Title, &out.Body, &out.Read, &out.CreatedAt)
	return out, err
}

// ListFor returns notifications addressed to the user directly or to any of
// the user's roles, newest first.
func (r *repository) ListFor(ctx context.Context, userID int64, roles []string) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications
WHERE target_user_id = $1 OR target_role = ANY($2)
ORDER BY created_at DESC LIMIT 200`, userID, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.TargetUserID, &n.TargetRole, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flips the read flag; only the addressed user may flip it.
func (r *repository) MarkRead(ctx context.Context, id, userID int64) error {
	row := r.pool.QueryRow(ctx, `UPDATE notifications SET read=TRUE
WHERE id=$1 AND target_user_id=$2 RETURNING id`, id, userID)
	var got int64
	if err := row.Scan(&got); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		return err
	}
	return nil
}
