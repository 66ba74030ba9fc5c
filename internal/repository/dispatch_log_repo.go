package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"arcos-chat/internal/models"
)

type DispatchLogRepo struct {
	pool *pgxpool.Pool
}

func NewDispatchLogRepo(pool *pgxpool.Pool) *DispatchLogRepo {
	return &DispatchLogRepo{pool: pool}
}

func (r *DispatchLogRepo) Insert(ctx context.Context, rec models.DispatchRecord) error {
	query := `INSERT INTO dispatch_log (request_id, session_id, question, outcome, http_status, product_count, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		rec.RequestID, rec.SessionID, rec.Question, rec.Outcome,
		rec.HTTPStatus, rec.ProductCount, rec.Duration.Milliseconds(), rec.CreatedAt,
	)
	return err
}

// ListBySession returns the most recent dispatches of a session, newest first.
func (r *DispatchLogRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.DispatchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT request_id, session_id, question, outcome, http_status, product_count, duration_ms, created_at
		FROM dispatch_log WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DispatchRecord
	for rows.Next() {
		var rec models.DispatchRecord
		var durationMs int64
		if err := rows.Scan(
			&rec.RequestID, &rec.SessionID, &rec.Question, &rec.Outcome,
			&rec.HTTPStatus, &rec.ProductCount, &durationMs, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// OutcomeCounts aggregates dispatch outcomes since the given time.
func (r *DispatchLogRepo) OutcomeCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT outcome, COUNT(*) FROM dispatch_log WHERE created_at >= $1 GROUP BY outcome`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
