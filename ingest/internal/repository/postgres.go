package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/telhawk-reviews/common/database"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()
	return r.pool.Ping(ctx)
}

const reviewRequestColumns = `
	id, patient_email, patient_name, appointment_id, practice_id, practice_name,
	scheduled_send_time, status, metadata, raw_webhook_data,
	sent_at, error_message, retry_count, created_at, updated_at`

// CreateReviewRequest inserts req. A concurrent or repeated insert for the
// same appointment returns no row and maps to ErrReviewRequestExists.
func (r *PostgresRepository) CreateReviewRequest(ctx context.Context, req *models.ReviewRequest) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	var raw []byte
	if len(req.RawWebhookData) > 0 {
		raw = req.RawWebhookData
	}

	status := req.Status
	if status == "" {
		status = models.StatusPending
	}

	query := `
		INSERT INTO review_requests (
			patient_email, patient_name, appointment_id, practice_id, practice_name,
			scheduled_send_time, status, metadata, raw_webhook_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (appointment_id) DO NOTHING
		RETURNING id, status, retry_count, created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		req.PatientEmail, nullString(req.PatientName), req.SourceEventID, req.OwnerID,
		nullString(req.PracticeName), req.ScheduledSendTime, string(status), metadata, raw,
	).Scan(&req.ID, &req.Status, &req.RetryCount, &req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrReviewRequestExists
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrReviewRequestExists
		}
		return fmt.Errorf("failed to create review request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetReviewRequest(ctx context.Context, id string) (*models.ReviewRequest, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := `SELECT` + reviewRequestColumns + ` FROM review_requests WHERE id::text = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetReviewRequestBySourceEvent(ctx context.Context, sourceEventID string) (*models.ReviewRequest, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := `SELECT` + reviewRequestColumns + ` FROM review_requests WHERE appointment_id = $1`
	return r.getOne(ctx, query, sourceEventID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.ReviewRequest, error) {
	req, err := scanReviewRequest(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewRequestNotFound
		}
		return nil, fmt.Errorf("failed to get review request: %w", err)
	}
	return req, nil
}

// ListReviewRequests returns matching records ordered by send time.
func (r *PostgresRepository) ListReviewRequests(ctx context.Context, filter ListFilter) ([]*models.ReviewRequest, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conds = append(conds, fmt.Sprintf("practice_id = $%d", len(args)))
	}
	if !filter.DueBefore.IsZero() {
		args = append(args, filter.DueBefore)
		conds = append(conds, fmt.Sprintf("scheduled_send_time <= $%d", len(args)))
	}

	query := `SELECT` + reviewRequestColumns + ` FROM review_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, listLimit(filter.Limit))
	query += fmt.Sprintf(" ORDER BY scheduled_send_time, created_at LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list review requests: %w", err)
	}
	defer rows.Close()

	var out []*models.ReviewRequest
	for rows.Next() {
		req, err := scanReviewRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list review requests: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.exec(ctx, `
		UPDATE review_requests
		SET status = 'sent', sent_at = $2, error_message = NULL
		WHERE id::text = $1`, id, sentAt)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, message string) error {
	return r.exec(ctx, `
		UPDATE review_requests
		SET status = 'failed', error_message = $2, retry_count = retry_count + 1
		WHERE id::text = $1`, id, message)
}

func (r *PostgresRepository) CancelReviewRequest(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE review_requests SET status = 'cancelled' WHERE id::text = $1`, id)
}

func (r *PostgresRepository) DeleteReviewRequest(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM review_requests WHERE id::text = $1`, id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update review request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewRequestNotFound
	}
	return nil
}

func scanReviewRequest(row pgx.Row) (*models.ReviewRequest, error) {
	var (
		req          models.ReviewRequest
		patientName  *string
		practiceName *string
		errorMessage *string
		status       string
		metadata     []byte
		raw          []byte
	)

	err := row.Scan(
		&req.ID, &req.PatientEmail, &patientName, &req.SourceEventID, &req.OwnerID, &practiceName,
		&req.ScheduledSendTime, &status, &metadata, &raw,
		&req.SentAt, &errorMessage, &req.RetryCount, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Status = models.Status(status)
	if patientName != nil {
		req.PatientName = *patientName
	}
	if practiceName != nil {
		req.PracticeName = *practiceName
	}
	if errorMessage != nil {
		req.ErrorMessage = *errorMessage
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &req.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if len(raw) > 0 {
		req.RawWebhookData = json.RawMessage(raw)
	}
	return &req, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func listLimit(n int) int {
	if n <= 0 || n > 1000 {
		return DefaultListLimit
	}
	return n
}
