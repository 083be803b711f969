package repository

import (
	"context"
	"errors"
	"fmt"

	"catalog-importer/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// importSessionRepository implements ImportSessionRepository backed by pgxpool.
type importSessionRepository struct {
	pool *pgxpool.Pool
}

// NewImportSessionRepository creates a new import session repository.
func NewImportSessionRepository(pool *pgxpool.Pool) ImportSessionRepository {
	return &importSessionRepository{pool: pool}
}

// Create persists a new pending session.
func (r *importSessionRepository) Create(ctx context.Context, session domain.ImportSession) (domain.ImportSession, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO import_sessions (id, filename, total_rows, processed_rows, success_count, error_count, status, error_log, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, $4, '', NOW(), NOW())`,
		session.ID,
		session.Filename,
		session.TotalRows,
		string(session.Status),
	)
	if err != nil {
		return domain.ImportSession{}, fmt.Errorf("failed to create import session: %w", err)
	}
	return r.GetByID(ctx, session.ID)
}

// GetByID fetches a session. The single-row read is the consistent
// snapshot pollers observe between checkpoints.
func (r *importSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, filename, total_rows, processed_rows, success_count, error_count, status, error_log, created_at, updated_at
		FROM import_sessions WHERE id = $1`, id)

	var (
		session  domain.ImportSession
		status   string
		errorLog pgtype.Text
	)
	err := row.Scan(
		&session.ID,
		&session.Filename,
		&session.TotalRows,
		&session.ProcessedRows,
		&session.SuccessCount,
		&session.ErrorCount,
		&status,
		&errorLog,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ImportSession{}, ErrNotFound
	}
	if err != nil {
		return domain.ImportSession{}, fmt.Errorf("failed to scan import session: %w", err)
	}

	session.Status = domain.ImportStatus(status)
	if errorLog.Valid {
		session.ErrorLog = errorLog.String
	}
	return session, nil
}

// Checkpoint persists current progress counters. The counters land in a
// single UPDATE so a concurrent poller never sees a partially-updated
// tuple.
func (r *importSessionRepository) Checkpoint(ctx context.Context, id uuid.UUID, processed, success, errorCount int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE import_sessions
		SET processed_rows = $2, success_count = $3, error_count = $4, status = $5, updated_at = NOW()
		WHERE id = $1`,
		id, processed, success, errorCount, string(domain.ImportStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("failed to checkpoint import session: %w", err)
	}
	return nil
}

// Finalize writes the terminal status, final counters and error log.
func (r *importSessionRepository) Finalize(ctx context.Context, id uuid.UUID, status domain.ImportStatus, processed, success, errorCount int, errorLog string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE import_sessions
		SET status = $2, processed_rows = $3, success_count = $4, error_count = $5, error_log = $6, updated_at = NOW()
		WHERE id = $1`,
		id, string(status), processed, success, errorCount, errorLog,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize import session: %w", err)
	}
	return nil
}
