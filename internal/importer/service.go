package importer

import (
	"context"
	"errors"
	"fmt"

	"catalog-importer/internal/config"
	"catalog-importer/internal/domain"
	"catalog-importer/internal/repository"
	"catalog-importer/internal/telemetry"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyUpload is returned when the submitted file has no content.
	ErrEmptyUpload = errors.New("uploaded file is empty")
	// ErrUploadTooLarge is returned when the file exceeds the size ceiling.
	ErrUploadTooLarge = errors.New("uploaded file exceeds the size limit")
)

// EventPublisher decouples the coordinator from the webhook dispatcher.
type EventPublisher interface {
	Publish(kind domain.EventKind, payload map[string]any)
}

// Service owns the ingestion pipeline: synchronous submission checks,
// the detached coordinator run, and the progress read path.
type Service struct {
	sessions repository.ImportSessionRepository
	products repository.ProductRepository
	events   EventPublisher
	cfg      config.ImportConfig
}

// NewService creates a new ingestion service.
func NewService(
	sessions repository.ImportSessionRepository,
	products repository.ProductRepository,
	events EventPublisher,
	cfg config.ImportConfig,
) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.CheckpointRows <= 0 {
		cfg.CheckpointRows = 100
	}
	return &Service{
		sessions: sessions,
		products: products,
		events:   events,
		cfg:      cfg,
	}
}

// Submission acknowledges an accepted upload.
type Submission struct {
	SessionID uuid.UUID `json:"session_id"`
	TotalRows int       `json:"total_rows"`
}

// Submit validates the upload structurally, creates a pending session
// and starts the ingestion run in a detached goroutine. It returns as
// soon as the session exists; progress is observed by polling.
func (s *Service) Submit(ctx context.Context, filename string, payload []byte) (Submission, error) {
	if len(payload) == 0 {
		return Submission{}, ErrEmptyUpload
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(payload)) > s.cfg.MaxUploadBytes {
		return Submission{}, ErrUploadTooLarge
	}

	table, err := parseTable(filename, payload)
	if err != nil {
		return Submission{}, err
	}

	cols, err := mapColumns(table.headers)
	if err != nil {
		return Submission{}, err
	}

	session, err := s.sessions.Create(ctx, domain.NewImportSession(filename, len(table.rows)))
	if err != nil {
		return Submission{}, fmt.Errorf("failed to create import session: %w", err)
	}

	telemetry.ImportsStarted.Inc()

	// The run owns the session from here on. It is detached from the
	// request context: once started, an ingestion proceeds to
	// completion or failure and cannot be cancelled.
	go s.run(context.Background(), session, table, cols)

	return Submission{SessionID: session.ID, TotalRows: session.TotalRows}, nil
}

// run drives the parse->validate->batch->apply loop for one session.
// It never returns an error and never lets a panic escape: a fatal
// condition marks the session failed and stops there.
func (s *Service) run(ctx context.Context, session domain.ImportSession, table tableData, cols columnIndex) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, session.ID, fmt.Sprintf("processing failed: %v", r))
		}
	}()

	log := logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"filename":   session.Filename,
		"total_rows": session.TotalRows,
	})
	log.Info("import started")

	// Transition pending -> processing before the first row.
	if err := s.sessions.Checkpoint(ctx, session.ID, 0, 0, 0); err != nil {
		s.fail(ctx, session.ID, fmt.Sprintf("processing failed: %v", err))
		return
	}

	var (
		processed int
		success   int
		errCount  int
		rowErrors []string
		batch     []domain.Product
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		applied := s.products.UpsertBatch(ctx, batch)
		success += applied
		// Records dropped by the fallback path are counted as errors so
		// that success + errors always equals the rows accounted for.
		errCount += len(batch) - applied
		batch = batch[:0]
	}

	for i, row := range table.rows {
		rowNumber := i + 2 // 1-based, after the header row
		processed++
		telemetry.RowsProcessed.Inc()

		product, rowErr := validateRow(rowNumber, cols, row)
		if rowErr != nil {
			errCount++
			rowErrors = append(rowErrors, rowErr.Message())
			telemetry.RowsRejected.Inc()
		} else {
			batch = append(batch, product)
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}
		}

		// Checkpoint on row-count boundaries. Only resolved rows are
		// reported so the counter tuple stays internally consistent;
		// rows waiting in the batch show up after the next flush.
		if processed%s.cfg.CheckpointRows == 0 {
			if err := s.sessions.Checkpoint(ctx, session.ID, success+errCount, success, errCount); err != nil {
				s.fail(ctx, session.ID, fmt.Sprintf("processing failed: %v", err))
				return
			}
		}
	}

	flush()

	// processed_rows is pinned to total_rows at completion, which also
	// reconciles any undercount from malformed trailing rows.
	errorLog := domain.FormatErrorLog(rowErrors)
	if err := s.sessions.Finalize(ctx, session.ID, domain.ImportStatusCompleted, session.TotalRows, success, errCount, errorLog); err != nil {
		s.fail(ctx, session.ID, fmt.Sprintf("processing failed: %v", err))
		return
	}

	telemetry.ImportsCompleted.Inc()
	log.WithFields(logrus.Fields{
		"success_count": success,
		"error_count":   errCount,
	}).Info("import completed")

	s.events.Publish(domain.EventBulkImportCompleted, map[string]any{
		"session_id":    session.ID.String(),
		"filename":      session.Filename,
		"total_rows":    session.TotalRows,
		"success_count": success,
		"error_count":   errCount,
	})
}

// fail marks the session failed with the reason as its error log. It
// is the terminal state for structural failures of the run itself;
// per-row and per-batch errors never end up here.
func (s *Service) fail(ctx context.Context, sessionID uuid.UUID, reason string) {
	telemetry.ImportsFailed.Inc()
	logrus.WithField("session_id", sessionID).Error(reason)

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("failed to load session for failure update")
		return
	}
	err = s.sessions.Finalize(ctx, sessionID, domain.ImportStatusFailed,
		session.ProcessedRows, session.SuccessCount, session.ErrorCount, reason)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("failed to mark session failed")
	}
}

// Progress is the snapshot returned to polling clients.
type Progress struct {
	SessionID          uuid.UUID           `json:"session_id"`
	Status             domain.ImportStatus `json:"status"`
	TotalRows          int                 `json:"total_rows"`
	ProcessedRows      int                 `json:"processed_rows"`
	SuccessCount       int                 `json:"success_count"`
	ErrorCount         int                 `json:"error_count"`
	ProgressPercentage float64             `json:"progress_percentage"`
	ErrorLog           string              `json:"error_log,omitempty"`
}

// Progress returns the current counters for a session.
func (s *Service) Progress(ctx context.Context, sessionID uuid.UUID) (Progress, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		SessionID:          session.ID,
		Status:             session.Status,
		TotalRows:          session.TotalRows,
		ProcessedRows:      session.ProcessedRows,
		SuccessCount:       session.SuccessCount,
		ErrorCount:         session.ErrorCount,
		ProgressPercentage: session.ProgressPercentage(),
		ErrorLog:           session.ErrorLog,
	}, nil
}
