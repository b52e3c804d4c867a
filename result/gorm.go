package result

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loginwatch/logger"
)

// GormStore implements Store over any GORM dialect. The CLI wires it to
// SQLite by default and MySQL when shared history is wanted.
type GormStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewGormStore creates a history store. Migrate must be called before use.
func NewGormStore(db *gorm.DB, log logger.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: log,
	}
}

// Migrate creates or updates the history schema.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&Run{}, &Attempt{})
}

// CreateRun inserts a new run.
func (s *GormStore) CreateRun(ctx context.Context, run *Run) error {
	if err := run.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.logger.Error(ctx, "failed to create run", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	s.logger.Info(ctx, "run created", map[string]interface{}{
		"run_id":   run.ID.String(),
		"base_url": run.BaseURL,
	})
	return nil
}

// GetRun retrieves a run by ID.
func (s *GormStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&run).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		s.logger.Error(ctx, "failed to get run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id.String(),
		})
		return nil, err
	}
	return &run, nil
}

// UpdateRun applies setters to a run.
func (s *GormStore) UpdateRun(ctx context.Context, id uuid.UUID, setters ...RunSetter) error {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(run); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		s.logger.Error(ctx, "failed to update run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id.String(),
		})
		return err
	}
	return nil
}

// ListRuns returns runs newest first.
func (s *GormStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	var runs []*Run
	err := s.db.WithContext(ctx).
		Order("start_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list runs", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return runs, nil
}

// CreateAttempt inserts one attempt record.
func (s *GormStore) CreateAttempt(ctx context.Context, attempt *Attempt) error {
	if err := attempt.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		s.logger.Error(ctx, "failed to create attempt", map[string]interface{}{
			"error":    err.Error(),
			"identity": attempt.Identity,
		})
		return err
	}
	return nil
}

// ListAttemptsByRun returns a run's attempts in probe order.
func (s *GormStore) ListAttemptsByRun(ctx context.Context, runID uuid.UUID) ([]*Attempt, error) {
	var attempts []*Attempt
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("start_time ASC").
		Find(&attempts).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list attempts", map[string]interface{}{
			"error":  err.Error(),
			"run_id": runID.String(),
		})
		return nil, err
	}
	return attempts, nil
}
