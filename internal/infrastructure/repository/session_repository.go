package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	domainRepo "github.com/mkatsoulis/tillpoint/internal/domain/repository"
	"github.com/mkatsoulis/tillpoint/pkg/apperror"
)

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new register session repository
func NewSessionRepository(db *gorm.DB) domainRepo.SessionRepository {
	return &sessionRepository{db: db}
}

// CreateOpen inserts a new open session. The partial unique index on
// "closed_at IS NULL" makes this atomic: of two concurrent callers exactly
// one insert commits and the other gets a unique violation, surfaced here
// as a conflict for the caller to retry with a re-read.
func (r *sessionRepository) CreateOpen(ctx context.Context, session *entity.RegisterSession) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.NewConflictError("An open register session already exists")
	}
	return err
}

func (r *sessionRepository) GetActive(ctx context.Context) (*entity.RegisterSession, error) {
	var session entity.RegisterSession
	err := r.db.WithContext(ctx).
		First(&session, "closed_at IS NULL").Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &session, err
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.RegisterSession, error) {
	var session entity.RegisterSession
	err := r.db.WithContext(ctx).
		Preload("Closing").
		First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &session, err
}

// Close performs the OPEN -> CLOSED transition as a conditional update.
// RowsAffected == 0 means there was no open row to close.
func (r *sessionRepository) Close(ctx context.Context, id uuid.UUID, closedBy uuid.UUID, closedAt time.Time, notes string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.RegisterSession{}).
		Where("id = ? AND closed_at IS NULL", id).
		Updates(map[string]interface{}{
			"closed_at": closedAt,
			"closed_by": closedBy,
			"notes":     notes,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *sessionRepository) List(ctx context.Context, params *domainRepo.SessionFilterParams) ([]entity.RegisterSession, int64, error) {
	var sessions []entity.RegisterSession
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.RegisterSession{})

	if params.OpenOnly {
		query = query.Where("closed_at IS NULL")
	}
	if params.StartDate != nil {
		query = query.Where("opened_at >= ?", *params.StartDate)
	}
	if params.EndDate != nil {
		query = query.Where("opened_at <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Closing").
		Order("opened_at DESC").
		Find(&sessions).Error

	return sessions, total, err
}

type closingRepository struct {
	db *gorm.DB
}

// NewClosingRepository creates a new register closing repository
func NewClosingRepository(db *gorm.DB) domainRepo.ClosingRepository {
	return &closingRepository{db: db}
}

func (r *closingRepository) Create(ctx context.Context, closing *entity.RegisterClosing) error {
	return r.db.WithContext(ctx).Create(closing).Error
}

func (r *closingRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*entity.RegisterClosing, error) {
	var closing entity.RegisterClosing
	err := r.db.WithContext(ctx).
		First(&closing, "register_session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &closing, err
}
