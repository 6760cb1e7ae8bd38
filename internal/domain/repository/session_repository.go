package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	"github.com/mkatsoulis/tillpoint/pkg/pagination"
)

// SessionFilterParams holds filter parameters for listing register sessions
type SessionFilterParams struct {
	Pagination *pagination.PaginationParams
	StartDate  *time.Time
	EndDate    *time.Time
	OpenOnly   bool
}

// SessionRepository defines the persistence interface for register sessions.
//
// CreateOpen must be a single atomic operation guarded by the storage-level
// uniqueness constraint on open sessions: two concurrent callers must never
// both succeed. The loser receives a conflict error and re-reads.
type SessionRepository interface {
	CreateOpen(ctx context.Context, session *entity.RegisterSession) error
	GetActive(ctx context.Context) (*entity.RegisterSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.RegisterSession, error)

	// Close transitions OPEN to CLOSED with a conditional update on
	// "closed_at IS NULL". It reports false when no open row matched,
	// which the caller resolves into NotFound or AlreadyClosed.
	Close(ctx context.Context, id uuid.UUID, closedBy uuid.UUID, closedAt time.Time, notes string) (bool, error)

	List(ctx context.Context, params *SessionFilterParams) ([]entity.RegisterSession, int64, error)
}

// ClosingRepository defines the persistence interface for materialized
// register closings
type ClosingRepository interface {
	Create(ctx context.Context, closing *entity.RegisterClosing) error
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*entity.RegisterClosing, error)
}
