package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	"github.com/mkatsoulis/tillpoint/internal/domain/repository"
	"github.com/mkatsoulis/tillpoint/pkg/apperror"
	"github.com/mkatsoulis/tillpoint/pkg/pagination"
	"github.com/mkatsoulis/tillpoint/pkg/printer"
)

// maxOpenAttempts bounds the re-read loop when concurrent callers race to
// open a session. One retry is enough in practice; the bound guards against
// sessions being closed between the re-read and the insert.
const maxOpenAttempts = 3

// SessionService enforces the register session lifecycle: at most one OPEN
// session system-wide, explicit OPEN -> CLOSED transitions, closings
// materialized at close time.
type SessionService struct {
	sessionRepo repository.SessionRepository
	closingRepo repository.ClosingRepository
	orderRepo   repository.OrderRepository
	recon       *ReconciliationService
	stats       *StatisticsService
	printer     printer.Printer
	storeName   string
}

// NewSessionService creates a new session service
func NewSessionService(
	sessionRepo repository.SessionRepository,
	closingRepo repository.ClosingRepository,
	orderRepo repository.OrderRepository,
	recon *ReconciliationService,
	stats *StatisticsService,
	prn printer.Printer,
	storeName string,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		closingRepo: closingRepo,
		orderRepo:   orderRepo,
		recon:       recon,
		stats:       stats,
		printer:     prn,
		storeName:   storeName,
	}
}

// GetOrCreateActive returns the single open session, creating one atomically
// when none exists. The create is guarded by the storage-level uniqueness
// constraint: a caller that loses the race re-reads the winner's session
// instead of proceeding with its own.
func (s *SessionService) GetOrCreateActive(ctx context.Context, actorID uuid.UUID) (*entity.RegisterSession, error) {
	for attempt := 0; attempt < maxOpenAttempts; attempt++ {
		session, err := s.sessionRepo.GetActive(ctx)
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}

		candidate := &entity.RegisterSession{
			OpenedAt: time.Now(),
			OpenedBy: actorID,
		}
		err = s.sessionRepo.CreateOpen(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if !apperror.IsConflict(err) {
			return nil, err
		}
		// Lost the race: another caller opened a session first. Re-read.
	}
	return nil, apperror.NewConflictError("Could not resolve the active register session")
}

// GetActive returns the open session or a not-found error
func (s *SessionService) GetActive(ctx context.Context) (*entity.RegisterSession, error) {
	session, err := s.sessionRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.ErrNoOpenSession
	}
	return session, nil
}

// Close transitions a session OPEN -> CLOSED and materializes its closing
// summary. Closing an already-closed session is an error, not an idempotent
// no-op: the caller holds stale state and must be told so.
func (s *SessionService) Close(ctx context.Context, sessionID, actorID uuid.UUID, notes string) (*entity.RegisterClosing, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NewNotFoundError("Register session")
	}
	if !session.IsOpen() {
		return nil, apperror.ErrSessionClosed
	}

	closedAt := time.Now()
	closed, err := s.sessionRepo.Close(ctx, sessionID, actorID, closedAt, notes)
	if err != nil {
		return nil, err
	}
	if !closed {
		// Raced with another close between the read and the update
		return nil, apperror.ErrSessionClosed
	}

	orders, err := s.orderRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := s.recon.SummarizeOrders(orders)
	split := s.stats.CalculateStats(orders)

	closing := &entity.RegisterClosing{
		RegisterSessionID:    sessionID,
		ClosedBy:             actorID,
		OrderCount:           summary.OrderCount,
		TotalBeforeDiscounts: summary.Totals.TotalBeforeDiscounts,
		TreatsAmount:         summary.Totals.TreatsAmount,
		CouponCount:          summary.Totals.CouponCount,
		CouponAmount:         summary.Totals.CouponAmount,
		FinalTotal:           summary.Totals.FinalTotal,
		CashAmount:           split.CashRevenue,
		CardAmount:           split.CardRevenue,
		Notes:                notes,
	}
	if err := s.closingRepo.Create(ctx, closing); err != nil {
		return nil, err
	}

	s.printClosing(session, closedAt, closing, summary)
	return closing, nil
}

// Get returns a session with its closing preloaded
func (s *SessionService) Get(ctx context.Context, sessionID uuid.UUID) (*entity.RegisterSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NewNotFoundError("Register session")
	}
	return session, nil
}

// List returns sessions with filtering
func (s *SessionService) List(ctx context.Context, params *repository.SessionFilterParams) (*pagination.PaginatedResult[entity.RegisterSession], error) {
	sessions, total, err := s.sessionRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(sessions, pag), nil
}

// printClosing sends the closing ticket to the configured printer. Printing
// is best-effort: a printer failure never fails the close.
func (s *SessionService) printClosing(session *entity.RegisterSession, closedAt time.Time, closing *entity.RegisterClosing, summary *OrdersSummary) {
	rows := make([]printer.TicketRow, 0, len(summary.Products))
	for _, p := range summary.Products {
		if p.IsDeleted {
			continue
		}
		rows = append(rows, printer.TicketRow{
			Name:     p.Name,
			Quantity: p.Quantity + p.TreatQuantity,
			Total:    p.Total,
		})
	}

	ticket := &printer.ClosingTicket{
		StoreName:            s.storeName,
		SessionID:            session.ID.String(),
		OpenedAt:             session.OpenedAt,
		ClosedAt:             closedAt,
		OrderCount:           closing.OrderCount,
		Rows:                 rows,
		TotalBeforeDiscounts: closing.TotalBeforeDiscounts,
		TreatsAmount:         closing.TreatsAmount,
		CouponCount:          closing.CouponCount,
		CouponAmount:         closing.CouponAmount,
		FinalTotal:           closing.FinalTotal,
		CashAmount:           closing.CashAmount,
		CardAmount:           closing.CardAmount,
	}

	if err := s.printer.Print(printer.FormatClosingTicket(ticket)); err != nil {
		log.Printf("Warning: failed to print closing ticket for session %s: %v", session.ID, err)
	}
}
