package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mkatsoulis/tillpoint/internal/config"
	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	"github.com/mkatsoulis/tillpoint/internal/domain/repository"
	"github.com/mkatsoulis/tillpoint/pkg/apperror"
	"github.com/mkatsoulis/tillpoint/pkg/printer"
)

// fakeStore is a mutex-guarded in-memory stand-in for the database. The
// session fake enforces the same single-open-session constraint the partial
// unique index provides, so the race-handling paths are exercised for real.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.RegisterSession
	closings map[uuid.UUID]*entity.RegisterClosing
	orders   map[uuid.UUID]*entity.Order
	items    map[uuid.UUID]*entity.SaleLineItem
	products map[uuid.UUID]*entity.Product

	// Failure injection for the write-path rollback tests
	failOrderInserts bool
	failItemUpdates  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]*entity.RegisterSession),
		closings: make(map[uuid.UUID]*entity.RegisterClosing),
		orders:   make(map[uuid.UUID]*entity.Order),
		items:    make(map[uuid.UUID]*entity.SaleLineItem),
		products: make(map[uuid.UUID]*entity.Product),
	}
}

func (s *fakeStore) addProduct(name string, price string, stock int, unlimited bool) *entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &entity.Product{
		ID:             uuid.New(),
		Name:           name,
		Price:          decimal.RequireFromString(price),
		Stock:          stock,
		UnlimitedStock: unlimited,
	}
	s.products[p.ID] = p
	return p
}

func (s *fakeStore) itemsOf(orderID uuid.UUID) []entity.SaleLineItem {
	out := make([]entity.SaleLineItem, 0)
	for _, item := range s.items {
		if item.OrderID == orderID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type fakeSessionRepo struct{ store *fakeStore }

func (r *fakeSessionRepo) CreateOpen(ctx context.Context, session *entity.RegisterSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.sessions {
		if existing.ClosedAt == nil {
			return apperror.NewConflictError("An open register session already exists")
		}
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	stored := *session
	r.store.sessions[session.ID] = &stored
	return nil
}

func (r *fakeSessionRepo) GetActive(ctx context.Context) (*entity.RegisterSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, session := range r.store.sessions {
		if session.ClosedAt == nil {
			found := *session
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.RegisterSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	session, ok := r.store.sessions[id]
	if !ok {
		return nil, nil
	}
	found := *session
	return &found, nil
}

func (r *fakeSessionRepo) Close(ctx context.Context, id uuid.UUID, closedBy uuid.UUID, closedAt time.Time, notes string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	session, ok := r.store.sessions[id]
	if !ok || session.ClosedAt != nil {
		return false, nil
	}
	session.ClosedAt = &closedAt
	session.ClosedBy = &closedBy
	session.Notes = notes
	return true, nil
}

func (r *fakeSessionRepo) List(ctx context.Context, params *repository.SessionFilterParams) ([]entity.RegisterSession, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entity.RegisterSession, 0)
	for _, session := range r.store.sessions {
		if params.OpenOnly && session.ClosedAt != nil {
			continue
		}
		if params.StartDate != nil && session.OpenedAt.Before(*params.StartDate) {
			continue
		}
		if params.EndDate != nil && session.OpenedAt.After(*params.EndDate) {
			continue
		}
		out = append(out, *session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, int64(len(out)), nil
}

type fakeClosingRepo struct{ store *fakeStore }

func (r *fakeClosingRepo) Create(ctx context.Context, closing *entity.RegisterClosing) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.closings[closing.RegisterSessionID]; exists {
		return apperror.NewConflictError("Closing already recorded for session")
	}
	if closing.ID == uuid.Nil {
		closing.ID = uuid.New()
	}
	stored := *closing
	r.store.closings[closing.RegisterSessionID] = &stored
	return nil
}

func (r *fakeClosingRepo) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*entity.RegisterClosing, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	closing, ok := r.store.closings[sessionID]
	if !ok {
		return nil, nil
	}
	found := *closing
	return &found, nil
}

type fakeOrderRepo struct{ store *fakeStore }

// CreateWithItems mirrors the transactional contract: on injected failure
// neither the order nor any item is written
func (r *fakeOrderRepo) CreateWithItems(ctx context.Context, order *entity.Order, items []entity.SaleLineItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failOrderInserts {
		return errors.New("insert failed")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	stored := *order
	stored.Items = nil
	r.store.orders[order.ID] = &stored

	now := time.Now()
	for i := range items {
		items[i].OrderID = order.ID
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		if items[i].CreatedAt.IsZero() {
			// Preserve insertion order under a same-instant clock
			items[i].CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		item := items[i]
		r.store.items[item.ID] = &item
	}
	return nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, order *entity.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored := *order
	stored.Items = nil
	r.store.orders[order.ID] = &stored
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[id]
	if !ok {
		return nil, nil
	}
	found := *order
	return &found, nil
}

func (r *fakeOrderRepo) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[id]
	if !ok {
		return nil, nil
	}
	found := *order
	found.Items = r.store.itemsOf(id)
	return &found, nil
}

func (r *fakeOrderRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entity.Order, 0)
	for _, order := range r.store.orders {
		if order.RegisterSessionID != sessionID {
			continue
		}
		found := *order
		found.Items = r.store.itemsOf(order.ID)
		out = append(out, found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeOrderRepo) ListWithItemsByDateRange(ctx context.Context, from, to time.Time) ([]entity.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entity.Order, 0)
	for _, order := range r.store.orders {
		if order.CreatedAt.Before(from) || order.CreatedAt.After(to) {
			continue
		}
		found := *order
		found.Items = r.store.itemsOf(order.ID)
		out = append(out, found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeOrderRepo) List(ctx context.Context, params *repository.OrderFilterParams) ([]entity.Order, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entity.Order, 0)
	for _, order := range r.store.orders {
		if params.SessionID != nil && order.RegisterSessionID != *params.SessionID {
			continue
		}
		if params.CreatedBy != nil && order.CreatedBy != *params.CreatedBy {
			continue
		}
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

type fakeLineItemRepo struct{ store *fakeStore }

func (r *fakeLineItemRepo) Create(ctx context.Context, item *entity.SaleLineItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	stored := *item
	r.store.items[item.ID] = &stored
	return nil
}

func (r *fakeLineItemRepo) Update(ctx context.Context, item *entity.SaleLineItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failItemUpdates {
		return errors.New("update failed")
	}
	stored := *item
	r.store.items[item.ID] = &stored
	return nil
}

func (r *fakeLineItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.SaleLineItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	item, ok := r.store.items[id]
	if !ok {
		return nil, nil
	}
	found := *item
	return &found, nil
}

func (r *fakeLineItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.SaleLineItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.itemsOf(orderID), nil
}

type fakeProductRepo struct{ store *fakeStore }

func (r *fakeProductRepo) Create(ctx context.Context, product *entity.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	stored := *product
	r.store.products[product.ID] = &stored
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *entity.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored := *product
	r.store.products[product.ID] = &stored
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	product, ok := r.store.products[id]
	if !ok {
		return nil, nil
	}
	found := *product
	return &found, nil
}

func (r *fakeProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entity.Product, 0, len(ids))
	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if product, ok := r.store.products[id]; ok {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) List(ctx context.Context, params *repository.ProductFilterParams) ([]entity.Product, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entity.Product, 0)
	for _, product := range r.store.products {
		out = append(out, *product)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) AtomicDecrementBatch(ctx context.Context, decrements map[uuid.UUID]int) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	failed := make([]uuid.UUID, 0)
	for id, amount := range decrements {
		product, ok := r.store.products[id]
		if !ok || (!product.UnlimitedStock && product.Stock < amount) {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return failed, nil
	}
	for id, amount := range decrements {
		if product := r.store.products[id]; !product.UnlimitedStock {
			product.Stock -= amount
		}
	}
	return nil, nil
}

func (r *fakeProductRepo) AtomicIncrementBatch(ctx context.Context, increments map[uuid.UUID]int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, amount := range increments {
		if product, ok := r.store.products[id]; ok && !product.UnlimitedStock {
			product.Stock += amount
		}
	}
	return nil
}

// recordingPrinter captures printed tickets for assertions
type recordingPrinter struct {
	mu      sync.Mutex
	tickets [][]byte
}

func (p *recordingPrinter) Print(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickets = append(p.tickets, data)
	return nil
}

func (p *recordingPrinter) Close() error { return nil }

var _ printer.Printer = (*recordingPrinter)(nil)

// assertDecimal compares by value, not representation: "3.5" and "3.50"
// are the same amount
func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func testSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		CouponValue:    decimal.RequireFromString("2.00"),
		DailyStatsDays: 7,
		TopProducts:    5,
		EditWindow:     15 * time.Minute,
	}
}

// testServices wires every service over one shared fake store
type testServices struct {
	store    *fakeStore
	printer  *recordingPrinter
	sessions *SessionService
	sales    *SaleService
	recon    *ReconciliationService
	stats    *StatisticsService
}

func newTestServices() *testServices {
	store := newFakeStore()
	cfg := testSettlementConfig()

	sessionRepo := &fakeSessionRepo{store: store}
	closingRepo := &fakeClosingRepo{store: store}
	orderRepo := &fakeOrderRepo{store: store}
	lineItemRepo := &fakeLineItemRepo{store: store}
	productRepo := &fakeProductRepo{store: store}

	recon := NewReconciliationService(sessionRepo, orderRepo, closingRepo, cfg.CouponValue)
	stats := NewStatisticsService(orderRepo, cfg)
	prn := &recordingPrinter{}
	sessions := NewSessionService(sessionRepo, closingRepo, orderRepo, recon, stats, prn, "Test Store")
	sales := NewSaleService(orderRepo, lineItemRepo, productRepo, sessions, cfg)

	return &testServices{
		store:    store,
		printer:  prn,
		sessions: sessions,
		sales:    sales,
		recon:    recon,
		stats:    stats,
	}
}
