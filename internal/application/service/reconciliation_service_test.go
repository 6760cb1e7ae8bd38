package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
)

func line(productID uuid.UUID, name string, qty int, unitPrice string, treat bool) entity.SaleLineItem {
	price := decimal.RequireFromString(unitPrice)
	return entity.SaleLineItem{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   price,
		TotalPrice:  price.Mul(decimal.NewFromInt(int64(qty))),
		IsTreat:     treat,
	}
}

func TestSummarizeOrdersTreatZeroesFinalTotal(t *testing.T) {
	svc := newTestServices()
	productID := uuid.New()

	order := entity.Order{
		ID: uuid.New(),
		Items: []entity.SaleLineItem{
			line(productID, "Espresso", 1, "2.00", false),
			line(productID, "Espresso", 1, "2.00", true),
		},
	}

	summary := svc.recon.SummarizeOrders([]entity.Order{order})

	assertDecimal(t, "2.00", summary.Totals.TotalBeforeDiscounts)
	assertDecimal(t, "2.00", summary.Totals.TreatsAmount)
	assert.Equal(t, 0, summary.Totals.CouponCount)
	assert.True(t, summary.Totals.FinalTotal.IsZero())

	require.Len(t, summary.Products, 1)
	assert.Equal(t, 1, summary.Products[0].Quantity)
	assert.Equal(t, 1, summary.Products[0].TreatQuantity)
}

func TestSummarizeOrdersDeletedLineFlaggedAndExcluded(t *testing.T) {
	svc := newTestServices()

	deleted := line(uuid.New(), "Croissant", 1, "3.50", false)
	deleted.IsDeleted = true
	kept := line(uuid.New(), "Espresso", 2, "2.00", false)

	order := entity.Order{ID: uuid.New(), Items: []entity.SaleLineItem{kept, deleted}}
	summary := svc.recon.SummarizeOrders([]entity.Order{order})

	assertDecimal(t, "4.00", summary.Totals.TotalBeforeDiscounts)
	assertDecimal(t, "4.00", summary.Totals.FinalTotal)

	require.Len(t, summary.Products, 2)
	assert.Equal(t, "Espresso", summary.Products[0].Name)
	assert.False(t, summary.Products[0].IsDeleted)
	assert.Equal(t, "Croissant", summary.Products[1].Name)
	assert.True(t, summary.Products[1].IsDeleted, "deleted-only bucket stays visible, flagged")
	assert.Equal(t, 0, summary.Products[1].Quantity)
	assert.True(t, summary.Products[1].Total.IsZero())
}

func TestSummarizeOrdersCouponsAcrossOrders(t *testing.T) {
	svc := newTestServices()
	productID := uuid.New()

	orders := []entity.Order{
		{ID: uuid.New(), CardDiscountCount: 1, Items: []entity.SaleLineItem{line(productID, "Espresso", 2, "2.00", false)}},
		{ID: uuid.New(), CardDiscountCount: 2, Items: []entity.SaleLineItem{line(productID, "Espresso", 3, "2.00", false)}},
	}

	summary := svc.recon.SummarizeOrders(orders)

	assert.Equal(t, 2, summary.OrderCount)
	assert.Equal(t, 3, summary.Totals.CouponCount)
	assertDecimal(t, "6.00", summary.Totals.CouponAmount)
	assertDecimal(t, "10.00", summary.Totals.TotalBeforeDiscounts)
	assertDecimal(t, "4.00", summary.Totals.FinalTotal)

	require.Len(t, summary.Products, 1)
	assert.Equal(t, 5, summary.Products[0].Quantity)
	assertDecimal(t, "10.00", summary.Products[0].Total)
}

func TestSummarizeOrdersFinalTotalClampedAtZero(t *testing.T) {
	svc := newTestServices()

	order := entity.Order{
		ID:                uuid.New(),
		CardDiscountCount: 3,
		Items:             []entity.SaleLineItem{line(uuid.New(), "Espresso", 1, "2.00", false)},
	}

	summary := svc.recon.SummarizeOrders([]entity.Order{order})
	assert.True(t, summary.Totals.FinalTotal.IsZero())
}

func TestSummarizeOrdersRepeatableAndPure(t *testing.T) {
	svc := newTestServices()
	productID := uuid.New()

	deleted := line(uuid.New(), "Croissant", 1, "3.50", false)
	deleted.IsDeleted = true
	orders := []entity.Order{
		{ID: uuid.New(), CardDiscountCount: 1, Items: []entity.SaleLineItem{
			line(productID, "Espresso", 3, "2.00", false),
			line(productID, "Espresso", 1, "2.00", true),
			deleted,
		}},
	}

	snapshot := make([]entity.Order, len(orders))
	for i, order := range orders {
		snapshot[i] = order
		snapshot[i].Items = append([]entity.SaleLineItem(nil), order.Items...)
	}

	first := svc.recon.SummarizeOrders(orders)
	second := svc.recon.SummarizeOrders(orders)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, orders, "input orders must stay untouched")
}

func TestSessionReportSynthesizesMissingClosing(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	actorID := uuid.New()

	// A session closed outside the service path never recorded a closing
	closedAt := time.Now().Add(-time.Hour)
	closedBy := uuid.New()
	session := &entity.RegisterSession{
		ID:       uuid.New(),
		OpenedAt: closedAt.Add(-8 * time.Hour),
		OpenedBy: actorID,
		ClosedAt: &closedAt,
		ClosedBy: &closedBy,
	}
	svc.store.sessions[session.ID] = session

	report, err := svc.recon.SessionReport(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, report.Closing)
	assert.True(t, report.Closing.Synthesized)
	assert.Equal(t, closedBy, report.Closing.ClosedBy)
	assert.True(t, report.Closing.CashAmount.IsZero())
	assert.True(t, report.Closing.CardAmount.IsZero())
}

func TestSessionReportOpenSessionHasNoClosing(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	session, err := svc.sessions.GetOrCreateActive(ctx, uuid.New())
	require.NoError(t, err)

	report, err := svc.recon.SessionReport(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, report.Closing)
	assert.Equal(t, 0, report.Summary.OrderCount)
}

func TestSessionReportPrefersRecordedClosing(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	actorID := uuid.New()

	session, err := svc.sessions.GetOrCreateActive(ctx, actorID)
	require.NoError(t, err)
	recorded, err := svc.sessions.Close(ctx, session.ID, actorID, "")
	require.NoError(t, err)

	report, err := svc.recon.SessionReport(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, report.Closing)
	assert.False(t, report.Closing.Synthesized)
	assert.Equal(t, recorded.ID, report.Closing.ID)
}

func TestOrderReceiptAllocatesCouponDiscount(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	actorID := uuid.New()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)
	croissant := svc.store.addProduct("Croissant", "3.50", 10, false)

	order, err := svc.sales.CreateSale(ctx, actorID, &CreateSaleInput{
		Items: []SaleItemInput{
			{ProductID: coffee.ID, Quantity: 1},
			{ProductID: croissant.ID, Quantity: 1},
		},
		CardDiscountCount: 1,
	})
	require.NoError(t, err)

	receipt, err := svc.recon.OrderReceipt(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, receipt.Lines, 2)

	assertDecimal(t, "0.73", receipt.Lines[0].Discount)
	assertDecimal(t, "1.27", receipt.Lines[0].TotalPrice)
	assertDecimal(t, "1.27", receipt.Lines[1].Discount)
	assertDecimal(t, "2.23", receipt.Lines[1].TotalPrice)
	assertDecimal(t, "3.50", receipt.Summary.Totals.FinalTotal)
}
