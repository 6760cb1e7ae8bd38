package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkatsoulis/tillpoint/internal/domain/enum"
	"github.com/mkatsoulis/tillpoint/pkg/apperror"
)

func TestCreateSaleSnapshotsAndDecrementsStock(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	actorID := uuid.New()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)

	order, err := svc.sales.CreateSale(ctx, actorID, &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: coffee.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Espresso", order.Items[0].ProductName)
	assertDecimal(t, "2.00", order.Items[0].UnitPrice)
	assertDecimal(t, "6.00", order.Items[0].TotalPrice)
	assertDecimal(t, "6.00", order.Subtotal)
	assertDecimal(t, "6.00", order.FinalAmount)
	assert.Equal(t, enum.PaymentMethodCash, order.PaymentMethod)

	assert.Equal(t, 7, svc.store.products[coffee.ID].Stock)

	// A price change later never rewrites the snapshot
	session, err := svc.sessions.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.ID, order.RegisterSessionID)
}

func TestCreateSaleTreatExcludedFromSubtotal(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)

	order, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{
			{ProductID: coffee.ID, Quantity: 1},
			{ProductID: coffee.ID, Quantity: 1, IsTreat: true},
		},
	})
	require.NoError(t, err)

	assertDecimal(t, "2.00", order.Subtotal)
	assertDecimal(t, "2.00", order.FinalAmount)
	// Treats still consume stock
	assert.Equal(t, 8, svc.store.products[coffee.ID].Stock)
}

func TestCreateSaleDiscountClampedToSubtotal(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)

	order, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items:             []SaleItemInput{{ProductID: coffee.ID, Quantity: 1}},
		CardDiscountCount: 5,
	})
	require.NoError(t, err)

	assertDecimal(t, "2.00", order.Subtotal)
	assertDecimal(t, "2.00", order.DiscountAmount)
	assert.True(t, order.FinalAmount.IsZero())
	assert.Equal(t, 5, order.CardDiscountCount)
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 2, false)

	_, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: coffee.ID, Quantity: 3}},
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Code)
	assert.Contains(t, appErr.Message, "Espresso")

	// Nothing was decremented and no order was written
	assert.Equal(t, 2, svc.store.products[coffee.ID].Stock)
	assert.Empty(t, svc.store.orders)
}

func TestCreateSaleUnlimitedStockNeverBlocks(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	water := svc.store.addProduct("Tap Water", "0.50", 0, true)

	order, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: water.ID, Quantity: 100}},
	})
	require.NoError(t, err)
	assertDecimal(t, "50.00", order.Subtotal)
	assert.Equal(t, 0, svc.store.products[water.ID].Stock)
}

func TestCreateSaleUnknownProduct(t *testing.T) {
	svc := newTestServices()

	_, err := svc.sales.CreateSale(context.Background(), uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Code)
}

func TestCreateSaleValidation(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)

	cases := []struct {
		name  string
		input *CreateSaleInput
	}{
		{"no items", &CreateSaleInput{}},
		{"zero quantity", &CreateSaleInput{Items: []SaleItemInput{{ProductID: coffee.ID, Quantity: 0}}}},
		{"negative coupon count", &CreateSaleInput{
			Items:             []SaleItemInput{{ProductID: coffee.ID, Quantity: 1}},
			CardDiscountCount: -1,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.sales.CreateSale(ctx, uuid.New(), tc.input)
			require.Error(t, err)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, 422, appErr.Code)
		})
	}
}

func TestAppendLineItemUpdatesTotals(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)
	croissant := svc.store.addProduct("Croissant", "3.50", 10, false)

	order, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: coffee.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	updated, err := svc.sales.AppendLineItem(ctx, order.ID, SaleItemInput{ProductID: croissant.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	assertDecimal(t, "9.00", updated.Subtotal)
	assertDecimal(t, "9.00", updated.FinalAmount)
	assert.Equal(t, 8, svc.store.products[croissant.ID].Stock)
}

func TestEditLineItemRecordsAudit(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)
	croissant := svc.store.addProduct("Croissant", "3.50", 10, false)

	order, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: coffee.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	itemID := order.Items[0].ID

	updated, err := svc.sales.EditLineItem(ctx, itemID, EditLineItemInput{ProductID: croissant.ID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	edited := updated.Items[0]
	assert.True(t, edited.IsEdited)
	require.NotNil(t, edited.OriginalProductID)
	assert.Equal(t, coffee.ID, *edited.OriginalProductID)
	require.NotNil(t, edited.OriginalQuantity)
	assert.Equal(t, 2, *edited.OriginalQuantity)
	assert.Equal(t, "Croissant", edited.ProductName)
	assertDecimal(t, "3.50", edited.TotalPrice)
	assertDecimal(t, "3.50", updated.Subtotal)

	// Old stock restored, new stock taken
	assert.Equal(t, 10, svc.store.products[coffee.ID].Stock)
	assert.Equal(t, 9, svc.store.products[croissant.ID].Stock)

	// A second edit keeps the first snapshot
	again, err := svc.sales.EditLineItem(ctx, itemID, EditLineItemInput{ProductID: croissant.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, coffee.ID, *again.Items[0].OriginalProductID)
	assert.Equal(t, 2, *again.Items[0].OriginalQuantity)
}

func TestEditLineItemWindowExpired(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)

	order, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: coffee.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	item := svc.store.items[order.Items[0].ID]
	item.CreatedAt = time.Now().Add(-time.Hour)

	_, err = svc.sales.EditLineItem(ctx, order.Items[0].ID, EditLineItemInput{ProductID: coffee.ID, Quantity: 2})
	assert.ErrorIs(t, err, apperror.ErrEditWindowExpired)
}

func TestDeleteLineItemSoftDeletesAndRestoresStock(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)
	croissant := svc.store.addProduct("Croissant", "3.50", 10, false)

	order, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{
			{ProductID: coffee.ID, Quantity: 2},
			{ProductID: croissant.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	updated, err := svc.sales.DeleteLineItem(ctx, order.Items[0].ID)
	require.NoError(t, err)

	// Row survives, flagged, excluded from totals
	require.Len(t, updated.Items, 2)
	assert.True(t, updated.Items[0].IsDeleted)
	assertDecimal(t, "3.50", updated.Subtotal)
	assertDecimal(t, "3.50", updated.FinalAmount)
	assert.Equal(t, 10, svc.store.products[coffee.ID].Stock)

	// Deleting twice is a conflict
	_, err = svc.sales.DeleteLineItem(ctx, order.Items[0].ID)
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Code)
}

func TestCreateSaleFailedWriteLeavesNoTrace(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)
	svc.store.failOrderInserts = true

	_, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: coffee.ID, Quantity: 3}},
	})
	require.Error(t, err)

	// No orphan order or stray lines, and the stock is back
	assert.Empty(t, svc.store.orders)
	assert.Empty(t, svc.store.items)
	assert.Equal(t, 10, svc.store.products[coffee.ID].Stock)
}

func TestDeleteLineItemFailedFlagKeepsStockConsistent(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	coffee := svc.store.addProduct("Espresso", "2.00", 10, false)

	order, err := svc.sales.CreateSale(ctx, uuid.New(), &CreateSaleInput{
		Items: []SaleItemInput{{ProductID: coffee.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)

	svc.store.failItemUpdates = true
	_, err = svc.sales.DeleteLineItem(ctx, order.Items[0].ID)
	require.Error(t, err)

	// The line is still live and its stock is still taken
	assert.False(t, svc.store.items[order.Items[0].ID].IsDeleted)
	assert.Equal(t, 9, svc.store.products[coffee.ID].Stock)
}
