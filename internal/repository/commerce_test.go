package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

func newSeededStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := newTestStore(t)
	seeded, err := SeedDemo(context.Background(), s)
	require.NoError(t, err)
	require.True(t, seeded)
	return s
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	seeded, err := SeedDemo(ctx, s)
	require.NoError(t, err)
	assert.False(t, seeded)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "user_1", users[0].UserID)
	assert.Equal(t, 4, users[0].Stats.OrderCount)
	assert.Equal(t, 2, users[0].Stats.PaymentCount)
	assert.Equal(t, 1, users[0].Stats.ConversationCount)
}

func TestFindOrderIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	order, err := s.FindOrder(ctx, "user_1", "ORD-1002")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "shipped", order.Status)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, "TRK-888777666", *order.TrackingNumber)
	assert.Len(t, order.Items, 2)

	order, err = s.FindOrder(ctx, "user_2", "ORD-1002")
	require.NoError(t, err)
	assert.Nil(t, order)

	payments, err := s.ListOrderPayments(ctx, "user_2", 2)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestListRecentOrdersNewestFirst(t *testing.T) {
	s := newSeededStore(t)

	orders, err := s.ListRecentOrders(context.Background(), "user_1", 3)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "ORD-1003", orders[0].OrderNumber)
	assert.Equal(t, "ORD-1002", orders[1].OrderNumber)
	assert.Equal(t, "ORD-1001", orders[2].OrderNumber)
}

func TestPaymentLookupsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	detail, err := s.FindPaymentByTransaction(ctx, "user_2", "TXN-BOB-002")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "ORD-2002", detail.OrderNumber)
	require.Len(t, detail.Refunds, 1)
	assert.Equal(t, 79.99, detail.Refunds[0].Amount)
	assert.NotNil(t, detail.Refunds[0].ProcessedAt)

	detail, err = s.FindPaymentByTransaction(ctx, "user_1", "TXN-BOB-002")
	require.NoError(t, err)
	assert.Nil(t, detail)

	byOrder, err := s.ListPaymentsByOrderNumber(ctx, "user_1", "ORD-2002")
	require.NoError(t, err)
	assert.Empty(t, byOrder)

	byProduct, err := s.ListPaymentsByProduct(ctx, "user_2", "speaker")
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	assert.Equal(t, "TXN-BOB-002", byProduct[0].TransactionID)

	byProduct, err = s.ListPaymentsByProduct(ctx, "user_1", "speaker")
	require.NoError(t, err)
	assert.Empty(t, byProduct)
}

func TestListPaymentsByProductIgnoresNonNameMatches(t *testing.T) {
	s := newSeededStore(t)

	// "quantity" appears in every stored item list but in no item name.
	byProduct, err := s.ListPaymentsByProduct(context.Background(), "user_2", "quantity")
	require.NoError(t, err)
	assert.Empty(t, byProduct)
}

func TestListPaymentsByProductMatchesEscapedNames(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	order := &domain.Order{
		OrderNumber: "ORD-9001",
		UserID:      "user_1",
		Status:      "delivered",
		TotalAmount: 89.98,
		Items: []domain.OrderItem{
			{Name: "Salt & Pepper Grinder", Quantity: 1, Price: 29.99},
			{Name: "Über <Pro> Mixer", Quantity: 1, Price: 59.99},
		},
		ShippingAddress: "1 Test Lane",
	}
	require.NoError(t, s.CreateOrder(ctx, order))
	require.NoError(t, s.CreatePayment(ctx, &domain.Payment{
		OrderID: order.ID, UserID: "user_1", TransactionID: "TXN-9001",
		Amount: 89.98, Status: "completed", Method: "credit_card",
	}))

	for _, query := range []string{"pepper", "Salt & Pepper", "über <pro>", "ÜBER"} {
		byProduct, err := s.ListPaymentsByProduct(ctx, "user_1", query)
		require.NoError(t, err)
		require.Len(t, byProduct, 1, query)
		assert.Equal(t, "TXN-9001", byProduct[0].TransactionID)
	}

	byProduct, err := s.ListPaymentsByProduct(ctx, "user_2", "salt & pepper")
	require.NoError(t, err)
	assert.Empty(t, byProduct)
}

func TestFindInvoiceIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	invoice, err := s.FindInvoice(ctx, "user_1", "INV-ALICE-002")
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.Equal(t, "TXN-ALICE-002", invoice.Payment.TransactionID)
	assert.Equal(t, "ORD-1002", invoice.Order.OrderNumber)

	invoice, err = s.FindInvoice(ctx, "user_3", "INV-ALICE-002")
	require.NoError(t, err)
	assert.Nil(t, invoice)
}
