package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/tests/helpers"
)

func run(t *testing.T, r *Registry, name, args string) map[string]interface{} {
	t.Helper()
	raw, err := r.Execute(context.Background(), name, json.RawMessage(args))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestForAgentToolsets(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	for _, agent := range domain.AgentTypes {
		r := ForAgent(agent, s, "user_1")
		assert.Equal(t, ToolNames(agent), r.Names(), agent)
		assert.Len(t, r.LLMTools(), len(ToolNames(agent)))
	}
	assert.Equal(t, []string{QueryConversationHistory}, ForAgent("unknown", s, "user_1").Names())
}

func TestFetchOrderDetails(t *testing.T) {
	s := helpers.NewSeededSQLiteStore(t)
	r := OrderTools(s, "user_1")

	out := run(t, r, FetchOrderDetails, `{"orderNumber":"ORD-1002"}`)
	assert.Equal(t, "ORD-1002", out["orderNumber"])
	assert.Equal(t, "Alice Johnson", out["customerName"])
	assert.Len(t, out["payments"], 1)

	raw, err := r.Execute(context.Background(), FetchOrderDetails, json.RawMessage(`{}`))
	require.NoError(t, err)
	var recent []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &recent))
	require.Len(t, recent, 3)
	assert.Equal(t, "ORD-1003", recent[0]["orderNumber"])
}

func TestFetchOrderDetailsNoOrders(t *testing.T) {
	s := helpers.NewTestSQLiteStore(t)
	require.NoError(t, s.CreateUser(context.Background(), &domain.User{UserID: "u9", Name: "New", Email: "new@example.com", Role: "New Customer"}))

	out := run(t, OrderTools(s, "u9"), FetchOrderDetails, `{}`)
	assert.Equal(t, "No recent orders found", out["message"])
}

func TestCheckDeliveryStatus(t *testing.T) {
	s := helpers.NewSeededSQLiteStore(t)
	out := run(t, OrderTools(s, "user_1"), CheckDeliveryStatus, `{"orderNumber":"ORD-1002"}`)
	assert.Equal(t, "shipped", out["status"])
	assert.Equal(t, "TRK-888777666", out["trackingNumber"])
}

func TestBillingTools(t *testing.T) {
	s := helpers.NewSeededSQLiteStore(t)
	r := BillingTools(s, "user_2")

	out := run(t, r, GetInvoiceDetails, `{"invoiceNumber":"INV-BOB-001"}`)
	assert.Equal(t, "Bob Smith", out["customerName"])
	assert.Equal(t, "bob@example.com", out["customerEmail"])

	out = run(t, r, CheckRefundStatus, `{"transactionId":"TXN-BOB-002"}`)
	assert.Equal(t, "ORD-2002", out["orderNumber"])
	assert.Len(t, out["refunds"], 1)

	out = run(t, r, CheckRefundStatus, `{"transactionId":"TXN-BOB-001"}`)
	assert.Equal(t, "No refunds found for this transaction", out["message"])

	out = run(t, r, CheckRefundStatus, `{"productName":"bluetooth"}`)
	payments := out["payments"].([]interface{})
	require.Len(t, payments, 1)
	assert.Equal(t, "TXN-BOB-002", payments[0].(map[string]interface{})["transactionId"])

	out = run(t, r, CheckRefundStatus, `{}`)
	assert.NotEmpty(t, out["error"])
}

func TestQueryConversationHistory(t *testing.T) {
	s := helpers.NewSeededSQLiteStore(t)
	raw, err := SupportTools(s, "user_2").Execute(context.Background(), QueryConversationHistory, nil)
	require.NoError(t, err)

	var entries []conversationHistoryEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Refund inquiry", entries[0].Title)
	assert.Equal(t, "Bob Smith", entries[0].UserName)
	require.Len(t, entries[0].Messages, 4)
	assert.True(t, strings.HasPrefix(entries[0].Messages[0], "assistant: "))
	assert.True(t, strings.HasSuffix(entries[0].Messages[0], "..."))
}

func TestToolsNeverCrossTenants(t *testing.T) {
	s := helpers.NewSeededSQLiteStore(t)

	// Identifiers belonging to user_1 (Alice) and user_3 (Charlie).
	foreign := []string{"Alice", "alice@example.com", "ORD-1001", "ORD-1002", "TXN-ALICE-001", "INV-ALICE-001", "Charlie", "TXN-CHARLIE-001", "Order tracking help"}

	calls := []struct {
		tool string
		args string
	}{
		{FetchOrderDetails, `{}`},
		{FetchOrderDetails, `{"orderNumber":"ORD-1001"}`},
		{FetchOrderDetails, `{"orderNumber":"ORD-3001"}`},
		{CheckDeliveryStatus, `{"orderNumber":"ORD-1002"}`},
		{GetInvoiceDetails, `{"invoiceNumber":"INV-ALICE-001"}`},
		{CheckRefundStatus, `{"transactionId":"TXN-ALICE-001"}`},
		{CheckRefundStatus, `{"transactionId":"TXN-CHARLIE-001"}`},
		{CheckRefundStatus, `{"orderNumber":"ORD-1001"}`},
		{CheckRefundStatus, `{"productName":"headphones"}`},
		{CheckRefundStatus, `{"productName":"laptop"}`},
		{CheckRefundStatus, `{"productName":"a"}`},
		{QueryConversationHistory, `{"limit":50}`},
	}

	for _, agent := range domain.AgentTypes {
		r := ForAgent(agent, s, "user_2")
		for _, call := range calls {
			if !r.Has(call.tool) {
				continue
			}
			raw, err := r.Execute(context.Background(), call.tool, json.RawMessage(call.args))
			require.NoError(t, err, call.tool)
			for _, f := range foreign {
				assert.NotContains(t, string(raw), f, "%s %s", call.tool, call.args)
			}
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	exec := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) { return args, nil }
	require.NoError(t, r.Register(Definition{Name: "x"}, exec))
	assert.Error(t, r.Register(Definition{Name: "x"}, exec))
	assert.Error(t, r.Register(Definition{}, exec))

	_, err := r.Execute(context.Background(), "missing", nil)
	assert.Error(t, err)
}
