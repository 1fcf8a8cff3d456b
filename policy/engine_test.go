package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input Input
		want  domain.PolicyDecision
	}{
		{"order tool for order agent", Input{Agent: domain.AgentOrder, ToolName: "fetchOrderDetails", UserID: "user_1"}, domain.PolicyAllow},
		{"billing tool for billing agent", Input{Agent: domain.AgentBilling, ToolName: "checkRefundStatus", UserID: "user_1"}, domain.PolicyAllow},
		{"support tool for support agent", Input{Agent: domain.AgentSupport, ToolName: "queryConversationHistory", UserID: "user_1"}, domain.PolicyAllow},
		{"billing tool for order agent", Input{Agent: domain.AgentOrder, ToolName: "getInvoiceDetails", UserID: "user_1"}, domain.PolicyBlock},
		{"unknown tool", Input{Agent: domain.AgentSupport, ToolName: "dropTables", UserID: "user_1"}, domain.PolicyBlock},
		{"anonymous user", Input{Agent: domain.AgentOrder, ToolName: "fetchOrderDetails"}, domain.PolicyBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, reason, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision)
			if decision == domain.PolicyBlock {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestEngineWithoutDefaultBlocks(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package tool_policy

decision = "allow" {
	input.tool_name == "fetchOrderDetails"
}
`)
	require.NoError(t, err)

	decision, _, err := engine.Evaluate(ctx, Input{Agent: domain.AgentOrder, ToolName: "checkDeliveryStatus", UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyBlock, decision)
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package tool_policy\n decision = {")
	assert.Error(t, err)
}
