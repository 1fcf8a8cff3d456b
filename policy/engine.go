package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

// Input is the document a tool call is evaluated against.
type Input struct {
	Agent    domain.AgentType `json:"agent"`
	ToolName string           `json:"tool_name"`
	UserID   string           `json:"user_id"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks whether an agent may call a tool on behalf of a user.
// Returns the decision and a short reason.
func (e *Engine) Evaluate(ctx context.Context, input Input) (domain.PolicyDecision, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.PolicyBlock, "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// A policy without a default leaves the result undefined.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyBlock, "undefined decision", nil
	}

	s, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return domain.PolicyBlock, "unexpected return type", nil
	}
	switch domain.PolicyDecision(s) {
	case domain.PolicyAllow:
		return domain.PolicyAllow, "", nil
	case domain.PolicyBlock:
		return domain.PolicyBlock, fmt.Sprintf("tool %s is not available to the %s agent", input.ToolName, input.Agent), nil
	default:
		return domain.PolicyBlock, "unknown decision " + s, nil
	}
}

// DefaultPolicy lets each agent call only its own tools, and only for an identified user.
const DefaultPolicy = `
package tool_policy

default decision = "block"

agent_tools := {
	"support": {"queryConversationHistory"},
	"order": {"fetchOrderDetails", "checkDeliveryStatus"},
	"billing": {"getInvoiceDetails", "checkRefundStatus"},
}

decision = "allow" {
	agent_tools[input.agent][input.tool_name]
	input.user_id != ""
}
`
