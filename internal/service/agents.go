package service

import (
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/tools"
)

// Agents returns the public agent catalogue.
func Agents() []domain.AgentInfo {
	out := make([]domain.AgentInfo, 0, len(domain.AgentTypes))
	for _, agent := range domain.AgentTypes {
		out = append(out, agentInfo(agent))
	}
	return out
}

// Capabilities returns the tools and topics of an agent.
func Capabilities(agent domain.AgentType) domain.AgentCapabilities {
	return domain.AgentCapabilities{
		Agent:  agent,
		Tools:  tools.ToolNames(agent),
		Topics: agentTopics(agent),
	}
}

func agentInfo(agent domain.AgentType) domain.AgentInfo {
	switch agent {
	case domain.AgentOrder:
		return domain.AgentInfo{
			Type:         agent,
			Name:         "Order Agent",
			Description:  "Handles order status, tracking, modifications, and cancellations",
			Capabilities: []string{"Check order status", "Track deliveries", "Modify orders", "Cancel orders", "Delivery updates"},
		}
	case domain.AgentBilling:
		return domain.AgentInfo{
			Type:         agent,
			Name:         "Billing Agent",
			Description:  "Handles payment issues, refunds, invoices, and subscription queries",
			Capabilities: []string{"Payment issues", "Refund requests", "Invoice queries", "Subscription management", "Payment disputes"},
		}
	default:
		return domain.AgentInfo{
			Type:         domain.AgentSupport,
			Name:         "Support Agent",
			Description:  "Handles general support inquiries, FAQs, and troubleshooting",
			Capabilities: []string{"Answer FAQs", "Troubleshooting", "Account help", "General inquiries", "Conversation history lookup"},
		}
	}
}

func agentTopics(agent domain.AgentType) []string {
	switch agent {
	case domain.AgentOrder:
		return []string{"order status", "tracking", "delivery", "cancellation", "order modification"}
	case domain.AgentBilling:
		return []string{"payments", "refunds", "invoices", "subscriptions", "payment disputes"}
	default:
		return []string{"general questions", "account help", "troubleshooting", "product information", "policies"}
	}
}
