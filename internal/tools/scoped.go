// Package tools builds the per-user toolsets handed to each agent.
//
// Every factory closes over a single userID and passes it to the store, whose
// queries filter on it. No tool accepts a user identifier from the model.
package tools

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

// Store is the read surface the tools need.
type Store interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationSummary, error)
	ListRecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error)
	FindOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error)
	ListRecentOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	ListOrderPayments(ctx context.Context, userID string, orderID int64) ([]domain.Payment, error)
	FindPaymentByTransaction(ctx context.Context, userID, transactionID string) (*domain.PaymentDetail, error)
	ListPaymentsByOrderNumber(ctx context.Context, userID, orderNumber string) ([]domain.PaymentDetail, error)
	ListPaymentsByProduct(ctx context.Context, userID, productName string) ([]domain.PaymentDetail, error)
	FindInvoice(ctx context.Context, userID, invoiceNumber string) (*domain.InvoiceDetail, error)
}

// Tool names.
const (
	QueryConversationHistory = "queryConversationHistory"
	FetchOrderDetails        = "fetchOrderDetails"
	CheckDeliveryStatus      = "checkDeliveryStatus"
	GetInvoiceDetails        = "getInvoiceDetails"
	CheckRefundStatus        = "checkRefundStatus"
)

// ToolNames lists the tools each agent can use.
func ToolNames(agent domain.AgentType) []string {
	switch agent {
	case domain.AgentSupport:
		return []string{QueryConversationHistory}
	case domain.AgentOrder:
		return []string{FetchOrderDetails, CheckDeliveryStatus}
	case domain.AgentBilling:
		return []string{GetInvoiceDetails, CheckRefundStatus}
	default:
		return []string{QueryConversationHistory}
	}
}

// ForAgent builds the toolset of an agent for one user. Unknown agents get the
// support toolset.
func ForAgent(agent domain.AgentType, s Store, userID string) *Registry {
	switch agent {
	case domain.AgentSupport:
		return SupportTools(s, userID)
	case domain.AgentOrder:
		return OrderTools(s, userID)
	case domain.AgentBilling:
		return BillingTools(s, userID)
	default:
		return SupportTools(s, userID)
	}
}

func customerName(ctx context.Context, s Store, userID string) (string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return "", nil
	}
	return user.Name, nil
}
