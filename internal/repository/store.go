// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

// Store defines the interface for data persistence.
//
// Reads return (nil, nil) when a record does not exist. Every read of commerce
// records takes the requesting userID and filters on it inside the query, so a
// caller can never observe another tenant's rows.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.UserOverview, error)
	GetUserStats(ctx context.Context, userID string) (domain.UserStats, error)

	// Conversation operations
	CreateConversation(ctx context.Context, conversation *domain.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationSummary, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error)
	UpdateConversationAgentType(ctx context.Context, conversationID, userID string, agent domain.AgentType) error
	ListConversationsOverBudget(ctx context.Context, maxTokens, minMessages, limit int) ([]string, error)

	// Message operations
	AppendMessage(ctx context.Context, userID string, message *domain.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	ListRecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error)
	GetTokenCount(ctx context.Context, conversationID string) (int, error)
	ReplaceWithSummary(ctx context.Context, conversationID string, removeIDs []string, summary *domain.Message) error

	// Order operations
	CreateOrder(ctx context.Context, order *domain.Order) error
	FindOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error)
	ListRecentOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error)

	// Payment operations
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	ListOrderPayments(ctx context.Context, userID string, orderID int64) ([]domain.Payment, error)
	FindPaymentByTransaction(ctx context.Context, userID, transactionID string) (*domain.PaymentDetail, error)
	ListPaymentsByOrderNumber(ctx context.Context, userID, orderNumber string) ([]domain.PaymentDetail, error)
	ListPaymentsByProduct(ctx context.Context, userID, productName string) ([]domain.PaymentDetail, error)

	// Invoice and refund operations
	CreateInvoice(ctx context.Context, invoice *domain.Invoice) error
	FindInvoice(ctx context.Context, userID, invoiceNumber string) (*domain.InvoiceDetail, error)
	CreateRefund(ctx context.Context, refund *domain.Refund) error

	// Lifecycle
	Close() error
}
