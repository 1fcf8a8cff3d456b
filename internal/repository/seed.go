package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/tokens"
)

type seedPayment struct {
	payment  domain.Payment
	invoices []domain.Invoice
	refunds  []domain.Refund
}

type seedOrder struct {
	order    domain.Order
	payments []seedPayment
}

type seedConversation struct {
	title    string
	agent    domain.AgentType
	messages []domain.Message
}

type seedUser struct {
	user          domain.User
	orders        []seedOrder
	conversations []seedConversation
}

// SeedDemo loads the demo users with their orders, payments, invoices, refunds and
// one conversation each. It does nothing when users already exist and reports
// whether data was written.
func SeedDemo(ctx context.Context, s Store) (bool, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) > 0 {
		return false, nil
	}

	for _, su := range demoData() {
		user := su.user
		if err := s.CreateUser(ctx, &user); err != nil {
			return false, fmt.Errorf("failed to seed user %s: %w", user.UserID, err)
		}
		for _, so := range su.orders {
			order := so.order
			order.UserID = user.UserID
			if err := s.CreateOrder(ctx, &order); err != nil {
				return false, fmt.Errorf("failed to seed order %s: %w", order.OrderNumber, err)
			}
			for _, sp := range so.payments {
				payment := sp.payment
				payment.OrderID = order.ID
				payment.UserID = user.UserID
				if err := s.CreatePayment(ctx, &payment); err != nil {
					return false, fmt.Errorf("failed to seed payment %s: %w", payment.TransactionID, err)
				}
				for _, inv := range sp.invoices {
					inv.PaymentID = payment.ID
					if err := s.CreateInvoice(ctx, &inv); err != nil {
						return false, fmt.Errorf("failed to seed invoice %s: %w", inv.InvoiceNumber, err)
					}
				}
				for _, ref := range sp.refunds {
					ref.PaymentID = payment.ID
					if err := s.CreateRefund(ctx, &ref); err != nil {
						return false, fmt.Errorf("failed to seed refund: %w", err)
					}
				}
			}
		}
		for _, sc := range su.conversations {
			agent := sc.agent
			conv := &domain.Conversation{
				ID:        uuid.New().String(),
				UserID:    user.UserID,
				Title:     sc.title,
				AgentType: &agent,
				CreatedAt: sc.messages[0].CreatedAt,
			}
			if err := s.CreateConversation(ctx, conv); err != nil {
				return false, fmt.Errorf("failed to seed conversation: %w", err)
			}
			for _, msg := range sc.messages {
				msg.ID = uuid.New().String()
				msg.ConversationID = conv.ID
				msg.TokenCount = tokens.Estimate(msg.Content)
				if msg.Role == domain.RoleAssistant {
					msg.AgentType = &agent
				}
				if err := s.AppendMessage(ctx, user.UserID, &msg); err != nil {
					return false, fmt.Errorf("failed to seed message: %w", err)
				}
			}
		}
	}
	return true, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func strPtr(s string) *string { return &s }

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func userMsg(content, ts string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: content, CreatedAt: at(ts)}
}

func assistantMsg(content, ts string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: content, CreatedAt: at(ts)}
}

func demoData() []seedUser {
	const aliceAddress = "123 Oak Street, New York, NY 10001"
	const bobAddress = "456 Maple Ave, Los Angeles, CA 90001"

	return []seedUser{
		{
			user: domain.User{UserID: "user_1", Name: "Alice Johnson", Email: "alice@example.com", Role: "Premium Customer", CreatedAt: day("2026-01-01")},
			orders: []seedOrder{
				{
					order: domain.Order{
						OrderNumber: "ORD-1001", Status: "delivered", TotalAmount: 299.99,
						Items: []domain.OrderItem{
							{Name: "Wireless Headphones Pro", Quantity: 1, Price: 199.99},
							{Name: "USB-C Cable", Quantity: 2, Price: 50.00},
						},
						ShippingAddress: aliceAddress, TrackingNumber: strPtr("TRK-999888777"),
						EstimatedDelivery: dayPtr("2026-01-15"), CreatedAt: day("2026-01-10"),
					},
					payments: []seedPayment{{
						payment:  domain.Payment{TransactionID: "TXN-ALICE-001", Amount: 299.99, Status: "completed", Method: "credit_card", CreatedAt: day("2026-01-10")},
						invoices: []domain.Invoice{{InvoiceNumber: "INV-ALICE-001", Amount: 299.99, Status: "paid", IssuedAt: day("2026-01-10"), DueDate: day("2026-02-10")}},
					}},
				},
				{
					order: domain.Order{
						OrderNumber: "ORD-1002", Status: "shipped", TotalAmount: 599.00,
						Items: []domain.OrderItem{
							{Name: "Mechanical Keyboard", Quantity: 1, Price: 149.00},
							{Name: "4K Monitor 27\"", Quantity: 1, Price: 450.00},
						},
						ShippingAddress: aliceAddress, TrackingNumber: strPtr("TRK-888777666"),
						EstimatedDelivery: dayPtr("2026-02-15"), CreatedAt: day("2026-02-10"),
					},
					payments: []seedPayment{{
						payment:  domain.Payment{TransactionID: "TXN-ALICE-002", Amount: 599.00, Status: "completed", Method: "paypal", CreatedAt: day("2026-02-10")},
						invoices: []domain.Invoice{{InvoiceNumber: "INV-ALICE-002", Amount: 599.00, Status: "paid", IssuedAt: day("2026-02-10"), DueDate: day("2026-03-10")}},
					}},
				},
				{
					order: domain.Order{
						OrderNumber: "ORD-1003", Status: "processing", TotalAmount: 89.99,
						Items: []domain.OrderItem{
							{Name: "Ergonomic Mouse Pad", Quantity: 1, Price: 29.99},
							{Name: "Webcam HD", Quantity: 1, Price: 60.00},
						},
						ShippingAddress: aliceAddress, EstimatedDelivery: dayPtr("2026-02-20"), CreatedAt: day("2026-02-11"),
					},
				},
				{
					order: domain.Order{
						OrderNumber: "ORD-1004", Status: "cancelled", TotalAmount: 1299.00,
						Items:           []domain.OrderItem{{Name: "Gaming Laptop", Quantity: 1, Price: 1299.00}},
						ShippingAddress: aliceAddress, CreatedAt: day("2026-01-05"),
					},
				},
			},
			conversations: []seedConversation{{
				title: "Order tracking help",
				agent: domain.AgentOrder,
				messages: []domain.Message{
					userMsg("Where is my order ORD-1002?", "2026-02-12T10:00:00Z"),
					assistantMsg("Let me check that for you. I can see order ORD-1002 with the 4K Monitor and Mechanical Keyboard was shipped on Feb 10th.", "2026-02-12T10:00:05Z"),
					userMsg("When will it arrive?", "2026-02-12T10:00:30Z"),
					assistantMsg("Your order is expected to arrive on February 15th, 2026. The tracking number is TRK-888777666.", "2026-02-12T10:00:35Z"),
				},
			}},
		},
		{
			user: domain.User{UserID: "user_2", Name: "Bob Smith", Email: "bob@example.com", Role: "Regular Customer", CreatedAt: day("2026-01-02")},
			orders: []seedOrder{
				{
					order: domain.Order{
						OrderNumber: "ORD-2001", Status: "pending", TotalAmount: 45.99,
						Items: []domain.OrderItem{
							{Name: "Phone Case", Quantity: 1, Price: 15.99},
							{Name: "Screen Protector", Quantity: 2, Price: 15.00},
						},
						ShippingAddress: bobAddress, EstimatedDelivery: dayPtr("2026-02-25"), CreatedAt: day("2026-02-09"),
					},
					payments: []seedPayment{{
						payment: domain.Payment{TransactionID: "TXN-BOB-001", Amount: 45.99, Status: "pending", Method: "credit_card", CreatedAt: day("2026-02-09")},
					}},
				},
				{
					order: domain.Order{
						OrderNumber: "ORD-2002", Status: "delivered", TotalAmount: 159.99,
						Items: []domain.OrderItem{
							{Name: "Bluetooth Speaker", Quantity: 1, Price: 79.99},
							{Name: "Power Bank 20000mAh", Quantity: 1, Price: 80.00},
						},
						ShippingAddress: bobAddress, TrackingNumber: strPtr("TRK-777666555"),
						EstimatedDelivery: dayPtr("2026-01-20"), CreatedAt: day("2026-01-15"),
					},
					payments: []seedPayment{{
						payment:  domain.Payment{TransactionID: "TXN-BOB-002", Amount: 159.99, Status: "completed", Method: "bank_transfer", CreatedAt: day("2026-01-15")},
						invoices: []domain.Invoice{{InvoiceNumber: "INV-BOB-001", Amount: 159.99, Status: "paid", IssuedAt: day("2026-01-15"), DueDate: day("2026-02-15")}},
						refunds: []domain.Refund{{
							Amount: 79.99, Status: "processed", Reason: "Bluetooth Speaker was defective - returned",
							CreatedAt: day("2026-01-25"), ProcessedAt: dayPtr("2026-01-28"),
						}},
					}},
				},
			},
			conversations: []seedConversation{{
				title: "Refund inquiry",
				agent: domain.AgentBilling,
				messages: []domain.Message{
					userMsg("I returned the Bluetooth Speaker from order ORD-2002 because it was defective. Where is my refund?", "2026-01-30T14:00:00Z"),
					assistantMsg("I can see your return was processed. A refund of $79.99 was issued to your original payment method on January 28th.", "2026-01-30T14:00:05Z"),
					userMsg("When will I see it in my account?", "2026-01-30T14:00:30Z"),
					assistantMsg("Bank transfers typically take 3-5 business days. You should see the refund by February 2nd.", "2026-01-30T14:00:35Z"),
				},
			}},
		},
		{
			user: domain.User{UserID: "user_3", Name: "Charlie Brown", Email: "charlie@example.com", Role: "New Customer", CreatedAt: day("2026-01-03")},
			orders: []seedOrder{{
				order: domain.Order{
					OrderNumber: "ORD-3001", Status: "pending", TotalAmount: 24.99,
					Items:           []domain.OrderItem{{Name: "Laptop Stand", Quantity: 1, Price: 24.99}},
					ShippingAddress: "789 Pine Road, Chicago, IL 60601", EstimatedDelivery: dayPtr("2026-02-28"), CreatedAt: day("2026-02-11"),
				},
				payments: []seedPayment{{
					payment: domain.Payment{TransactionID: "TXN-CHARLIE-001", Amount: 24.99, Status: "failed", Method: "credit_card", CreatedAt: day("2026-02-11")},
				}},
			}},
			conversations: []seedConversation{{
				title: "Payment issue",
				agent: domain.AgentBilling,
				messages: []domain.Message{
					userMsg("Hi, I tried to order a laptop stand yesterday but my payment failed. Can you help?", "2026-02-12T09:00:00Z"),
					assistantMsg("I can see order ORD-3001 for $24.99 had a failed payment. The transaction ID is TXN-CHARLIE-001.", "2026-02-12T09:00:05Z"),
					userMsg("Can I try paying again?", "2026-02-12T09:00:30Z"),
					assistantMsg("Yes! You can update your payment method in your account settings and retry the payment for order ORD-3001.", "2026-02-12T09:00:35Z"),
				},
			}},
		},
	}
}
