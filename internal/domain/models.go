package domain

import (
	"encoding/json"
	"time"
)

// SummaryPrefix marks synthetic messages produced by compaction.
const SummaryPrefix = "[Summary] "

// User is a customer of the shop.
type User struct {
	UserID    string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserStats aggregates counts of the records a user owns.
type UserStats struct {
	OrderCount        int `json:"orderCount"`
	PaymentCount      int `json:"paymentCount"`
	ConversationCount int `json:"conversationCount"`
}

// Conversation is a chat thread owned by a single user.
type Conversation struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Title     string     `json:"title"`
	AgentType *AgentType `json:"agentType"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Messages  []Message  `json:"messages,omitempty"`
}

// Message is a single turn of a conversation. Ordering by CreatedAt is the prompt order.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Role           Role       `json:"role"`
	Content        string     `json:"content"`
	AgentType      *AgentType `json:"agentType"`
	TokenCount     int        `json:"tokenCount"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// IsSummary reports whether the message was inserted by compaction.
func (m Message) IsSummary() bool {
	return m.Role == RoleSystem && len(m.Content) >= len(SummaryPrefix) && m.Content[:len(SummaryPrefix)] == SummaryPrefix
}

// OrderItem is one line of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is a purchase placed by a user.
type Order struct {
	ID                int64       `json:"-"`
	OrderNumber       string      `json:"orderNumber"`
	UserID            string      `json:"userId"`
	Status            string      `json:"status"`
	TotalAmount       float64     `json:"totalAmount"`
	Items             []OrderItem `json:"items"`
	ShippingAddress   string      `json:"shippingAddress"`
	TrackingNumber    *string     `json:"trackingNumber"`
	EstimatedDelivery *time.Time  `json:"estimatedDelivery"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// Payment settles an order.
type Payment struct {
	ID            int64     `json:"-"`
	OrderID       int64     `json:"-"`
	UserID        string    `json:"userId"`
	TransactionID string    `json:"transactionId"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	Method        string    `json:"method"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Invoice is issued for a payment.
type Invoice struct {
	ID            int64     `json:"-"`
	PaymentID     int64     `json:"-"`
	InvoiceNumber string    `json:"invoiceNumber"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	IssuedAt      time.Time `json:"issuedAt"`
	DueDate       time.Time `json:"dueDate"`
}

// Refund returns money against a payment.
type Refund struct {
	ID          int64      `json:"-"`
	PaymentID   int64      `json:"-"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt"`
}

// ItemsJSON encodes the order items for storage.
func (o *Order) ItemsJSON() string {
	if len(o.Items) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(o.Items)
	return string(data)
}

// PaymentDetail is a payment joined with its order and refunds.
type PaymentDetail struct {
	Payment
	OrderNumber string      `json:"orderNumber"`
	Items       []OrderItem `json:"items"`
	Refunds     []Refund    `json:"refunds"`
}

// InvoiceDetail is an invoice joined with the payment and order it covers.
type InvoiceDetail struct {
	Invoice
	Payment Payment `json:"payment"`
	Order   Order   `json:"order"`
}
