package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

const orderColumns = `o.id, o.order_number, o.user_id, o.status, o.total_amount, o.items,
	o.shipping_address, o.tracking_number, o.estimated_delivery, o.created_at`

const paymentColumns = `p.id, p.order_id, p.user_id, p.transaction_id, p.amount, p.status, p.method, p.created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// CreateOrder creates a new order.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	var delivery interface{}
	if order.EstimatedDelivery != nil {
		delivery = order.EstimatedDelivery.UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (user_id, order_number, status, total_amount, items, shipping_address, tracking_number, estimated_delivery, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.UserID, order.OrderNumber, order.Status, order.TotalAmount, order.ItemsJSON(),
		order.ShippingAddress, order.TrackingNumber, delivery, order.CreatedAt.UTC())
	if err != nil {
		return err
	}
	order.ID, err = res.LastInsertId()
	return err
}

// FindOrder retrieves an order by number, only when it belongs to userID.
func (s *SQLiteStore) FindOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.order_number = ? AND o.user_id = ?`,
		orderNumber, userID)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListRecentOrders lists a user's newest orders.
func (s *SQLiteStore) ListRecentOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// CreatePayment creates a new payment.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (order_id, user_id, transaction_id, amount, status, method, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.OrderID, payment.UserID, payment.TransactionID, payment.Amount, payment.Status, payment.Method,
		payment.CreatedAt.UTC())
	if err != nil {
		return err
	}
	payment.ID, err = res.LastInsertId()
	return err
}

// ListOrderPayments lists the payments of an order owned by userID.
func (s *SQLiteStore) ListOrderPayments(ctx context.Context, userID string, orderID int64) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p
		 JOIN orders o ON o.id = p.order_id
		 WHERE p.order_id = ? AND p.user_id = ? AND o.user_id = ?
		 ORDER BY p.created_at ASC, p.id ASC`,
		orderID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

// FindPaymentByTransaction retrieves a payment with its order and refunds.
func (s *SQLiteStore) FindPaymentByTransaction(ctx context.Context, userID, transactionID string) (*domain.PaymentDetail, error) {
	details, err := s.queryPaymentDetails(ctx, `p.transaction_id = ? AND p.user_id = ?`, transactionID, userID)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, nil
	}
	return &details[0], nil
}

// ListPaymentsByOrderNumber lists the payments of an order owned by userID, with refunds.
func (s *SQLiteStore) ListPaymentsByOrderNumber(ctx context.Context, userID, orderNumber string) ([]domain.PaymentDetail, error) {
	return s.queryPaymentDetails(ctx, `o.order_number = ? AND p.user_id = ?`, orderNumber, userID)
}

// ListPaymentsByProduct lists payments whose order contains an item matching productName
// (case-insensitive substring).
func (s *SQLiteStore) ListPaymentsByProduct(ctx context.Context, userID, productName string) ([]domain.PaymentDetail, error) {
	needle := strings.ToLower(strings.TrimSpace(productName))
	if needle == "" {
		return []domain.PaymentDetail{}, nil
	}
	// Items are stored as escaped JSON and LOWER folds ASCII only, so names are matched in Go.
	candidates, err := s.queryPaymentDetails(ctx, `p.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}

	matched := []domain.PaymentDetail{}
	for _, d := range candidates {
		for _, item := range d.Items {
			if strings.Contains(strings.ToLower(item.Name), needle) {
				matched = append(matched, d)
				break
			}
		}
	}
	return matched, nil
}

func (s *SQLiteStore) queryPaymentDetails(ctx context.Context, where string, args ...interface{}) ([]domain.PaymentDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+`, o.order_number, o.items
		 FROM payments p JOIN orders o ON o.id = p.order_id AND o.user_id = p.user_id
		 WHERE `+where+` ORDER BY p.created_at DESC, p.id DESC`,
		args...)
	if err != nil {
		return nil, err
	}

	details := []domain.PaymentDetail{}
	for rows.Next() {
		var d domain.PaymentDetail
		var items string
		if err := rows.Scan(&d.ID, &d.OrderID, &d.UserID, &d.TransactionID, &d.Amount, &d.Status, &d.Method,
			&d.CreatedAt, &d.OrderNumber, &items); err != nil {
			rows.Close()
			return nil, err
		}
		if d.Items, err = decodeItems(items); err != nil {
			rows.Close()
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before issuing refund queries; :memory: stores hold a single connection.
	rows.Close()

	for i := range details {
		refunds, err := s.listRefunds(ctx, details[i].ID)
		if err != nil {
			return nil, err
		}
		details[i].Refunds = refunds
	}
	return details, nil
}

func (s *SQLiteStore) listRefunds(ctx context.Context, paymentID int64) ([]domain.Refund, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payment_id, amount, status, reason, created_at, processed_at
		 FROM refunds WHERE payment_id = ? ORDER BY created_at DESC, id DESC`,
		paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := []domain.Refund{}
	for rows.Next() {
		var r domain.Refund
		var processed sql.NullTime
		if err := rows.Scan(&r.ID, &r.PaymentID, &r.Amount, &r.Status, &r.Reason, &r.CreatedAt, &processed); err != nil {
			return nil, err
		}
		if processed.Valid {
			t := processed.Time
			r.ProcessedAt = &t
		}
		refunds = append(refunds, r)
	}
	return refunds, rows.Err()
}

// CreateInvoice creates a new invoice.
func (s *SQLiteStore) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	if invoice.IssuedAt.IsZero() {
		invoice.IssuedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (payment_id, invoice_number, amount, status, issued_at, due_date) VALUES (?, ?, ?, ?, ?, ?)`,
		invoice.PaymentID, invoice.InvoiceNumber, invoice.Amount, invoice.Status, invoice.IssuedAt.UTC(), invoice.DueDate.UTC())
	if err != nil {
		return err
	}
	invoice.ID, err = res.LastInsertId()
	return err
}

// FindInvoice retrieves an invoice with its payment and order when the payment belongs to userID.
func (s *SQLiteStore) FindInvoice(ctx context.Context, userID, invoiceNumber string) (*domain.InvoiceDetail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT i.id, i.payment_id, i.invoice_number, i.amount, i.status, i.issued_at, i.due_date,
			`+paymentColumns+`, `+orderColumns+`
		 FROM invoices i
		 JOIN payments p ON p.id = i.payment_id
		 JOIN orders o ON o.id = p.order_id
		 WHERE i.invoice_number = ? AND p.user_id = ? AND o.user_id = ?`,
		invoiceNumber, userID, userID)

	var d domain.InvoiceDetail
	var items string
	var tracking sql.NullString
	var delivery sql.NullTime
	err := row.Scan(&d.ID, &d.PaymentID, &d.InvoiceNumber, &d.Amount, &d.Status, &d.IssuedAt, &d.DueDate,
		&d.Payment.ID, &d.Payment.OrderID, &d.Payment.UserID, &d.Payment.TransactionID, &d.Payment.Amount,
		&d.Payment.Status, &d.Payment.Method, &d.Payment.CreatedAt,
		&d.Order.ID, &d.Order.OrderNumber, &d.Order.UserID, &d.Order.Status, &d.Order.TotalAmount, &items,
		&d.Order.ShippingAddress, &tracking, &delivery, &d.Order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	applyOrderNullables(&d.Order, tracking, delivery)
	if d.Order.Items, err = decodeItems(items); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateRefund creates a new refund.
func (s *SQLiteStore) CreateRefund(ctx context.Context, refund *domain.Refund) error {
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = time.Now().UTC()
	}
	var processed interface{}
	if refund.ProcessedAt != nil {
		processed = refund.ProcessedAt.UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO refunds (payment_id, amount, status, reason, created_at, processed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		refund.PaymentID, refund.Amount, refund.Status, refund.Reason, refund.CreatedAt.UTC(), processed)
	if err != nil {
		return err
	}
	refund.ID, err = res.LastInsertId()
	return err
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var items string
	var tracking sql.NullString
	var delivery sql.NullTime
	if err := row.Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.Status, &order.TotalAmount, &items,
		&order.ShippingAddress, &tracking, &delivery, &order.CreatedAt); err != nil {
		return nil, err
	}
	applyOrderNullables(&order, tracking, delivery)
	var err error
	if order.Items, err = decodeItems(items); err != nil {
		return nil, err
	}
	return &order, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.TransactionID, &p.Amount, &p.Status, &p.Method, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func applyOrderNullables(order *domain.Order, tracking sql.NullString, delivery sql.NullTime) {
	if tracking.Valid {
		t := tracking.String
		order.TrackingNumber = &t
	}
	if delivery.Valid {
		d := delivery.Time
		order.EstimatedDelivery = &d
	}
}

func decodeItems(raw string) ([]domain.OrderItem, error) {
	items := []domain.OrderItem{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	return items, nil
}
