package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

const (
	invoiceNotFound     = "Invoice not found or you don't have permission to view it"
	transactionNotFound = "Transaction not found or you don't have permission to view it"
	paymentsNotFound    = "No matching payments found or you don't have permission to view them"
	noRefunds           = "No refunds found for this transaction"
	refundArgsRequired  = "Provide a transactionId, orderNumber or productName"
)

type invoiceDetail struct {
	domain.InvoiceDetail
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
}

type refundStatus struct {
	CustomerName  string          `json:"customerName"`
	TransactionID string          `json:"transactionId"`
	OrderNumber   string          `json:"orderNumber"`
	Refunds       []domain.Refund `json:"refunds,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// BillingTools returns the billing agent's toolset for userID.
func BillingTools(s Store, userID string) *Registry {
	r := NewRegistry()
	r.MustRegister(Definition{
		Name:        GetInvoiceDetails,
		Description: "Fetches invoice details.",
		Parameters: objectSchema(map[string]interface{}{
			"invoiceNumber": stringProp("The invoice number to look up"),
		}, "invoiceNumber"),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			InvoiceNumber string `json:"invoiceNumber"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		invoice, err := s.FindInvoice(ctx, userID, in.InvoiceNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to find invoice: %w", err)
		}
		if invoice == nil {
			return errorResult(invoiceNotFound)
		}
		user, err := s.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		out := invoiceDetail{InvoiceDetail: *invoice}
		if user != nil {
			out.CustomerName, out.CustomerEmail = user.Name, user.Email
		}
		return result(out)
	})
	r.MustRegister(Definition{
		Name:        CheckRefundStatus,
		Description: "Checks status of a refund by transaction ID, order number, or product name.",
		Parameters: objectSchema(map[string]interface{}{
			"transactionId": stringProp("The transaction ID to check for refunds"),
			"orderNumber":   stringProp("The order number whose payments should be checked"),
			"productName":   stringProp("A product name, or part of one, from the customer's orders"),
		}),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			TransactionID string `json:"transactionId"`
			OrderNumber   string `json:"orderNumber"`
			ProductName   string `json:"productName"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return checkRefundStatus(ctx, s, userID, in.TransactionID, in.OrderNumber, in.ProductName)
	})
	return r
}

func checkRefundStatus(ctx context.Context, s Store, userID, transactionID, orderNumber, productName string) (json.RawMessage, error) {
	name, err := customerName(ctx, s, userID)
	if err != nil {
		return nil, err
	}

	if transactionID != "" {
		payment, err := s.FindPaymentByTransaction(ctx, userID, transactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to find payment: %w", err)
		}
		if payment == nil {
			return errorResult(transactionNotFound)
		}
		return result(toRefundStatus(name, *payment))
	}

	var payments []domain.PaymentDetail
	switch {
	case orderNumber != "":
		payments, err = s.ListPaymentsByOrderNumber(ctx, userID, orderNumber)
	case productName != "":
		payments, err = s.ListPaymentsByProduct(ctx, userID, productName)
	default:
		return errorResult(refundArgsRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	if len(payments) == 0 {
		return errorResult(paymentsNotFound)
	}

	out := make([]refundStatus, 0, len(payments))
	for _, p := range payments {
		out = append(out, toRefundStatus(name, p))
	}
	return result(map[string]interface{}{"customerName": name, "payments": out})
}

func toRefundStatus(name string, p domain.PaymentDetail) refundStatus {
	status := refundStatus{
		CustomerName:  name,
		TransactionID: p.TransactionID,
		OrderNumber:   p.OrderNumber,
	}
	if len(p.Refunds) > 0 {
		status.Refunds = p.Refunds
	} else {
		status.Message = noRefunds
	}
	return status
}
