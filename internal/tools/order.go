package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

const recentOrdersLimit = 3

const (
	orderNotFound  = "Order not found or you don't have permission to view it"
	noRecentOrders = "No recent orders found"
)

type orderDetail struct {
	domain.Order
	Payments     []domain.Payment `json:"payments,omitempty"`
	CustomerName string           `json:"customerName"`
}

type deliveryStatus struct {
	OrderNumber       string     `json:"orderNumber"`
	Status            string     `json:"status"`
	TrackingNumber    *string    `json:"trackingNumber"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	ShippingAddress   string     `json:"shippingAddress"`
}

// OrderTools returns the order agent's toolset for userID.
func OrderTools(s Store, userID string) *Registry {
	r := NewRegistry()
	r.MustRegister(Definition{
		Name:        FetchOrderDetails,
		Description: "Fetches details of an order by order number or for the current user.",
		Parameters: objectSchema(map[string]interface{}{
			"orderNumber": stringProp("Optional order number to look up"),
		}),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			OrderNumber string `json:"orderNumber"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.OrderNumber != "" {
			return fetchOrder(ctx, s, userID, in.OrderNumber)
		}
		return fetchRecentOrders(ctx, s, userID)
	})
	r.MustRegister(Definition{
		Name:        CheckDeliveryStatus,
		Description: "Checks delivery status and tracking for an order.",
		Parameters: objectSchema(map[string]interface{}{
			"orderNumber": stringProp("The order number to check"),
		}, "orderNumber"),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			OrderNumber string `json:"orderNumber"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		order, err := s.FindOrder(ctx, userID, in.OrderNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to find order: %w", err)
		}
		if order == nil {
			return errorResult(orderNotFound)
		}
		return result(deliveryStatus{
			OrderNumber:       order.OrderNumber,
			Status:            order.Status,
			TrackingNumber:    order.TrackingNumber,
			EstimatedDelivery: order.EstimatedDelivery,
			ShippingAddress:   order.ShippingAddress,
		})
	})
	return r
}

func fetchOrder(ctx context.Context, s Store, userID, orderNumber string) (json.RawMessage, error) {
	order, err := s.FindOrder(ctx, userID, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	if order == nil {
		return errorResult(orderNotFound)
	}
	payments, err := s.ListOrderPayments(ctx, userID, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	name, err := customerName(ctx, s, userID)
	if err != nil {
		return nil, err
	}
	return result(orderDetail{Order: *order, Payments: payments, CustomerName: name})
}

func fetchRecentOrders(ctx context.Context, s Store, userID string) (json.RawMessage, error) {
	orders, err := s.ListRecentOrders(ctx, userID, recentOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if len(orders) == 0 {
		return messageResult(noRecentOrders)
	}
	name, err := customerName(ctx, s, userID)
	if err != nil {
		return nil, err
	}
	out := make([]orderDetail, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderDetail{Order: o, CustomerName: name})
	}
	return result(out)
}
