package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lapakbot/lapak/internal/store"
	"github.com/lapakbot/lapak/pkg/catalog"
)

// OrderStatusName is the wire name of the status-lookup tool.
const OrderStatusName = "order_status"

// OrderFinder resolves orders by reference prefix and phone.
type OrderFinder interface {
	FindOrder(ctx context.Context, licenseID, orderIDPrefix, phone string) (*store.Order, error)
}

// HistoryReader reads a session's recent messages newest first, for
// parameter recovery.
type HistoryReader interface {
	HistoryDesc(ctx context.Context, sessionID string, limit int) ([]store.ChatMessage, error)
}

// OrderStatusTool looks up an existing order. Both arguments are
// optional; missing values are recovered from the session transcript
// before the customer is asked to repeat them.
type OrderStatusTool struct {
	licenseID          string
	sessionID          string
	customerIdentifier string
	window             int
	orders             OrderFinder
	history            HistoryReader
	logger             zerolog.Logger
}

// NewOrderStatusTool builds the tool for one turn. window bounds the
// transcript scan; zero or negative selects the default.
func NewOrderStatusTool(licenseID, sessionID, customerIdentifier string, window int, orders OrderFinder, history HistoryReader, logger zerolog.Logger) *OrderStatusTool {
	if window <= 0 {
		window = defaultRecoveryWindow
	}
	return &OrderStatusTool{
		licenseID:          licenseID,
		sessionID:          sessionID,
		customerIdentifier: customerIdentifier,
		window:             window,
		orders:             orders,
		history:            history,
		logger:             logger,
	}
}

// Name implements Tool.
func (t *OrderStatusTool) Name() string { return OrderStatusName }

// Description implements Tool.
func (t *OrderStatusTool) Description() string {
	return "Looks up the status of an existing order by its order ID and the customer's phone number. " +
		"Both parameters are optional; values mentioned earlier in the conversation are reused automatically."
}

// InputSchema implements Tool.
func (t *OrderStatusTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"orderId": map[string]any{
				"type":        "string",
				"description": "The order ID from the order confirmation.",
			},
			"phone": map[string]any{
				"type":        "string",
				"description": "The phone number used when placing the order.",
			},
		},
	}
}

// Execute implements Tool.
func (t *OrderStatusTool) Execute(ctx context.Context, params map[string]any) Result {
	orderID, _ := params["orderId"].(string)
	phone, _ := params["phone"].(string)

	orderID, phone, err := t.recoverParams(ctx, orderID, phone)
	if err != nil {
		return Failure(ErrCollaborator, err.Error())
	}

	switch {
	case orderID == "" && phone == "":
		return Failure(ErrMissingInput,
			"To check an order's status, please provide the order ID and the phone number used for the order.")
	case orderID == "":
		return Failure(ErrMissingInput,
			"Please provide the order ID from your confirmation so I can check its status.")
	case phone == "":
		return Failure(ErrMissingInput,
			"Please provide the phone number used for the order so I can check its status.")
	}

	order, err := t.orders.FindOrder(ctx, t.licenseID, orderID, phone)
	if err != nil {
		t.logger.Warn().Err(err).Str("license_id", t.licenseID).Msg("Order lookup failed")
		return Failure(ErrCollaborator, err.Error())
	}
	if order == nil {
		return Failure(ErrNotFound, fmt.Sprintf(
			"No order matching ID %q was found for that phone number.", orderID))
	}

	return Success(formatStatus(order))
}

func formatStatus(order *store.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s for %s is currently %s.\n", order.Ref(), order.Customer.Name, order.Status)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%dx %s\n", item.Quantity, item.ProductName)
	}
	fmt.Fprintf(&b, "Total: %s", catalog.FormatIDR(order.TotalAmount1000))
	return b.String()
}
