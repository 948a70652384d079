package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lapakbot/lapak/internal/store"
	"github.com/lapakbot/lapak/pkg/catalog"
)

// CreateOrderName is the wire name of the order-creation tool.
const CreateOrderName = "create_order"

// OrderPlacer places validated orders.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, licenseID string, req store.NewOrder) (*store.Order, error)
}

// CreateOrderTool places an order from the model's gathered customer
// details and cart. It validates the cart against the catalog snapshot
// taken at the start of the turn, never against a fresh read.
type CreateOrderTool struct {
	licenseID string
	snapshot  map[string]store.Product
	orders    OrderPlacer
	logger    zerolog.Logger
}

// NewCreateOrderTool builds the tool for one turn.
func NewCreateOrderTool(licenseID string, products []store.Product, orders OrderPlacer, logger zerolog.Logger) *CreateOrderTool {
	snapshot := make(map[string]store.Product, len(products))
	for _, p := range products {
		snapshot[p.ID] = p
	}
	return &CreateOrderTool{
		licenseID: licenseID,
		snapshot:  snapshot,
		orders:    orders,
		logger:    logger,
	}
}

// Name implements Tool.
func (t *CreateOrderTool) Name() string { return CreateOrderName }

// Description implements Tool.
func (t *CreateOrderTool) Description() string {
	return "Creates a new order in the system with the customer's details and cart items. " +
		"Only use this tool when all required information has been gathered from the user."
}

// InputSchema implements Tool.
func (t *CreateOrderTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customer": map[string]any{
				"type":        "object",
				"description": "An object containing the customer's contact details.",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "The full name of the customer placing the order.",
					},
					"phone": map[string]any{
						"type":        "string",
						"description": "The active phone number for the customer.",
					},
				},
				"required": []string{"name", "phone"},
			},
			"cart": map[string]any{
				"type":        "array",
				"description": "An array of products the customer wishes to purchase.",
				"minItems":    1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"productId": map[string]any{
							"type":        "string",
							"description": "The exact product ID from the catalog.",
						},
						"qty": map[string]any{
							"type":        "integer",
							"minimum":     1,
							"description": "The quantity of the product to be ordered.",
						},
					},
					"required": []string{"productId", "qty"},
				},
			},
		},
		"required": []string{"customer", "cart"},
	}
}

type createOrderArgs struct {
	Customer store.CustomerDetails `json:"customer"`
	Cart     []struct {
		ProductID string `json:"productId"`
		Qty       int    `json:"qty"`
	} `json:"cart"`
}

// Execute implements Tool. Collaborator failures are converted to
// failure text; nothing escapes as a Go error.
func (t *CreateOrderTool) Execute(ctx context.Context, params map[string]any) Result {
	raw, err := json.Marshal(params)
	if err != nil {
		return Failure(ErrValidation, fmt.Sprintf("invalid tool arguments: %v", err))
	}
	var args createOrderArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Failure(ErrValidation, fmt.Sprintf("invalid tool arguments: %v", err))
	}

	items := make([]store.NewOrderItem, 0, len(args.Cart))
	for _, line := range args.Cart {
		if _, ok := t.snapshot[line.ProductID]; !ok {
			return Failure(ErrValidation, fmt.Sprintf(
				"Product with ID %q not found in catalog. Cannot create order.", line.ProductID))
		}
		items = append(items, store.NewOrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Qty,
		})
	}

	order, err := t.orders.CreateOrder(ctx, t.licenseID, store.NewOrder{
		Items:    items,
		Customer: args.Customer,
	})
	if err != nil {
		t.logger.Warn().Err(err).Str("license_id", t.licenseID).Msg("Order creation failed")
		return Failure(ErrCollaborator, err.Error())
	}

	return Success(formatConfirmation(order))
}

// formatConfirmation renders the order confirmation the customer (and
// later turns' history recovery) will see. The "Order ID:" line is the
// marker the status-lookup recovery scans for.
func formatConfirmation(order *store.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order created successfully for %s.\n", order.Customer.Name)
	fmt.Fprintf(&b, "Order ID: %s\n", order.Ref())
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%dx %s\n", item.Quantity, item.ProductName)
	}
	fmt.Fprintf(&b, "Total: %s", catalog.FormatIDR(order.TotalAmount1000))
	return b.String()
}
