package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapakbot/lapak/internal/store"
)

type fakeOrderFinder struct {
	calls      int
	lastPrefix string
	lastPhone  string
	order      *store.Order
	err        error
}

func (f *fakeOrderFinder) FindOrder(_ context.Context, _ string, prefix, phone string) (*store.Order, error) {
	f.calls++
	f.lastPrefix = prefix
	f.lastPhone = phone
	return f.order, f.err
}

type fakeHistory struct {
	messages []store.ChatMessage
	err      error
}

func (f *fakeHistory) HistoryDesc(_ context.Context, _ string, _ int) ([]store.ChatMessage, error) {
	return f.messages, f.err
}

func newStatusTool(finder *fakeOrderFinder, history *fakeHistory, customerIdentifier string) *OrderStatusTool {
	return NewOrderStatusTool("lic-1", "sess-1", customerIdentifier, 0, finder, history, zerolog.Nop())
}

func foundOrder() *store.Order {
	return &store.Order{
		ID:              "ABCDEF234567",
		TotalAmount1000: 200_000_000,
		Status:          "pending",
		Items: []store.OrderItem{
			{ProductName: "Red Shirt", Quantity: 2},
		},
		Customer: &store.Customer{Name: "John", Phone: "081234567890"},
	}
}

func TestOrderStatusTool_Execute(t *testing.T) {
	t.Run("should look up with explicit arguments", func(t *testing.T) {
		finder := &fakeOrderFinder{order: foundOrder()}
		tool := newStatusTool(finder, &fakeHistory{}, "")

		result := tool.Execute(context.Background(), map[string]any{
			"orderId": "ABCDEF",
			"phone":   "081234567890",
		})
		require.False(t, result.Failed())

		assert.Equal(t, "ABCDEF", finder.lastPrefix)
		assert.Equal(t, "081234567890", finder.lastPhone)
		assert.Contains(t, result.Text(), "Order ABCDEF for John is currently pending.")
		assert.Contains(t, result.Text(), "2x Red Shirt")
		assert.Contains(t, result.Text(), "Total: IDR 200.000")
	})

	t.Run("should ask for the order id when unrecoverable", func(t *testing.T) {
		finder := &fakeOrderFinder{}
		tool := newStatusTool(finder, &fakeHistory{}, "081234567890")

		result := tool.Execute(context.Background(), map[string]any{})
		require.True(t, result.Failed())
		assert.Equal(t, ErrMissingInput, result.Err.Kind)
		assert.Contains(t, result.Text(), "order ID")
		assert.Zero(t, finder.calls)
	})

	t.Run("should return not-found text when nothing matches", func(t *testing.T) {
		finder := &fakeOrderFinder{}
		tool := newStatusTool(finder, &fakeHistory{}, "")

		result := tool.Execute(context.Background(), map[string]any{
			"orderId": "ABCDEF",
			"phone":   "081234567890",
		})
		require.True(t, result.Failed())
		assert.Equal(t, ErrNotFound, result.Err.Kind)
		assert.Contains(t, result.Text(), `"ABCDEF"`)
	})

	t.Run("should convert finder failures into failure text", func(t *testing.T) {
		finder := &fakeOrderFinder{err: errors.New("lookup service down")}
		tool := newStatusTool(finder, &fakeHistory{}, "")

		result := tool.Execute(context.Background(), map[string]any{
			"orderId": "ABCDEF",
			"phone":   "081234567890",
		})
		require.True(t, result.Failed())
		assert.Equal(t, ErrCollaborator, result.Err.Kind)
		assert.Contains(t, result.Text(), "lookup service down")
	})
}

func TestOrderStatusTool_Recovery(t *testing.T) {
	t.Run("should recover both values from a prior status-lookup call", func(t *testing.T) {
		finder := &fakeOrderFinder{order: foundOrder()}
		history := &fakeHistory{messages: []store.ChatMessage{
			{
				Role:      store.RoleAssistant,
				Content:   "Let me check that for you.",
				ToolCalls: []byte(`[{"id":"call_1","name":"order_status","parameters":{"orderId":"ABCDEF","phone":"081234567890"}}]`),
			},
		}}
		tool := newStatusTool(finder, history, "")

		result := tool.Execute(context.Background(), map[string]any{})
		require.False(t, result.Failed())
		assert.Equal(t, "ABCDEF", finder.lastPrefix)
		assert.Equal(t, "081234567890", finder.lastPhone)
	})

	t.Run("should recover the order id from a confirmation in the transcript", func(t *testing.T) {
		finder := &fakeOrderFinder{order: foundOrder()}
		history := &fakeHistory{messages: []store.ChatMessage{
			{
				Role:    store.RoleTool,
				Content: "Order created successfully for John.\nOrder ID: ABCDEF\n2x Red Shirt\nTotal: IDR 200.000",
			},
		}}
		tool := newStatusTool(finder, history, "081234567890")

		result := tool.Execute(context.Background(), map[string]any{})
		require.False(t, result.Failed())
		assert.Equal(t, "ABCDEF", finder.lastPrefix)
		assert.Equal(t, "081234567890", finder.lastPhone)
	})

	t.Run("should fall back to the customer identifier for the phone", func(t *testing.T) {
		finder := &fakeOrderFinder{order: foundOrder()}
		tool := newStatusTool(finder, &fakeHistory{}, "081234567890")

		result := tool.Execute(context.Background(), map[string]any{"orderId": "ABCDEF"})
		require.False(t, result.Failed())
		assert.Equal(t, "081234567890", finder.lastPhone)
	})

	t.Run("should mine user messages as a last resort", func(t *testing.T) {
		finder := &fakeOrderFinder{order: foundOrder()}
		history := &fakeHistory{messages: []store.ChatMessage{
			{Role: store.RoleUser, Content: "my order is ABC123, where is it?"},
		}}
		tool := newStatusTool(finder, history, "081234567890")

		result := tool.Execute(context.Background(), map[string]any{})
		require.False(t, result.Failed())
		assert.Equal(t, "ABC123", finder.lastPrefix)
	})

	t.Run("should never override explicit arguments", func(t *testing.T) {
		finder := &fakeOrderFinder{order: foundOrder()}
		history := &fakeHistory{messages: []store.ChatMessage{
			{
				Role:      store.RoleAssistant,
				ToolCalls: []byte(`[{"id":"call_1","name":"order_status","parameters":{"orderId":"ZZZZZZ","phone":"080000000000"}}]`),
			},
		}}
		tool := newStatusTool(finder, history, "")

		result := tool.Execute(context.Background(), map[string]any{
			"orderId": "ABCDEF",
			"phone":   "081234567890",
		})
		require.False(t, result.Failed())
		assert.Equal(t, "ABCDEF", finder.lastPrefix)
		assert.Equal(t, "081234567890", finder.lastPhone)
	})

	t.Run("should ignore create-order tool calls during recovery", func(t *testing.T) {
		finder := &fakeOrderFinder{}
		history := &fakeHistory{messages: []store.ChatMessage{
			{
				Role:      store.RoleAssistant,
				ToolCalls: []byte(`[{"id":"call_1","name":"create_order","parameters":{"customer":{"phone":"081234567890"}}}]`),
			},
		}}
		tool := newStatusTool(finder, history, "")

		result := tool.Execute(context.Background(), map[string]any{})
		require.True(t, result.Failed())
		assert.Equal(t, ErrMissingInput, result.Err.Kind)
		assert.Zero(t, finder.calls)
	})
}
