package tools

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lapakbot/lapak/internal/store"
	"github.com/lapakbot/lapak/pkg/llm"
)

// defaultRecoveryWindow bounds how far back the transcript scan
// reaches when no window is configured.
const defaultRecoveryWindow = 10

var (
	// Matches the order reference on the "Order ID:" line of an order
	// confirmation. The reference alphabet has no ambiguous characters.
	confirmationRefPattern = regexp.MustCompile(`Order ID:\s*([A-HJKMNP-Z2-9]{4,12})`)

	// Loose patterns for mining raw user messages, the last resort.
	looseOrderIDPattern = regexp.MustCompile(`\b[A-Za-z0-9]{6,12}\b`)
	loosePhonePattern   = regexp.MustCompile(`\+?\d{9,15}`)
)

// recoverParams fills in missing order-status arguments from the
// session transcript. Values supplied by the model are never
// overridden; each recovery step only runs while a value is missing.
func (t *OrderStatusTool) recoverParams(ctx context.Context, orderID, phone string) (string, string, error) {
	if orderID != "" && phone != "" {
		return orderID, phone, nil
	}

	messages, err := t.history.HistoryDesc(ctx, t.sessionID, t.window)
	if err != nil {
		return "", "", err
	}

	orderID, phone = recoverFromPriorCalls(messages, orderID, phone)

	if orderID == "" {
		orderID = recoverFromConfirmations(messages)
	}

	// The customer identifier is frequently the phone number.
	if phone == "" {
		phone = t.customerIdentifier
	}

	if orderID == "" || phone == "" {
		orderID, phone = recoverFromUserText(messages, orderID, phone)
	}

	return orderID, phone, nil
}

// recoverFromPriorCalls mines earlier status-lookup tool calls for
// arguments the model resolved before.
func recoverFromPriorCalls(messages []store.ChatMessage, orderID, phone string) (string, string) {
	for _, msg := range messages {
		if msg.Role != store.RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}

		var calls []llm.ToolCall
		if err := json.Unmarshal(msg.ToolCalls, &calls); err != nil {
			continue
		}

		for _, call := range calls {
			if call.Name != OrderStatusName {
				continue
			}
			if orderID == "" {
				if v, ok := call.Parameters["orderId"].(string); ok && v != "" {
					orderID = v
				}
			}
			if phone == "" {
				if v, ok := call.Parameters["phone"].(string); ok && v != "" {
					phone = v
				}
			}
			if orderID != "" && phone != "" {
				return orderID, phone
			}
		}
	}
	return orderID, phone
}

// recoverFromConfirmations extracts the order reference from the most
// recent order confirmation in the transcript.
func recoverFromConfirmations(messages []store.ChatMessage) string {
	for _, msg := range messages {
		if msg.Role != store.RoleTool {
			continue
		}
		if m := confirmationRefPattern.FindStringSubmatch(msg.Content); m != nil {
			return m[1]
		}
	}
	return ""
}

// recoverFromUserText mines raw user messages with loose patterns. An
// order-id candidate must contain a digit so plain words don't match.
func recoverFromUserText(messages []store.ChatMessage, orderID, phone string) (string, string) {
	for _, msg := range messages {
		if msg.Role != store.RoleUser {
			continue
		}

		if phone == "" {
			if m := loosePhonePattern.FindString(msg.Content); m != "" {
				phone = m
			}
		}
		if orderID == "" {
			for _, candidate := range looseOrderIDPattern.FindAllString(msg.Content, -1) {
				if candidate == phone {
					continue
				}
				if strings.ContainsAny(candidate, "0123456789") {
					orderID = candidate
					break
				}
			}
		}
		if orderID != "" && phone != "" {
			break
		}
	}
	return orderID, phone
}
