// Package chat implements the per-message turn orchestration: session
// resolution, prompt assembly, model invocation, tool dispatch and
// session rotation after completed orders.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lapakbot/lapak/internal/store"
	"github.com/lapakbot/lapak/pkg/catalog"
	"github.com/lapakbot/lapak/pkg/llm"
	"github.com/lapakbot/lapak/pkg/tools"
)

// MaxToolCallsPerTurn bounds tool execution per model response. The
// prompt asks for one call; anything beyond the first is ignored.
const MaxToolCallsPerTurn = 1

// catalogSnapshotLimit is the page size used to take the per-turn
// catalog snapshot.
const catalogSnapshotLimit = 1000

// degradedActionReply is returned when the model requests a tool this
// turn cannot execute (unknown name or missing call id).
const degradedActionReply = "I was about to perform an action, but there was an issue. Please clarify your request."

// Reply is the outcome of one handled message. SessionID may differ
// from the request's session when an order completed this turn.
type Reply struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
}

// Options tunes the orchestrator's model calls.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	CallTimeout time.Duration

	// RecoveryWindow bounds the transcript scan when the status-lookup
	// tool reconstructs missing parameters. Zero selects the default.
	RecoveryWindow int
}

// Orchestrator is the top-level entry point for incoming chat messages.
type Orchestrator struct {
	store    *store.Store
	provider llm.Provider
	opts     Options
	locks    *keyedLocks
	logger   zerolog.Logger
}

// New builds an orchestrator.
func New(st *store.Store, provider llm.Provider, opts Options, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		provider: provider,
		opts:     opts,
		locks:    newKeyedLocks(),
		logger:   logger,
	}
}

// HandleMessage processes one customer message end to end and returns
// the assistant's reply with the session id the next message should use.
//
// Messages from the same customer of the same tenant are serialized so
// concurrent sends cannot interleave one session's history.
func (o *Orchestrator) HandleMessage(ctx context.Context, licenseID, sessionID, userMessage, customerIdentifier string) (*Reply, error) {
	unlock := o.locks.lock(licenseID + "|" + customerIdentifier)
	defer unlock()

	session, stored, err := o.store.GetOrCreateSession(ctx, licenseID, sessionID, customerIdentifier)
	if err != nil {
		return nil, err
	}
	currentSessionID := session.ID

	// One catalog snapshot per turn; tool validation and the prompt see
	// the same products even if the catalog is edited mid-turn.
	products, _, err := o.store.ListProducts(ctx, licenseID, 1, catalogSnapshotLimit)
	if err != nil {
		return nil, err
	}

	agent, err := o.store.GetActiveAgent(ctx, licenseID)
	if err != nil {
		return nil, err
	}
	behavior := ""
	if agent != nil {
		behavior = agent.Behavior
	}

	systemPrompt := catalog.BuildSystemPrompt(catalog.FormatProducts(catalogEntries(products)), behavior)

	toolSet, err := tools.NewSet(o.logger,
		tools.NewCreateOrderTool(licenseID, products, o.store, o.logger),
		tools.NewOrderStatusTool(licenseID, currentSessionID, customerIdentifier, o.opts.RecoveryWindow, o.store, o.store, o.logger),
	)
	if err != nil {
		return nil, err
	}

	messages := providerHistory(stored)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	// Persist the user message before calling the model so it survives
	// a provider failure.
	if _, err := o.store.AppendMessage(ctx, currentSessionID, store.RoleUser, userMessage, nil); err != nil {
		return nil, err
	}

	response, err := o.invoke(ctx, llm.Request{
		Model:        o.opts.Model,
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Tools:        toolSet.Schemas(),
		Temperature:  o.opts.Temperature,
		MaxTokens:    o.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}

	reply := response.Content
	replySessionID := currentSessionID
	var toolCallPayload []byte

	if len(response.ToolCalls) > 0 {
		if toolCallPayload, err = json.Marshal(response.ToolCalls); err != nil {
			return nil, fmt.Errorf("failed to marshal tool calls: %w", err)
		}
		if len(response.ToolCalls) > MaxToolCallsPerTurn {
			o.logger.Warn().
				Int("requested", len(response.ToolCalls)).
				Str("session_id", currentSessionID).
				Msg("Extra tool calls ignored")
		}

		call := response.ToolCalls[0]
		if call.ID == "" || !toolSet.Has(call.Name) {
			reply = degradedActionReply
		} else {
			reply, replySessionID, err = o.runTool(ctx, toolSet, call, response.Content, messages, session)
			if err != nil {
				return nil, err
			}
		}
	}

	if _, err := o.store.AppendMessage(ctx, replySessionID, store.RoleAssistant, reply, toolCallPayload); err != nil {
		return nil, err
	}

	return &Reply{SessionID: replySessionID, Response: reply}, nil
}

// runTool executes one tool call, synthesizes the reply from its result
// and rotates the session when an order completed.
func (o *Orchestrator) runTool(ctx context.Context, toolSet *tools.Set, call llm.ToolCall, assistantText string, messages []llm.Message, session *store.ChatSession) (string, string, error) {
	o.logger.Info().
		Str("tool", call.Name).
		Str("session_id", session.ID).
		Msg("Executing tool call")

	result := toolSet.Execute(ctx, call.Name, call.Parameters)
	resultText := result.Text()

	messages = append(messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   assistantText,
		ToolCalls: []llm.ToolCall{call},
	})
	messages = append(messages, llm.Message{
		Role:       llm.RoleTool,
		ToolCallID: call.ID,
		Content:    resultText,
	})

	// The tool result is persisted so later turns can recover order
	// references from the transcript.
	if _, err := o.store.AppendMessage(ctx, session.ID, store.RoleTool, resultText, nil); err != nil {
		return "", "", err
	}

	orderCreated := call.Name == tools.CreateOrderName && !result.Failed()

	// Templated fallback keeps the customer informed even if the
	// synthesis call fails.
	reply := resultText
	if orderCreated {
		reply = "I've created your order! " + resultText
	}

	final, err := o.invoke(ctx, llm.Request{
		Model:       o.opts.Model,
		Messages:    messages,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Synthesis call failed, using templated reply")
	} else {
		reply = final.Content
	}

	replySessionID := session.ID
	if orderCreated {
		if err := o.store.CloseSession(ctx, session.ID); err != nil {
			return "", "", err
		}
		next, _, err := o.store.GetOrCreateSession(ctx, session.LicenseID, "", session.CustomerIdentifier)
		if err != nil {
			return "", "", err
		}
		replySessionID = next.ID
		o.logger.Info().
			Str("closed_session_id", session.ID).
			Str("session_id", replySessionID).
			Msg("Session rotated after order")
	}

	return reply, replySessionID, nil
}

func (o *Orchestrator) invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if o.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
	}
	return o.provider.Call(ctx, req)
}

// providerHistory maps stored messages to provider form. Tool rows are
// transcript bookkeeping for recovery, not conversation turns; the
// model rebuilds context from user and assistant rows only.
func providerHistory(stored []store.ChatMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(stored)+1)
	for _, msg := range stored {
		switch msg.Role {
		case store.RoleUser:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: msg.Content})
		case store.RoleAssistant:
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: msg.Content})
		}
	}
	return messages
}

func catalogEntries(products []store.Product) []catalog.Entry {
	entries := make([]catalog.Entry, 0, len(products))
	for _, p := range products {
		entries = append(entries, catalog.Entry{
			ID:              p.ID,
			Name:            p.Name,
			Description:     p.Description,
			PriceAmount1000: p.PriceAmount1000,
		})
	}
	return entries
}
