package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecentMessageWindow is how many stored messages seed the model's
// context when a session is resumed.
const RecentMessageWindow = 10

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatSession is one bounded conversation between a tenant's assistant
// and a customer. A session is closed after a completed order so every
// order gets a clean context window.
type ChatSession struct {
	ID                 string    `json:"id"`
	LicenseID          string    `json:"license_id"`
	CustomerIdentifier string    `json:"customer_identifier"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ChatMessage is one turn in a session's append-only log. ToolCalls
// holds the raw tool-call payload of assistant messages that requested a
// tool; it is stored as JSON and parsed back for history recovery.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolCalls []byte    `json:"tool_calls,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetOrCreateSession resumes a session when sessionID names one that is
// owned by the tenant and still active, returning it with its most
// recent messages in chronological order. In every other case it creates
// a fresh session with an empty message list. A failed insert is
// surfaced as an error; it means persistence is down.
func (s *Store) GetOrCreateSession(ctx context.Context, licenseID, sessionID, customerIdentifier string) (*ChatSession, []ChatMessage, error) {
	if sessionID != "" {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, license_id, customer_identifier, is_active, created_at, updated_at
			 FROM chat_sessions
			 WHERE id = ? AND license_id = ? AND is_active = 1`,
			sessionID, licenseID,
		)
		sess, err := scanSession(row)
		switch {
		case err == nil:
			messages, err := s.RecentMessages(ctx, sess.ID, RecentMessageWindow)
			if err != nil {
				return nil, nil, err
			}
			return sess, messages, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, nil, fmt.Errorf("failed to look up session: %w", err)
		}
		// Unknown, foreign or closed session id: fall through and start fresh.
	}

	ts := now()
	sess := &ChatSession{
		ID:                 uuid.NewString(),
		LicenseID:          licenseID,
		CustomerIdentifier: customerIdentifier,
		IsActive:           true,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, license_id, customer_identifier, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		sess.ID, sess.LicenseID, sess.CustomerIdentifier, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	s.logger.Debug().
		Str("session_id", sess.ID).
		Str("license_id", licenseID).
		Msg("Session created")

	return sess, []ChatMessage{}, nil
}

// CloseSession marks a session inactive. Closing an already-closed
// session is not an error.
func (s *Store) CloseSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET is_active = 0, updated_at = ? WHERE id = ?`,
		now(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// AppendMessage appends one message to a session's log. Messages are
// never updated or deleted.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string, toolCalls []byte) (*ChatMessage, error) {
	if role == "" {
		return nil, errors.New("message role is required")
	}

	msg := &ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		ToolCalls: toolCalls,
		CreatedAt: now(),
	}

	var payload any
	if len(toolCalls) > 0 {
		payload = string(toolCalls)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, tool_calls, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, payload, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, msg.CreatedAt, sessionID,
	); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	return msg, nil
}

// RecentMessages returns the last limit messages of a session in
// chronological order, for context reconstruction.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	messages, err := s.HistoryDesc(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	// Reverse newest-first into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// HistoryDesc returns the last limit messages of a session newest first,
// the order the status-lookup recovery scan wants.
func (s *Store) HistoryDesc(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	if limit < 1 {
		limit = RecentMessageWindow
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, tool_calls, created_at
		 FROM chat_messages WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	messages := []ChatMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	return messages, nil
}

// ListSessions returns a page of a tenant's sessions, newest first, for
// dashboard inspection.
func (s *Store) ListSessions(ctx context.Context, licenseID string, page, limit int) ([]ChatSession, Pagination, error) {
	page, limit = normalizePage(page, limit)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_sessions WHERE license_id = ?`, licenseID,
	).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, license_id, customer_identifier, is_active, created_at, updated_at
		 FROM chat_sessions WHERE license_id = ?
		 ORDER BY updated_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		licenseID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, paginate(total, page, limit), nil
}

// SessionMessages returns a tenant-owned session's full message log in
// chronological order, paged.
func (s *Store) SessionMessages(ctx context.Context, licenseID, sessionID string, page, limit int) ([]ChatMessage, Pagination, error) {
	page, limit = normalizePage(page, limit)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages m
		 JOIN chat_sessions cs ON cs.id = m.session_id
		 WHERE m.session_id = ? AND cs.license_id = ?`,
		sessionID, licenseID,
	).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count messages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.session_id, m.role, m.content, m.tool_calls, m.created_at
		 FROM chat_messages m
		 JOIN chat_sessions cs ON cs.id = m.session_id
		 WHERE m.session_id = ? AND cs.license_id = ?
		 ORDER BY m.created_at, m.rowid
		 LIMIT ? OFFSET ?`,
		sessionID, licenseID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, paginate(total, page, limit), nil
}

// CloseIdleSessions closes active sessions with no activity since the
// cutoff and reports how many were closed.
func (s *Store) CloseIdleSessions(ctx context.Context, idleFor time.Duration) (int64, error) {
	cutoff := now().Add(-idleFor)
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET is_active = 0, updated_at = ?
		 WHERE is_active = 1 AND updated_at < ?`,
		now(), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to close idle sessions: %w", err)
	}
	closed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to close idle sessions: %w", err)
	}
	if closed > 0 {
		s.logger.Info().Int64("closed", closed).Msg("Idle sessions closed")
	}
	return closed, nil
}

func scanSession(row rowScanner) (*ChatSession, error) {
	var sess ChatSession
	err := row.Scan(&sess.ID, &sess.LicenseID, &sess.CustomerIdentifier,
		&sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func scanMessage(row rowScanner) (*ChatMessage, error) {
	var m ChatMessage
	var toolCalls sql.NullString
	err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &toolCalls, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if toolCalls.Valid {
		m.ToolCalls = []byte(toolCalls.String)
	}
	return &m, nil
}
