package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("should create a fresh session without an id", func(t *testing.T) {
		sess, messages, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)
		assert.True(t, sess.IsActive)
		assert.Empty(t, messages)
	})

	t.Run("should resume an active tenant-owned session", func(t *testing.T) {
		sess, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
		require.NoError(t, err)

		_, err = s.AppendMessage(ctx, sess.ID, RoleUser, "hello", nil)
		require.NoError(t, err)

		resumed, messages, err := s.GetOrCreateSession(ctx, "lic-1", sess.ID, "081234567890")
		require.NoError(t, err)
		assert.Equal(t, sess.ID, resumed.ID)
		require.Len(t, messages, 1)
		assert.Equal(t, "hello", messages[0].Content)
	})

	t.Run("should not resume a session owned by another tenant", func(t *testing.T) {
		sess, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
		require.NoError(t, err)

		other, _, err := s.GetOrCreateSession(ctx, "lic-2", sess.ID, "081234567890")
		require.NoError(t, err)
		assert.NotEqual(t, sess.ID, other.ID)
		assert.Equal(t, "lic-2", other.LicenseID)
	})

	t.Run("should not resume a closed session", func(t *testing.T) {
		sess, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
		require.NoError(t, err)
		require.NoError(t, s.CloseSession(ctx, sess.ID))

		replacement, messages, err := s.GetOrCreateSession(ctx, "lic-1", sess.ID, "081234567890")
		require.NoError(t, err)
		assert.NotEqual(t, sess.ID, replacement.ID)
		assert.Empty(t, messages)
	})

	t.Run("should create a fresh session for an unknown id", func(t *testing.T) {
		sess, _, err := s.GetOrCreateSession(ctx, "lic-1", "no-such-session", "081234567890")
		require.NoError(t, err)
		assert.NotEqual(t, "no-such-session", sess.ID)
	})
}

func TestCloseSession_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
	require.NoError(t, err)

	require.NoError(t, s.CloseSession(ctx, sess.ID))
	require.NoError(t, s.CloseSession(ctx, sess.ID))
	require.NoError(t, s.CloseSession(ctx, "never-existed"))
}

func TestAppendMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
	require.NoError(t, err)

	t.Run("should keep messages in append order", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := s.AppendMessage(ctx, sess.ID, RoleUser, fmt.Sprintf("msg %d", i), nil)
			require.NoError(t, err)
		}

		messages, err := s.RecentMessages(ctx, sess.ID, 10)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		for i, msg := range messages {
			assert.Equal(t, fmt.Sprintf("msg %d", i), msg.Content)
		}
	})

	t.Run("should round-trip a tool-call payload", func(t *testing.T) {
		payload := []byte(`[{"id":"call_1","name":"order_status","parameters":{"phone":"0812"}}]`)
		_, err := s.AppendMessage(ctx, sess.ID, RoleAssistant, "checking", payload)
		require.NoError(t, err)

		messages, err := s.HistoryDesc(ctx, sess.ID, 1)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.JSONEq(t, string(payload), string(messages[0].ToolCalls))
	})

	t.Run("should reject an empty role", func(t *testing.T) {
		_, err := s.AppendMessage(ctx, sess.ID, "", "content", nil)
		require.Error(t, err)
	})
}

func TestRecentMessages_Window(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		_, err := s.AppendMessage(ctx, sess.ID, RoleUser, fmt.Sprintf("msg %d", i), nil)
		require.NoError(t, err)
	}

	messages, err := s.RecentMessages(ctx, sess.ID, RecentMessageWindow)
	require.NoError(t, err)
	require.Len(t, messages, RecentMessageWindow)
	// The window keeps the newest messages, oldest first.
	assert.Equal(t, "msg 5", messages[0].Content)
	assert.Equal(t, "msg 14", messages[len(messages)-1].Content)
}

func TestSessionMessages_TenantScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, sess.ID, RoleUser, "hello", nil)
	require.NoError(t, err)

	messages, pagination, err := s.SessionMessages(ctx, "lic-1", sess.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, 1, pagination.TotalItems)

	foreign, _, err := s.SessionMessages(ctx, "lic-2", sess.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

func TestCloseIdleSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	idle, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "081234567890")
	require.NoError(t, err)
	fresh, _, err := s.GetOrCreateSession(ctx, "lic-1", "", "089999999999")
	require.NoError(t, err)

	// Age the idle session past the cutoff.
	_, err = s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-2*time.Hour), idle.ID,
	)
	require.NoError(t, err)

	closed, err := s.CloseIdleSessions(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	replacement, _, err := s.GetOrCreateSession(ctx, "lic-1", idle.ID, "081234567890")
	require.NoError(t, err)
	assert.NotEqual(t, idle.ID, replacement.ID)

	kept, _, err := s.GetOrCreateSession(ctx, "lic-1", fresh.ID, "089999999999")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, kept.ID)
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := s.GetOrCreateSession(ctx, "lic-1", "", fmt.Sprintf("cust-%d", i))
		require.NoError(t, err)
	}

	sessions, pagination, err := s.ListSessions(ctx, "lic-1", 1, 2)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, 3, pagination.TotalItems)
}
