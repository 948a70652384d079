package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("should activate the first agent automatically", func(t *testing.T) {
		first, err := s.CreateAgent(ctx, "lic-1", "Friendly", "Be warm and brief.")
		require.NoError(t, err)
		assert.True(t, first.IsActive)

		second, err := s.CreateAgent(ctx, "lic-1", "Formal", "Be formal.")
		require.NoError(t, err)
		assert.False(t, second.IsActive)
	})

	t.Run("should activate the first agent per tenant independently", func(t *testing.T) {
		other, err := s.CreateAgent(ctx, "lic-2", "Other", "")
		require.NoError(t, err)
		assert.True(t, other.IsActive)
	})

	t.Run("should reject empty name", func(t *testing.T) {
		_, err := s.CreateAgent(ctx, "lic-1", "", "behavior")
		require.Error(t, err)
	})
}

func TestSetActiveAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateAgent(ctx, "lic-1", "A", "")
	require.NoError(t, err)
	second, err := s.CreateAgent(ctx, "lic-1", "B", "")
	require.NoError(t, err)

	t.Run("should leave exactly one agent active", func(t *testing.T) {
		activated, err := s.SetActiveAgent(ctx, "lic-1", second.ID)
		require.NoError(t, err)
		assert.True(t, activated.IsActive)

		reloaded, err := s.GetAgent(ctx, "lic-1", first.ID)
		require.NoError(t, err)
		assert.False(t, reloaded.IsActive)

		active, err := s.GetActiveAgent(ctx, "lic-1")
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, second.ID, active.ID)
	})

	t.Run("should reject an agent owned by another tenant", func(t *testing.T) {
		_, err := s.SetActiveAgent(ctx, "lic-2", second.ID)
		assert.ErrorIs(t, err, ErrAgentNotFound)
	})
}

func TestGetActiveAgent_NoneConfigured(t *testing.T) {
	s := newTestStore(t)

	active, err := s.GetActiveAgent(context.Background(), "lic-without-agents")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestUpdateAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateAgent(ctx, "lic-1", "A", "old behavior")
	require.NoError(t, err)

	behavior := "new behavior"
	updated, err := s.UpdateAgent(ctx, "lic-1", a.ID, nil, &behavior)
	require.NoError(t, err)
	assert.Equal(t, "A", updated.Name)
	assert.Equal(t, "new behavior", updated.Behavior)
}

func TestDeleteAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active, err := s.CreateAgent(ctx, "lic-1", "Active", "")
	require.NoError(t, err)
	spare, err := s.CreateAgent(ctx, "lic-1", "Spare", "")
	require.NoError(t, err)

	t.Run("should refuse to delete the active agent", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteAgent(ctx, "lic-1", active.ID), ErrAgentActive)
	})

	t.Run("should delete an inactive agent", func(t *testing.T) {
		require.NoError(t, s.DeleteAgent(ctx, "lic-1", spare.ID))
		_, err := s.GetAgent(ctx, "lic-1", spare.ID)
		assert.ErrorIs(t, err, ErrAgentNotFound)
	})
}

func TestListAgents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateAgent(ctx, "lic-1", "A", "")
	require.NoError(t, err)
	_, err = s.CreateAgent(ctx, "lic-1", "B", "")
	require.NoError(t, err)

	agents, pagination, err := s.ListAgents(ctx, "lic-1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, agents, 2)
	assert.Equal(t, 2, pagination.TotalItems)
}
