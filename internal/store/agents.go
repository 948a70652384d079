package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Agent is a per-tenant behavior configuration for the chat assistant.
// At most one agent is active per tenant; the active agent's behavior
// text seeds the system prompt.
type Agent struct {
	ID        string    `json:"id"`
	LicenseID string    `json:"license_id"`
	Name      string    `json:"name"`
	Behavior  string    `json:"behavior"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAgent creates a new agent configuration. The first agent ever
// created for a tenant is activated automatically.
func (s *Store) CreateAgent(ctx context.Context, licenseID, name, behavior string) (*Agent, error) {
	if name == "" {
		return nil, errors.New("agent name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ai_agents WHERE license_id = ?`, licenseID,
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count agents: %w", err)
	}

	agent := &Agent{
		ID:        uuid.NewString(),
		LicenseID: licenseID,
		Name:      name,
		Behavior:  behavior,
		IsActive:  count == 0,
		CreatedAt: now(),
		UpdatedAt: now(),
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ai_agents (id, license_id, name, behavior, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.LicenseID, agent.Name, agent.Behavior,
		agent.IsActive, agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit agent creation: %w", err)
	}

	s.logger.Debug().
		Str("agent_id", agent.ID).
		Str("license_id", licenseID).
		Bool("is_active", agent.IsActive).
		Msg("Agent created")
	return agent, nil
}

// SetActiveAgent activates one agent for a tenant and deactivates every
// other agent, atomically.
func (s *Store) SetActiveAgent(ctx context.Context, licenseID, agentID string) (*Agent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ai_agents WHERE id = ? AND license_id = ?`, agentID, licenseID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up agent: %w", err)
	}
	if exists == 0 {
		return nil, ErrAgentNotFound
	}

	ts := now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE ai_agents SET is_active = 0, updated_at = ? WHERE license_id = ? AND id != ?`,
		ts, licenseID, agentID,
	); err != nil {
		return nil, fmt.Errorf("failed to deactivate agents: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ai_agents SET is_active = 1, updated_at = ? WHERE id = ?`,
		ts, agentID,
	); err != nil {
		return nil, fmt.Errorf("failed to activate agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit agent activation: %w", err)
	}

	return s.GetAgent(ctx, licenseID, agentID)
}

// GetAgent retrieves a tenant-owned agent by id.
func (s *Store) GetAgent(ctx context.Context, licenseID, agentID string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, license_id, name, behavior, is_active, created_at, updated_at
		 FROM ai_agents WHERE id = ? AND license_id = ?`,
		agentID, licenseID,
	)
	a, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return a, nil
}

// GetActiveAgent returns the tenant's active agent, or nil when the
// tenant has none. The orchestrator treats nil as "empty behavior".
func (s *Store) GetActiveAgent(ctx context.Context, licenseID string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, license_id, name, behavior, is_active, created_at, updated_at
		 FROM ai_agents WHERE license_id = ? AND is_active = 1
		 LIMIT 1`,
		licenseID,
	)
	a, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active agent: %w", err)
	}
	return a, nil
}

// UpdateAgent updates the name and/or behavior of a tenant-owned agent.
func (s *Store) UpdateAgent(ctx context.Context, licenseID, agentID string, name, behavior *string) (*Agent, error) {
	a, err := s.GetAgent(ctx, licenseID, agentID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		a.Name = *name
	}
	if behavior != nil {
		a.Behavior = *behavior
	}
	a.UpdatedAt = now()

	_, err = s.db.ExecContext(ctx,
		`UPDATE ai_agents SET name = ?, behavior = ?, updated_at = ? WHERE id = ? AND license_id = ?`,
		a.Name, a.Behavior, a.UpdatedAt, agentID, licenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}
	return a, nil
}

// DeleteAgent removes an agent. The active agent cannot be deleted;
// another agent must be activated first.
func (s *Store) DeleteAgent(ctx context.Context, licenseID, agentID string) error {
	a, err := s.GetAgent(ctx, licenseID, agentID)
	if err != nil {
		return err
	}
	if a.IsActive {
		return ErrAgentActive
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM ai_agents WHERE id = ? AND license_id = ?`, agentID, licenseID)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return nil
}

// ListAgents returns a page of a tenant's agents, newest first.
func (s *Store) ListAgents(ctx context.Context, licenseID string, page, limit int) ([]Agent, Pagination, error) {
	page, limit = normalizePage(page, limit)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ai_agents WHERE license_id = ?`, licenseID,
	).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count agents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, license_id, name, behavior, is_active, created_at, updated_at
		 FROM ai_agents WHERE license_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		licenseID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list agents: %w", err)
	}

	return agents, paginate(total, page, limit), nil
}

func scanAgent(row rowScanner) (*Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.LicenseID, &a.Name, &a.Behavior,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
