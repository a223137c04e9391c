package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/flow"
)

const automationColumns = `id, tenant_id, name, is_active, trigger_type, trigger_keyword, created_at`

// SaveAutomation writes a full automation in one transaction. An empty ID
// inserts a new record with a generated UUID; otherwise the tenant's record
// is updated and its nodes and edges are replaced.
func (s *PGStore) SaveAutomation(ctx context.Context, a *flow.Automation) (*flow.Automation, error) {
	rec := *a
	if err := rec.Normalize(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if rec.ID == "" {
		rec.ID = uuid.NewString()
		err = tx.QueryRow(ctx,
			`INSERT INTO automations (id, tenant_id, name, is_active, trigger_type, trigger_keyword)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
			rec.ID, rec.TenantID, rec.Name, rec.IsActive, rec.TriggerType, rec.TriggerKeyword,
		).Scan(&rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("flow: insert automation: %w", err)
		}
	} else {
		err = tx.QueryRow(ctx,
			`UPDATE automations
			    SET name = $3, is_active = $4, trigger_type = $5, trigger_keyword = $6, updated_at = NOW()
			  WHERE id = $1 AND tenant_id = $2
			 RETURNING created_at`,
			rec.ID, rec.TenantID, rec.Name, rec.IsActive, rec.TriggerType, rec.TriggerKeyword,
		).Scan(&rec.CreatedAt)
		if err != nil {
			if isNoRows(err) {
				return nil, flow.ErrAutomationNotFound
			}
			return nil, fmt.Errorf("flow: update automation: %w", err)
		}
	}

	if err := replaceGraph(ctx, tx, rec.ID, rec.FlowData); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("flow: commit: %w", err)
	}
	return &rec, nil
}

// GetAutomation fetches one automation with its flow data.
// Returns ErrAutomationNotFound if the tenant has no such record.
func (s *PGStore) GetAutomation(ctx context.Context, tenantID, id string) (*flow.Automation, error) {
	var a flow.Automation
	err := s.db.QueryRow(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&a.ID, &a.TenantID, &a.Name, &a.IsActive, &a.TriggerType, &a.TriggerKeyword, &a.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, flow.ErrAutomationNotFound
		}
		return nil, fmt.Errorf("flow: get automation: %w", err)
	}

	graphs, err := loadGraphs(ctx, s.db, []string{a.ID})
	if err != nil {
		return nil, err
	}
	a.FlowData = graphs.get(a.ID)
	return &a, nil
}

// ListAutomations returns the tenant's automations, newest first.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListAutomations(ctx context.Context, tenantID string) ([]flow.Automation, error) {
	return s.queryAutomations(ctx, "list automations",
		`SELECT `+automationColumns+` FROM automations WHERE tenant_id = $1 ORDER BY created_at DESC, id`, tenantID)
}

// MatchAutomations returns the tenant's active keyword automations whose
// keyword occurs in text, ignoring case. Served by idx_automations_keyword.
func (s *PGStore) MatchAutomations(ctx context.Context, tenantID, text string) ([]flow.Automation, error) {
	return s.queryAutomations(ctx, "match automations",
		`SELECT `+automationColumns+` FROM automations
		  WHERE tenant_id = $1 AND is_active AND trigger_type = $2 AND trigger_keyword <> ''
		    AND strpos(lower($3), lower(trigger_keyword)) > 0
		  ORDER BY created_at DESC, id`,
		tenantID, flow.TriggerTypeKeyword, text)
}

// queryAutomations runs an automations SELECT of automationColumns and
// attaches each row's flow data.
func (s *PGStore) queryAutomations(ctx context.Context, op, sql string, args ...any) ([]flow.Automation, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("flow: %s: %w", op, err)
	}
	defer rows.Close()

	list := []flow.Automation{}
	ids := []string{}
	for rows.Next() {
		var a flow.Automation
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.IsActive, &a.TriggerType, &a.TriggerKeyword, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("flow: scan automation: %w", err)
		}
		list = append(list, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: %s: %w", op, err)
	}
	if len(ids) == 0 {
		return list, nil
	}

	graphs, err := loadGraphs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].FlowData = graphs.get(list[i].ID)
	}
	return list, nil
}

// DeleteAutomation removes an automation. Nodes and edges are
// cascade-deleted by the DB.
func (s *PGStore) DeleteAutomation(ctx context.Context, tenantID, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM automations WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("flow: delete automation: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return flow.ErrAutomationNotFound
	}
	return nil
}

// SetActive flips the active flag without touching the flow data.
func (s *PGStore) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE automations SET is_active = $3, updated_at = NOW() WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, active,
	)
	if err != nil {
		return fmt.Errorf("flow: set active: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return flow.ErrAutomationNotFound
	}
	return nil
}

// replaceGraph deletes the automation's nodes and edges and inserts fd in
// their place, keeping the slice order in seq.
func replaceGraph(ctx context.Context, tx pgx.Tx, automationID string, fd flow.FlowData) error {
	if _, err := tx.Exec(ctx, `DELETE FROM automation_edges WHERE automation_id = $1`, automationID); err != nil {
		return fmt.Errorf("flow: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM automation_nodes WHERE automation_id = $1`, automationID); err != nil {
		return fmt.Errorf("flow: delete nodes: %w", err)
	}

	for i, n := range fd.Nodes {
		data := n.Data
		if len(data) == 0 {
			data = []byte("{}")
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO automation_nodes (automation_id, id, seq, type, pos_x, pos_y, data)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			automationID, n.ID, i, n.Type, n.Position.X, n.Position.Y, data,
		); err != nil {
			return fmt.Errorf("flow: insert node %s: %w", n.ID, err)
		}
	}

	for i, e := range fd.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO automation_edges (automation_id, id, seq, source, source_handle, target, target_handle)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			automationID, e.ID, i, e.Source, e.SourceHandle, e.Target, e.TargetHandle,
		); err != nil {
			return fmt.Errorf("flow: insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}
