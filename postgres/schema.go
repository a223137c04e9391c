package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS automations (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    trigger_type    TEXT NOT NULL DEFAULT 'keyword',
    trigger_keyword TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS automation_nodes (
    automation_id TEXT NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    seq           INTEGER NOT NULL,
    type          TEXT NOT NULL,
    pos_x         DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y         DOUBLE PRECISION NOT NULL DEFAULT 0,
    data          JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (automation_id, id)
);

CREATE TABLE IF NOT EXISTS automation_edges (
    automation_id TEXT NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    seq           INTEGER NOT NULL,
    source        TEXT NOT NULL,
    source_handle TEXT NOT NULL DEFAULT '',
    target        TEXT NOT NULL,
    target_handle TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (automation_id, id),
    FOREIGN KEY (automation_id, source) REFERENCES automation_nodes(automation_id, id) ON DELETE CASCADE,
    FOREIGN KEY (automation_id, target) REFERENCES automation_nodes(automation_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_automations_tenant      ON automations(tenant_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_automations_keyword     ON automations(tenant_id, trigger_keyword) WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_automation_edges_source ON automation_edges(automation_id, source);
CREATE INDEX IF NOT EXISTS idx_automation_edges_target ON automation_edges(automation_id, target);
`

// CreateSchema creates the automation tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the automation tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS automation_edges, automation_nodes, automations CASCADE;`)
	return err
}
