package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/flow"
)

type flowDataByID map[string]*flow.FlowData

// get returns the flow data for id with non-nil slices.
func (m flowDataByID) get(id string) flow.FlowData {
	fd, ok := m[id]
	if !ok {
		return flow.FlowData{Nodes: []flow.NodeData{}, Edges: []flow.EdgeData{}}
	}
	return *fd
}

func (m flowDataByID) entry(id string) *flow.FlowData {
	fd, ok := m[id]
	if !ok {
		fd = &flow.FlowData{Nodes: []flow.NodeData{}, Edges: []flow.EdgeData{}}
		m[id] = fd
	}
	return fd
}

// loadGraphs reads the nodes and edges of every automation in ids with two
// queries, in saved order.
func loadGraphs(ctx context.Context, q querier, ids []string) (flowDataByID, error) {
	out := flowDataByID{}

	rows, err := q.Query(ctx,
		`SELECT automation_id, id, type, pos_x, pos_y, data
		   FROM automation_nodes WHERE automation_id = ANY($1)
		  ORDER BY automation_id, seq`, ids)
	if err != nil {
		return nil, fmt.Errorf("flow: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			automationID string
			n            flow.NodeData
			data         []byte
		)
		if err := rows.Scan(&automationID, &n.ID, &n.Type, &n.Position.X, &n.Position.Y, &data); err != nil {
			return nil, fmt.Errorf("flow: scan node: %w", err)
		}
		n.Data = json.RawMessage(data)
		fd := out.entry(automationID)
		fd.Nodes = append(fd.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows nodes: %w", err)
	}

	rows, err = q.Query(ctx,
		`SELECT automation_id, id, source, source_handle, target, target_handle
		   FROM automation_edges WHERE automation_id = ANY($1)
		  ORDER BY automation_id, seq`, ids)
	if err != nil {
		return nil, fmt.Errorf("flow: query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			automationID string
			e            flow.EdgeData
		)
		if err := rows.Scan(&automationID, &e.ID, &e.Source, &e.SourceHandle, &e.Target, &e.TargetHandle); err != nil {
			return nil, fmt.Errorf("flow: scan edge: %w", err)
		}
		fd := out.entry(automationID)
		fd.Edges = append(fd.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows edges: %w", err)
	}

	return out, nil
}
