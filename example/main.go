package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/editor"
	"github.com/meikuraledutech/flow/internal/applog"
	"github.com/meikuraledutech/flow/memory"
	"github.com/meikuraledutech/flow/postgres"
)

const tenant = "demo-tenant"

// tenantStore scopes a flow.Store to one tenant so the editor can save
// through it.
type tenantStore struct {
	store flow.Store
}

func (t tenantStore) SaveAutomation(ctx context.Context, a *flow.Automation) (*flow.Automation, error) {
	a.TenantID = tenant
	return t.store.SaveAutomation(ctx, a)
}

func (t tenantStore) LoadAutomation(ctx context.Context, id string) (*flow.Automation, error) {
	return t.store.GetAutomation(ctx, tenant, id)
}

func main() {
	ctx := context.Background()
	logger, err := applog.Build(applog.Options{Service: "flow-example", Level: "debug"})
	if err != nil {
		panic(err)
	}
	logger.Install()
	defer logger.Sync()
	log := logger.Logger

	// Postgres when DATABASE_URL is set, otherwise in memory.
	var store flow.Store = memory.New()
	if url := os.Getenv("DATABASE_URL"); url != "" {
		pool, err := postgres.Connect(ctx, url, 4)
		if err != nil {
			applog.Fatal("connect", "err", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}
	if err := store.CreateSchema(ctx); err != nil {
		applog.Fatal("schema", "err", err)
	}
	persist := tenantStore{store: store}

	// ── Build a flow with the editor ──────────────────────────────────
	ed := editor.New("Welcome flow", editor.WithPersister(persist), editor.WithLogger(log))
	ed.SetCanvasOrigin(flow.Position{X: 280, Y: 64})

	fmt.Println("palette:")
	for _, item := range ed.Palette() {
		fmt.Printf("  %-10s %s\n", item.Kind, item.Label)
	}

	drop := func(token string, x, y float64) flow.NodeID {
		if !ed.DragStart(token) {
			applog.Fatal("drag rejected", "token", token)
		}
		id, _ := ed.Drop(flow.Position{X: x, Y: y})
		return id
	}
	cond := drop("condition", 530, 364)
	vip := drop("message", 380, 514)
	wait := drop("delay", 680, 514)
	ai := drop("aiStep", 680, 664)

	connect := func(from flow.NodeID, port flow.PortID, to flow.NodeID) {
		ed.BeginConnect(from, port)
		if _, ok := ed.CompleteConnect(to, flow.DefaultPort); !ok {
			fmt.Printf("connection %s[%s] -> %s rejected\n", from, port, to)
		}
	}
	connect(flow.SeedTriggerID, flow.DefaultPort, cond)
	connect(cond, flow.PortTrue, vip)
	connect(cond, flow.PortFalse, wait)
	connect(wait, flow.DefaultPort, ai)
	connect(ai, flow.DefaultPort, cond) // loops back until the contact is tagged

	// ── Edit payloads through the inspector ───────────────────────────
	edit := func(id flow.NodeID, field string, value any) {
		insp, ok := ed.Select(id)
		if !ok {
			applog.Fatal("select", "node", id)
		}
		if err := insp.Set(field, value); err != nil {
			applog.Fatal("edit", "node", id, "field", field, "err", err)
		}
	}
	edit(flow.SeedTriggerID, "keyword", "hello")
	edit(cond, "expression", "{{contact.tag}} == 'vip'")
	edit(vip, "text", "Welcome back!")
	edit(wait, "amount", 2)
	edit(wait, "unit", "hours")
	edit(ai, "prompt", "Answer briefly.")
	ed.Deselect()

	// ── Save and reopen ───────────────────────────────────────────────
	if err := ed.Save(ctx); err != nil {
		applog.Fatal("save", "err", err)
	}
	id := ed.AutomationID()
	fmt.Println("saved automation", id)

	reopened, err := editor.Open(ctx, persist, id, editor.WithPersister(persist))
	if err != nil {
		applog.Fatal("open", "err", err)
	}
	g := reopened.Graph().Snapshot()
	fmt.Printf("reopened %q: %d nodes, %d edges, keyword %q\n",
		g.Name, len(g.Nodes), len(g.Edges), g.Metadata().TriggerKeyword)

	// Walk the flow the way the engine would: first edge out of each node.
	fmt.Println("walk:")
	cur, ok := g.Trigger()
	for seen := map[flow.NodeID]bool{}; ok && !seen[cur.ID]; {
		seen[cur.ID] = true
		fmt.Printf("  %s (%s)\n", cur.ID, cur.Kind)
		out := g.Outgoing(cur.ID)
		if len(out) == 0 {
			break
		}
		cur, ok = g.Node(out[0].Target)
	}

	// Which automations would an inbound "Hello there!" start?
	matched, err := store.MatchAutomations(ctx, tenant, "Hello there!")
	if err != nil {
		applog.Fatal("match", "err", err)
	}
	for _, m := range matched {
		fmt.Printf("message matches %q (%s)\n", m.Name, m.ID)
	}

	a, err := store.GetAutomation(ctx, tenant, id)
	if err != nil {
		applog.Fatal("get", "err", err)
	}
	out, _ := json.MarshalIndent(a.FlowData, "", "  ")
	fmt.Println(string(out))

	if err := store.DeleteAutomation(ctx, tenant, id); err != nil {
		applog.Fatal("delete", "err", err)
	}
	slog.Info("automation deleted", "automation", id)
}
