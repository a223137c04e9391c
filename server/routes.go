package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/flow"
)

// DraftCache parks unsaved automations. The redis package implements it.
type DraftCache interface {
	SaveDraft(ctx context.Context, tenantID, id string, a *flow.Automation) error
	LoadDraft(ctx context.Context, tenantID, id string) (*flow.Automation, error)
	DiscardDraft(ctx context.Context, tenantID, id string) error
}

type api struct {
	store   flow.Store
	drafts  DraftCache
	log     *slog.Logger
	metrics *metrics
}

// patchBody carries the fields a PATCH may change. Trigger mirrors are
// accepted but always re-derived from flow_data.
type patchBody struct {
	Name           *string        `json:"name"`
	IsActive       *bool          `json:"is_active"`
	TriggerType    *string        `json:"trigger_type"`
	TriggerKeyword *string        `json:"trigger_keyword"`
	FlowData       *flow.FlowData `json:"flow_data"`
}

// newApp builds the HTTP surface. drafts may be nil.
func newApp(store flow.Store, drafts DraftCache, log *slog.Logger) *fiber.App {
	a := &api{store: store, drafts: drafts, log: log, metrics: newMetrics()}

	app := fiber.New()
	app.Use(a.metrics.middleware)

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Automations ───────────────────────────────────────────────────
	r := app.Group("/api/automations", requireTenant)
	r.Get("/", a.list)
	r.Get("/match", a.match)
	r.Post("/", a.create)
	r.Get("/:id", a.get)
	r.Patch("/:id", a.patch)
	r.Delete("/:id", a.delete)

	// ── Drafts ────────────────────────────────────────────────────────
	r.Put("/:id/draft", a.saveDraft)
	r.Get("/:id/draft", a.loadDraft)
	r.Delete("/:id/draft", a.discardDraft)

	app.Get("/metrics", a.metrics.handler())
	return app
}

func requireTenant(c fiber.Ctx) error {
	if c.Query("tenant_id") == "" {
		return c.Status(400).JSON(fiber.Map{"error": "tenant_id is required"})
	}
	return c.Next()
}

func (a *api) list(c fiber.Ctx) error {
	list, err := a.store.ListAutomations(c.Context(), c.Query("tenant_id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(list)
}

// match answers which automations an inbound message would start.
func (a *api) match(c fiber.Ctx) error {
	list, err := a.store.MatchAutomations(c.Context(), c.Query("tenant_id"), c.Query("text"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(list)
}

func (a *api) create(c fiber.Ctx) error {
	var rec flow.Automation
	if err := c.Bind().JSON(&rec); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	rec.ID = ""
	rec.TenantID = c.Query("tenant_id")

	saved, err := a.save(c, &rec)
	if err != nil {
		return a.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"status": "success", "id": saved.ID})
}

func (a *api) get(c fiber.Ctx) error {
	rec, err := a.store.GetAutomation(c.Context(), c.Query("tenant_id"), c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(rec)
}

func (a *api) patch(c fiber.Ctx) error {
	var body patchBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	tenant, id := c.Query("tenant_id"), c.Params("id")

	if body.Name == nil && body.FlowData == nil {
		if body.IsActive == nil {
			return c.Status(400).JSON(fiber.Map{"error": "nothing to update"})
		}
		if err := a.store.SetActive(c.Context(), tenant, id, *body.IsActive); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "success"})
	}

	rec, err := a.store.GetAutomation(c.Context(), tenant, id)
	if err != nil {
		return a.fail(c, err)
	}
	if body.Name != nil {
		rec.Name = *body.Name
	}
	if body.IsActive != nil {
		rec.IsActive = *body.IsActive
	}
	if body.FlowData != nil {
		rec.FlowData = *body.FlowData
	}
	if _, err := a.save(c, rec); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (a *api) delete(c fiber.Ctx) error {
	tenant, id := c.Query("tenant_id"), c.Params("id")
	if err := a.store.DeleteAutomation(c.Context(), tenant, id); err != nil {
		return a.fail(c, err)
	}
	a.discard(c.Context(), tenant, id)
	return c.JSON(fiber.Map{"status": "deleted"})
}

// save writes rec and drops any draft parked for it.
func (a *api) save(c fiber.Ctx, rec *flow.Automation) (*flow.Automation, error) {
	saved, err := a.store.SaveAutomation(c.Context(), rec)
	var de *flow.DeserializationError
	switch {
	case errors.As(err, &de):
		a.metrics.saves.WithLabelValues("invalid").Inc()
		return nil, err
	case err != nil:
		a.metrics.saves.WithLabelValues("error").Inc()
		return nil, err
	}
	a.metrics.saves.WithLabelValues("ok").Inc()
	a.log.Info("automation saved", "tenant", saved.TenantID, "automation", saved.ID,
		"nodes", len(saved.FlowData.Nodes), "edges", len(saved.FlowData.Edges))
	a.discard(c.Context(), saved.TenantID, saved.ID)
	return saved, nil
}

func (a *api) discard(ctx context.Context, tenant, id string) {
	if a.drafts == nil {
		return
	}
	if err := a.drafts.DiscardDraft(ctx, tenant, id); err != nil {
		a.log.Warn("discard draft failed", "tenant", tenant, "automation", id, "err", err)
	}
}

func (a *api) saveDraft(c fiber.Ctx) error {
	if a.drafts == nil {
		return c.Status(503).JSON(fiber.Map{"error": "drafts are not configured"})
	}
	var rec flow.Automation
	if err := c.Bind().JSON(&rec); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	tenant, id := c.Query("tenant_id"), c.Params("id")
	rec.ID = id
	rec.TenantID = tenant
	if err := a.drafts.SaveDraft(c.Context(), tenant, id, &rec); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (a *api) loadDraft(c fiber.Ctx) error {
	if a.drafts == nil {
		return c.Status(503).JSON(fiber.Map{"error": "drafts are not configured"})
	}
	rec, err := a.drafts.LoadDraft(c.Context(), c.Query("tenant_id"), c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	if rec == nil {
		return c.Status(404).JSON(fiber.Map{"error": "draft not found"})
	}
	return c.JSON(rec)
}

func (a *api) discardDraft(c fiber.Ctx) error {
	if a.drafts == nil {
		return c.Status(503).JSON(fiber.Map{"error": "drafts are not configured"})
	}
	if err := a.drafts.DiscardDraft(c.Context(), c.Query("tenant_id"), c.Params("id")); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// fail maps store errors to status codes.
func (a *api) fail(c fiber.Ctx, err error) error {
	var de *flow.DeserializationError
	switch {
	case errors.As(err, &de):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, flow.ErrAutomationNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "automation not found"})
	}
	a.log.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}
