// Package client talks to the automations REST API. It implements the
// editor's Persister and Loader so an editing session can save straight to
// a remote server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	fclient "github.com/gofiber/fiber/v3/client"

	"github.com/meikuraledutech/flow"
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("flow: %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("flow: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Unwrap maps 404 to flow.ErrAutomationNotFound.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return flow.ErrAutomationNotFound
	}
	return nil
}

// Client is a tenant-scoped automations API client.
type Client struct {
	http     *fclient.Client
	tenantID string
	log      *slog.Logger
}

type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the API at baseURL acting for tenantID.
func New(baseURL, tenantID string, opts ...Option) *Client {
	c := &Client{
		http:     fclient.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		tenantID: tenantID,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TenantID returns the tenant the client acts for.
func (c *Client) TenantID() string { return c.tenantID }

// savePayload is the body of create and full update requests.
type savePayload struct {
	Name           string        `json:"name"`
	IsActive       bool          `json:"is_active"`
	TriggerType    string        `json:"trigger_type"`
	TriggerKeyword string        `json:"trigger_keyword"`
	FlowData       flow.FlowData `json:"flow_data"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SaveAutomation creates a when its ID is empty and replaces it otherwise.
// The returned copy carries the server-assigned ID.
func (c *Client) SaveAutomation(ctx context.Context, a *flow.Automation) (*flow.Automation, error) {
	body := savePayload{
		Name:           a.Name,
		IsActive:       a.IsActive,
		TriggerType:    a.TriggerType,
		TriggerKeyword: a.TriggerKeyword,
		FlowData:       a.FlowData,
	}

	out := *a
	out.TenantID = c.tenantID
	if a.ID == "" {
		var res statusResponse
		if err := c.do(ctx, http.MethodPost, "/api/automations", body, &res); err != nil {
			return nil, err
		}
		if res.ID == "" {
			return nil, fmt.Errorf("flow: create automation: response has no id")
		}
		out.ID = res.ID
		c.log.Debug("automation created", "automation", out.ID)
		return &out, nil
	}

	if err := c.do(ctx, http.MethodPatch, "/api/automations/"+a.ID, body, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadAutomation fetches one automation.
func (c *Client) LoadAutomation(ctx context.Context, id string) (*flow.Automation, error) {
	var a flow.Automation
	if err := c.do(ctx, http.MethodGet, "/api/automations/"+id, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAutomations lists the tenant's automations, newest first.
func (c *Client) ListAutomations(ctx context.Context) ([]flow.Automation, error) {
	list := []flow.Automation{}
	if err := c.do(ctx, http.MethodGet, "/api/automations", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteAutomation removes an automation.
func (c *Client) DeleteAutomation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/automations/"+id, nil, nil)
}

// SetActive flips the active flag of an automation.
func (c *Client) SetActive(ctx context.Context, id string, active bool) error {
	return c.do(ctx, http.MethodPatch, "/api/automations/"+id, map[string]bool{"is_active": active}, nil)
}

// SaveDraft parks an unsaved copy of a on the server.
func (c *Client) SaveDraft(ctx context.Context, id string, a *flow.Automation) error {
	return c.do(ctx, http.MethodPut, "/api/automations/"+id+"/draft", a, nil)
}

// LoadDraft returns the parked draft, or nil, nil if there is none.
func (c *Client) LoadDraft(ctx context.Context, id string) (*flow.Automation, error) {
	var a flow.Automation
	err := c.do(ctx, http.MethodGet, "/api/automations/"+id+"/draft", nil, &a)
	if errors.Is(err, flow.ErrAutomationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	cfg := fclient.Config{
		Ctx:    ctx,
		Param:  map[string]string{"tenant_id": c.tenantID},
		Header: map[string]string{"Accept": "application/json"},
	}
	if body != nil {
		cfg.Body = body
	}

	var (
		resp *fclient.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = c.http.Get(path, cfg)
	case http.MethodPost:
		resp, err = c.http.Post(path, cfg)
	case http.MethodPut:
		resp, err = c.http.Put(path, cfg)
	case http.MethodPatch:
		resp, err = c.http.Patch(path, cfg)
	case http.MethodDelete:
		resp, err = c.http.Delete(path, cfg)
	default:
		return fmt.Errorf("flow: unsupported method %s", method)
	}
	if err != nil {
		return fmt.Errorf("flow: %s %s: %w", method, path, err)
	}
	defer resp.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		var res statusResponse
		_ = json.Unmarshal(resp.Body(), &res)
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode(), Message: res.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("flow: %s %s: decode response: %w", method, path, err)
	}
	return nil
}
