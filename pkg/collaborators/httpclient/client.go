// Package httpclient implements the action collaborators against a single HTTP backend.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/hireflow/pkg/actions"
	"github.com/dukex/hireflow/pkg/collaborators/breaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrServerError is returned when the backend answers with a 5xx status. It is retryable.
	ErrServerError = errors.New("collaborator server error")
	// ErrRequestRejected is returned when the backend answers with a 4xx status. It is fatal.
	ErrRequestRejected = errors.New("collaborator rejected request")
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Breaker breaker.Config
}

// Client implements actions.Notifier, actions.StatusService, actions.Scheduler and
// actions.ManagerNotifier.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *breaker.Breaker
	logger  *slog.Logger
}

func New(logger *slog.Logger, config Config) (*Client, error) {
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid collaborators url: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid collaborators url %q: scheme must be http or https", config.BaseURL)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		breaker: breaker.New(config.Breaker),
		logger:  logger.With("module", "collaborators_http"),
	}, nil
}

// Collaborators returns the client bound to every collaborator role.
func (c *Client) Collaborators() actions.Collaborators {
	return actions.Collaborators{
		Notifier:  c,
		Status:    c,
		Scheduler: c,
		Manager:   c,
	}
}

func (c *Client) SendEmail(ctx context.Context, templateID, recipient string, variables map[string]any) error {
	return c.post(ctx, "/notifications/email", map[string]any{
		"template_id": templateID,
		"recipient":   recipient,
		"variables":   variables,
	})
}

func (c *Client) UpdateStatus(ctx context.Context, entityID, newStatus string) error {
	return c.post(ctx, candidatePath(entityID, "status"), map[string]any{
		"status": newStatus,
	})
}

func (c *Client) ScheduleInterview(ctx context.Context, entityID string, constraints map[string]string) error {
	return c.post(ctx, candidatePath(entityID, "interviews"), map[string]any{
		"constraints": constraints,
	})
}

func (c *Client) CreateFollowUp(ctx context.Context, entityID string, dueInHours float64, params map[string]string) error {
	return c.post(ctx, candidatePath(entityID, "follow-ups"), map[string]any{
		"due_in_hours": dueInHours,
		"params":       params,
	})
}

func (c *Client) NotifyManager(ctx context.Context, entityID, summary string) error {
	return c.post(ctx, candidatePath(entityID, "manager-notifications"), map[string]any{
		"summary": summary,
	})
}

func candidatePath(entityID, resource string) string {
	return "/candidates/" + url.PathEscape(entityID) + "/" + resource
}

// post sends body as JSON. Transport errors and 5xx answers stay retryable, 4xx answers are
// marked fatal and do not count against the breaker.
func (c *Client) post(ctx context.Context, path string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return actions.Fatal(fmt.Errorf("failed to encode request body: %w", err))
	}

	err = c.breaker.Do(func() error {
		return c.send(ctx, path, payload)
	}, func(err error) bool {
		return !actions.IsFatal(err) && ctx.Err() == nil
	})
	if errors.Is(err, breaker.ErrOpen) {
		c.logger.WarnContext(ctx, "Collaborator call short-circuited", "path", path)

		return fmt.Errorf("POST %s: %w", path, err)
	}

	return err
}

func (c *Client) send(ctx context.Context, path string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return actions.Fatal(fmt.Errorf("failed to create http request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	c.logger.WarnContext(ctx, "Collaborator call failed",
		"path", path,
		"status", resp.StatusCode,
		"body", strings.TrimSpace(string(detail)),
	)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("POST %s returned %d: %w", path, resp.StatusCode, ErrServerError)
	}

	return actions.Fatal(fmt.Errorf("POST %s returned %d: %w", path, resp.StatusCode, ErrRequestRejected))
}
