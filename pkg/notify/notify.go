// Package notify fans a successful submission out to configured sinks
// (email, webhooks). Dispatch is fire-and-forget: sink failures are logged
// and never roll back or block the submitted state.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Event describes one completed submission.
type Event struct {
	Form        schema.Form
	Submission  store.Submission
	SubmittedAt time.Time
}

// Notifier is one outbound sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// Dispatcher runs every registered notifier for an event.
type Dispatcher struct {
	notifiers []Notifier
	logger    *log.Logger
}

// NewDispatcher builds a dispatcher over the given sinks.
func NewDispatcher(logger *log.Logger, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// Dispatch invokes each notifier in turn. Errors are logged per sink; the
// call itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if d == nil {
		return
	}
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			d.logger.Printf("notify: %s failed for submission %s: %v", n.Name(), ev.Submission.ID, err)
		}
	}
}

// Webhook POSTs the submission as JSON to a configured URL.
type Webhook struct {
	URL    string
	Client *http.Client
}

// Name reports the sink identifier.
func (w *Webhook) Name() string { return "webhook" }

// Notify delivers the event payload.
func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	payload, err := json.Marshal(map[string]any{
		"formId":       ev.Form.ID,
		"formTitle":    ev.Form.Title,
		"submissionId": ev.Submission.ID,
		"data":         ev.Submission.Data,
		"submittedAt":  ev.SubmittedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("notify: encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned %s", resp.Status)
	}
	return nil
}
