package notify

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	gotemplate "github.com/goliatone/go-template"
)

//go:embed templates/*.tmpl
var emailTemplates embed.FS

// Mailer is the outbound mail collaborator. Implementations own transport,
// retries, and timeouts.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailerFunc adapts a function into a Mailer.
type MailerFunc func(ctx context.Context, to, subject, body string) error

// Send delegates to the underlying function.
func (fn MailerFunc) Send(ctx context.Context, to, subject, body string) error {
	return fn(ctx, to, subject, body)
}

// Email renders a templated notification and hands it to the mailer.
type Email struct {
	To      string
	Subject string
	Body    string // template source; defaults to the embedded summary
	Mailer  Mailer

	engineOptions []gotemplate.Option

	mu     sync.Mutex
	engine *gotemplate.Engine
}

// EmailOption configures an Email notifier.
type EmailOption func(*Email)

// WithTemplateOptions forwards engine options, such as global data or extra
// filters, to the notifier's template engine.
func WithTemplateOptions(options ...gotemplate.Option) EmailOption {
	return func(e *Email) {
		e.engineOptions = append(e.engineOptions, options...)
	}
}

// NewEmail constructs an email notifier for one recipient.
func NewEmail(to string, mailer Mailer, options ...EmailOption) *Email {
	e := &Email{
		To:     to,
		Mailer: mailer,
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Name reports the sink identifier.
func (e *Email) Name() string { return "email" }

func (e *Email) renderer() (*gotemplate.Engine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.engine != nil {
		return e.engine, nil
	}
	sub, err := fs.Sub(emailTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("notify: email templates: %w", err)
	}
	opts := append([]gotemplate.Option{
		gotemplate.WithFS(sub),
		gotemplate.WithExtension(".tmpl"),
	}, e.engineOptions...)
	engine, err := gotemplate.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: email template engine: %w", err)
	}
	e.engine = engine
	return engine, nil
}

// Notify renders the body template and sends the mail.
func (e *Email) Notify(ctx context.Context, ev Event) error {
	if e.Mailer == nil {
		return fmt.Errorf("notify: email has no mailer configured")
	}
	engine, err := e.renderer()
	if err != nil {
		return err
	}

	answers := make([]map[string]any, 0, len(ev.Submission.Data))
	keys := make([]string, 0, len(ev.Submission.Data))
	for k := range ev.Submission.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		answers = append(answers, map[string]any{
			"question": k,
			"answer":   fmt.Sprint(ev.Submission.Data[k]),
		})
	}

	data := map[string]any{
		"form_title":    ev.Form.Title,
		"submission_id": ev.Submission.ID,
		"submitted_at":  ev.SubmittedAt.Format("2006-01-02 15:04:05 MST"),
		"answers":       answers,
	}

	var rendered string
	if strings.TrimSpace(e.Body) == "" {
		rendered, err = engine.RenderTemplate("submission_email", data)
	} else {
		rendered, err = engine.RenderString(e.Body, data)
	}
	if err != nil {
		return fmt.Errorf("notify: render email template: %w", err)
	}

	subject := e.Subject
	if strings.TrimSpace(subject) == "" {
		subject = fmt.Sprintf("New response: %s", ev.Form.Title)
	}
	return e.Mailer.Send(ctx, e.To, subject, rendered)
}
