// Package server exposes the form builder and respondent flows over HTTP.
// Authoring endpoints live under the base path; respondent endpoints are
// public but gated by signed share tokens.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-formflow/pkg/builder"
	"github.com/goliatone/go-formflow/pkg/design"
	"github.com/goliatone/go-formflow/pkg/importer"
	"github.com/goliatone/go-formflow/pkg/logic"
	"github.com/goliatone/go-formflow/pkg/nav"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/share"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Config for the HTTP API handler.
type Config struct {
	Store    *store.Store
	Gallery  *design.Gallery
	Share    share.Config
	Notify   *notify.Dispatcher
	BasePath string
	BaseURL  string
	Logger   *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"form not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope every endpoint returns.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the form API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Gallery == nil {
		cfg.Gallery = design.NewGallery()
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("Formflow API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerForms(group, cfg)
	registerPublishing(group, cfg)
	registerThemes(group, cfg)
	registerSubmissions(group, cfg)
	registerRespond(group, cfg)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, share.ErrInvalidToken) {
		return newAPIError(http.StatusUnauthorized, "invalid_token", "invalid or expired token", nil)
	}
	var validation nav.ValidationError
	if errors.As(err, &validation) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{
			"blockId": validation.BlockID,
		})
	}
	var state nav.StateError
	if errors.As(err, &state) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	var unknownBlock schema.UnknownBlockError
	if errors.As(err, &unknownBlock) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{
			"blockId": unknownBlock.BlockID,
		})
	}
	var unknownKind schema.UnknownBlockKindError
	if errors.As(err, &unknownKind) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	var unknownTheme *design.UnknownThemeError
	if errors.As(err, &unknownTheme) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	var unknownVariant *design.UnknownVariantError
	if errors.As(err, &unknownVariant) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	var opNotFound *importer.OperationNotFoundError
	if errors.As(err, &opNotFound) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "empty"):
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "invalid_token"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerForms(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-form",
		Method:        http.MethodPost,
		Path:          "/forms",
		Summary:       "Create form",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateFormRequest `json:"body"`
	}) (*struct {
		Body schema.Form `json:"body"`
	}, error) {
		form := builder.NewForm()
		if input.Body.Title != "" {
			form.Title = schema.SanitizeText(input.Body.Title)
		}
		if input.Body.Theme != "" {
			if err := cfg.Gallery.Apply(&form, input.Body.Theme, ""); err != nil {
				return nil, handleError(err)
			}
		}
		saved, err := cfg.Store.SaveForm(ctx, form)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body schema.Form `json:"body"`
		}{Body: saved}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "import-form",
		Method:        http.MethodPost,
		Path:          "/forms/import",
		Summary:       "Import form from OpenAPI operation",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body ImportFormRequest `json:"body"`
	}) (*struct {
		Body schema.Form `json:"body"`
	}, error) {
		form, err := importer.FromDocument(ctx, []byte(input.Body.Document), input.Body.OperationID)
		if err != nil {
			return nil, handleError(err)
		}
		saved, err := cfg.Store.SaveForm(ctx, form)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body schema.Form `json:"body"`
		}{Body: saved}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-forms",
		Method:      http.MethodGet,
		Path:        "/forms",
		Summary:     "List forms",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []FormSummary `json:"body"`
	}, error) {
		items, err := cfg.Store.ListForms(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []FormSummary `json:"body"`
		}{Body: mapFormSummaries(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-form",
		Method:      http.MethodGet,
		Path:        "/forms/{form_id}",
		Summary:     "Get form",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FormID string `path:"form_id"`
	}) (*struct {
		Body schema.Form `json:"body"`
	}, error) {
		form, err := cfg.Store.LoadForm(ctx, input.FormID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body schema.Form `json:"body"`
		}{Body: form}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-form",
		Method:      http.MethodPut,
		Path:        "/forms/{form_id}",
		Summary:     "Replace form definition",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		FormID string      `path:"form_id"`
		Body   schema.Form `json:"body"`
	}) (*struct {
		Body schema.Form `json:"body"`
	}, error) {
		existing, err := cfg.Store.LoadForm(ctx, input.FormID)
		if err != nil {
			return nil, handleError(err)
		}
		form := schema.Sanitize(input.Body)
		form.ID = existing.ID
		form.CreatedAt = existing.CreatedAt
		if err := schema.Validate(form); err != nil {
			return nil, handleError(err)
		}
		saved, err := cfg.Store.SaveForm(ctx, form)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body schema.Form `json:"body"`
		}{Body: saved}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-form",
		Method:      http.MethodDelete,
		Path:        "/forms/{form_id}",
		Summary:     "Delete form",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FormID string `path:"form_id"`
	}) (*struct{}, error) {
		if err := cfg.Store.DeleteForm(ctx, input.FormID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerPublishing(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "publish-form",
		Method:      http.MethodPost,
		Path:        "/forms/{form_id}/publish",
		Summary:     "Publish form",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		FormID string `path:"form_id"`
	}) (*struct {
		Body ShareResponse `json:"body"`
	}, error) {
		form, err := cfg.Store.LoadForm(ctx, input.FormID)
		if err != nil {
			return nil, handleError(err)
		}
		form = schema.Sanitize(form)
		if err := schema.Validate(form); err != nil {
			return nil, handleError(err)
		}
		form.Published = true
		if _, err := cfg.Store.SaveForm(ctx, form); err != nil {
			return nil, handleError(err)
		}
		token, err := cfg.Share.Issue(form.ID, share.ScopeRespond)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ShareResponse `json:"body"`
		}{Body: ShareResponse{
			Token: token,
			URL:   share.URL(cfg.BaseURL, token),
			Embed: share.EmbedSnippet(cfg.BaseURL, token),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "share-form",
		Method:      http.MethodPost,
		Path:        "/forms/{form_id}/share",
		Summary:     "Issue a share token",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FormID string       `path:"form_id"`
		Body   ShareRequest `json:"body"`
	}) (*struct {
		Body ShareResponse `json:"body"`
	}, error) {
		form, err := cfg.Store.LoadForm(ctx, input.FormID)
		if err != nil {
			return nil, handleError(err)
		}
		scope := input.Body.Scope
		if scope == "" {
			scope = share.ScopeRespond
		}
		if scope == share.ScopeRespond && !form.Published {
			return nil, newAPIError(http.StatusConflict, "conflict", "form is not published", nil)
		}
		token, err := cfg.Share.Issue(form.ID, scope)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ShareResponse `json:"body"`
		}{Body: ShareResponse{
			Token: token,
			URL:   share.URL(cfg.BaseURL, token),
			Embed: share.EmbedSnippet(cfg.BaseURL, token),
		}}, nil
	})
}

func registerThemes(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-themes",
		Method:      http.MethodGet,
		Path:        "/themes",
		Summary:     "List gallery themes",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []string `json:"body"`
	}, error) {
		return &struct {
			Body []string `json:"body"`
		}{Body: cfg.Gallery.Themes()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "apply-theme",
		Method:      http.MethodPost,
		Path:        "/forms/{form_id}/theme",
		Summary:     "Apply a gallery theme",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FormID string            `path:"form_id"`
		Body   ApplyThemeRequest `json:"body"`
	}) (*struct {
		Body schema.Form `json:"body"`
	}, error) {
		form, err := cfg.Store.LoadForm(ctx, input.FormID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := cfg.Gallery.Apply(&form, input.Body.Theme, input.Body.Variant); err != nil {
			return nil, handleError(err)
		}
		saved, err := cfg.Store.SaveForm(ctx, form)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body schema.Form `json:"body"`
		}{Body: saved}, nil
	})
}

func registerSubmissions(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-submissions",
		Method:      http.MethodGet,
		Path:        "/forms/{form_id}/submissions",
		Summary:     "List submissions",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FormID string `path:"form_id"`
	}) (*struct {
		Body []SubmissionResponse `json:"body"`
	}, error) {
		if _, err := cfg.Store.LoadForm(ctx, input.FormID); err != nil {
			return nil, handleError(err)
		}
		items, err := cfg.Store.ListSubmissions(ctx, input.FormID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []SubmissionResponse `json:"body"`
		}{Body: mapSubmissions(items)}, nil
	})
}

func registerRespond(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "get-respond-form",
		Method:      http.MethodGet,
		Path:        "/respond/{token}",
		Summary:     "Fetch the form behind a share token",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Token string `path:"token"`
	}) (*struct {
		Body RespondForm `json:"body"`
	}, error) {
		form, _, err := formForToken(ctx, cfg, input.Token)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RespondForm `json:"body"`
		}{Body: respondForm(form)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "submit-response",
		Method:        http.MethodPost,
		Path:          "/respond/{token}",
		Summary:       "Submit a completed response",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		Token string         `path:"token"`
		Body  RespondRequest `json:"body"`
	}) (*struct {
		Body RespondResponse `json:"body"`
	}, error) {
		form, grant, err := formForToken(ctx, cfg, input.Token)
		if err != nil {
			return nil, handleError(err)
		}
		if grant.Scope == share.ScopePreview {
			return nil, newAPIError(http.StatusConflict, "conflict", "preview links cannot submit", nil)
		}
		session, err := runSession(form, input.Body.Answers)
		if err != nil {
			return nil, handleError(err)
		}
		if err := session.Submit(ctx, cfg.Store); err != nil {
			return nil, handleError(err)
		}
		cfg.logger().Printf("submission stored form_id=%s submission_id=%s", form.ID, session.SubmissionID())
		if cfg.Notify != nil {
			cfg.Notify.Dispatch(ctx, notify.Event{
				Form: form,
				Submission: store.Submission{
					ID:     session.SubmissionID(),
					FormID: form.ID,
					Data:   session.SubmissionData(),
				},
			})
		}
		return &struct {
			Body RespondResponse `json:"body"`
		}{Body: RespondResponse{
			SubmissionID: session.SubmissionID(),
			Status:       string(session.Status()),
		}}, nil
	})
}

func formForToken(ctx context.Context, cfg Config, token string) (schema.Form, share.Grant, error) {
	grant, err := cfg.Share.Verify(token)
	if err != nil {
		return schema.Form{}, share.Grant{}, err
	}
	form, err := cfg.Store.LoadForm(ctx, grant.FormID)
	if err != nil {
		return schema.Form{}, share.Grant{}, err
	}
	if grant.Scope == share.ScopeRespond && !form.Published {
		return schema.Form{}, share.Grant{}, nav.StateError{Op: "respond", Status: nav.Status("draft")}
	}
	return form, grant, nil
}

// runSession replays a full answer set through the navigation state machine
// so server-side submissions honor the same visibility and required-field
// rules an interactive client does.
func runSession(form schema.Form, answers map[string]any) (*nav.Session, error) {
	responses := response.NewStore(form)
	session := nav.NewSession(form, responses, logic.New())

	for _, block := range form.Blocks {
		value, ok := answers[block.ID]
		if !ok {
			continue
		}
		if err := session.Answer(block.ID, value); err != nil {
			return nil, err
		}
	}
	for id := range answers {
		if !form.HasBlock(id) {
			return nil, schema.UnknownBlockError{BlockID: id}
		}
	}

	// An advance either moves the frontier or fails validation, so the walk
	// is bounded by the block count.
	for i := 0; i <= len(form.Blocks) && session.Status() == nav.StatusInProgress; i++ {
		if err := session.Advance(); err != nil {
			return nil, err
		}
	}
	if session.Status() != nav.StatusCompleted {
		return nil, nav.StateError{Op: "submit", Status: session.Status()}
	}
	return session, nil
}
