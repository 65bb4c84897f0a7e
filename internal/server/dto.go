package server

import (
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
)

// CreateFormRequest seeds a new draft form.
type CreateFormRequest struct {
	Title string `json:"title,omitempty" example:"Customer Feedback"`
	Theme string `json:"theme,omitempty" example:"midnight"`
}

// ImportFormRequest builds a form from an OpenAPI document.
type ImportFormRequest struct {
	Document    string `json:"document" doc:"Raw OpenAPI document (JSON or YAML)"`
	OperationID string `json:"operationId" example:"createFeedback"`
}

// ShareRequest asks for a signed access token.
type ShareRequest struct {
	Scope string `json:"scope,omitempty" example:"respond" doc:"respond or preview; defaults to respond"`
}

// ShareResponse carries the signed token and the link built from it.
type ShareResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
	Embed string `json:"embed,omitempty"`
}

// ApplyThemeRequest selects a gallery theme for a form.
type ApplyThemeRequest struct {
	Theme   string `json:"theme" example:"sunrise"`
	Variant string `json:"variant,omitempty" example:"dark"`
}

// FormSummary is the list-view projection of a form.
type FormSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Blocks    int       `json:"blocks"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func formSummary(f schema.Form) FormSummary {
	return FormSummary{
		ID:        f.ID,
		Title:     f.Title,
		Blocks:    len(f.Blocks),
		Published: f.Published,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func mapFormSummaries(forms []schema.Form) []FormSummary {
	out := make([]FormSummary, 0, len(forms))
	for _, f := range forms {
		out = append(out, formSummary(f))
	}
	return out
}

// SubmissionResponse is the API projection of a stored submission.
type SubmissionResponse struct {
	ID          string         `json:"id"`
	FormID      string         `json:"formId"`
	Data        map[string]any `json:"data"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

func submissionResponse(s store.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:          s.ID,
		FormID:      s.FormID,
		Data:        s.Data,
		SubmittedAt: s.SubmittedAt,
	}
}

func mapSubmissions(items []store.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(items))
	for _, s := range items {
		out = append(out, submissionResponse(s))
	}
	return out
}

// RespondRequest carries a full set of answers keyed by block id.
type RespondRequest struct {
	Answers map[string]any `json:"answers"`
}

// RespondResponse reports the stored submission for a completed response.
type RespondResponse struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
}

// RespondForm is the public view of a form a respondent may fill: logic
// rules are included so clients can evaluate visibility live.
type RespondForm struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Blocks     []schema.Block     `json:"blocks"`
	LogicRules []schema.LogicRule `json:"logicRules,omitempty"`
	Settings   schema.Settings    `json:"settings"`
	Design     schema.Design      `json:"design"`
}

func respondForm(f schema.Form) RespondForm {
	return RespondForm{
		ID:         f.ID,
		Title:      f.Title,
		Blocks:     f.Blocks,
		LogicRules: f.LogicRules,
		Settings:   f.Settings,
		Design:     f.Design,
	}
}
