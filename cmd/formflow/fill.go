package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/logic"
	"github.com/goliatone/go-formflow/pkg/nav"
	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
)

// errAborted reports that the respondent interrupted the prompt flow.
var errAborted = errors.New("fill aborted")

// promptDriver abstracts the terminal prompts so the fill flow can be tested
// with a scripted implementation.
type promptDriver interface {
	Input(ctx context.Context, message, help string) (string, error)
	Select(ctx context.Context, message string, options []string) (int, error)
	MultiSelect(ctx context.Context, message string, options []string) ([]int, error)
	TextArea(ctx context.Context, message, help string) (string, error)
	Confirm(ctx context.Context, message string, def bool) (bool, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct{}

func (d surveyDriver) Input(ctx context.Context, message, help string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	if err := survey.AskOne(&survey.Input{Message: message, Help: help}, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d surveyDriver) Select(ctx context.Context, message string, options []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var out string
	if err := survey.AskOne(&survey.Select{Message: message, Options: options}, &out); err != nil {
		return 0, translateSurveyErr(err)
	}
	for i, option := range options {
		if option == out {
			return i, nil
		}
	}
	return -1, nil
}

func (d surveyDriver) MultiSelect(ctx context.Context, message string, options []string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	if err := survey.AskOne(&survey.MultiSelect{Message: message, Options: options}, &out); err != nil {
		return nil, translateSurveyErr(err)
	}
	seen := make(map[string]struct{}, len(out))
	for _, v := range out {
		seen[v] = struct{}{}
	}
	var indices []int
	for i, option := range options {
		if _, ok := seen[option]; ok {
			indices = append(indices, i)
		}
	}
	return indices, nil
}

func (d surveyDriver) TextArea(ctx context.Context, message, help string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	if err := survey.AskOne(&survey.Multiline{Message: message, Help: help}, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d surveyDriver) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func (d surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(os.Stdout, msg)
	return err
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

func fillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fill <form-id>",
		Short: "Fill a form interactively and submit the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				form, err := st.LoadForm(ctx, args[0])
				if err != nil {
					return err
				}
				id, err := runFill(ctx, form, st, surveyDriver{})
				if err != nil {
					return err
				}
				fmt.Println("submission", id)
				return nil
			})
		},
	}
}

// runFill walks a navigation session block by block, prompting for each
// visible question and re-prompting when a required answer is missing.
func runFill(ctx context.Context, form schema.Form, sink nav.Sink, driver promptDriver) (string, error) {
	session := nav.NewSession(form, response.NewStore(form), logic.New())

	if err := driver.Info(ctx, form.Title); err != nil {
		return "", err
	}

	for session.Status() == nav.StatusInProgress {
		block, _, ok := session.Current()
		if !ok {
			break
		}
		if block.Type != schema.BlockStatement {
			answer, err := promptFor(ctx, driver, block)
			if err != nil {
				return "", err
			}
			if answer != nil {
				if err := session.Answer(block.ID, answer); err != nil {
					return "", err
				}
			}
		} else if block.Question != "" {
			if err := driver.Info(ctx, block.Question); err != nil {
				return "", err
			}
		}
		if err := session.Advance(); err != nil {
			var validation nav.ValidationError
			if errors.As(err, &validation) {
				if infoErr := driver.Info(ctx, "This question requires an answer."); infoErr != nil {
					return "", infoErr
				}
				continue
			}
			return "", err
		}
	}

	ok, err := driver.Confirm(ctx, "Submit your response?", true)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errAborted
	}
	if err := session.Submit(ctx, sink); err != nil {
		return "", err
	}
	return session.SubmissionID(), nil
}

func promptFor(ctx context.Context, driver promptDriver, block schema.Block) (any, error) {
	message := block.Question
	if message == "" {
		message = block.ID
	}
	help := block.Description

	switch block.Type {
	case schema.BlockSingleChoice, schema.BlockDropdown:
		labels := optionLabels(block.Options)
		idx, err := driver.Select(ctx, message, labels)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(block.Options) {
			return nil, nil
		}
		return optionValue(block.Options[idx]), nil
	case schema.BlockMultipleChoice:
		labels := optionLabels(block.Options)
		indices, err := driver.MultiSelect(ctx, message, labels)
		if err != nil {
			return nil, err
		}
		var values []string
		for _, idx := range indices {
			if idx >= 0 && idx < len(block.Options) {
				values = append(values, optionValue(block.Options[idx]))
			}
		}
		if values == nil {
			return nil, nil
		}
		return values, nil
	case schema.BlockLongText:
		text, err := driver.TextArea(ctx, message, help)
		if err != nil {
			return nil, err
		}
		return emptyAsNil(text), nil
	case schema.BlockNumber, schema.BlockRating, schema.BlockScale:
		raw, err := driver.Input(ctx, message, help)
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		n, convErr := strconv.ParseFloat(raw, 64)
		if convErr != nil {
			return raw, nil
		}
		return n, nil
	default:
		text, err := driver.Input(ctx, message, help)
		if err != nil {
			return nil, err
		}
		return emptyAsNil(text), nil
	}
}

func optionLabels(options []schema.Option) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		out = append(out, o.Label)
	}
	return out
}

func optionValue(o schema.Option) string {
	if o.Value != "" {
		return o.Value
	}
	return o.Label
}

func emptyAsNil(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
