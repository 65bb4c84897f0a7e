// Package builder is the authoring session over one form schema. It owns the
// only mutable copy of the form; every mutation stamps UpdatedAt and notifies
// the autosave scheduler with a fresh snapshot.
package builder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/autosave"
	"github.com/goliatone/go-formflow/pkg/registry"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// NewForm returns an empty draft with the default settings and design every
// new form starts from.
func NewForm() schema.Form {
	now := time.Now().UTC()
	return schema.Form{
		ID:    uuid.NewString(),
		Title: "Untitled Form",
		Settings: schema.Settings{
			ProgressBar:      true,
			NavigationArrows: true,
			ShowPoweredBy:    true,
		},
		Design: schema.Design{
			Theme: "default",
			Colors: map[string]string{
				"background":       "#ffffff",
				"primary":          "#6366f1",
				"text":             "#1e293b",
				"questionText":     "#1e293b",
				"answerText":       "#64748b",
				"buttonBackground": "#6366f1",
				"buttonText":       "#ffffff",
			},
			Font:         "Inter",
			RoundCorners: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Builder mutates a form on behalf of an authoring session.
type Builder struct {
	form  schema.Form
	saver *autosave.Scheduler
}

// Option configures a Builder.
type Option func(*Builder)

// WithAutosave attaches a scheduler that receives a snapshot after every
// mutation.
func WithAutosave(s *autosave.Scheduler) Option {
	return func(b *Builder) { b.saver = s }
}

// New opens a builder session over a form.
func New(form schema.Form, options ...Option) *Builder {
	b := &Builder{form: form.Clone()}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Form returns a snapshot of the current schema.
func (b *Builder) Form() schema.Form { return b.form.Clone() }

// AddBlock appends a new block of the given kind with registry defaults, or
// inserts it at index when 0 <= at <= len(blocks). It returns the created
// block so callers can focus it.
func (b *Builder) AddBlock(kind schema.BlockType, at int) (schema.Block, error) {
	block, err := registry.NewBlock("block_"+uuid.NewString(), kind)
	if err != nil {
		return schema.Block{}, err
	}
	if at < 0 || at > len(b.form.Blocks) {
		at = len(b.form.Blocks)
	}
	b.form.Blocks = append(b.form.Blocks, schema.Block{})
	copy(b.form.Blocks[at+1:], b.form.Blocks[at:])
	b.form.Blocks[at] = block
	b.touch()
	return block, nil
}

// UpdateBlock applies mutate to the block with the given id. The block's id
// is immutable; changes to it are discarded.
func (b *Builder) UpdateBlock(blockID string, mutate func(*schema.Block)) error {
	for i := range b.form.Blocks {
		if b.form.Blocks[i].ID == blockID {
			mutate(&b.form.Blocks[i])
			b.form.Blocks[i].ID = blockID
			b.touch()
			return nil
		}
	}
	return schema.UnknownBlockError{BlockID: blockID}
}

// RemoveBlock deletes a block. Rules referencing it keep their conditions;
// the evaluator treats the dangling reference per absence semantics and
// skips actions targeting it.
func (b *Builder) RemoveBlock(blockID string) error {
	for i := range b.form.Blocks {
		if b.form.Blocks[i].ID == blockID {
			b.form.Blocks = append(b.form.Blocks[:i], b.form.Blocks[i+1:]...)
			b.touch()
			return nil
		}
	}
	return schema.UnknownBlockError{BlockID: blockID}
}

// MoveBlock repositions the block at index from to index to.
func (b *Builder) MoveBlock(from, to int) error {
	n := len(b.form.Blocks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("builder: move out of range (%d -> %d of %d)", from, to, n)
	}
	if from == to {
		return nil
	}
	block := b.form.Blocks[from]
	rest := append(b.form.Blocks[:from], b.form.Blocks[from+1:]...)
	rest = append(rest, schema.Block{})
	copy(rest[to+1:], rest[to:])
	rest[to] = block
	b.form.Blocks = rest
	b.touch()
	return nil
}

// DuplicateBlock inserts a copy of the block directly after the original.
// The copy receives a fresh id, never reusing the source's.
func (b *Builder) DuplicateBlock(blockID string) (schema.Block, error) {
	for i := range b.form.Blocks {
		if b.form.Blocks[i].ID != blockID {
			continue
		}
		dup := b.form.Blocks[i].Clone()
		dup.ID = "block_" + uuid.NewString()
		at := i + 1
		b.form.Blocks = append(b.form.Blocks, schema.Block{})
		copy(b.form.Blocks[at+1:], b.form.Blocks[at:])
		b.form.Blocks[at] = dup
		b.touch()
		return dup, nil
	}
	return schema.Block{}, schema.UnknownBlockError{BlockID: blockID}
}

// AddRule appends a logic rule, assigning an id when absent.
func (b *Builder) AddRule(rule schema.LogicRule) schema.LogicRule {
	if rule.ID == "" {
		rule.ID = "rule_" + uuid.NewString()
	}
	b.form.LogicRules = append(b.form.LogicRules, rule)
	b.touch()
	return rule
}

// UpdateRule replaces the rule with the same id.
func (b *Builder) UpdateRule(rule schema.LogicRule) error {
	for i := range b.form.LogicRules {
		if b.form.LogicRules[i].ID == rule.ID {
			b.form.LogicRules[i] = rule
			b.touch()
			return nil
		}
	}
	return fmt.Errorf("builder: unknown rule %q", rule.ID)
}

// RemoveRule deletes the rule with the given id, if present.
func (b *Builder) RemoveRule(ruleID string) {
	for i := range b.form.LogicRules {
		if b.form.LogicRules[i].ID == ruleID {
			b.form.LogicRules = append(b.form.LogicRules[:i], b.form.LogicRules[i+1:]...)
			b.touch()
			return
		}
	}
}

// SetTitle updates the form title.
func (b *Builder) SetTitle(title string) {
	b.form.Title = title
	b.touch()
}

// SetSettings replaces the form's navigation settings.
func (b *Builder) SetSettings(settings schema.Settings) {
	b.form.Settings = settings
	b.touch()
}

// SetDesign replaces the form's design settings.
func (b *Builder) SetDesign(design schema.Design) {
	b.form.Design = design
	b.touch()
}

// Publish validates and sanitises the schema, flushes any pending autosave,
// and flips the publish flag. From this point respondent runtimes treat the
// form as an immutable snapshot.
func (b *Builder) Publish() error {
	sanitized := schema.Sanitize(b.form)
	if err := schema.Validate(sanitized); err != nil {
		return err
	}
	b.form = sanitized
	b.form.Published = true
	b.form.UpdatedAt = time.Now().UTC()
	if b.saver != nil {
		b.saver.Notify(b.form)
		return b.saver.Flush()
	}
	return nil
}

func (b *Builder) touch() {
	b.form.UpdatedAt = time.Now().UTC()
	if b.saver != nil {
		b.saver.Notify(b.form)
	}
}
