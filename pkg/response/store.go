// Package response accumulates a respondent's answers keyed by block id. A
// store belongs to exactly one session; it is the single source of truth the
// evaluator and navigation consume.
package response

import (
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Store holds the answers for one respondent session. Writes are validated
// against the form snapshot the store was created with: answering a block
// the schema does not contain is rejected.
type Store struct {
	form   schema.Form
	values map[string]any
}

// NewStore creates an empty store bound to a form snapshot. Blocks carrying a
// default value in their attributes seed the map, mirroring how a respondent
// session initialises.
func NewStore(form schema.Form) *Store {
	values := make(map[string]any)
	for _, block := range form.Blocks {
		if def, ok := block.Attributes["defaultValue"]; ok && def != nil {
			values[block.ID] = def
		}
	}
	return &Store{form: form, values: values}
}

// Set records an answer for a block. Unknown block ids are rejected with
// schema.UnknownBlockError.
func (s *Store) Set(blockID string, value any) error {
	if !s.form.HasBlock(blockID) {
		return schema.UnknownBlockError{BlockID: blockID}
	}
	s.values[blockID] = value
	return nil
}

// Get returns the current answer for a block, if any.
func (s *Store) Get(blockID string) (any, bool) {
	v, ok := s.values[blockID]
	return v, ok
}

// Clear removes the answer for a block. Clearing an unanswered block is a
// no-op.
func (s *Store) Clear(blockID string) {
	delete(s.values, blockID)
}

// Len reports how many blocks currently have answers.
func (s *Store) Len() int { return len(s.values) }

// Snapshot returns a shallow copy of the response map for evaluation or
// submission. Callers must not retain it across further mutations.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
