package schema

import "time"

// BlockType is the closed enumeration of block kinds a form may contain.
type BlockType string

const (
	BlockShortText      BlockType = "short_text"
	BlockLongText       BlockType = "long_text"
	BlockEmail          BlockType = "email"
	BlockPhone          BlockType = "phone"
	BlockNumber         BlockType = "number"
	BlockURL            BlockType = "url"
	BlockSingleChoice   BlockType = "single_choice"
	BlockMultipleChoice BlockType = "multiple_choice"
	BlockDropdown       BlockType = "dropdown"
	BlockDate           BlockType = "date"
	BlockRating         BlockType = "rating"
	BlockScale          BlockType = "scale"
	BlockStatement      BlockType = "statement"
	BlockFileUpload     BlockType = "file_upload"
)

// KnownType reports whether t names one of the supported block kinds.
func KnownType(t BlockType) bool {
	switch t {
	case BlockShortText, BlockLongText, BlockEmail, BlockPhone, BlockNumber,
		BlockURL, BlockSingleChoice, BlockMultipleChoice, BlockDropdown,
		BlockDate, BlockRating, BlockScale, BlockStatement, BlockFileUpload:
		return true
	}
	return false
}

// IsChoice reports whether blocks of kind t carry an options list.
func IsChoice(t BlockType) bool {
	switch t {
	case BlockSingleChoice, BlockMultipleChoice, BlockDropdown:
		return true
	}
	return false
}

// IsNumeric reports whether answers for kind t are expected to parse as
// numbers, which gates the greater_than/less_than operators.
func IsNumeric(t BlockType) bool {
	switch t {
	case BlockNumber, BlockRating, BlockScale:
		return true
	}
	return false
}

// Option is one selectable entry for choice-like blocks.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Block models a single question/element inside a form. Attributes carries
// kind-specific payload (placeholder, min/max, maxRating, allowed file types)
// that the evaluator and navigation never inspect; only renderers do.
type Block struct {
	ID          string         `json:"id" yaml:"id"`
	Type        BlockType      `json:"type" yaml:"type"`
	Question    string         `json:"question" yaml:"question"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool           `json:"required" yaml:"required"`
	Options     []Option       `json:"options,omitempty" yaml:"options,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Operator enumerates the comparisons a logic condition may apply.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// KnownOperator reports whether op is one of the supported comparisons.
func KnownOperator(op Operator) bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpNotContains, OpStartsWith,
		OpEndsWith, OpGreaterThan, OpLessThan, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// ActionType enumerates what a fired rule may do to a target block.
type ActionType string

const (
	ActionShow      ActionType = "show"
	ActionHide      ActionType = "hide"
	ActionRequire   ActionType = "require"
	ActionUnrequire ActionType = "unrequire"
)

// Condition compares one block's answer against a literal value. The
// is_empty/is_not_empty operators ignore Value.
type Condition struct {
	BlockID  string   `json:"blockId" yaml:"blockId"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// Action mutates the visibility or requiredness of a target block when its
// rule fires.
type Action struct {
	Type    ActionType `json:"type" yaml:"type"`
	BlockID string     `json:"blockId" yaml:"blockId"`
}

// LogicRule pairs an AND-combined condition list with an ordered action list.
// A rule with no conditions never fires; a rule with no actions is inert.
type LogicRule struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Actions    []Action    `json:"actions" yaml:"actions"`
}

// Settings holds respondent-facing navigation flags for a form.
type Settings struct {
	ProgressBar      bool `json:"progressBar" yaml:"progressBar"`
	NavigationArrows bool `json:"navigationArrows" yaml:"navigationArrows"`
	ShowPoweredBy    bool `json:"showPoweredBy" yaml:"showPoweredBy"`
}

// Design holds presentation settings. The runtime treats it as opaque; the
// design package resolves theme names into these values.
type Design struct {
	Theme        string            `json:"theme,omitempty" yaml:"theme,omitempty"`
	Colors       map[string]string `json:"colors,omitempty" yaml:"colors,omitempty"`
	Font         string            `json:"font,omitempty" yaml:"font,omitempty"`
	RoundCorners bool              `json:"roundCorners" yaml:"roundCorners"`
}

// Form is the ordered block sequence plus rules and global settings for one
// form. Builder sessions own a mutable Form; the respondent runtime receives
// an immutable snapshot (see Clone) and never mutates it.
type Form struct {
	ID         string      `json:"id" yaml:"id"`
	Title      string      `json:"title" yaml:"title"`
	Blocks     []Block     `json:"blocks" yaml:"blocks"`
	LogicRules []LogicRule `json:"logicRules,omitempty" yaml:"logicRules,omitempty"`
	Settings   Settings    `json:"settings" yaml:"settings"`
	Design     Design      `json:"design" yaml:"design"`
	Published  bool        `json:"published" yaml:"published"`
	CreatedAt  time.Time   `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Block returns the block with the given id, if present.
func (f Form) Block(id string) (Block, bool) {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// HasBlock reports whether a block with the given id exists.
func (f Form) HasBlock(id string) bool {
	_, ok := f.Block(id)
	return ok
}

// Clone returns a deep copy of the form. Runtimes snapshot the builder's
// schema through Clone so concurrent builder edits cannot leak into an active
// respondent session.
func (f Form) Clone() Form {
	out := f
	out.Blocks = make([]Block, len(f.Blocks))
	for i, b := range f.Blocks {
		out.Blocks[i] = b.Clone()
	}
	if f.LogicRules != nil {
		out.LogicRules = make([]LogicRule, len(f.LogicRules))
		for i, r := range f.LogicRules {
			out.LogicRules[i] = r.clone()
		}
	}
	out.Design.Colors = cloneStringMap(f.Design.Colors)
	return out
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	out := b
	if b.Options != nil {
		out.Options = append([]Option(nil), b.Options...)
	}
	if b.Attributes != nil {
		out.Attributes = make(map[string]any, len(b.Attributes))
		for k, v := range b.Attributes {
			out.Attributes[k] = deepCopyValue(v)
		}
	}
	return out
}

func (r LogicRule) clone() LogicRule {
	out := r
	if r.Conditions != nil {
		out.Conditions = append([]Condition(nil), r.Conditions...)
	}
	if r.Actions != nil {
		out.Actions = append([]Action(nil), r.Actions...)
	}
	return out
}

func cloneStringMap(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func deepCopyValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopyValue(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopyValue(v)
		}
		return clone
	default:
		return typed
	}
}
