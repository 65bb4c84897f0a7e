// Package registry is the catalog of block kinds: for each supported kind it
// knows the defaults a freshly created block receives. It is a pure lookup
// table with no mutable state, safe for concurrent use without locking.
package registry

import (
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Defaults describes the initial shape of a new block of a given kind.
type Defaults struct {
	Question   string
	Options    []schema.Option
	Attributes map[string]any
}

// DefaultsFor returns the defaults for kind. An unknown kind is a
// configuration error reported as schema.UnknownBlockKindError.
func DefaultsFor(kind schema.BlockType) (Defaults, error) {
	d, ok := builtins[kind]
	if !ok {
		return Defaults{}, schema.UnknownBlockKindError{Kind: kind}
	}
	return d.clone(), nil
}

// NewBlock constructs a block of the given kind with registry defaults
// applied. The caller supplies the id; ids are never generated here so the
// registry stays deterministic.
func NewBlock(id string, kind schema.BlockType) (schema.Block, error) {
	defaults, err := DefaultsFor(kind)
	if err != nil {
		return schema.Block{}, err
	}
	return schema.Block{
		ID:         id,
		Type:       kind,
		Question:   defaults.Question,
		Required:   false,
		Options:    defaults.Options,
		Attributes: defaults.Attributes,
	}, nil
}

// Kinds lists every supported block kind in display order.
func Kinds() []schema.BlockType {
	out := make([]schema.BlockType, len(kindOrder))
	copy(out, kindOrder)
	return out
}

func (d Defaults) clone() Defaults {
	out := Defaults{Question: d.Question}
	if d.Options != nil {
		out.Options = append([]schema.Option(nil), d.Options...)
	}
	if d.Attributes != nil {
		out.Attributes = make(map[string]any, len(d.Attributes))
		for k, v := range d.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

var kindOrder = []schema.BlockType{
	schema.BlockShortText,
	schema.BlockLongText,
	schema.BlockEmail,
	schema.BlockPhone,
	schema.BlockNumber,
	schema.BlockURL,
	schema.BlockSingleChoice,
	schema.BlockMultipleChoice,
	schema.BlockDropdown,
	schema.BlockDate,
	schema.BlockRating,
	schema.BlockScale,
	schema.BlockStatement,
	schema.BlockFileUpload,
}

var defaultChoices = []schema.Option{
	{Label: "Option 1", Value: "option_1"},
	{Label: "Option 2", Value: "option_2"},
}

var builtins = map[schema.BlockType]Defaults{
	schema.BlockShortText: {
		Question:   "Untitled Question",
		Attributes: map[string]any{"placeholder": "Your answer"},
	},
	schema.BlockLongText: {
		Question:   "Untitled Question",
		Attributes: map[string]any{"placeholder": "Your answer", "rows": 5},
	},
	schema.BlockEmail: {
		Question:   "What is your email?",
		Attributes: map[string]any{"placeholder": "your.email@example.com"},
	},
	schema.BlockPhone: {
		Question:   "What is your phone number?",
		Attributes: map[string]any{"placeholder": "Your phone number"},
	},
	schema.BlockNumber: {
		Question:   "Untitled Question",
		Attributes: map[string]any{"placeholder": "0", "step": 1},
	},
	schema.BlockURL: {
		Question:   "Untitled Question",
		Attributes: map[string]any{"placeholder": "https://"},
	},
	schema.BlockSingleChoice: {
		Question: "Untitled Question",
		Options:  defaultChoices,
	},
	schema.BlockMultipleChoice: {
		Question: "Untitled Question",
		Options:  defaultChoices,
	},
	schema.BlockDropdown: {
		Question: "Untitled Question",
		Options:  defaultChoices,
	},
	schema.BlockDate: {
		Question: "Pick a date",
	},
	schema.BlockRating: {
		Question:   "How would you rate this?",
		Attributes: map[string]any{"maxRating": 5},
	},
	schema.BlockScale: {
		Question:   "Untitled Question",
		Attributes: map[string]any{"min": 0, "max": 10},
	},
	schema.BlockStatement: {
		Question: "Statement",
	},
	schema.BlockFileUpload: {
		Question:   "Upload a file",
		Attributes: map[string]any{"allowedFileTypes": []any{".pdf", ".png", ".jpg"}},
	},
}
