// Package importer builds form schemas from OpenAPI documents: the request
// body of an operation becomes a form, one block per property.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/builder"
	"github.com/goliatone/go-formflow/pkg/registry"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// OperationNotFoundError reports a lookup for an operation the document does
// not define.
type OperationNotFoundError struct {
	OperationID string
}

func (e *OperationNotFoundError) Error() string {
	return fmt.Sprintf("importer: operation %q not found", e.OperationID)
}

// FromFile loads an OpenAPI document from disk and imports one operation.
func FromFile(ctx context.Context, path, operationID string) (schema.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Form{}, fmt.Errorf("importer: read %s: %w", path, err)
	}
	return FromDocument(ctx, data, operationID)
}

// FromDocument imports the named operation from a raw OpenAPI payload. The
// operation is matched by operationId, or by "method:path" (e.g.
// "post:/items") when the document omits ids.
func FromDocument(ctx context.Context, data []byte, operationID string) (schema.Form, error) {
	if len(data) == 0 {
		return schema.Form{}, errors.New("importer: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return schema.Form{}, fmt.Errorf("importer: load document: %w", err)
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return schema.Form{}, errors.New("importer: document does not contain any paths")
	}

	op := findOperation(spec, operationID)
	if op == nil {
		return schema.Form{}, &OperationNotFoundError{OperationID: operationID}
	}

	body := requestSchema(op.RequestBody)
	if body == nil {
		return schema.Form{}, fmt.Errorf("importer: operation %q has no request body schema", operationID)
	}

	form := builder.NewForm()
	form.Title = formTitle(op, operationID)

	required := map[string]bool{}
	for _, name := range body.Required {
		required[name] = true
	}

	names := make([]string, 0, len(body.Properties))
	for name := range body.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := body.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		block, err := blockFor(name, ref.Value, required[name])
		if err != nil {
			return schema.Form{}, err
		}
		form.Blocks = append(form.Blocks, block)
	}
	if len(form.Blocks) == 0 {
		return schema.Form{}, fmt.Errorf("importer: operation %q yields no blocks", operationID)
	}

	if err := schema.Validate(form); err != nil {
		return schema.Form{}, fmt.Errorf("importer: imported form invalid: %w", err)
	}
	return form, nil
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range map[string]*openapi3.Operation{
			"get":    item.Get,
			"put":    item.Put,
			"post":   item.Post,
			"delete": item.Delete,
			"patch":  item.Patch,
		} {
			if op == nil {
				continue
			}
			if op.OperationID == operationID {
				return op
			}
			if op.OperationID == "" && method+":"+path == strings.ToLower(operationID) {
				return op
			}
		}
	}
	return nil
}

func formTitle(op *openapi3.Operation, operationID string) string {
	if op.Summary != "" {
		return op.Summary
	}
	return humanize(operationID)
}

func requestSchema(ref *openapi3.RequestBodyRef) *openapi3.Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	content := ref.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func blockFor(name string, src *openapi3.Schema, required bool) (schema.Block, error) {
	kind := kindFor(src)
	block, err := registry.NewBlock(name, kind)
	if err != nil {
		return schema.Block{}, fmt.Errorf("importer: property %q: %w", name, err)
	}

	block.Question = questionFor(name, src)
	block.Description = src.Description
	block.Required = required

	if opts := enumOptions(src); len(opts) > 0 {
		block.Options = opts
	}
	if block.Attributes == nil {
		block.Attributes = map[string]any{}
	}
	if src.Min != nil {
		block.Attributes["min"] = *src.Min
	}
	if src.Max != nil {
		block.Attributes["max"] = *src.Max
	}
	if src.Default != nil {
		block.Attributes["defaultValue"] = src.Default
	}
	return block, nil
}

func kindFor(src *openapi3.Schema) schema.BlockType {
	switch firstType(src.Type) {
	case "integer", "number":
		return schema.BlockNumber
	case "boolean":
		return schema.BlockSingleChoice
	case "array":
		if src.Items != nil && src.Items.Value != nil && len(src.Items.Value.Enum) > 0 {
			return schema.BlockMultipleChoice
		}
		return schema.BlockLongText
	default:
		if len(src.Enum) > 0 {
			return schema.BlockDropdown
		}
		switch src.Format {
		case "email":
			return schema.BlockEmail
		case "uri", "url":
			return schema.BlockURL
		case "date", "date-time":
			return schema.BlockDate
		case "binary":
			return schema.BlockFileUpload
		}
		if src.MaxLength != nil && *src.MaxLength > 200 {
			return schema.BlockLongText
		}
		return schema.BlockShortText
	}
}

func questionFor(name string, src *openapi3.Schema) string {
	if src.Title != "" {
		return src.Title
	}
	return humanize(name)
}

func enumOptions(src *openapi3.Schema) []schema.Option {
	values := src.Enum
	if len(values) == 0 && src.Items != nil && src.Items.Value != nil {
		values = src.Items.Value.Enum
	}
	if len(values) == 0 {
		if firstType(src.Type) == "boolean" {
			return []schema.Option{{Label: "Yes", Value: "yes"}, {Label: "No", Value: "no"}}
		}
		return nil
	}
	opts := make([]schema.Option, 0, len(values))
	for _, v := range values {
		label := fmt.Sprint(v)
		opts = append(opts, schema.Option{Label: label, Value: label})
	}
	return opts
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func humanize(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(name)
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
