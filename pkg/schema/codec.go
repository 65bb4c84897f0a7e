package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeJSON parses a form from its persisted JSON shape and validates it.
func DecodeJSON(data []byte) (Form, error) {
	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		return Form{}, fmt.Errorf("schema: decode json: %w", err)
	}
	if err := Validate(form); err != nil {
		return Form{}, err
	}
	return form, nil
}

// EncodeJSON serialises a form to its persisted JSON shape.
func EncodeJSON(form Form) ([]byte, error) {
	data, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("schema: encode json: %w", err)
	}
	return data, nil
}

// DecodeYAML parses a form from a YAML document and validates it. YAML is
// the authoring format for forms kept in version control.
func DecodeYAML(data []byte) (Form, error) {
	var form Form
	if err := yaml.Unmarshal(data, &form); err != nil {
		return Form{}, fmt.Errorf("schema: decode yaml: %w", err)
	}
	if err := Validate(form); err != nil {
		return Form{}, err
	}
	return form, nil
}

// LoadFile reads a form definition from disk, choosing the codec from the
// file extension. Unrecognised extensions fall back to JSON.
func LoadFile(path string) (Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Form{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}
