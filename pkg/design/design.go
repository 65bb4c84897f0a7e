package design

import (
	"fmt"
	"sort"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Token keys with meaning beyond plain colors.
const (
	tokenFont    = "font"
	tokenRounded = "rounded"
)

// UnknownThemeError reports a lookup for a theme the gallery does not hold.
type UnknownThemeError struct {
	Name string
}

func (e *UnknownThemeError) Error() string {
	return fmt.Sprintf("design: unknown theme %q", e.Name)
}

// UnknownVariantError reports a variant missing from a theme manifest.
type UnknownVariantError struct {
	Theme   string
	Variant string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("design: theme %q has no variant %q", e.Theme, e.Variant)
}

// Gallery holds the theme manifests available to form authors. It satisfies
// theme.ThemeSelector so callers wired to go-theme can resolve from it
// directly.
type Gallery struct {
	manifests map[string]*theme.Manifest
}

var _ theme.ThemeSelector = (*Gallery)(nil)

// NewGallery returns a gallery preloaded with the built-in themes.
func NewGallery() *Gallery {
	g := &Gallery{manifests: map[string]*theme.Manifest{}}
	for _, m := range builtinManifests() {
		g.manifests[m.Name] = m
	}
	return g
}

// Register adds a custom manifest to the gallery. Registering a name twice is
// an error so built-ins cannot be silently shadowed.
func (g *Gallery) Register(m *theme.Manifest) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("design: manifest requires a name")
	}
	if _, ok := g.manifests[m.Name]; ok {
		return fmt.Errorf("design: theme %q already registered", m.Name)
	}
	g.manifests[m.Name] = m
	return nil
}

// Themes lists the registered theme names in sorted order.
func (g *Gallery) Themes() []string {
	names := make([]string, 0, len(g.manifests))
	for name := range g.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manifest returns the manifest registered under name.
func (g *Gallery) Manifest(name string) (*theme.Manifest, error) {
	m, ok := g.manifests[name]
	if !ok {
		return nil, &UnknownThemeError{Name: name}
	}
	return m, nil
}

// Select resolves a theme and optional variant into a go-theme selection.
func (g *Gallery) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	m, err := g.Manifest(name)
	if err != nil {
		return nil, err
	}
	if variant != "" {
		if _, ok := m.Variants[variant]; !ok {
			return nil, &UnknownVariantError{Theme: name, Variant: variant}
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: m}, nil
}

// RegisterAll installs every gallery manifest on an external go-theme
// registry, e.g. the one returned by theme.NewRegistry.
func (g *Gallery) RegisterAll(reg interface {
	Register(*theme.Manifest) error
}) error {
	for _, name := range g.Themes() {
		if err := reg.Register(g.manifests[name]); err != nil {
			return fmt.Errorf("design: register %q: %w", name, err)
		}
	}
	return nil
}

// Resolve flattens a selection into the design settings a form carries:
// base tokens first, variant tokens layered on top.
func Resolve(selection *theme.Selection) (schema.Design, error) {
	if selection == nil || selection.Manifest == nil {
		return schema.Design{}, fmt.Errorf("design: selection has no manifest")
	}

	tokens := map[string]string{}
	for k, v := range selection.Manifest.Tokens {
		tokens[k] = v
	}
	if selection.Variant != "" {
		variant, ok := selection.Manifest.Variants[selection.Variant]
		if !ok {
			return schema.Design{}, &UnknownVariantError{Theme: selection.Theme, Variant: selection.Variant}
		}
		for k, v := range variant.Tokens {
			tokens[k] = v
		}
	}

	d := schema.Design{
		Theme:  selection.Theme,
		Colors: map[string]string{},
	}
	for k, v := range tokens {
		switch k {
		case tokenFont:
			d.Font = v
		case tokenRounded:
			d.RoundCorners = v == "true"
		default:
			d.Colors[k] = v
		}
	}
	return d, nil
}

// Apply selects a theme from the gallery and writes the resolved design onto
// the form. The form is untouched when resolution fails.
func (g *Gallery) Apply(form *schema.Form, name, variant string) error {
	if form == nil {
		return fmt.Errorf("design: nil form")
	}
	selection, err := g.Select(name, variant)
	if err != nil {
		return err
	}
	d, err := Resolve(selection)
	if err != nil {
		return err
	}
	form.Design = d
	return nil
}

func builtinManifests() []*theme.Manifest {
	return []*theme.Manifest{
		{
			Name:    "default",
			Version: "1.0.0",
			Tokens: map[string]string{
				"background":       "#ffffff",
				"primary":          "#6366f1",
				"text":             "#1e293b",
				"questionText":     "#1e293b",
				"answerText":       "#64748b",
				"buttonBackground": "#6366f1",
				"buttonText":       "#ffffff",
				tokenFont:          "Inter",
				tokenRounded:       "true",
			},
			Variants: map[string]theme.Variant{
				"dark": {
					Tokens: map[string]string{
						"background":   "#0f172a",
						"text":         "#e2e8f0",
						"questionText": "#f8fafc",
						"answerText":   "#94a3b8",
					},
				},
			},
		},
		{
			Name:    "midnight",
			Version: "1.0.0",
			Tokens: map[string]string{
				"background":       "#0b1120",
				"primary":          "#38bdf8",
				"text":             "#e2e8f0",
				"questionText":     "#f1f5f9",
				"answerText":       "#94a3b8",
				"buttonBackground": "#38bdf8",
				"buttonText":       "#0b1120",
				tokenFont:          "Inter",
				tokenRounded:       "true",
			},
		},
		{
			Name:    "sunrise",
			Version: "1.0.0",
			Tokens: map[string]string{
				"background":       "#fff7ed",
				"primary":          "#f97316",
				"text":             "#431407",
				"questionText":     "#431407",
				"answerText":       "#9a3412",
				"buttonBackground": "#f97316",
				"buttonText":       "#fff7ed",
				tokenFont:          "Source Sans Pro",
				tokenRounded:       "true",
			},
		},
		{
			Name:    "mono",
			Version: "1.0.0",
			Tokens: map[string]string{
				"background":       "#ffffff",
				"primary":          "#111111",
				"text":             "#111111",
				"questionText":     "#111111",
				"answerText":       "#555555",
				"buttonBackground": "#111111",
				"buttonText":       "#ffffff",
				tokenFont:          "IBM Plex Mono",
				tokenRounded:       "false",
			},
		},
	}
}
