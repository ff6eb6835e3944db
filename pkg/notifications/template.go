package notifications

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/sanitizer"
)

// Template is a named message skeleton with {{key}} placeholders.
type Template struct {
	Name     string `yaml:"-"`
	Subject  string `yaml:"subject"`
	HTMLBody string `yaml:"html"`
	TextBody string `yaml:"text"`
}

// Rendered is a template with its placeholders substituted.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

var placeholderRegex = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Render replaces every {{key}} in text with data[key]. Absent and nil values
// become the empty string. There is no conditional or loop syntax.
func Render(text string, data map[string]any) string {
	return render(text, data, nil)
}

func render(text string, data map[string]any, escape func(string) string) string {
	return placeholderRegex.ReplaceAllStringFunc(text, func(token string) string {
		key := placeholderRegex.FindStringSubmatch(token)[1]
		v, ok := data[key]
		if !ok || v == nil {
			return ""
		}
		s := fmt.Sprint(v)
		if escape != nil {
			s = escape(s)
		}
		return s
	})
}

// Render substitutes data into every part. Values are HTML-escaped in the
// HTML body, and the subject is flattened to a single line.
func (t Template) Render(data map[string]any) Rendered {
	return Rendered{
		Subject: sanitizer.Apply(render(t.Subject, data, nil), sanitizer.RemoveControlChars, sanitizer.SingleLine),
		HTML:    render(t.HTMLBody, data, sanitizer.EscapeHTML),
		Text:    render(t.TextBody, data, nil),
	}
}

// TemplateSource looks up active persisted templates. It returns an error
// matching ErrTemplateNotFound when name is unknown or inactive.
type TemplateSource interface {
	FindActive(ctx context.Context, name string) (Template, error)
}

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	defaultsOnce sync.Once
	defaults     map[string]Template
	defaultsErr  error
)

// DefaultTemplates returns a copy of the built-in template table.
func DefaultTemplates() (map[string]Template, error) {
	defaultsOnce.Do(func() {
		var raw map[string]Template
		if err := yaml.Unmarshal(defaultsYAML, &raw); err != nil {
			defaultsErr = fmt.Errorf("parse default templates: %w", err)
			return
		}
		defaults = make(map[string]Template, len(raw))
		for name, t := range raw {
			t.Name = name
			defaults[name] = t
		}
	})
	if defaultsErr != nil {
		return nil, defaultsErr
	}
	out := make(map[string]Template, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out, nil
}

// TemplateResolver resolves a template name: persisted source first, then the
// built-in defaults.
type TemplateResolver struct {
	source   TemplateSource
	defaults map[string]Template
	logger   *slog.Logger
}

// ResolverOption configures a TemplateResolver.
type ResolverOption func(*TemplateResolver)

// WithResolverLogger sets the logger for the TemplateResolver.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *TemplateResolver) {
		r.logger = l
	}
}

// WithDefaults replaces the built-in default table.
func WithDefaults(templates map[string]Template) ResolverOption {
	return func(r *TemplateResolver) {
		r.defaults = templates
	}
}

// NewTemplateResolver creates a resolver. source may be nil, in which case
// only defaults are used.
func NewTemplateResolver(source TemplateSource, opts ...ResolverOption) (*TemplateResolver, error) {
	r := &TemplateResolver{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.defaults == nil {
		d, err := DefaultTemplates()
		if err != nil {
			return nil, err
		}
		r.defaults = d
	}
	r.logger = r.logger.With(logger.Component("templates"))
	return r, nil
}

// Resolve returns the named template or a *TemplateNotFoundError. A source
// failure other than not-found is logged and the defaults are consulted.
func (r *TemplateResolver) Resolve(ctx context.Context, name string) (Template, error) {
	if r.source != nil {
		t, err := r.source.FindActive(ctx, name)
		switch {
		case err == nil:
			t.Name = name
			return t, nil
		case !errors.Is(err, ErrTemplateNotFound):
			r.logger.LogAttrs(ctx, slog.LevelWarn, "template store lookup failed, using defaults",
				logger.Template(name),
				logger.Error(err),
			)
		}
	}

	if t, ok := r.defaults[name]; ok {
		return t, nil
	}
	return Template{}, &TemplateNotFoundError{Name: name}
}

// MemoryTemplates is an in-memory TemplateSource.
type MemoryTemplates struct {
	mu        sync.RWMutex
	templates map[string]memoryTemplate
}

type memoryTemplate struct {
	Template
	active bool
}

// NewMemoryTemplates creates an empty template source.
func NewMemoryTemplates() *MemoryTemplates {
	return &MemoryTemplates{templates: make(map[string]memoryTemplate)}
}

// Put stores a template under t.Name.
func (m *MemoryTemplates) Put(t Template, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.Name] = memoryTemplate{Template: t, active: active}
}

func (m *MemoryTemplates) FindActive(ctx context.Context, name string) (Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[name]
	if !ok || !t.active {
		return Template{}, &TemplateNotFoundError{Name: name}
	}
	return t.Template, nil
}
