package mailer

import (
	"errors"
	"fmt"
	htmlTemplate "html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	textTemplate "text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateConfig contains template engine configuration.
type TemplateConfig struct {
	// Directory is the path to the directory containing templates (optional).
	Directory string

	// Extension lists the template file extensions (default: ".tmpl").
	Extension []string
}

// TemplateRequest describes a message whose subject and body are rendered
// from templates named <Template>.subject, <Template>.text and <Template>.html.
type TemplateRequest struct {
	Template string
	Data     interface{}

	// Subject overrides the rendered subject when non-empty.
	Subject string

	// HTML prefers the html body template over the text one.
	HTML bool

	To       []string
	From     string
	Priority Priority
	Headers  []Header
}

// TemplateEngineImpl implements the TemplateEngine interface.
type TemplateEngineImpl struct {
	config        TemplateConfig
	htmlTemplates map[string]*htmlTemplate.Template
	textTemplates map[string]*textTemplate.Template
	mutex         sync.RWMutex
}

// NewTemplateEngine creates a new template engine with the given configuration.
func NewTemplateEngine(config TemplateConfig) (*TemplateEngineImpl, error) {
	if len(config.Extension) == 0 {
		config.Extension = []string{".tmpl"}
	}

	engine := &TemplateEngineImpl{
		config:        config,
		htmlTemplates: make(map[string]*htmlTemplate.Template),
		textTemplates: make(map[string]*textTemplate.Template),
	}

	if config.Directory != "" {
		if err := engine.LoadTemplatesFromDir(config.Directory); err != nil {
			return nil, fmt.Errorf("failed to load templates from directory: %w", err)
		}
	}

	return engine, nil
}

// Render renders a template with the provided data.
func (te *TemplateEngineImpl) Render(templateName string, data interface{}) (string, error) {
	te.mutex.RLock()
	defer te.mutex.RUnlock()

	var buf strings.Builder
	if tmpl, ok := te.htmlTemplates[templateName]; ok {
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", NewTemplateError(templateName, "render", "failed to execute HTML template", err)
		}
		return buf.String(), nil
	}

	if tmpl, ok := te.textTemplates[templateName]; ok {
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", NewTemplateError(templateName, "render", "failed to execute text template", err)
		}
		return buf.String(), nil
	}

	return "", ErrTemplateNotFound
}

// RegisterTemplate registers a template. Names ending in ".html" are parsed
// with html/template; everything else with text/template.
func (te *TemplateEngineImpl) RegisterTemplate(name string, content string) error {
	te.mutex.Lock()
	defer te.mutex.Unlock()

	if strings.HasSuffix(name, ".html") {
		tmpl, err := htmlTemplate.New(name).Funcs(htmlTemplate.FuncMap(templateFuncs())).Parse(content)
		if err != nil {
			return NewTemplateError(name, "parse", "failed to parse HTML template", err)
		}
		te.htmlTemplates[name] = tmpl
		return nil
	}

	tmpl, err := textTemplate.New(name).Funcs(textTemplate.FuncMap(templateFuncs())).Parse(content)
	if err != nil {
		return NewTemplateError(name, "parse", "failed to parse text template", err)
	}
	te.textTemplates[name] = tmpl
	return nil
}

// LoadTemplatesFromDir loads all templates from the specified directory.
// "welcome/body.text.tmpl" registers as "welcome.body.text".
func (te *TemplateEngineImpl) LoadTemplatesFromDir(dir string) error {
	cleanDir := filepath.Clean(dir)

	return filepath.WalkDir(cleanDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		cleanPath := filepath.Clean(path)
		if !isPathWithinDir(cleanPath, cleanDir) {
			return fmt.Errorf("path traversal detected: %s", path)
		}

		ext := filepath.Ext(cleanPath)
		if !te.hasExtension(ext) {
			return nil
		}

		content, err := os.ReadFile(cleanPath)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", cleanPath, err)
		}

		rel, err := filepath.Rel(cleanDir, cleanPath)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}

		name := strings.ReplaceAll(strings.TrimSuffix(rel, ext), string(filepath.Separator), ".")
		if err := te.RegisterTemplate(name, string(content)); err != nil {
			return fmt.Errorf("failed to register template %s: %w", name, err)
		}

		return nil
	})
}

func (te *TemplateEngineImpl) hasExtension(ext string) bool {
	for _, e := range te.config.Extension {
		if ext == e {
			return true
		}
	}
	return false
}

// templateFuncs returns the functions shared by text and HTML templates.
func templateFuncs() map[string]interface{} {
	titleCaser := cases.Title(language.English)
	return map[string]interface{}{
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"title":     titleCaser.String,
		"trim":      strings.TrimSpace,
		"join":      strings.Join,
		"split":     strings.Split,
		"replace":   strings.ReplaceAll,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"add":       func(a, b int) int { return a + b },
		"sub":       func(a, b int) int { return a - b },
		"default": func(defaultValue, value interface{}) interface{} {
			if value == nil || value == "" {
				return defaultValue
			}
			return value
		},
	}
}

// isPathWithinDir reports whether path is inside dir.
func isPathWithinDir(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ComposeTemplate renders the request's templates and composes the result
// with m. The subject comes from <name>.subject unless req.Subject is set.
// The body comes from <name>.text, falling back to <name>.html, or the
// reverse when req.HTML is set.
func ComposeTemplate(m Mailer, eng TemplateEngine, req TemplateRequest) (Message, error) {
	subject := req.Subject
	if subject == "" {
		s, err := eng.Render(req.Template+".subject", req.Data)
		if err != nil && !errors.Is(err, ErrTemplateNotFound) {
			return nil, NewTemplateError(req.Template, "render", "failed to render subject", err)
		}
		subject = s
	}

	kinds := []string{".text", ".html"}
	if req.HTML {
		kinds = []string{".html", ".text"}
	}

	var body string
	found := false
	for _, kind := range kinds {
		b, err := eng.Render(req.Template+kind, req.Data)
		if errors.Is(err, ErrTemplateNotFound) {
			continue
		}
		if err != nil {
			return nil, NewTemplateError(req.Template, "render", "failed to render body", err)
		}
		body, found = b, true
		break
	}
	if !found {
		return nil, NewTemplateError(req.Template, "render", "no body template", ErrTemplateNotFound)
	}

	return m.Compose(Draft{
		Body:     body,
		Subject:  subject,
		To:       req.To,
		From:     req.From,
		Priority: req.Priority,
		Headers:  req.Headers,
	})
}
