package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dmitrymomot/mailroom/pkg/i18n"
	"github.com/dmitrymomot/mailroom/pkg/sanitizer"
)

const (
	htmlLayout = "base.html"
	textLayout = "base.txt"
)

var textFuncs = texttemplate.FuncMap{
	"upper": func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
}

// Renderer turns a typed payload into an HTML body and an independently
// composed plain-text body.
//
// For a template id T it reads T.md (markdown with frontmatter) and T.txt
// from the template directory, and wraps them in layouts/base.html and
// layouts/base.txt. Parsed templates are cached; rendered output is not.
type Renderer struct {
	fs          fs.FS
	md          goldmark.Markdown
	templateDir string
	layoutDir   string
	views       viewBuilder
	now         func() time.Time

	markdown map[TemplateID]*cachedTemplate
	text     map[TemplateID]*texttemplate.Template
	noText   map[TemplateID]bool
	htmlBase *template.Template
	textBase *texttemplate.Template

	mu sync.RWMutex
}

type cachedTemplate struct {
	metadata map[string]any
	subject  *texttemplate.Template
	body     *texttemplate.Template
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithBrand sets the sender branding used in layouts.
func WithBrand(b Brand) RendererOption {
	return func(r *Renderer) { r.views.brand = b }
}

// WithPortalBaseURL sets the base URL of customer portal links.
func WithPortalBaseURL(u string) RendererOption {
	return func(r *Renderer) { r.views.portal = u }
}

// WithFormat overrides the money and date format (en-US by default).
func WithFormat(f *i18n.LocaleFormat) RendererOption {
	return func(r *Renderer) {
		if f != nil {
			r.views.format = f
		}
	}
}

// WithNow sets the clock used for the copyright year.
func WithNow(now func() time.Time) RendererOption {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTemplateDirs sets the template and layout directories inside the FS.
func WithTemplateDirs(templateDir, layoutDir string) RendererOption {
	return func(r *Renderer) {
		if templateDir != "" {
			r.templateDir = templateDir
		}
		if layoutDir != "" {
			r.layoutDir = layoutDir
		}
	}
}

// WithConfig applies brand and portal settings from cfg.
func WithConfig(cfg Config) RendererOption {
	return func(r *Renderer) {
		r.views.brand = cfg.Brand
		if cfg.PortalBaseURL != "" {
			r.views.portal = cfg.PortalBaseURL
		}
	}
}

// NewRenderer creates a renderer reading templates from fsys.
func NewRenderer(fsys fs.FS, opts ...RendererOption) *Renderer {
	r := &Renderer{
		fs:          fsys,
		templateDir: ".",
		layoutDir:   "layouts",
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, NewButtonExtension()),
		),
		views: viewBuilder{
			brand:  Brand{Name: "Mailroom"},
			format: i18n.FormatEnUS(),
		},
		now:      time.Now,
		markdown: make(map[TemplateID]*cachedTemplate),
		text:     make(map[TemplateID]*texttemplate.Template),
		noText:   make(map[TemplateID]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderResult is a rendered message.
type RenderResult struct {
	Metadata map[string]any
	Subject  string // default subject from frontmatter, empty if none
	HTML     string
	Text     string
	View     *View
}

// Render renders payload p.
func (r *Renderer) Render(p Payload) (*RenderResult, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	id := p.Template()

	v := r.views
	v.year = r.now().Year()
	view, err := v.build(p)
	if err != nil {
		return nil, err
	}

	md, err := r.markdownTemplate(id)
	if err != nil {
		return nil, err
	}

	var src bytes.Buffer
	if err := md.body.Execute(&src, view.markdown()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, id, err)
	}
	var content bytes.Buffer
	if err := r.md.Convert(src.Bytes(), &content); err != nil {
		return nil, fmt.Errorf("%w: %s: markdown: %v", ErrRenderFailed, id, err)
	}

	htmlBase, textBase, err := r.layouts()
	if err != nil {
		return nil, err
	}

	var doc bytes.Buffer
	if err := htmlBase.Execute(&doc, map[string]any{
		"Content":  template.HTML(content.String()),
		"Metadata": md.metadata,
		"View":     view,
	}); err != nil {
		return nil, fmt.Errorf("%w: layout: %v", ErrRenderFailed, err)
	}

	text, err := r.renderText(id, view, doc.String(), textBase)
	if err != nil {
		return nil, err
	}

	res := &RenderResult{
		Metadata: md.metadata,
		HTML:     doc.String(),
		Text:     text,
		View:     view,
	}
	if md.subject != nil {
		var s bytes.Buffer
		if err := md.subject.Execute(&s, view); err != nil {
			return nil, fmt.Errorf("%w: %s: subject: %v", ErrRenderFailed, id, err)
		}
		res.Subject = strings.TrimSpace(s.String())
	}
	return res, nil
}

// renderText executes T.txt inside the text layout. Templates without a
// .txt file fall back to stripping the rendered HTML.
func (r *Renderer) renderText(id TemplateID, view *View, html string, layout *texttemplate.Template) (string, error) {
	tmpl, err := r.textTemplate(id)
	if err != nil {
		return "", err
	}
	if tmpl == nil {
		return sanitizer.HTMLToText(html), nil
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, view); err != nil {
		return "", fmt.Errorf("%w: %s: text: %v", ErrRenderFailed, id, err)
	}

	var out bytes.Buffer
	if err := layout.Execute(&out, map[string]any{
		"Content": strings.TrimSpace(body.String()),
		"View":    view,
	}); err != nil {
		return "", fmt.Errorf("%w: text layout: %v", ErrRenderFailed, err)
	}
	return out.String(), nil
}

func (r *Renderer) markdownTemplate(id TemplateID) (*cachedTemplate, error) {
	r.mu.RLock()
	cached, ok := r.markdown[id]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.markdown[id]; ok {
		return cached, nil
	}

	name := string(id) + ".md"
	content, err := fs.ReadFile(r.fs, path.Join(r.templateDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}

	parsed, err := ParseTemplate(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	body, err := texttemplate.New(name).Parse(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	cached = &cachedTemplate{metadata: parsed.Metadata, body: body}
	if s := parsed.String("subject"); s != "" {
		if cached.subject, err = texttemplate.New(name + ":subject").Parse(s); err != nil {
			return nil, fmt.Errorf("%w: %s: subject: %v", ErrRenderFailed, name, err)
		}
	}

	r.markdown[id] = cached
	return cached, nil
}

// textTemplate returns nil, nil when the template has no .txt file.
func (r *Renderer) textTemplate(id TemplateID) (*texttemplate.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.text[id]
	missing := r.noText[id]
	r.mu.RUnlock()
	if ok || missing {
		return tmpl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.text[id]; ok || r.noText[id] {
		return tmpl, nil
	}

	name := string(id) + ".txt"
	content, err := fs.ReadFile(r.fs, path.Join(r.templateDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		r.noText[id] = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}

	tmpl, err = texttemplate.New(name).Funcs(textFuncs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	r.text[id] = tmpl
	return tmpl, nil
}

func (r *Renderer) layouts() (*template.Template, *texttemplate.Template, error) {
	r.mu.RLock()
	h, t := r.htmlBase, r.textBase
	r.mu.RUnlock()
	if h != nil && t != nil {
		return h, t, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.htmlBase != nil && r.textBase != nil {
		return r.htmlBase, r.textBase, nil
	}

	htmlSrc, err := fs.ReadFile(r.fs, path.Join(r.layoutDir, htmlLayout))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, htmlLayout, err)
	}
	textSrc, err := fs.ReadFile(r.fs, path.Join(r.layoutDir, textLayout))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, textLayout, err)
	}

	if r.htmlBase, err = template.New(htmlLayout).Parse(string(htmlSrc)); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, htmlLayout, err)
	}
	if r.textBase, err = texttemplate.New(textLayout).Funcs(textFuncs).Parse(string(textSrc)); err != nil {
		r.htmlBase = nil
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, textLayout, err)
	}
	return r.htmlBase, r.textBase, nil
}
