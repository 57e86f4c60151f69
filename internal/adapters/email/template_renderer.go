package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	texttemplate "text/template"

	"eventhub/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// Templates is every template set the service sends. Each one needs
// <name>_subject.txt, <name>.html and <name>.txt under templates/.
var Templates = []domain.EmailTemplate{domain.TemplateSignupCode}

type templateSet struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

type templateRenderer struct {
	sets map[domain.EmailTemplate]templateSet
}

// NewTemplateRenderer parses every entry of Templates from the embedded files.
// A missing or malformed file fails here instead of on the first send.
func NewTemplateRenderer() (domain.EmailTemplateRenderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	return newTemplateRenderer(sub, Templates)
}

func newTemplateRenderer(fsys fs.FS, names []domain.EmailTemplate) (*templateRenderer, error) {
	r := &templateRenderer{sets: make(map[domain.EmailTemplate]templateSet, len(names))}
	for _, name := range names {
		set, err := parseSet(fsys, string(name))
		if err != nil {
			return nil, fmt.Errorf("email template %q: %w", name, err)
		}
		r.sets[name] = set
	}
	return r, nil
}

func parseSet(fsys fs.FS, name string) (templateSet, error) {
	var set templateSet
	var err error
	if set.subject, err = texttemplate.New(name+"_subject.txt").Option("missingkey=error").ParseFS(fsys, name+"_subject.txt"); err != nil {
		return set, err
	}
	if set.html, err = htmltemplate.New(name+".html").Option("missingkey=error").ParseFS(fsys, name+".html"); err != nil {
		return set, err
	}
	if set.text, err = texttemplate.New(name+".txt").Option("missingkey=error").ParseFS(fsys, name+".txt"); err != nil {
		return set, err
	}
	return set, nil
}

// Render executes the named set. The subject must render to a single line.
func (r *templateRenderer) Render(name domain.EmailTemplate, data any) (*domain.RenderedEmail, error) {
	set, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}
	var subject, html, text bytes.Buffer
	if err := set.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := set.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := set.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}
	subj := strings.TrimSpace(subject.String())
	if strings.ContainsAny(subj, "\r\n") {
		return nil, fmt.Errorf("render subject: %q spans several lines", name)
	}
	return &domain.RenderedEmail{Subject: subj, HTML: html.String(), Text: text.String()}, nil
}
