package contact

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Templates holds the message bodies rendered into contact payloads,
// keyed by template key.
type Templates struct {
	byKey map[string]*template.Template
}

type templateFile struct {
	Templates map[string]struct {
		Body string `yaml:"body"`
	} `yaml:"templates"`
}

// LoadTemplates reads a YAML template file. A missing file yields an empty set.
func LoadTemplates(path string) (*Templates, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("contact templates file not found, messages will carry no rendered text")
		return &Templates{byKey: map[string]*template.Template{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return ParseTemplates(data)
}

func ParseTemplates(data []byte) (*Templates, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	t := &Templates{byKey: make(map[string]*template.Template, len(file.Templates))}
	for key, def := range file.Templates {
		tmpl, err := template.New(key).Option("missingkey=zero").Parse(def.Body)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", key, err)
		}
		t.byKey[key] = tmpl
	}
	return t, nil
}

// Render fills the template for key with the payload. ok is false when no
// template has that key.
func (t *Templates) Render(key string, p Payload) (string, bool, error) {
	if t == nil {
		return "", false, nil
	}
	tmpl, ok := t.byKey[key]
	if !ok {
		return "", false, nil
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", true, fmt.Errorf("failed to render template %q: %w", key, err)
	}
	return strings.TrimSpace(buf.String()), true, nil
}
