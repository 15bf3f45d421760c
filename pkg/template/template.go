// Package template renders templated configuration files against the
// deep-merged role and host variable tree.
package template

import (
	"strings"
	"text/template"

	"github.com/arthur-debert/dotm/pkg/errors"
)

// Render renders text as a Go template with vars as the root context.
// Referencing a missing variable is an error so that typos surface at deploy
// time instead of producing silently empty config values.
func Render(name, text string, vars map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTemplateRender, "failed to parse template %s", name)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", errors.Wrapf(err, errors.ErrTemplateRender, "failed to render template %s", name)
	}

	return buf.String(), nil
}
