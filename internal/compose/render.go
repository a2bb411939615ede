package compose

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/docker-compose.yml.tmpl
var defaultTemplate string

// templateData is what compose templates are executed against.
type templateData struct {
	// Document is the whole compose document.
	Document map[string]interface{}

	// Services is the document's services mapping, empty when absent.
	Services map[string]interface{}
}

// Render fills tmplText with doc and returns the resulting compose file.
// An empty tmplText selects the built-in template, which writes the whole
// document below a short header.
//
// Templates can use two functions: `yaml`, which encodes a value the way
// Marshal does, and `indent n s`, which prefixes every non-empty line of s
// with n spaces.
func Render(doc Document, tmplText string) ([]byte, error) {
	if tmplText == "" {
		tmplText = defaultTemplate
	}

	tmpl, err := template.New("docker-compose.yml").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"yaml":   yamlFunc,
			"indent": indentFunc,
		}).
		Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compose template: %w", err)
	}

	services, err := doc.servicesMap(false)
	if err != nil {
		return nil, err
	}
	if services == nil {
		services = map[string]interface{}{}
	}

	data := templateData{
		Document: map[string]interface{}(doc),
		Services: services,
	}
	if data.Document == nil {
		data.Document = map[string]interface{}{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render compose template: %w", err)
	}
	return buf.Bytes(), nil
}

func yamlFunc(v interface{}) (string, error) {
	out, err := marshalValue(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func indentFunc(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}
