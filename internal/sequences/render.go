package sequences

import (
	"fmt"
	"strings"
	"text/template"
)

// RenderText expands {{.var}} references in authored text against vars.
// Unknown variables render as empty; `default` supplies a fallback.
func RenderText(name, content string, vars map[string]any) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}

	parsed, err := template.New(name).
		Funcs(template.FuncMap{"default": defaultValue}).
		Option("missingkey=zero").
		Parse(content)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", name, err)
	}

	var out strings.Builder
	if err := parsed.Execute(&out, vars); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}

	return strings.ReplaceAll(out.String(), "<no value>", ""), nil
}

func defaultValue(def string, value any) string {
	if value == nil {
		return def
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	default:
		text := strings.TrimSpace(fmt.Sprint(v))
		if text == "" {
			return def
		}
		return text
	}
}
