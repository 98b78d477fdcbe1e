package domain

import (
	"fmt"
	"strings"
)

// Prompt is a two-part chat prompt for the language model.
type Prompt struct {
	System string
	User   string
}

// RenderPrompt substitutes {name} placeholders with vars.
// Doubled braces "{{" and "}}" render as literal braces.
func RenderPrompt(template string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("render prompt: unclosed placeholder at offset %d: %w", i, ErrInvalidInput)
			}
			name := template[i+1 : i+1+end]
			value, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("render prompt: unknown placeholder %q: %w", name, ErrInvalidInput)
			}
			b.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("render prompt: single '}' at offset %d: %w", i, ErrInvalidInput)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// EscapeBraces makes arbitrary text safe to splice into a prompt template.
func EscapeBraces(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}
