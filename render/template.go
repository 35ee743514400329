package render

import "strings"

// Render flattens data and substitutes placeholders in every field value.
// The output carries the same keys as fields.
func Render(fields map[string]string, data map[string]any) map[string]string {
	return RenderValues(fields, Flatten(data))
}

// RenderValues substitutes {{ token }} placeholders against an already
// flattened value map. Tokens are trimmed and lowercased before lookup;
// absent tokens substitute the empty string; malformed placeholders are left
// verbatim. Substituted text is never re-scanned.
func RenderValues(fields map[string]string, values map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for key, template := range fields {
		out[key] = substitute(template, values)
	}
	return out
}

func substitute(template string, values map[string]string) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	var builder strings.Builder
	builder.Grow(len(template))
	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			builder.WriteString(rest)
			return builder.String()
		}
		builder.WriteString(rest[:open])
		token, consumed, ok := scanPlaceholder(rest[open:])
		if !ok {
			// Not a well-formed placeholder: emit one brace verbatim and
			// rescan from the next byte so overlapping braces still match.
			builder.WriteByte('{')
			rest = rest[open+1:]
			continue
		}
		builder.WriteString(values[strings.ToLower(token)])
		rest = rest[open+consumed:]
	}
}

// scanPlaceholder matches `{{` ws* token ws* `}}` at the start of input,
// where token is one or more of [A-Za-z0-9._-]. It returns the token and the
// total number of bytes the placeholder spans.
func scanPlaceholder(input string) (token string, consumed int, ok bool) {
	pos := 2 // past the opening braces
	pos += countWhitespace(input[pos:])

	start := pos
	for pos < len(input) && isTokenByte(input[pos]) {
		pos++
	}
	if pos == start {
		return "", 0, false
	}
	token = input[start:pos]

	pos += countWhitespace(input[pos:])
	if !strings.HasPrefix(input[pos:], "}}") {
		return "", 0, false
	}
	return token, pos + 2, true
}

func countWhitespace(input string) int {
	count := 0
	for count < len(input) {
		switch input[count] {
		case ' ', '\t':
			count++
		default:
			return count
		}
	}
	return count
}

func isTokenByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '.', b == '_', b == '-':
		return true
	}
	return false
}
