package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnresolvedPlaceholder = errors.New("template placeholder has no substitution")
)

// Resolve replaces every ${name} placeholder in template with its value
// from subs. The template is walked once, left to right, and substituted
// values are never re-scanned, so user input containing ${...} passes
// through untouched. A placeholder without a substitution is a caller bug
// and fails with ErrUnresolvedPlaceholder.
func Resolve(template string, subs map[string]string) (string, error) {
	var out strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end += start

		name := rest[start+2 : end]
		value, ok := subs[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, name)
		}
		out.WriteString(rest[:start])
		out.WriteString(value)
		rest = rest[end+1:]
	}
}
