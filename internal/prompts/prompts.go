// Package prompts holds the system prompts used by agents.
package prompts

import (
	"fmt"
	"strings"
)

var templates = map[string]string{
	CodeAgentID: codeAgent,
}

// Render returns the prompt registered under id with every {{name}} marker
// replaced by vars[name]. Markers without a value are left as they are.
func Render(id string, vars map[string]string) (string, error) {
	tmpl, ok := templates[id]
	if !ok {
		return "", fmt.Errorf("prompt not found: %s", id)
	}
	pairs := make([]string, 0, 2*len(vars))
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}
