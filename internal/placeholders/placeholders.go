// Package placeholders resolves environment markers in a script before it is
// shipped into the sandbox, where the caller's .env is not available.
package placeholders

import (
	"fmt"
	"os"
	"strings"
)

// Required lists the variables whose markers are substituted, in order.
var Required = []string{
	"OLLAMA_MODEL_ID",
	"OLLAMA_PORT",
	"OLLAMA_NUM_CTX",
}

// MissingVarError reports a required variable that is not set.
type MissingVarError struct {
	Name string
}

func (e *MissingVarError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Name)
}

// LookupFunc resolves a variable name. It has the shape of os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// Marker returns the literal text replaced for name.
func Marker(name string) string {
	return fmt.Sprintf("os.getenv(%q)", name)
}

// Replace substitutes every marker of a required variable with the variable's
// value as a double-quoted literal. It is plain text replacement: values are
// not escaped. Any unset variable fails the whole substitution.
func Replace(script string, lookup LookupFunc) (string, error) {
	for _, name := range Required {
		value, ok := lookup(name)
		if !ok {
			return "", &MissingVarError{Name: name}
		}
		script = strings.ReplaceAll(script, Marker(name), `"`+value+`"`)
	}
	return script, nil
}

// ReplaceFromEnv is Replace against the process environment.
func ReplaceFromEnv(script string) (string, error) {
	return Replace(script, os.LookupEnv)
}
