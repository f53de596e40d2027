package engine

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// estimateTokens approximates the token count of text: about four runes per
// token, plus a little for whitespace-heavy code. Local models ship their own
// vocabularies, so nothing more exact is available client-side.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	whitespace := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")
	return max(utf8.RuneCountInString(text)/4+whitespace/6, 1)
}

// messageTokens estimates a prompt's size including role names, tool calls
// and about four tokens of formatting per message.
func messageTokens(msgs []ChatMessage) int {
	total := 0
	for _, msg := range msgs {
		total += estimateTokens(string(msg.Role)) + estimateTokens(msg.Content) + 4
		for _, tc := range msg.ToolCalls {
			args, _ := json.Marshal(tc.Args)
			total += estimateTokens(tc.Name) + estimateTokens(string(args))
		}
	}
	return total
}

// schemaTokens estimates the size of the tool definitions sent with a request.
func schemaTokens(schemas []ToolSchema) int {
	total := 0
	for _, s := range schemas {
		total += estimateTokens(s.Name) + estimateTokens(s.Description) + estimateTokens(s.JSONSchema) + 10
	}
	return total
}
