package engine

import "unicode/utf8"

// BudgetConfig bounds the prompt sent to the model. The zero value disables fitting.
type BudgetConfig struct {
	ContextWindow int // Model context size in tokens (num_ctx for Ollama)
	ReserveTokens int // Room kept free for the completion
}

// Limit is the number of prompt tokens allowed, or 0 when unlimited.
func (b BudgetConfig) Limit() int {
	if b.ContextWindow <= 0 {
		return 0
	}
	limit := b.ContextWindow - b.ReserveTokens
	if limit < 1 {
		return 1
	}
	return limit
}

// maxToolOutputChars caps a single tool result, in runes, once the history
// is over budget.
const maxToolOutputChars = 4000

// fitHistory returns the messages to send so that they fit the budget, along
// with the token counts before and after fitting. System messages and the
// first user message (the task) are always kept. Older turns are dropped
// first; an assistant message is dropped together with its tool results so
// that no tool result is left without the call that produced it.
func fitHistory(msgs []ChatMessage, budget BudgetConfig) ([]ChatMessage, int, int) {
	before := messageTokens(msgs)
	limit := budget.Limit()
	if limit == 0 || before <= limit {
		return msgs, before, before
	}

	fitted := truncateToolOutputs(msgs, maxToolOutputChars)
	after := messageTokens(fitted)

	var pinned, rest []ChatMessage
	seenTask := false
	for _, m := range fitted {
		switch {
		case m.Role == RoleSystem:
			pinned = append(pinned, m)
		case m.Role == RoleUser && !seenTask:
			pinned = append(pinned, m)
			seenTask = true
		default:
			rest = append(rest, m)
		}
	}

	for after > limit && len(rest) > 1 {
		n := turnLength(rest)
		if n >= len(rest) {
			break
		}
		rest = rest[n:]
		after = messageTokens(append(append([]ChatMessage{}, pinned...), rest...))
	}

	out := make([]ChatMessage, 0, len(pinned)+len(rest))
	out = append(out, pinned...)
	out = append(out, rest...)
	return out, before, after
}

// turnLength is the number of leading messages that form one turn: an
// assistant message plus the tool results answering it.
func turnLength(msgs []ChatMessage) int {
	n := 1
	for n < len(msgs) && msgs[n].Role == RoleTool {
		n++
	}
	return n
}

func truncateToolOutputs(msgs []ChatMessage, maxChars int) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == RoleTool && utf8.RuneCountInString(msg.Content) > maxChars {
			runes := []rune(msg.Content)
			head := string(runes[:maxChars/2])
			tail := string(runes[len(runes)-maxChars/2:])
			msg.Content = head + "\n...\n" + tail
		}
		out = append(out, msg)
	}
	return out
}
