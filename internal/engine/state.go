package engine

type State struct {
	RunID    string        // Identifies one Agent.Run
	History  []ChatMessage // Conversation history
	Step     int           // Current step (increments only on success)
	Done     bool          // True once a final answer is known
	Answer   string        // Final answer when Done
	Model    string        // LLM model name
	MaxSteps int           // Maximum steps before forcing an answer
	Budget   BudgetConfig  // Context window budget (zero value = unlimited)
	Totals   Usage         // Accumulated token usage across all calls

	ToolCallCount int // Total tool calls this run
}

func (s *State) Append(msg ChatMessage) { s.History = append(s.History, msg) }
