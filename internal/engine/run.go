package engine

import (
	"context"
	"fmt"
)

// Run executes the ReAct loop until an answer is known, the step limit is
// reached, or an error occurs. At the step limit the model is asked once more,
// without tools, for its final answer.
//
// Step counting: steps increment only on successful completion.
func Run(ctx context.Context, llm LLMClient, reg ToolRegistry, st *State, hooks Hooks, opts ChatOptions) error {
	st.Step = 0

	for st.Step < st.MaxSteps && !st.Done {
		select {
		case <-ctx.Done():
			return fmt.Errorf("execution cancelled: %w", ctx.Err())
		default:
		}

		if err := stepOnce(ctx, llm, reg, st, hooks, opts); err != nil {
			return err
		}
		st.Step++
	}

	if !st.Done {
		if err := forceFinalAnswer(ctx, llm, st, hooks, opts); err != nil {
			return err
		}
	}
	hooks.OnDone(ctx, st)
	return nil
}
