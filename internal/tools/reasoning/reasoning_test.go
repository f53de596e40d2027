package reasoning

import (
	"context"
	"testing"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

func TestFinalAnswerTool(t *testing.T) {
	tool := NewFinalAnswerTool(nil)
	if tool.Name != engine.FinalAnswerTool {
		t.Fatalf("Name = %q, want %q", tool.Name, engine.FinalAnswerTool)
	}

	tests := []struct {
		name    string
		args    map[string]any
		want    string
		wantErr bool
	}{
		{name: "text answer", args: map[string]any{"answer": "Play Daft Punk."}, want: "Play Daft Punk."},
		{name: "structured answer", args: map[string]any{"answer": []any{"a", "b"}}, want: `["a","b"]`},
		{name: "number answer", args: map[string]any{"answer": float64(42)}, want: "42"},
		{name: "empty answer", args: map[string]any{"answer": ""}, wantErr: true},
		{name: "missing answer", args: map[string]any{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tool.Fn(context.Background(), tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fn() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Fn() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFinalAnswerSchemaRequiresAnswer(t *testing.T) {
	tool := NewFinalAnswerTool(nil)
	if err := tool.ValidateArgs(map[string]any{}); err == nil {
		t.Error("ValidateArgs() accepted a call without answer")
	}
	if err := tool.ValidateArgs(map[string]any{"answer": "ok"}); err != nil {
		t.Errorf("ValidateArgs() error = %v", err)
	}
}

func TestThinkTool(t *testing.T) {
	tool := NewThinkTool(nil)

	got, err := tool.Fn(context.Background(), map[string]any{"reasoning": "search first"})
	if err != nil {
		t.Fatalf("Fn() error = %v", err)
	}
	if got != "Noted: search first" {
		t.Errorf("Fn() = %q", got)
	}

	if _, err := tool.Fn(context.Background(), map[string]any{}); err == nil {
		t.Error("Fn() accepted empty reasoning")
	}
}
