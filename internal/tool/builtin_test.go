package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEvalExpression(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"7+5", 12},
		{"2 * 3 + 4", 10},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"-5 + 3", -2},
		{"10 / 4", 2.5},
		{"1.5 * 2", 3},
		{"-(2 + 3)", -5},
	}

	for _, tt := range tests {
		got, err := evalExpression(tt.expr)
		if err != nil {
			t.Errorf("evalExpression(%q): unexpected error %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("evalExpression(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	bad := []string{"", "1 +", "(1 + 2", "1 / 0", "abc", "1 ** 2"}
	for _, expr := range bad {
		if _, err := evalExpression(expr); err == nil {
			t.Errorf("evalExpression(%q): expected error", expr)
		}
	}
}

func TestCalculatorTool(t *testing.T) {
	calc := NewCalculator()

	res := calc.Execute(context.Background(), map[string]any{"expression": "7+5"})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if res.Data != float64(12) {
		t.Errorf("expected 12, got %v", res.Data)
	}

	res = calc.Execute(context.Background(), map[string]any{})
	if res.Success {
		t.Error("expected failure without expression input")
	}
}

func TestReadWriteFileTools(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	if err := RegisterBuiltins(r, dir); err != nil {
		t.Fatalf("register builtins: %v", err)
	}

	write, _ := r.Get("write_file")
	res := write.Execute(context.Background(), map[string]any{
		"path":    "sub/out.txt",
		"content": "hello",
	})
	if !res.Success {
		t.Fatalf("write failed: %s", res.Error)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sub", "out.txt"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("file not written correctly: %v %q", err, data)
	}

	read, _ := r.Get("read_file")
	res = read.Execute(context.Background(), map[string]any{"path": "sub/out.txt"})
	if !res.Success || res.Data != "hello" {
		t.Errorf("read failed: %+v", res)
	}
}

func TestShellTool(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBuiltins(r, t.TempDir()); err != nil {
		t.Fatalf("register builtins: %v", err)
	}

	shell, _ := r.Get("shell")
	res := shell.Execute(context.Background(), map[string]any{"command": "echo shelltest"})
	if !res.Success {
		t.Fatalf("shell failed: %s", res.Error)
	}
	if !strings.Contains(res.Data.(string), "shelltest") {
		t.Errorf("unexpected output: %q", res.Data)
	}

	res = shell.Execute(context.Background(), map[string]any{"command": "exit 3"})
	if res.Success {
		t.Error("expected failure for non-zero exit")
	}
}

func TestEchoTool(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBuiltins(r, ""); err != nil {
		t.Fatalf("register builtins: %v", err)
	}

	echo, _ := r.Get("echo")
	res := echo.Execute(context.Background(), map[string]any{"text": "hi"})
	if !res.Success || res.Data != "hi" {
		t.Errorf("unexpected result: %+v", res)
	}
}
