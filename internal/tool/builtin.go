package tool

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	name        string
	description string
	keywords    []string
	fn          func(ctx context.Context, inputs map[string]any) Result
}

// NewFuncTool creates a tool backed by the given function.
func NewFuncTool(name, description string, keywords []string, fn func(ctx context.Context, inputs map[string]any) Result) *FuncTool {
	return &FuncTool{name: name, description: description, keywords: keywords, fn: fn}
}

// Name implements Tool.
func (t *FuncTool) Name() string { return t.name }

// Description implements Tool.
func (t *FuncTool) Description() string { return t.description }

// Keywords implements Tool.
func (t *FuncTool) Keywords() []string { return t.keywords }

// Execute implements Tool.
func (t *FuncTool) Execute(ctx context.Context, inputs map[string]any) Result {
	return t.fn(ctx, inputs)
}

// RegisterBuiltins adds the builtin tool set to a registry. The workDir
// scopes relative file paths for the file tools and the shell tool.
func RegisterBuiltins(r *Registry, workDir string) error {
	builtins := []Tool{
		NewCalculator(),
		newEchoTool(),
		newReadFileTool(workDir),
		newWriteFileTool(workDir),
		newShellTool(workDir),
	}
	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// NewCalculator returns the arithmetic expression tool.
func NewCalculator() Tool {
	return NewFuncTool(
		"calculator",
		"Evaluate an arithmetic expression (+, -, *, /, parentheses).",
		[]string{"calculate", "math", "arithmetic", "compute", "add", "subtract", "multiply", "divide", "sum", "plus", "minus"},
		func(ctx context.Context, inputs map[string]any) Result {
			expr, ok := inputs["expression"].(string)
			if !ok || expr == "" {
				return Errorf("calculator requires a string %q input", "expression")
			}
			value, err := evalExpression(expr)
			if err != nil {
				return Errorf("evaluate %q: %v", expr, err)
			}
			return Ok(value)
		},
	)
}

func newEchoTool() Tool {
	return NewFuncTool(
		"echo",
		"Return the given text unchanged.",
		[]string{"print", "repeat", "say", "text"},
		func(ctx context.Context, inputs map[string]any) Result {
			text, ok := inputs["text"].(string)
			if !ok {
				return Errorf("echo requires a string %q input", "text")
			}
			return Ok(text)
		},
	)
}

func newReadFileTool(workDir string) Tool {
	return NewFuncTool(
		"read_file",
		"Read a file and return its contents.",
		[]string{"read", "file", "open", "load", "contents"},
		func(ctx context.Context, inputs map[string]any) Result {
			path, ok := inputs["path"].(string)
			if !ok || path == "" {
				return Errorf("read_file requires a string %q input", "path")
			}
			data, err := os.ReadFile(resolvePath(workDir, path))
			if err != nil {
				return Errorf("read file: %v", err)
			}
			return Ok(string(data))
		},
	)
}

func newWriteFileTool(workDir string) Tool {
	return NewFuncTool(
		"write_file",
		"Write content to a file, creating parent directories if needed.",
		[]string{"write", "file", "save", "create", "output"},
		func(ctx context.Context, inputs map[string]any) Result {
			path, ok := inputs["path"].(string)
			if !ok || path == "" {
				return Errorf("write_file requires a string %q input", "path")
			}
			content, ok := inputs["content"].(string)
			if !ok {
				return Errorf("write_file requires a string %q input", "content")
			}
			full := resolvePath(workDir, path)
			if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
				return Errorf("create directory: %v", err)
			}
			if err := os.WriteFile(full, []byte(content), 0644); err != nil {
				return Errorf("write file: %v", err)
			}
			return Ok(full)
		},
	)
}

func newShellTool(workDir string) Tool {
	return NewFuncTool(
		"shell",
		"Execute a shell command and return combined stdout/stderr.",
		[]string{"shell", "command", "run", "execute", "bash", "script"},
		func(ctx context.Context, inputs map[string]any) Result {
			command, ok := inputs["command"].(string)
			if !ok || command == "" {
				return Errorf("shell requires a string %q input", "command")
			}

			timeout := 2 * time.Minute
			if t, ok := inputs["timeout_seconds"].(float64); ok && t > 0 {
				timeout = time.Duration(t) * time.Second
			}
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(runCtx, "sh", "-c", command)
			if workDir != "" {
				cmd.Dir = workDir
			}
			out, err := cmd.CombinedOutput()
			if err != nil {
				return Errorf("command failed: %v\n%s", err, out)
			}
			return Ok(string(out))
		},
	)
}

// resolvePath joins relative paths onto the working directory.
func resolvePath(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return path
	}
	return filepath.Join(workDir, path)
}
