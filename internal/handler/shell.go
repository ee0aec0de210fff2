package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/creack/pty"
)

// ShellHandler is an ObjectHandler that executes object-macro bodies as
// scripts run by an external interpreter (sh, python3, node, ...) under a
// pseudo-terminal. The macro's arguments arrive as positional arguments;
// its stdout becomes the <call> result.
type ShellHandler struct {
	interpreter string
	args        []string

	mu      sync.RWMutex
	scripts map[string]string
}

// NewShellHandler returns a handler invoking interpreter (plus any fixed
// args) for every call, e.g. NewShellHandler("python3") or
// NewShellHandler("sh", "-e").
func NewShellHandler(interpreter string, args ...string) *ShellHandler {
	return &ShellHandler{
		interpreter: interpreter,
		args:        args,
		scripts:     make(map[string]string),
	}
}

// Load stores the macro body for later Call invocations.
func (h *ShellHandler) Load(name string, code []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scripts[name] = strings.Join(code, "\n") + "\n"
	return nil
}

// Call writes the macro body to a scratch file, runs it under a pty, and
// returns its combined terminal output with trailing whitespace trimmed.
// Cancelling ctx kills the subprocess.
func (h *ShellHandler) Call(ctx context.Context, name string, args []string) (string, error) {
	h.mu.RLock()
	script, ok := h.scripts[name]
	h.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("shell handler: no macro named %q", name)
	}

	dir, err := os.MkdirTemp("", "kivescript-macro-")
	if err != nil {
		return "", fmt.Errorf("shell handler: scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	scriptPath := filepath.Join(dir, name)
	if err := os.WriteFile(scriptPath, []byte(script), 0o700); err != nil {
		return "", fmt.Errorf("shell handler: write script: %w", err)
	}

	cmdArgs := append(append([]string(nil), h.args...), scriptPath)
	cmdArgs = append(cmdArgs, args...)
	cmd := exec.CommandContext(ctx, h.interpreter, cmdArgs...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("shell handler: start pty: %w", err)
	}
	defer ptmx.Close()

	var out bytes.Buffer
	// The pty read side errors with EIO once the child exits; that is the
	// normal end-of-output signal, not a failure.
	_, _ = io.Copy(&out, ptmx)

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("shell handler: macro %q: %w", name, err)
	}

	return strings.TrimRight(strings.ReplaceAll(out.String(), "\r\n", "\n"), " \t\n"), nil
}
