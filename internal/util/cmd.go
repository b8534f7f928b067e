package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CmdSpec describes a helper process to run.
type CmdSpec struct {
	Path string
	Args []string
	Env  []string // extra KEY=VALUE pairs; nil inherits
	Dir  string
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
}

// Run executes the command and waits for it. On a non-zero exit the error
// carries the exit code and the trimmed stderr.
func Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CmdResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	res.Code = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Code = exitErr.ExitCode()
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return res, fmt.Errorf("%s failed (exit %d): %s: %w", ShellQuote(spec.Path, spec.Args), res.Code, msg, err)
	}
	return res, fmt.Errorf("%s failed (exit %d): %w", ShellQuote(spec.Path, spec.Args), res.Code, err)
}

// ShellQuote returns a printable shell-like command string for logging.
func ShellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
