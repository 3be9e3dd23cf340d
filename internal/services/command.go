package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes an external binary. Collaborators accept one so
// tests can substitute a fake.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// RunCommand executes name with args and folds combined output into the error.
func RunCommand(ctx context.Context, name string, args ...string) error {
	return run(exec.CommandContext(ctx, name, args...))
}

// RunnerWithEnv returns a CommandRunner that adds env ("KEY=value") to the
// inherited environment. Keys already set by the caller's environment win.
func RunnerWithEnv(env ...string) CommandRunner {
	return func(ctx context.Context, name string, args ...string) error {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Env = os.Environ()
		for _, kv := range env {
			key, _, _ := strings.Cut(kv, "=")
			if _, set := os.LookupEnv(key); !set {
				cmd.Env = append(cmd.Env, kv)
			}
		}
		return run(cmd)
	}
}

func run(cmd *exec.Cmd) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, lastLines(strings.TrimSpace(string(output)), 20))
	}
	return nil
}

func lastLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
