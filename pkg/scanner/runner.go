package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/fulmenhq/complic/pkg/logger"
)

// DefaultCommandTimeout bounds one external package-manager invocation.
const DefaultCommandTimeout = 10 * time.Minute

// CommandRunner runs external tools such as mvn and pod.
type CommandRunner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run returns stdout. On failure the error carries trimmed stderr.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Debug("Running command", logger.String("cmd", name+" "+strings.Join(args, " ")), logger.String("dir", dir))
	cmd := exec.CommandContext(rctx, name, args...) // #nosec G204 -- tool names are fixed by the scanners
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
