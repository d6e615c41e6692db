// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// probeTimeout bounds a single `<tool> --version` probe.
const probeTimeout = 10 * time.Second

type (
	// Host answers capability queries about the machine.
	Host interface {
		// LookPath returns the absolute path of an executable.
		LookPath(name string) (string, error)
		// Version returns the version output of the executable at path.
		Version(ctx context.Context, path string) (string, error)
	}

	// ExecHost queries the real machine through PATH lookups and version
	// probes.
	ExecHost struct {
		// Path overrides the PATH searched. Empty means the process PATH.
		Path string
	}
)

// NewExecHost returns a Host backed by the process PATH.
func NewExecHost() *ExecHost {
	return &ExecHost{}
}

// LookPath implements Host.
func (h *ExecHost) LookPath(name string) (string, error) {
	if h.Path == "" {
		return exec.LookPath(name)
	}
	return lookPathIn(name, h.Path)
}

// Version runs `<path> --version`, falling back to `<path> version` for
// tools such as go that do not accept the flag.
func (h *ExecHost) Version(ctx context.Context, path string) (string, error) {
	var lastErr error
	for _, args := range [][]string{{"--version"}, {"version"}} {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		out, err := exec.CommandContext(probeCtx, path, args...).CombinedOutput()
		cancel()
		if err == nil && strings.TrimSpace(string(out)) != "" {
			return string(out), nil
		}
		if err == nil {
			err = fmt.Errorf("%s %s printed nothing", path, args[0])
		}
		lastErr = err
	}
	return "", fmt.Errorf("version probe failed: %w", lastErr)
}
