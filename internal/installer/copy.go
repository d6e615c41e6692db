// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cellarhq/cellar/internal/builder"
	"github.com/cellarhq/cellar/pkg/formula"
)

// staged is an artifact copied next to its destination, awaiting rename.
type staged struct {
	tmp     string
	dst     string
	existed bool
}

// placeArtifacts copies every artifact into prefix in two phases. All
// copies are first staged as temp files beside their destinations; only
// when every copy succeeded are they renamed into place. On failure the
// temp files and any destination this run created are removed. The second
// result holds the placed destinations that did not exist before.
func placeArtifacts(artifacts []formula.Step, sourceDir, prefix string) (placed, created []string, steps []builder.StepResult, err error) {
	var all []staged
	for _, a := range artifacts {
		started := time.Now()
		s, err := stageCopy(a.Artifact.Join(sourceDir), a.InstallName().Join(prefix))
		if err != nil {
			for _, prev := range all {
				_ = os.Remove(prev.tmp) // Best-effort cleanup on error path
			}
			return nil, nil, nil, fmt.Errorf("copy artifact %s: %w", a.Artifact, err)
		}
		all = append(all, s)
		steps = append(steps, builder.StepResult{
			Kind:     formula.StepCopyArtifact,
			Command:  a.String(),
			Duration: time.Since(started),
		})
	}

	placed = make([]string, 0, len(all))
	for n, s := range all {
		if err := os.Rename(s.tmp, s.dst); err != nil {
			for _, rest := range all[n:] {
				_ = os.Remove(rest.tmp) // Best-effort cleanup on error path
			}
			for _, done := range all[:n] {
				if !done.existed {
					_ = os.Remove(done.dst) // Best-effort cleanup on error path
				}
			}
			return nil, nil, nil, fmt.Errorf("place artifact %s: %w", s.dst, err)
		}
		slog.Debug("artifact placed", "path", s.dst)
		placed = append(placed, s.dst)
		if !s.existed {
			created = append(created, s.dst)
		}
	}
	return placed, created, steps, nil
}

func stageCopy(src, dst string) (staged, error) {
	info, err := os.Stat(src)
	if err != nil {
		return staged{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return staged{}, err
	}

	in, err := os.Open(src)
	if err != nil {
		return staged{}, err
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".cellar-*")
	if err != nil {
		return staged{}, err
	}
	tmp := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(tmp) // Best-effort cleanup on error path
		return staged{}, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp) // Best-effort cleanup on error path
		return staged{}, err
	}
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		_ = os.Remove(tmp) // Best-effort cleanup on error path
		return staged{}, err
	}

	_, statErr := os.Lstat(dst)
	return staged{tmp: tmp, dst: dst, existed: !errors.Is(statErr, os.ErrNotExist)}, nil
}

// removeCreated undoes the destinations a run created. Files that replaced
// an earlier install stay, since the earlier version is already gone.
func removeCreated(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p) // Best-effort cleanup on error path
	}
}
