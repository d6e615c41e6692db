// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cellarhq/cellar/pkg/formula"
)

// ErrSourceFetch is the sentinel error wrapped by SourceFetchError.
var ErrSourceFetch = errors.New("source fetch failed")

type (
	// Request describes one source to materialize.
	Request struct {
		// URL is the git URL or local directory.
		URL string
		// Kind selects the fetcher.
		Kind formula.SourceKind
		// Revision pins a git commit, tag or branch. Empty means the
		// remote's default branch.
		Revision string
		// Dest is the directory to create. It must not exist or be empty.
		Dest string
	}

	// Checkout is a materialized source.
	Checkout struct {
		// Dir is the source root, equal to Request.Dest.
		Dir string
		// Commit is the resolved commit hash, empty when unknown.
		Commit string
	}

	// Fetcher materializes one kind of source.
	Fetcher interface {
		Fetch(ctx context.Context, req Request) (*Checkout, error)
	}

	// Materializer dispatches requests to the fetcher of their kind.
	Materializer struct {
		fetchers map[formula.SourceKind]Fetcher
	}

	// SourceFetchError is returned when a source cannot be materialized.
	SourceFetchError struct {
		URL      string
		Revision string
		Err      error
	}
)

// NewMaterializer returns a Materializer with the git and local fetchers.
func NewMaterializer() *Materializer {
	return &Materializer{fetchers: map[formula.SourceKind]Fetcher{
		formula.SourceGit:   NewGitFetcher(),
		formula.SourceLocal: NewLocalFetcher(),
	}}
}

// Register sets the fetcher used for kind.
func (m *Materializer) Register(kind formula.SourceKind, f Fetcher) {
	m.fetchers[kind] = f
}

// Fetch materializes req with the fetcher registered for its kind.
func (m *Materializer) Fetch(ctx context.Context, req Request) (*Checkout, error) {
	f, ok := m.fetchers[req.Kind]
	if !ok {
		return nil, &SourceFetchError{URL: req.URL, Revision: req.Revision, Err: fmt.Errorf("no fetcher for source kind %q", req.Kind)}
	}
	if err := prepareDest(req.Dest); err != nil {
		return nil, &SourceFetchError{URL: req.URL, Revision: req.Revision, Err: err}
	}

	slog.Debug("fetching source", "url", req.URL, "kind", req.Kind, "revision", req.Revision, "dest", req.Dest)
	checkout, err := f.Fetch(ctx, req)
	if err != nil {
		var sfe *SourceFetchError
		if errors.As(err, &sfe) {
			return nil, err
		}
		return nil, &SourceFetchError{URL: req.URL, Revision: req.Revision, Err: err}
	}
	return checkout, nil
}

// Error implements the error interface.
func (e *SourceFetchError) Error() string {
	if e.Revision != "" {
		return fmt.Sprintf("fetch %s at %s: %v", e.URL, e.Revision, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns ErrSourceFetch and the underlying cause.
func (e *SourceFetchError) Unwrap() []error { return []error{ErrSourceFetch, e.Err} }

// prepareDest checks that dest is absent or an empty directory.
func prepareDest(dest string) error {
	if dest == "" {
		return errors.New("no destination directory")
	}
	entries, err := os.ReadDir(dest)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("inspect destination: %w", err)
	case len(entries) > 0:
		return fmt.Errorf("destination %s is not empty", dest)
	}
	return nil
}
