// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// GitFetcher clones git sources.
type GitFetcher struct {
	// HomeDir locates ~/.ssh keys. When empty, os.UserHomeDir is used.
	HomeDir string
	// Getenv reads token variables. When nil, os.Getenv is used.
	Getenv func(string) string
}

// NewGitFetcher creates a new Git fetcher.
func NewGitFetcher() *GitFetcher {
	return &GitFetcher{}
}

// Fetch clones req.URL into req.Dest. Without a revision the clone is
// shallow; with one, the full history is fetched and the revision checked
// out.
func (f *GitFetcher) Fetch(ctx context.Context, req Request) (*Checkout, error) {
	if err := os.MkdirAll(filepath.Dir(req.Dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}

	opts := &git.CloneOptions{
		URL:  req.URL,
		Auth: f.authFor(req.URL),
	}
	if req.Revision == "" {
		opts.Depth = 1
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, req.Dest, false, opts)
	if err != nil {
		_ = os.RemoveAll(req.Dest) // Best-effort cleanup of a partial clone
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	if req.Revision == "" {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to get HEAD: %w", err)
		}
		return &Checkout{Dir: req.Dest, Commit: head.Hash().String()}, nil
	}

	hash, err := resolveRevision(repo, req.Revision)
	if err != nil {
		return nil, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return nil, fmt.Errorf("failed to checkout %s: %w", req.Revision, err)
	}
	return &Checkout{Dir: req.Dest, Commit: hash.String()}, nil
}

// resolveRevision finds the commit a revision names. Tags are tried with
// and without a "v" prefix, and branches are looked up on origin since a
// fresh clone only has the default branch locally.
func resolveRevision(repo *git.Repository, revision string) (plumbing.Hash, error) {
	candidates := []string{revision, "refs/tags/" + revision, "origin/" + revision}
	if noV, found := strings.CutPrefix(revision, "v"); found {
		candidates = append(candidates, "refs/tags/"+noV)
	} else {
		candidates = append(candidates, "refs/tags/v"+revision)
	}

	for _, c := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(c))
		if err != nil {
			continue
		}
		// Annotated tags resolve to the tag object; checkout needs the commit.
		if tag, tagErr := repo.TagObject(*hash); tagErr == nil {
			return tag.Target, nil
		}
		return *hash, nil
	}
	return plumbing.ZeroHash, fmt.Errorf("revision %q not found", revision)
}

// authFor picks credentials by URL scheme: SSH keys from ~/.ssh for SSH
// URLs, a token from GITHUB_TOKEN, GITLAB_TOKEN or GIT_TOKEN for HTTPS.
func (f *GitFetcher) authFor(url string) transport.AuthMethod {
	switch {
	case strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "ssh://"):
		return f.trySSHAuth()
	case strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://"):
		return f.tryHTTPAuth()
	default:
		return nil
	}
}

// trySSHAuth attempts to configure SSH authentication.
func (f *GitFetcher) trySSHAuth() transport.AuthMethod {
	homeDir := f.HomeDir
	if homeDir == "" {
		var err error
		if homeDir, err = os.UserHomeDir(); err != nil {
			return nil
		}
	}

	for _, key := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir, ".ssh", key)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
	}
	return nil
}

// tryHTTPAuth attempts to configure HTTP authentication.
func (f *GitFetcher) tryHTTPAuth() transport.AuthMethod {
	getenv := f.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	tokens := []struct{ env, user string }{
		{"GITHUB_TOKEN", "x-access-token"},
		{"GITLAB_TOKEN", "gitlab-ci-token"},
		{"GIT_TOKEN", "git"},
	}
	for _, tok := range tokens {
		if token := getenv(tok.env); token != "" {
			return &http.BasicAuth{Username: tok.user, Password: token}
		}
	}
	return nil
}

// headCommit returns the HEAD commit of the repository containing dir, or
// "" when dir is not inside a git work tree.
func headCommit(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}
