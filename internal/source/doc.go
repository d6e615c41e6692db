// SPDX-License-Identifier: MPL-2.0

// Package source materializes formula sources into a build work dir.
//
// Git sources are cloned with go-git; when a revision is pinned, exactly that
// commit, tag or branch is checked out. Local sources copy a directory tree.
// Every failure is reported as a *SourceFetchError.
package source
