// SPDX-License-Identifier: MPL-2.0

// Package pipeline sequences one install: load the formula, resolve its
// dependencies, build it in a fresh work dir and install it into the
// prefix. Any failing stage ends the run; there are no retries.
package pipeline
