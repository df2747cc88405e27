// Package gitsource syncs policy rules from a Git repository.
//
// The Source clones (or reuses) a local checkout of a rules repository,
// polls the remote for new commits on the tracked branch, and invokes a
// reload callback whenever HEAD advances. A failing reload keeps the
// previous rules active and is retried on the next poll, so a broken commit
// never takes the gate down.
package gitsource
