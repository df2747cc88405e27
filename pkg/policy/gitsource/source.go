package gitsource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"optable/adscript/pkg/config"
)

// ReloadFunc is called with the checked-out rules file path whenever new
// commits are pulled. If it returns an error the previous rules stay active
// and the source retries on the next poll.
type ReloadFunc func(rulesPath string) error

// Source keeps a local checkout of a policy rules repository in sync with its
// remote and triggers a reload when the tracked branch advances.
type Source struct {
	config   *config.GitPolicyConfig
	rulesRel string
	reload   ReloadFunc
	logger   *slog.Logger

	mu      sync.Mutex
	repo    *gogit.Repository
	lastSHA string
}

// New creates a Git rules source. rulesRel is the rules file path relative to
// the repository root.
func New(cfg *config.GitPolicyConfig, rulesRel string, reload ReloadFunc, logger *slog.Logger) (*Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if reload == nil {
		return nil, fmt.Errorf("reload func cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		config:   cfg,
		rulesRel: rulesRel,
		reload:   reload,
		logger:   logger.With("component", "policy.gitsource"),
	}, nil
}

// RulesPath returns the absolute path of the checked-out rules file.
func (s *Source) RulesPath() string {
	return filepath.Join(s.config.LocalPath, s.rulesRel)
}

// Sync clones the repository if needed, or opens the existing checkout, and
// performs an initial reload. It must be called before Run.
func (s *Source) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.CleanOnStart {
		if err := os.RemoveAll(s.config.LocalPath); err != nil {
			return fmt.Errorf("failed to clean existing checkout: %w", err)
		}
	}

	// Reuse an existing checkout when present.
	if _, err := os.Stat(filepath.Join(s.config.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.config.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing checkout: %w", err)
		}
		s.repo = repo
	} else {
		if err := os.MkdirAll(s.config.LocalPath, 0755); err != nil {
			return fmt.Errorf("failed to create checkout directory: %w", err)
		}

		repo, err := gogit.PlainCloneContext(ctx, s.config.LocalPath, false, &gogit.CloneOptions{
			URL:           s.config.Repository,
			ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
			SingleBranch:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to clone %q: %w", s.config.Repository, err)
		}
		s.repo = repo
	}

	head, err := s.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	s.lastSHA = head.Hash().String()

	s.logger.Info("policy rules checkout ready",
		"repository", s.config.Repository,
		"branch", s.config.Branch,
		"commit", s.lastSHA,
	)

	return s.reload(s.RulesPath())
}

// Run polls the remote at the configured interval and reloads rules when the
// tracked branch advances. It blocks until the context is cancelled.
func (s *Source) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("policy rules source stopped")
			return nil
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.logger.Error("policy rules poll failed", "error", err)
			}
		}
	}
}

// poll pulls the remote and triggers a reload when HEAD moved.
func (s *Source) poll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return fmt.Errorf("source not initialized, call Sync() first")
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName: "origin",
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to pull: %w", err)
	}

	head, err := s.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	sha := head.Hash().String()

	if sha == s.lastSHA {
		return nil
	}

	s.logger.Info("policy rules updated upstream",
		"from", s.lastSHA,
		"to", sha,
	)

	if err := s.reload(s.RulesPath()); err != nil {
		// Previous rules stay active; retry on next poll.
		return fmt.Errorf("reload failed, keeping previous rules: %w", err)
	}

	s.lastSHA = sha
	return nil
}
