package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"optable/adscript/pkg/config"
)

// createTestRepo creates a rules repository with an initial commit.
func createTestRepo(t *testing.T, dir, rules string) *gogit.Repository {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	commitRules(t, repo, dir, rules)
	return repo
}

// commitRules writes rules.yaml and commits it.
func commitRules(t *testing.T, repo *gogit.Repository, dir, rules string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte(rules), 0644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add("rules.yaml"); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	_, err = worktree.Commit("update rules", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func testConfig(sourceDir, localPath string) *config.GitPolicyConfig {
	return &config.GitPolicyConfig{
		Enabled:      true,
		Repository:   sourceDir,
		Branch:       "master",
		LocalPath:    localPath,
		PollInterval: time.Minute,
	}
}

func TestNew(t *testing.T) {
	reload := func(string) error { return nil }

	tests := []struct {
		name    string
		cfg     *config.GitPolicyConfig
		reload  ReloadFunc
		wantErr bool
	}{
		{
			name:    "nil config",
			cfg:     nil,
			reload:  reload,
			wantErr: true,
		},
		{
			name: "empty repository",
			cfg: &config.GitPolicyConfig{
				Branch: "main",
			},
			reload:  reload,
			wantErr: true,
		},
		{
			name: "empty branch",
			cfg: &config.GitPolicyConfig{
				Repository: "https://example.com/rules.git",
			},
			reload:  reload,
			wantErr: true,
		},
		{
			name: "nil reload",
			cfg: &config.GitPolicyConfig{
				Repository: "https://example.com/rules.git",
				Branch:     "main",
			},
			reload:  nil,
			wantErr: true,
		},
		{
			name: "valid",
			cfg: &config.GitPolicyConfig{
				Repository: "https://example.com/rules.git",
				Branch:     "main",
			},
			reload:  reload,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.cfg, "rules.yaml", tt.reload, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && src == nil {
				t.Fatal("New() returned nil source")
			}
		})
	}
}

func TestSource_SyncClonesAndReloads(t *testing.T) {
	sourceDir := t.TempDir()
	createTestRepo(t, sourceDir, "default: allow\n")

	localPath := filepath.Join(t.TempDir(), "checkout")
	var reloaded []string
	src, err := New(testConfig(sourceDir, localPath), "rules.yaml", func(path string) error {
		reloaded = append(reloaded, path)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := src.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	if len(reloaded) != 1 {
		t.Fatalf("reload called %d times, want 1", len(reloaded))
	}
	if reloaded[0] != src.RulesPath() {
		t.Errorf("reload path = %q, want %q", reloaded[0], src.RulesPath())
	}

	data, err := os.ReadFile(src.RulesPath())
	if err != nil {
		t.Fatalf("failed to read checked-out rules: %v", err)
	}
	if string(data) != "default: allow\n" {
		t.Errorf("checked-out rules = %q, want %q", data, "default: allow\n")
	}
}

func TestSource_SyncReusesExistingCheckout(t *testing.T) {
	sourceDir := t.TempDir()
	createTestRepo(t, sourceDir, "default: allow\n")

	localPath := filepath.Join(t.TempDir(), "checkout")
	reloads := 0
	reload := func(string) error {
		reloads++
		return nil
	}

	src, err := New(testConfig(sourceDir, localPath), "rules.yaml", reload, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := src.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync() failed: %v", err)
	}

	// A second source over the same checkout opens it instead of cloning.
	src2, err := New(testConfig(sourceDir, localPath), "rules.yaml", reload, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := src2.Sync(context.Background()); err != nil {
		t.Fatalf("second Sync() failed: %v", err)
	}

	if reloads != 2 {
		t.Errorf("reload called %d times, want 2", reloads)
	}
}

func TestSource_PollReloadsOnNewCommit(t *testing.T) {
	sourceDir := t.TempDir()
	sourceRepo := createTestRepo(t, sourceDir, "default: allow\n")

	localPath := filepath.Join(t.TempDir(), "checkout")
	var lastRules string
	src, err := New(testConfig(sourceDir, localPath), "rules.yaml", func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		lastRules = string(data)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := src.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	// No upstream change: poll is a no-op.
	if err := src.poll(context.Background()); err != nil {
		t.Fatalf("poll() failed: %v", err)
	}
	if lastRules != "default: allow\n" {
		t.Fatalf("rules changed without upstream commit: %q", lastRules)
	}

	commitRules(t, sourceRepo, sourceDir, "default: deny\n")

	if err := src.poll(context.Background()); err != nil {
		t.Fatalf("poll() after upstream commit failed: %v", err)
	}
	if lastRules != "default: deny\n" {
		t.Errorf("rules after poll = %q, want %q", lastRules, "default: deny\n")
	}
}

func TestSource_ReloadFailureRetriesNextPoll(t *testing.T) {
	sourceDir := t.TempDir()
	sourceRepo := createTestRepo(t, sourceDir, "default: allow\n")

	localPath := filepath.Join(t.TempDir(), "checkout")
	fail := false
	reloads := 0
	src, err := New(testConfig(sourceDir, localPath), "rules.yaml", func(string) error {
		reloads++
		if fail {
			return os.ErrPermission
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := src.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	commitRules(t, sourceRepo, sourceDir, "default: deny\n")

	fail = true
	if err := src.poll(context.Background()); err == nil {
		t.Fatal("poll() should fail when reload fails")
	}

	// The failed reload did not advance the tracked commit, so the next
	// poll retries it.
	fail = false
	if err := src.poll(context.Background()); err != nil {
		t.Fatalf("retry poll() failed: %v", err)
	}
	if reloads != 3 {
		t.Errorf("reload called %d times, want 3", reloads)
	}
}
