package source

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/telemetry/logging"
)

// createUpstream initializes a repository on branch main with sagaYAML
// committed under constraints/.
func createUpstream(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git is not installed")
		}
	}

	dir := t.TempDir()
	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "constraints"), 0o755); err != nil {
		t.Fatal(err)
	}
	commitFile(t, repo, dir, "constraints/saga.yaml", sagaYAML)
	return dir, repo
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content string) string {
	t.Helper()
	writeFile(t, dir, name, content)

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("failed to add %s: %v", name, err)
	}
	hash, err := worktree.Commit("add "+name, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

func gitConfig(upstream, localPath string) config.GitConfig {
	return config.GitConfig{
		Repository: upstream,
		Branch:     "main",
		Path:       "constraints",
		LocalPath:  localPath,
		Auth:       config.GitAuthConfig{Type: "none"},
	}
}

func TestNewGitSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.GitConfig
	}{
		{"no repository", config.GitConfig{Branch: "main", LocalPath: "x"}},
		{"no branch", config.GitConfig{Repository: "r", LocalPath: "x"}},
		{"no local path", config.GitConfig{Repository: "r", Branch: "main"}},
		{"token without token", config.GitConfig{Repository: "r", Branch: "main", LocalPath: "x", Auth: config.GitAuthConfig{Type: "token"}}},
		{"ssh without key", config.GitConfig{Repository: "r", Branch: "main", LocalPath: "x", Auth: config.GitAuthConfig{Type: "ssh"}}},
		{"ssh key missing", config.GitConfig{Repository: "r", Branch: "main", LocalPath: "x", Auth: config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/nonexistent/id_ed25519"}}},
		{"unknown auth", config.GitConfig{Repository: "r", Branch: "main", LocalPath: "x", Auth: config.GitAuthConfig{Type: "kerberos"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGitSource(tt.cfg, nil, nil); err == nil {
				t.Error("NewGitSource() expected error")
			}
		})
	}
}

func TestGitAuth_SSHKeyPermissions(t *testing.T) {
	key := writeFile(t, t.TempDir(), "id_ed25519", "not a key")
	if err := os.Chmod(key, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := gitAuth(&config.GitAuthConfig{Type: "ssh", SSHKeyPath: key}); err == nil {
		t.Error("expected an error for a world-readable key")
	}
}

func TestGitAuth_Token(t *testing.T) {
	auth, err := gitAuth(&config.GitAuthConfig{Type: "token", Token: "secret"})
	if err != nil {
		t.Fatalf("gitAuth() error = %v", err)
	}
	if auth == nil || auth.Name() != "http-basic-auth" {
		t.Errorf("expected basic auth, got %v", auth)
	}
}

func TestGitSource_CloneAndPull(t *testing.T) {
	upstream, repo := createUpstream(t)
	src, err := NewGitSource(gitConfig(upstream, filepath.Join(t.TempDir(), "checkout")), nil, logging.Discard())
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}
	ctx := context.Background()

	files, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(files) != 1 || files[0].SchemaID != "payment-saga" {
		t.Fatalf("Load() = %d files, want payment-saga only", len(files))
	}
	first := src.Head()
	if first == "" {
		t.Fatal("Head() empty after Load")
	}

	head := commitFile(t, repo, upstream, "constraints/chain.yaml", chainYAML)
	files, err = src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after commit error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Load() after commit = %d files, want 2", len(files))
	}
	if src.Head() != head {
		t.Errorf("Head() = %s, want %s", src.Head(), head)
	}
	if src.Name() != upstream+"@main" {
		t.Errorf("Name() = %s", src.Name())
	}
}

func TestGitSource_ReusesCheckout(t *testing.T) {
	upstream, _ := createUpstream(t)
	checkout := filepath.Join(t.TempDir(), "checkout")

	first, err := NewGitSource(gitConfig(upstream, checkout), nil, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Load(context.Background()); err != nil {
		t.Fatalf("first Load() error = %v", err)
	}

	second, err := NewGitSource(gitConfig(upstream, checkout), nil, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	files, err := second.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() over existing checkout error = %v", err)
	}
	if len(files) != 1 || second.Head() != first.Head() {
		t.Errorf("reopened checkout: %d files, head %s vs %s", len(files), second.Head(), first.Head())
	}
}

func TestGitSource_CloneFailure(t *testing.T) {
	src, err := NewGitSource(gitConfig(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "checkout")), nil, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Load(context.Background()); err == nil {
		t.Error("Load() expected clone error")
	}
	if src.Head() != "" {
		t.Errorf("Head() = %q after failed clone", src.Head())
	}
}

func TestReloader_Poll(t *testing.T) {
	var reloads atomic.Int32
	r := NewReloader(NewMemorySource(file("a", "true")), logging.Discard(),
		OnReload(func(*Set) { reloads.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Poll(ctx, 10*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for reloads.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 reloads, got %d", reloads.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Poll() error = %v", err)
	}
	if r.Current() == nil {
		t.Error("expected a Set in service")
	}

	if err := r.Poll(context.Background(), 0); err == nil {
		t.Error("Poll() with zero interval expected error")
	}
}
