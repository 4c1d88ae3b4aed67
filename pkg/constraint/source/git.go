package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/constraint"
)

// GitSource loads constraint files from a branch of a Git repository. The
// first Load clones (or opens an existing checkout), later loads pull.
type GitSource struct {
	cfg    config.GitConfig
	loader *constraint.Loader
	auth   transport.AuthMethod
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
	head string
}

// NewGitSource creates a Git source. A nil loader means the default one.
func NewGitSource(cfg config.GitConfig, loader *constraint.Loader, logger *slog.Logger) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, errors.New("git repository cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, errors.New("git branch cannot be empty")
	}
	if cfg.LocalPath == "" {
		return nil, errors.New("git local path cannot be empty")
	}
	auth, err := gitAuth(&cfg.Auth)
	if err != nil {
		return nil, err
	}
	if loader == nil {
		loader = constraint.NewLoader(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSource{
		cfg:    cfg,
		loader: loader,
		auth:   auth,
		logger: logger.With("component", "constraint.git", "repository", cfg.Repository),
	}, nil
}

// Load implements Source.
func (s *GitSource) Load(ctx context.Context) ([]*constraint.File, error) {
	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	return NewFileSource([]string{s.Dir()}, s.loader).Load(ctx)
}

// Name implements Source.
func (s *GitSource) Name() string {
	return s.cfg.Repository + "@" + s.cfg.Branch
}

// Dir is the directory of the checkout that holds the constraint files.
func (s *GitSource) Dir() string {
	return filepath.Join(s.cfg.LocalPath, s.cfg.Path)
}

// Head returns the commit of the last sync, or "" before the first.
func (s *GitSource) Head() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

func (s *GitSource) sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		repo, err := s.open(ctx)
		if err != nil {
			return err
		}
		s.repo = repo
	} else if err := s.pull(ctx); err != nil {
		return err
	}

	ref, err := s.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head := ref.Hash().String(); head != s.head {
		if s.head != "" {
			s.logger.Info("constraint repository updated", "from", s.head, "to", head)
		}
		s.head = head
	}
	return nil
}

// open reuses an existing checkout at LocalPath or clones into it.
func (s *GitSource) open(ctx context.Context) (*gogit.Repository, error) {
	if _, err := os.Stat(filepath.Join(s.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.cfg.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open existing checkout: %w", err)
		}
		s.repo = repo
		// Bring a stale checkout up to date before first use.
		if err := s.pull(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	}

	if err := os.MkdirAll(s.cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkout directory: %w", err)
	}
	repo, err := gogit.PlainCloneContext(ctx, s.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           s.cfg.Repository,
		Auth:          s.auth,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Depth:         s.cfg.Depth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", s.cfg.Repository, err)
	}
	s.logger.Info("constraint repository cloned", "branch", s.cfg.Branch, "path", s.cfg.LocalPath)
	return repo, nil
}

func (s *GitSource) pull(ctx context.Context) error {
	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          s.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull %s: %w", s.cfg.Branch, err)
	}
	return nil
}

// gitAuth builds the transport auth for cfg. "none" returns nil.
func gitAuth(cfg *config.GitAuthConfig) (transport.AuthMethod, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "token":
		if cfg.Token == "" {
			return nil, errors.New("token auth requires non-empty token")
		}
		// Any username works with a personal access token.
		return &http.BasicAuth{Username: "git", Password: cfg.Token}, nil
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, errors.New("ssh auth requires ssh_key_path")
		}
		info, err := os.Stat(cfg.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		auth, err := ssh.NewPublicKeysFromFile("git", cfg.SSHKeyPath, cfg.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return auth, nil
	default:
		return nil, fmt.Errorf("unknown git auth type: %s", cfg.Type)
	}
}
