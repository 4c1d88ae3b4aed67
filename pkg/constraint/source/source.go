package source

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/covenant/pkg/constraint"
)

// Source produces the constraint files of a Set.
type Source interface {
	// Load reads every file. A partial result is returned alongside the
	// error when some files failed.
	Load(ctx context.Context) ([]*constraint.File, error)

	// Name describes the source in logs.
	Name() string
}

// FileSource loads constraint files from paths on disk. Each path is a
// file or a directory scanned recursively.
type FileSource struct {
	paths  []string
	loader *constraint.Loader
}

// NewFileSource creates a file source. A nil loader means the default one.
func NewFileSource(paths []string, loader *constraint.Loader) *FileSource {
	if loader == nil {
		loader = constraint.NewLoader(nil)
	}
	return &FileSource{paths: paths, loader: loader}
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) ([]*constraint.File, error) {
	if len(s.paths) == 0 {
		return nil, fmt.Errorf("no constraint paths configured")
	}

	var files []*constraint.File
	errs := &constraint.ErrorList{}
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		loaded, err := s.loader.Load(path)
		files = append(files, loaded...)
		errs.Add(err)
	}
	return files, errs.ToError()
}

// Name implements Source.
func (s *FileSource) Name() string {
	return strings.Join(s.paths, ",")
}

// Paths returns the configured paths.
func (s *FileSource) Paths() []string {
	return s.paths
}

// Loader returns the loader, whose filters the watcher shares.
func (s *FileSource) Loader() *constraint.Loader {
	return s.loader
}

// MemorySource serves a fixed list of files.
type MemorySource struct {
	files []*constraint.File
}

// NewMemorySource creates a source over files.
func NewMemorySource(files ...*constraint.File) *MemorySource {
	return &MemorySource{files: files}
}

// Load implements Source.
func (s *MemorySource) Load(ctx context.Context) ([]*constraint.File, error) {
	return s.files, ctx.Err()
}

// Name implements Source.
func (s *MemorySource) Name() string {
	return "memory"
}
