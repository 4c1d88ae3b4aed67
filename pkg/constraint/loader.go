package constraint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// LoaderConfig controls which files the Loader accepts.
type LoaderConfig struct {
	// MaxFileSize is the largest file accepted, in bytes.
	MaxFileSize int64

	// Extensions lists the accepted file extensions, with the dot.
	Extensions []string

	// SkipHidden ignores files and directories starting with ".".
	SkipHidden bool

	// FollowSymlinks loads files reached through symbolic links.
	FollowSymlinks bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize:    1 << 20,
		Extensions:     []string{".yaml", ".yml", ".json"},
		SkipHidden:     true,
		FollowSymlinks: true,
	}
}

// Loader reads constraint files from disk.
type Loader struct {
	config *LoaderConfig
}

// NewLoader creates a loader. A nil config means DefaultLoaderConfig.
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{config: config}
}

// Load loads a file, or every constraint file under a directory.
func (l *Loader) Load(path string) ([]*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(path, err)
	}
	if info.IsDir() {
		return l.LoadDirectory(path)
	}
	file, err := l.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*File{file}, nil
}

// LoadFile loads a single constraint file.
func (l *Loader) LoadFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	file, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	file.Path = path
	return file, nil
}

// LoadDirectory loads every constraint file under dir, recursively, in
// lexical path order. Files that fail to load are reported in an
// *ErrorList alongside the files that loaded.
func (l *Loader) LoadDirectory(dir string) ([]*File, error) {
	paths, err := l.collect(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &LoadError{FilePath: dir, Message: "no constraint files found in directory"}
	}

	var files []*File
	errList := &ErrorList{}
	for _, path := range paths {
		file, err := l.LoadFile(path)
		if err != nil {
			errList.Add(err)
			continue
		}
		files = append(files, file)
	}

	return files, errList.ToError()
}

// Matches reports whether path has an accepted extension and is not hidden.
func (l *Loader) Matches(path string) bool {
	if l.config.SkipHidden && strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range l.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

func (l *Loader) collect(dir string) ([]string, error) {
	var paths []string
	visited := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !l.config.FollowSymlinks {
				return nil
			}
			realPath, err := filepath.EvalSymlinks(path)
			if err != nil {
				return &LoadError{FilePath: path, Message: "failed to resolve symlink", Cause: err}
			}
			if visited[realPath] {
				return nil
			}
			visited[realPath] = true
		}

		if l.Matches(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, loadErr
		}
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}

	sort.Strings(paths)
	return paths, nil
}

// Parse decodes a constraint file. The format is chosen by the extension of
// name: .json is decoded as JSON, everything else as YAML. Unknown keys are
// rejected in both.
func Parse(data []byte, name string) (*File, error) {
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: name, Message: "file contains invalid UTF-8 encoding"}
	}

	var file File
	if strings.EqualFold(filepath.Ext(name), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, &ParseError{FilePath: name, Message: "JSON parsing failed", Cause: err}
		}
		return &file, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{FilePath: name, Message: "file is empty"}
		}
		return nil, &ParseError{FilePath: name, Line: yamlLine(err), Message: "YAML parsing failed", Cause: err}
	}
	return &file, nil
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// yamlLine extracts the first line number from a yaml.v3 error message.
func yamlLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func statError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &LoadError{FilePath: path, Message: "file not found", Cause: err}
	case os.IsPermission(err):
		return &LoadError{FilePath: path, Message: "permission denied", Cause: err}
	default:
		return &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
}
