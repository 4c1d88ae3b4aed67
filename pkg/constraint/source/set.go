package source

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"mercator-hq/covenant/pkg/constraint"
)

// Set is an immutable collection of constraint files keyed by schema ID.
// A reload builds a new Set and swaps it in; readers never see a
// half-loaded collection.
type Set struct {
	files    map[string]*constraint.File
	order    []string
	version  string
	loadedAt time.Time
}

// NewSet builds a set. Two files declaring the same schema ID are an
// error.
func NewSet(files []*constraint.File) (*Set, error) {
	s := &Set{
		files:    make(map[string]*constraint.File, len(files)),
		order:    make([]string, 0, len(files)),
		loadedAt: time.Now(),
	}
	for _, f := range files {
		if f == nil {
			return nil, fmt.Errorf("constraint file is nil")
		}
		if f.SchemaID == "" {
			return nil, fmt.Errorf("%s: schema_id is empty", f.Name())
		}
		if prev, ok := s.files[f.SchemaID]; ok {
			return nil, fmt.Errorf("schema %q declared by both %s and %s", f.SchemaID, prev.Name(), f.Name())
		}
		s.files[f.SchemaID] = f
		s.order = append(s.order, f.SchemaID)
	}
	sort.Strings(s.order)
	s.version = s.hash()
	return s, nil
}

// Get returns the file for schemaID.
func (s *Set) Get(schemaID string) (*constraint.File, bool) {
	f, ok := s.files[schemaID]
	return f, ok
}

// Files returns the files ordered by schema ID.
func (s *Set) Files() []*constraint.File {
	out := make([]*constraint.File, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.files[id])
	}
	return out
}

// SchemaIDs returns the schema IDs in order.
func (s *Set) SchemaIDs() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of files.
func (s *Set) Len() int {
	return len(s.order)
}

// Constraints returns the total number of constraints.
func (s *Set) Constraints() int {
	n := 0
	for _, f := range s.files {
		n += len(f.Constraints)
	}
	return n
}

// Version identifies the set's content. It changes when a file is added or
// removed, or when a constraint's expression or severity changes.
func (s *Set) Version() string {
	return s.version
}

// LoadedAt returns when the set was built.
func (s *Set) LoadedAt() time.Time {
	return s.loadedAt
}

func (s *Set) hash() string {
	h := sha256.New()
	for _, id := range s.order {
		f := s.files[id]
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", f.SchemaID, f.ContractVersion, f.ExpressionVersion)
		for _, c := range f.Constraints {
			fmt.Fprintf(h, "%s\x00%s\x00%s\x00", c.ID, c.Expression, c.EffectiveSeverity())
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
