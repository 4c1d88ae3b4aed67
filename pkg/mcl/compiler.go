package mcl

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"mercator-hq/covenant/pkg/mcl/ast"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/eval"
	"mercator-hq/covenant/pkg/mcl/parser"
	"mercator-hq/covenant/pkg/mcl/value"
)

// DefaultCacheSize is the number of parsed expressions a Compiler keeps.
const DefaultCacheSize = 1024

// Program is a parsed expression ready to be evaluated. Programs are
// immutable and may be evaluated concurrently.
type Program struct {
	Expression string
	Root       ast.Node
}

// Evaluate evaluates the program against data.
func (p *Program) Evaluate(data value.Value, ctx *eval.Context) (bool, error) {
	ok, err := eval.Evaluate(data, p.Root, ctx)
	if err != nil {
		return false, mclErrors.AddContext(err, p.Expression)
	}
	return ok, nil
}

// CacheStats reports Compiler cache usage.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Compiler parses expressions and keeps the most recently used trees, keyed
// by expression text. Parse failures are not cached. A Compiler is safe for
// concurrent use.
type Compiler struct {
	mu     sync.Mutex
	cache  *lru.Cache
	parser *parser.Parser
	hits   uint64
	misses uint64
}

// NewCompiler creates a compiler caching up to size expressions. A size of
// zero or less uses DefaultCacheSize.
func NewCompiler(size int) *Compiler {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Compiler{
		cache:  lru.New(size),
		parser: parser.New(),
	}
}

// Compile returns the program for expr, parsing it on a cache miss.
func (c *Compiler) Compile(expr string) (*Program, error) {
	c.mu.Lock()
	if cached, ok := c.cache.Get(expr); ok {
		c.hits++
		c.mu.Unlock()
		return cached.(*Program), nil
	}
	c.misses++
	c.mu.Unlock()

	root, err := c.parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	prog := &Program{Expression: expr, Root: root}

	c.mu.Lock()
	c.cache.Add(expr, prog)
	c.mu.Unlock()

	return prog, nil
}

// Evaluate compiles expr (or reuses the cached tree) and evaluates it.
func (c *Compiler) Evaluate(data value.Value, expr string, ctx *eval.Context) (bool, error) {
	prog, err := c.Compile(expr)
	if err != nil {
		return false, err
	}
	return prog.Evaluate(data, ctx)
}

// Stats returns a snapshot of the cache counters.
func (c *Compiler) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: c.cache.Len(),
	}
}

// Purge drops every cached program.
func (c *Compiler) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Clear()
}
