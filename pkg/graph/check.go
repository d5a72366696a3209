package graph

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/engine"
)

// ErrSkipped marks a template that was not built because a template it
// references failed.
var ErrSkipped = errors.New("skipped: a referenced template failed")

// Result is the outcome of building one template.
type Result struct {
	Name     string        `json:"name"`
	Level    int           `json:"level"`
	Value    any           `json:"-"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the template built.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Checker builds every template of a graph through a handler, level by
// level, with the templates of one level built in parallel.
type Checker struct {
	handler     *engine.Handler
	maxParallel int
	logger      zerolog.Logger

	mu      sync.Mutex
	results map[string]*Result
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithParallelism bounds the number of concurrent builds. Values below
// one are ignored.
func WithParallelism(n int) CheckerOption {
	return func(c *Checker) {
		if n > 0 {
			c.maxParallel = n
		}
	}
}

// WithLogger sets the checker's logger.
func WithLogger(logger zerolog.Logger) CheckerOption {
	return func(c *Checker) {
		c.logger = logger.With().Str("component", "template-checker").Logger()
	}
}

// NewChecker creates a checker dereferencing through h. Its make: scheme
// must serve the templates the graph was built from.
func NewChecker(h *engine.Handler, opts ...CheckerOption) *Checker {
	c := &Checker{
		handler:     h,
		maxParallel: runtime.NumCPU(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check builds every template in g and returns the results sorted by
// name. Failures are also returned together as a multierror.
func (c *Checker) Check(ctx context.Context, g *Graph) ([]*Result, error) {
	c.mu.Lock()
	c.results = make(map[string]*Result, len(g.Nodes))
	c.mu.Unlock()

	start := time.Now()
	for level, names := range g.Levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.logger.Debug().Int("level", level).Int("templates", len(names)).Msg("Checking level")
		c.checkLevel(ctx, g, names)
	}

	results := make([]*Result, 0, len(c.results))
	var (
		errs   *multierror.Error
		failed int
	)
	for _, r := range c.results {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	for _, r := range results {
		if r.Err != nil {
			failed++
			errs = multierror.Append(errs, fmt.Errorf("template %s: %w", r.Name, r.Err))
		}
	}

	c.logger.Info().
		Int("templates", len(results)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Template check complete")

	return results, errs.ErrorOrNil()
}

// checkLevel builds the templates of one level with a worker pool.
func (c *Checker) checkLevel(ctx context.Context, g *Graph, names []string) {
	workerCount := c.maxParallel
	if len(names) < workerCount {
		workerCount = len(names)
	}

	queue := make(chan string, len(names))
	for _, name := range names {
		queue <- name
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range queue {
				node := g.Nodes[name]
				if !c.dependenciesOK(node) {
					c.store(&Result{Name: name, Level: node.Level, Err: ErrSkipped})
					continue
				}
				c.store(c.build(ctx, node))

				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}()
	}
	wg.Wait()
}

func (c *Checker) build(ctx context.Context, node *Node) *Result {
	start := time.Now()
	value, err := c.handler.DereferenceURI(ctx, curi.New(MakeScheme, node.Name, nil))
	r := &Result{
		Name:     node.Name,
		Level:    node.Level,
		Value:    value,
		Err:      err,
		Duration: time.Since(start),
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("template", node.Name).Msg("Template failed to build")
	}
	return r
}

func (c *Checker) dependenciesOK(node *Node) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, dep := range node.Dependencies {
		if r, ok := c.results[dep]; !ok || r.Err != nil {
			return false
		}
	}
	return true
}

func (c *Checker) store(r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[r.Name] = r
}
