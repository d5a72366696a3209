package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage"
	"github.com/open-policy-agent/opa/storage/inmem"
	"github.com/rs/zerolog"
)

// DefaultQuery is the decision consulted when none is configured.
const DefaultQuery = "data.urigraph.allow"

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithQuery sets the allow query. The sibling rule named deny, if any,
// supplies the decision's reasons.
func WithQuery(query string) EngineOption {
	return func(e *Engine) {
		if query != "" {
			e.query = query
		}
	}
}

// WithData makes data available to policies under the data root.
func WithData(data map[string]any) EngineOption {
	return func(e *Engine) {
		e.store = inmem.NewFromObject(data)
	}
}

// Engine compiles policies and answers allow queries.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	store    storage.Store
	logger   zerolog.Logger
	query    string

	allow rego.PreparedEvalQuery
	deny  *rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the built-in policies loaded.
func NewEngine(ctx context.Context, logger zerolog.Logger, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		policies: make(map[string]*Policy),
		store:    inmem.New(),
		logger:   logger.With().Str("component", "policy-engine").Logger(),
		query:    DefaultQuery,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, p := range GetBuiltinPolicies() {
		e.policies[p.Name] = &p
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.compile(ctx); err != nil {
		return nil, fmt.Errorf("failed to load built-in policies: %w", err)
	}

	return e, nil
}

// Query returns the allow query.
func (e *Engine) Query() string {
	return e.query
}

// AddPolicies adds or replaces policies and recompiles. On error the
// previous policy set stays in effect.
func (e *Engine) AddPolicies(ctx context.Context, policies ...Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	previous := make(map[string]*Policy, len(e.policies))
	for k, v := range e.policies {
		previous[k] = v
	}

	for i := range policies {
		p := policies[i]
		if _, err := ast.ParseModule(p.Name, p.Rego); err != nil {
			return fmt.Errorf("failed to parse policy %s: %w", p.Name, err)
		}
		e.policies[p.Name] = &p
	}

	if err := e.compile(ctx); err != nil {
		e.policies = previous
		return err
	}

	e.logger.Info().
		Int("count", len(policies)).
		Msg("Policies loaded successfully")

	return nil
}

// LoadPolicies loads policy files and directories.
func (e *Engine) LoadPolicies(ctx context.Context, paths []string) error {
	policies, err := NewLoader(e.logger).LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}
	return e.AddPolicies(ctx, policies...)
}

// SetEnabled enables or disables a policy by name.
func (e *Engine) SetEnabled(ctx context.Context, name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}
	if p.Enabled == enabled {
		return nil
	}

	p.Enabled = enabled
	if err := e.compile(ctx); err != nil {
		p.Enabled = !enabled
		return err
	}

	e.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Policy toggled")
	return nil
}

// ListPolicies returns all loaded policies sorted by name.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, p := range e.policies {
		policies = append(policies, *p)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })

	return policies
}

// Decide evaluates the allow query against input. An undefined result
// denies.
func (e *Engine) Decide(ctx context.Context, input *Input) (*Decision, error) {
	e.mu.RLock()
	allow, deny := e.allow, e.deny
	e.mu.RUnlock()

	rs, err := allow.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	decision := &Decision{Allowed: rs.Allowed()}
	if deny != nil {
		reasons, err := deny.Eval(ctx, rego.EvalInput(input))
		if err != nil {
			return nil, fmt.Errorf("policy evaluation error: %w", err)
		}
		decision.Reasons = collectReasons(reasons)
	}

	e.logger.Debug().
		Str("scheme", input.Scheme).
		Str("uri", input.URI).
		Bool("allowed", decision.Allowed).
		Strs("reasons", decision.Reasons).
		Msg("Policy decision")

	return decision, nil
}

// compile prepares the allow and deny queries over the enabled policies.
// The caller holds mu.
func (e *Engine) compile(ctx context.Context) error {
	var modules []func(*rego.Rego)
	for _, p := range e.policies {
		if p.Enabled {
			modules = append(modules, rego.Module(p.Name, p.Rego))
		}
	}

	allow, err := rego.New(append(modules, rego.Query(e.query), rego.Store(e.store))...).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare query %s: %w", e.query, err)
	}

	var deny *rego.PreparedEvalQuery
	if q := denyQuery(e.query); q != "" {
		prepared, err := rego.New(append(modules, rego.Query(q), rego.Store(e.store))...).PrepareForEval(ctx)
		if err == nil {
			deny = &prepared
		}
	}

	e.allow, e.deny = allow, deny

	e.logger.Debug().
		Int("modules", len(modules)).
		Str("query", e.query).
		Msg("Policies compiled successfully")

	return nil
}

// denyQuery returns the deny rule next to an allow query:
// data.urigraph.allow becomes data.urigraph.deny.
func denyQuery(query string) string {
	i := strings.LastIndexByte(query, '.')
	if i < 0 || query[i+1:] == "deny" {
		return ""
	}
	return query[:i] + ".deny"
}

func collectReasons(rs rego.ResultSet) []string {
	var reasons []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			set, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, item := range set {
				reasons = append(reasons, fmt.Sprint(item))
			}
		}
	}
	sort.Strings(reasons)
	return reasons
}
