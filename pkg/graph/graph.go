package graph

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/openfroyo/urigraph/pkg/curi"
)

// MakeScheme is the scheme whose references become edges between
// templates.
const MakeScheme = "make"

// ErrCycle is returned when templates reference each other in a loop.
// Dereferencing any template on the loop would exceed the depth limit.
var ErrCycle = errors.New("template reference cycle")

// Reference is a compound URI found inside a template.
type Reference struct {
	// From is the template the URI was found in.
	From string `json:"from"`

	// Path is the key path of the string holding the URI.
	Path string `json:"path"`

	// URI is the raw URI text.
	URI string `json:"uri"`

	// Scheme is the referenced scheme.
	Scheme string `json:"scheme"`

	// Target is the referenced template for make: URIs.
	Target string `json:"target,omitempty"`
}

// Node is one template in the graph.
type Node struct {
	Name string `json:"name"`

	// Level is the build order: a template only references templates on
	// lower levels.
	Level int `json:"level"`

	// Dependencies are the templates this one references.
	Dependencies []string `json:"dependencies"`

	// Dependents are the templates that reference this one.
	Dependents []string `json:"dependents"`

	// External are references to schemes other than make:.
	External []Reference `json:"external,omitempty"`
}

// Graph is the reference graph of a templates table.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`

	// Edges are make: references between templates.
	Edges []Reference `json:"edges"`

	// Missing are make: references to templates that do not exist. They
	// dereference to nil.
	Missing []Reference `json:"missing,omitempty"`

	// Levels groups template names by level.
	Levels [][]string `json:"levels"`
}

// Depth returns the number of levels.
func (g *Graph) Depth() int {
	return len(g.Levels)
}

// Build scans templates for compound URIs and orders the templates by
// their make: references. isURI decides which strings are references,
// usually Handler.IsURI. A reference loop fails with ErrCycle.
func Build(templates map[string]any, isURI func(string) bool) (*Graph, error) {
	b := &builder{
		isURI:      isURI,
		templates:  templates,
		dependents: make(map[string][]string),
		inDegree:   make(map[string]int),
		graph: &Graph{
			Nodes:  make(map[string]*Node, len(templates)),
			Edges:  make([]Reference, 0),
			Levels: make([][]string, 0),
		},
	}

	for _, name := range sortedKeys(templates) {
		b.graph.Nodes[name] = &Node{Name: name, Dependencies: []string{}, Dependents: []string{}}
	}
	for _, name := range sortedKeys(templates) {
		if err := b.scan(name, templates[name], ""); err != nil {
			return nil, err
		}
	}

	if err := b.detectCycles(); err != nil {
		return nil, err
	}
	b.computeLevels()

	return b.graph, nil
}

type builder struct {
	isURI     func(string) bool
	templates map[string]any
	graph     *Graph

	// dependents maps a template to those referencing it
	dependents map[string][]string

	// inDegree counts distinct dependencies per template
	inDegree map[string]int
}

// scan walks a template node collecting references.
func (b *builder) scan(from string, node any, path string) error {
	switch n := node.(type) {
	case map[string]any:
		for _, k := range sortedKeys(n) {
			if err := b.scan(from, n[k], joinPath(path, k)); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range n {
			if err := b.scan(from, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case string:
		if b.isURI == nil || !b.isURI(n) {
			return nil
		}
		u, err := curi.Parse(n)
		if err != nil {
			return fmt.Errorf("template %s at %s: %w", from, path, err)
		}
		b.addURI(from, path, u)
	}
	return nil
}

// addURI records u and every URI nested in its parameters and context.
func (b *builder) addURI(from, path string, u *curi.URI) {
	ref := Reference{From: from, Path: path, URI: u.Raw(), Scheme: u.Scheme()}
	node := b.graph.Nodes[from]

	switch {
	case u.Scheme() != MakeScheme:
		node.External = append(node.External, ref)
	case b.graph.Nodes[u.Name()] == nil:
		ref.Target = u.Name()
		b.graph.Missing = append(b.graph.Missing, ref)
	default:
		ref.Target = u.Name()
		b.graph.Edges = append(b.graph.Edges, ref)
		if !slices.Contains(node.Dependencies, ref.Target) {
			node.Dependencies = append(node.Dependencies, ref.Target)
			b.dependents[ref.Target] = append(b.dependents[ref.Target], from)
			b.inDegree[from]++
		}
	}

	for _, p := range u.Params() {
		if nested, ok := p.Value.(*curi.URI); ok {
			b.addURI(from, path, nested)
		}
	}
	if value, ok := u.Context(); ok {
		if nested, ok := value.(*curi.URI); ok {
			b.addURI(from, path, nested)
		}
	}
}

// detectCycles runs a depth-first search over dependencies.
func (b *builder) detectCycles() error {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	for _, name := range sortedKeys(b.templates) {
		if visited[name] {
			continue
		}
		if cycle := b.visit(name, visited, onStack, nil); cycle != nil {
			return fmt.Errorf("%w: %s", ErrCycle, formatCycle(cycle))
		}
	}
	return nil
}

func (b *builder) visit(name string, visited, onStack map[string]bool, path []string) []string {
	visited[name] = true
	onStack[name] = true
	path = append(path, name)

	for _, dep := range b.graph.Nodes[name].Dependencies {
		if !visited[dep] {
			if cycle := b.visit(dep, visited, onStack, path); cycle != nil {
				return cycle
			}
			continue
		}
		if onStack[dep] {
			for i, id := range path {
				if id == dep {
					return append(append([]string(nil), path[i:]...), dep)
				}
			}
		}
	}

	onStack[name] = false
	return nil
}

// computeLevels assigns levels with Kahn's algorithm. Names within a
// level are sorted.
func (b *builder) computeLevels() {
	remaining := make(map[string]int, len(b.inDegree))
	for name, degree := range b.inDegree {
		remaining[name] = degree
	}

	var current []string
	for _, name := range sortedKeys(b.templates) {
		if remaining[name] == 0 {
			current = append(current, name)
		}
	}

	for level := 0; len(current) > 0; level++ {
		b.graph.Levels = append(b.graph.Levels, current)

		var next []string
		for _, name := range current {
			node := b.graph.Nodes[name]
			node.Level = level
			node.Dependents = append(node.Dependents, b.dependents[name]...)
			for _, dependent := range b.dependents[name] {
				remaining[dependent]--
				if remaining[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Strings(next)
		current = next
	}
}

// ToDOT renders the graph in Graphviz DOT format, one cluster per level.
// External references are drawn as dashed edges to the URI text.
func (g *Graph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph Templates {\n")
	sb.WriteString("  rankdir=BT;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for level, names := range g.Levels {
		fmt.Fprintf(&sb, "  subgraph cluster_level_%d {\n", level)
		fmt.Fprintf(&sb, "    label=\"Level %d\";\n", level)
		sb.WriteString("    style=dashed;\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "    %q;\n", name)
		}
		sb.WriteString("  }\n\n")
	}

	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "  %q -> %q;\n", e.From, e.Target)
	}
	for _, m := range g.Missing {
		fmt.Fprintf(&sb, "  %q -> %q [style=dotted, color=red];\n", m.From, m.URI)
	}
	for _, name := range sortedKeys(g.Nodes) {
		for _, ext := range g.Nodes[name].External {
			fmt.Fprintf(&sb, "  %q -> %q [style=dashed, color=gray];\n", name, ext.URI)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// formatCycle formats a cycle path for error messages.
func formatCycle(cycle []string) string {
	return strings.Join(cycle, " -> ")
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
