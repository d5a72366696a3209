// Package graph analyses the references between make templates.
//
// Build scans a templates table for strings that are compound URIs and
// turns make: references into edges, so a reference loop is reported
// before anything is dereferenced:
//
//	g, err := graph.Build(doc.Makes(), h.IsURI)
//	if errors.Is(err, graph.ErrCycle) {
//		// e.g. "template reference cycle: Page -> Header -> Page"
//	}
//
// Templates are grouped into levels: a template only references templates
// on lower levels. Checker builds every template through a handler, level
// by level and in parallel within a level, skipping templates whose
// dependencies failed.
package graph
