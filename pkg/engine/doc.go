// Package engine dereferences compound URIs.
//
// # Overview
//
// A Handler owns a registry of schemes keyed by name. Dereferencing a URI
// runs these steps:
//
//  1. Parse the text into a curi.URI (malformed text is a KindMalformedURI error).
//  2. Dereference every parameter whose value is a nested URI, using the same handler.
//  3. Look up the scheme by name (KindUnknownScheme when absent).
//  4. For a RelativeScheme with a reference URI recorded on the handler,
//     resolve the target against that reference.
//  5. Call the scheme with the rewritten URI and the resolved parameters.
//
// # Derived handlers
//
// ModifySchemeContext and ReplaceScheme return new handlers. The parent is
// never affected, so a nested resolution scope cannot leak its reference
// URIs or scheme overrides into the caller:
//
//	child := h.ModifySchemeContext(curi.MustParse("file:views/main.yaml"))
//	v, err := child.Dereference(ctx, "file:button.yaml#root")
//
// # Errors
//
// Every error returned by a Handler is a *ResolveError. Errors raised below
// a nested URI keep their kind and are wrapped with the raw text of each
// enclosing URI. Soft failures, such as a missing make template, are not
// errors; schemes report them as a nil value.
//
// # Depth
//
// Nesting depth travels in the context. Exceeding the handler's limit
// (DefaultMaxDepth unless WithMaxDepth is given) fails with
// KindDepthExceeded instead of recursing without bound on cyclic
// configurations.
package engine
