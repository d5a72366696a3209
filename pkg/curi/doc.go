// Package curi implements the compound URI grammar used by urigraph
// configuration documents.
//
// # Overview
//
// A compound URI names a scheme, a scheme-specific name, an optional
// fragment, an ordered list of parameters and an optional trailing context
// value:
//
//	scheme ":" name ["#" fragment] ("+" param ["=" value])* ["@" context]
//
// Examples:
//
//	local:username
//	make:Button+label=Save+enabled=true
//	make:Dialog+body=(make:Label+text=hello)
//	post:open#app/main+view@make:WebView
//	file:../views/main.yaml#makes.Home
//
// # Parameters
//
// Parameter order is preserved. A parameter written without "=value" is
// positional: it takes the value of the trailing "@context" segment, or the
// boolean true when the URI carries no context. Parameter values that start
// with "scheme:" are parsed as nested compound URIs. A nested URI which has
// parameters of its own must be wrapped in parentheses so that its "+"
// separators are not taken as separators of the outer URI. The context
// segment always extends to the end of the string and never needs
// parentheses.
//
// Reserved characters (# + @ = % ( ) and, for literals, a leading
// "scheme:") can be written with percent escapes.
//
// # Resolution
//
// Parsing never dereferences nested URIs. A single parsed tree can be
// resolved any number of times with different handlers; see package engine.
//
// # Thread Safety
//
// URI values are immutable and safe for concurrent use. Derivation methods
// (WithName, WithFragment, WithParams) always return a new URI.
package curi
