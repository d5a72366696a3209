// Package policy guards schemes with Open Policy Agent.
//
// A Guard wraps a registered scheme and evaluates the engine's allow query,
// data.urigraph.allow by default, before every dereference. The input
// document describes the URI being dereferenced:
//
//	{"scheme": "file", "name": "/etc/app/main.yaml", "fragment": "screen",
//	 "params": {"title": "Home"}, "uri": "file:...", "depth": 2}
//
// The built-in base policy allows everything that no deny rule in package
// urigraph matches, and denies file names containing "..". Additional
// modules add deny rules to the same package:
//
//	package urigraph
//
//	import rego.v1
//
//	deny contains msg if {
//		input.scheme == "local"
//		startswith(input.name, "secret.")
//		msg := "secrets are not readable from configuration"
//	}
//
// A refused dereference fails with an error wrapping ErrDenied, carrying the
// deny messages. Install wraps schemes through Handler.ReplaceScheme, so the
// original handler stays unguarded.
package policy
