// Package config loads the documents and settings a urigraph resolver runs
// with.
//
// # Documents
//
// A Document is a decoded configuration tree. Its top-level "makes" table
// maps template names to configuration nodes; the make: scheme overlays URI
// parameters onto a copy of the named template before building it.
//
// Documents load from four formats, chosen by file extension:
//
//   - YAML (.yaml, .yml) and JSON (.json), decoded with yaml.v3
//   - CUE (.cue), compiled and required to be concrete
//   - Starlark (.star, .starlark), whose public globals form the tree
//
// Starlark scripts get a uri(scheme, name, **params) builtin that returns
// canonical compound URI text:
//
//	db = uri("make", "postgres", port=5432, host=uri("local", "db.host"))
//	makes = {"app": {"class": "app", "database": db}}
//
// Every loaded document is validated against the built-in CUE schema.
// Problems come back as a multierror of *ValidationError carrying file,
// line and column where CUE knows them.
//
// # Watching
//
// Watcher follows a document file with fsnotify, reloading after a short
// debounce. A failed reload keeps the previous document.
//
// # Settings
//
// Settings is the process configuration: resolver limits, the local store
// driver, policy guards and telemetry. LoadSettings overlays a YAML file on
// DefaultSettings and validates the result with go-playground/validator.
package config
