// Package schemes implements the built-in compound URI schemes.
//
//	local:name              handle on a stored value
//	make:name+k=v           build a copy of a template with k overlaid
//	post:name#a/b+k=v       message addressed to target path a, b
//	repr:int+value=42       best-effort representation conversion
//	file:path#key.path      node from a document, relative paths allowed
//
// Missing templates and missing document key paths yield nil without error.
// A repr: conversion that cannot be done returns the value unchanged.
// Builder failures are reported as construction failures.
package schemes
