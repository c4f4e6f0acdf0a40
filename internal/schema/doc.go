// Package schema resolves declared type expressions into type descriptors.
//
// The grammar is small and resolved by recursive descent:
//
//	type := "int" | "float" | "string" | "bool"
//	      | "array<" type ">"
//	      | "object:" identifier
//
// Object references are resolved against a Registry of named object
// schemas. Resolution is pure: it performs no I/O, never mutates the
// registry, and happens exactly once per declared field at configuration
// load time. A malformed or dangling type expression is a fatal
// configuration error raised before any data row is processed.
package schema
