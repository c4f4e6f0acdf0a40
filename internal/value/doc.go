// Package value provides the typed cell values the conversion pipeline
// produces from raw spreadsheet text.
//
// This package contains type definitions only. Every other internal package
// that handles decoded data imports value; value imports nothing internal.
//
// Value is a sealed tagged union: consumers dispatch with an exhaustive
// type switch rather than reflecting over untyped data. Object values are
// ordered maps so that output always follows the schema's declared field
// order regardless of input form.
package value
