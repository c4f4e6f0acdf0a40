// Package scope implements field visibility filtering for export output.
//
// Every field carries a scope tag controlling whether it appears in
// server-only, client-only, or combined output. Projection is a pure
// filter over a decoded row; it never fails, and a request matching zero
// fields yields an empty record rather than an error.
package scope

import (
	"fmt"

	"github.com/mkarres/tablecast/internal/dataset"
)

// Scope tags a field or an export request with its visibility.
type Scope string

const (
	// Server marks fields included only in server output.
	Server Scope = "s"

	// Client marks fields included only in client output.
	Client Scope = "c"

	// ServerClient marks fields included in both outputs. This is the
	// default scope for fields without an explicit declaration.
	ServerClient Scope = "sc"
)

// Parse validates a scope string. Empty defaults to ServerClient.
func Parse(s string) (Scope, error) {
	switch Scope(s) {
	case Server, Client, ServerClient:
		return Scope(s), nil
	case "":
		return ServerClient, nil
	default:
		return "", fmt.Errorf("invalid scope %q: must be s, c, or sc", s)
	}
}

// Matches reports whether a field with the given scope is retained for
// the requested scope. A field passes iff the request is sc, the field
// is sc, or the two scopes are equal.
func Matches(field, requested Scope) bool {
	return requested == ServerClient || field == ServerClient || field == requested
}

// Project returns a copy of row retaining only the fields whose scope
// matches requested. Fields absent from scopes default to ServerClient.
// Values are shared with the input row, which stays untouched.
func Project(row *dataset.Row, scopes map[string]Scope, requested Scope) *dataset.Row {
	return &dataset.Row{
		Ref: row.Ref,
		Values: row.Values.Project(func(key string) bool {
			fieldScope, ok := scopes[key]
			if !ok {
				fieldScope = ServerClient
			}
			return Matches(fieldScope, requested)
		}),
	}
}

// ProjectDataset projects every row of ds. The input dataset is not
// modified.
func ProjectDataset(ds *dataset.Dataset, scopes map[string]Scope, requested Scope) *dataset.Dataset {
	out := &dataset.Dataset{
		Export:     ds.Export,
		PrimaryKey: ds.PrimaryKey,
		Rows:       make([]*dataset.Row, len(ds.Rows)),
	}
	for i, row := range ds.Rows {
		out.Rows[i] = Project(row, scopes, requested)
	}
	return out
}
