package config

import "fmt"

// Configuration error codes (C100-C199).
const (
	ErrConfigRead  = "C100" // file unreadable
	ErrConfigParse = "C101" // TOML/YAML syntax error

	ErrNoExports = "C110" // no exports declared
	ErrNoSources = "C111" // export without sources
	ErrBadSource = "C112" // source missing file or sheet
	ErrBadScope  = "C113" // scope not s/c/sc
	ErrBadField  = "C114" // unusable field entry
	ErrBadType   = "C115" // malformed or unresolved type expression

	ErrSchemaField    = "C120" // object schema field problems
	ErrSeparatorClash = "C121" // ambiguous separator combination
	ErrBadValidator   = "C122" // validator binding missing field or script
)

// ValidationError is one configuration problem. All problems found in a
// file are reported together rather than one at a time.
type ValidationError struct {
	Section string `json:"section"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Section, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Section, e.Message)
}
