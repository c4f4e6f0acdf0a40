package validate

import (
	"fmt"
	"strings"

	"github.com/mkarres/tablecast/internal/dataset"
)

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Stage names the pipeline stage that produced an issue.
type Stage string

const (
	StageMerge   Stage = "merge" // decode/merge findings, recorded before validation
	StageField   Stage = "field"
	StageRow     Stage = "row"
	StageDataset Stage = "dataset"
)

// Issue is one validation finding. Issues are accumulated, never
// silently dropped.
type Issue struct {
	Severity Severity     `json:"severity"`
	Stage    Stage        `json:"stage"`
	Field    string       `json:"field,omitempty"`
	Ref      *dataset.Ref `json:"ref,omitempty"`
	Message  string       `json:"message"`
}

func (i Issue) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", i.Severity, i.Stage)
	if i.Ref != nil {
		fmt.Fprintf(&b, " %s", i.Ref)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, " field %q", i.Field)
	}
	fmt.Fprintf(&b, ": %s", i.Message)
	return b.String()
}

// Report aggregates all issues found while processing one export.
type Report struct {
	Export  string  `json:"export"`
	Issues  []Issue `json:"issues"`
	Stopped bool    `json:"stopped"` // pipeline aborted by stop_on_validation_error
}

// Add appends issues to the report.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// HasErrors reports whether any issue has error severity.
func (r *Report) HasErrors() bool {
	return r.ErrorCount() > 0
}

// ErrorCount counts error-severity issues.
func (r *Report) ErrorCount() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount counts warning-severity issues.
func (r *Report) WarningCount() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// Summary renders a one-line overview for logs and CLI text output.
func (r *Report) Summary() string {
	return fmt.Sprintf("export %s: %d error(s), %d warning(s)",
		r.Export, r.ErrorCount(), r.WarningCount())
}
