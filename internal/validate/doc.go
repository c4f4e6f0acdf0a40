// Package validate runs the three-stage validation pipeline over a
// merged dataset: field checks, then row checks, then dataset checks.
//
// Validators are plugins resolved by name from a Registry. The field
// check is the required capability; row and dataset checks are optional
// and discovered by interface assertion. Capability checking happens once
// at export setup, before any row is processed, never per row.
//
// Validation never panics and never throws: every finding is an Issue
// aggregated into a Report. Stages run to completion even when earlier
// rows fail, unless the export sets stop_on_validation_error.
package validate
