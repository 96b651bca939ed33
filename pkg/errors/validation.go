package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateSolveKnobs validates the numeric knobs shared by every calibration
// entry point. The rules are intentionally strict: a solve with a non-positive
// iteration budget or tolerance can never terminate meaningfully, and a
// negative minuvw has no physical interpretation.
func ValidateSolveKnobs(maxiter int, tolerance, minuvw float64) error {
	if maxiter <= 0 {
		return New(ErrCodeInvalidOptions, "maxiter must be positive, got %d", maxiter)
	}
	if tolerance <= 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		return New(ErrCodeInvalidOptions, "tolerance must be a positive finite number, got %v", tolerance)
	}
	if minuvw < 0 || math.IsNaN(minuvw) {
		return New(ErrCodeInvalidOptions, "minuvw must be non-negative, got %v", minuvw)
	}
	return nil
}

// ValidatePeelIter validates the outer-pass count of the peeling orchestrator.
func ValidatePeelIter(peeliter int) error {
	if peeliter <= 0 {
		return New(ErrCodeInvalidOptions, "peeliter must be positive, got %d", peeliter)
	}
	return nil
}

// ValidateColumnName validates a measurement-set column name.
// Column names are upper-case identifiers with underscores (e.g. "DATA",
// "CORRECTED_DATA"); anything else is rejected before it reaches the
// table layer.
func ValidateColumnName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidColumn, "column name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidColumn, "column name too long (max 64 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidColumn, "column name contains control characters")
		}
	}
	for _, r := range name {
		ok := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		if !ok {
			return New(ErrCodeInvalidColumn, "invalid column name: %q", name)
		}
	}
	return nil
}

// ValidateSourceName validates a sky-model source name for use in
// calibration files and log output.
func ValidateSourceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidCatalog, "source name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidCatalog, "source name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidCatalog, "source name contains control characters")
		}
	}
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidCatalog, "source name cannot be blank")
	}
	return nil
}
