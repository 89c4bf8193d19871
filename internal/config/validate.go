// Package config provides configuration models and helpers for the retail
// analytics pipeline.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "engine.kind",
// "source.base_path"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// KnownEngineKinds lists the engine backends this binary can be wired with.
// Unknown kinds are reported as warnings for forward compatibility; the
// engine factory still fails hard at open time if nothing is registered.
var KnownEngineKinds = []string{"sqlite", "postgres"}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline and assumes ApplyDefaults/ApplyEnv have
// already run. It returns a slice of Issue values; callers decide whether to
// treat warnings as fatal.
//
// Example:
//
//	var p config.Pipeline
//	if err := json.NewDecoder(r).Decode(&p); err != nil { ... }
//	config.ApplyDefaults(&p)
//	issues := config.ValidatePipeline(p)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}

	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateEngine(p.Engine)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateCatalog(p.Catalog)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.BasePath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.base_path",
			Message:  "source.base_path must point at the directory containing the Olist CSV files",
		})
	}
	if s.Comma != "" && utf8.RuneCountInString(s.Comma) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.comma",
			Message:  fmt.Sprintf("source.comma must be a single character, got %q", s.Comma),
		})
	}
	return issues
}

func validateEngine(e Engine) []Issue {
	var issues []Issue

	kind := strings.TrimSpace(e.Kind)
	if kind == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "engine.kind",
			Message:  "engine.kind must not be empty",
		})
		return issues
	}

	known := false
	for _, k := range KnownEngineKinds {
		if kind == k {
			known = true
			break
		}
	}
	if !known {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "engine.kind",
			Message:  fmt.Sprintf("unknown engine kind %q; known kinds: %s", kind, strings.Join(KnownEngineKinds, ", ")),
		})
	}

	if kind == "postgres" && strings.TrimSpace(e.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "engine.dsn",
			Message:  "engine.dsn is required for the postgres engine",
		})
	}
	return issues
}

func validateOutput(o Output) []Issue {
	if strings.TrimSpace(o.Path) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "output.path",
			Message:  "output.path must name the warehouse directory for the fact table",
		}}
	}
	return nil
}

func validateCatalog(c Catalog) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.path",
			Message:  "catalog.path must name the catalog metastore file",
		})
	}
	if strings.TrimSpace(c.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.table",
			Message:  "catalog.table must not be empty",
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	// ApplyDefaults turns zero into sane values, so only negatives are
	// operator mistakes worth flagging.
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("runtime.batch_size must not be negative, got %d", r.BatchSize),
		})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.channel_buffer",
			Message:  fmt.Sprintf("runtime.channel_buffer must not be negative, got %d", r.ChannelBuffer),
		})
	}
	if r.SampleRows < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.sample_rows",
			Message:  fmt.Sprintf("runtime.sample_rows must not be negative, got %d", r.SampleRows),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch strings.TrimSpace(m.Backend) {
	case "", "none", "pushgateway", "datadog":
		// ok; backend addresses fall back to defaults at wiring time.
		return nil
	default:
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		}}
	}
}
