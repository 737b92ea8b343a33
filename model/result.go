package model

import (
	"fmt"
	"time"
)

// ValidationResult aggregates the outcome of static workflow validation.
// A fresh instance is produced per call and never mutated afterwards.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError records a fatal issue and flips the validity flag.
func (r *ValidationResult) AddError(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records a non-fatal issue.
func (r *ValidationResult) AddWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// NewValidationResult creates an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// StepResult captures the outcome of one executed step. Skipped steps
// produce no StepResult.
type StepResult struct {
	Step     string                 `json:"step"`
	Success  bool                   `json:"success"`
	Duration time.Duration          `json:"duration"`
	Output   map[string]interface{} `json:"output,omitempty"`
	Error    string                 `json:"error,omitempty"`
	// Retries is the number of extra attempts consumed beyond the first.
	Retries int     `json:"retries"`
	Cost    float64 `json:"cost"`
}

// WorkflowResult captures the outcome of one workflow run.
type WorkflowResult struct {
	Workflow  string                 `json:"workflow"`
	Success   bool                   `json:"success"`
	Steps     []*StepResult          `json:"steps,omitempty"`
	Duration  time.Duration          `json:"duration"`
	TotalCost float64                `json:"totalCost"`
	Error     string                 `json:"error,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// StepResultOf returns the result recorded for the given step name or nil.
func (r *WorkflowResult) StepResultOf(name string) *StepResult {
	for _, step := range r.Steps {
		if step.Step == name {
			return step
		}
	}
	return nil
}
