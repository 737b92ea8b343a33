// Package validator statically checks a parsed workflow before execution:
// structural completeness, reference sanity and step-dependency cycles.
package validator

import (
	"strings"

	"github.com/viant/stepflow/capability"
	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/runtime/resolver"
)

// reservedNamespaces are context roots the engine or its callers own; dotted
// references into them cannot be verified statically.
var reservedNamespaces = map[string]bool{
	"task":     true,
	"project":  true,
	"system":   true,
	"workflow": true,
	"env":      true,
}

// Service validates workflows.
type Service struct {
	registry *capability.Registry
}

// New creates a validator; a nil registry downgrades capability checks to a
// warning.
func New(registry *capability.Registry) *Service {
	return &Service{registry: registry}
}

// Validate checks the workflow and reports every discovered problem.
func (s *Service) Validate(workflow *model.Workflow) *model.ValidationResult {
	result := model.NewValidationResult()
	if workflow == nil {
		result.AddError("workflow is nil")
		return result
	}
	if strings.TrimSpace(workflow.Name) == "" {
		result.AddError("workflow name is required")
	}
	if len(workflow.Steps) == 0 {
		result.AddError("workflow %q has no steps", workflow.Name)
	}

	steps := s.collectSteps(workflow, result)
	for _, step := range steps {
		s.validateStep(step, result)
	}
	s.validateReferences(workflow, steps, result)
	s.validateDependencies(workflow, steps, result)
	return result
}

// collectSteps flattens the step tree in declared order, reporting duplicate
// names along the way.
func (s *Service) collectSteps(workflow *model.Workflow, result *model.ValidationResult) []*model.Step {
	var steps []*model.Step
	seen := map[string]bool{}
	var walk func(step *model.Step)
	walk = func(step *model.Step) {
		if step == nil {
			return
		}
		if seen[step.Name] {
			result.AddError("duplicate step name %q", step.Name)
		}
		seen[step.Name] = true
		steps = append(steps, step)
		for _, child := range step.Steps {
			walk(child)
		}
	}
	for _, step := range workflow.Steps {
		walk(step)
	}
	return steps
}

func (s *Service) validateStep(step *model.Step, result *model.ValidationResult) {
	if strings.TrimSpace(step.Name) == "" {
		result.AddError("step name is required")
	}
	if step.IsParallel() {
		if len(step.Steps) == 0 {
			result.AddError("parallel step %q has no child steps", step.Name)
		}
	} else {
		if step.Plugin == "" {
			result.AddError("step %q has no plugin", step.Name)
		}
		if step.Action == "" {
			result.AddError("step %q has no action", step.Name)
		}
		s.checkCapability(step, result)
	}
	if step.Timeout < 0 {
		result.AddError("step %q has negative timeout", step.Name)
	}
	if step.RetryCount < 0 {
		result.AddError("step %q has negative retry count", step.Name)
	}
}

// checkCapability best-effort verifies the registry knows the step's
// provider and action; an unverifiable check is a warning, not an error.
func (s *Service) checkCapability(step *model.Step, result *model.ValidationResult) {
	if step.Plugin == "" || step.Action == "" {
		return
	}
	if s.registry == nil {
		result.AddWarning("capability registry unavailable, cannot verify %q", step.Plugin)
		return
	}
	provider := s.registry.Lookup(step.Plugin)
	if provider == nil {
		result.AddWarning("unknown capability %q referenced by step %q", step.Plugin, step.Name)
		return
	}
	if provider.Actions().Lookup(step.Action) == nil {
		result.AddWarning("capability %q does not appear to support action %q", step.Plugin, step.Action)
	}
}

// validateReferences checks every ${...} reference: a dotted reference must
// be rooted in a step name, a declared variable, an output-mapped context
// key or a reserved namespace; a bare undeclared name is only a warning
// because the context may be seeded by the caller.
func (s *Service) validateReferences(workflow *model.Workflow, steps []*model.Step, result *model.ValidationResult) {
	known := map[string]bool{}
	for _, step := range steps {
		known[step.Name] = true
	}
	for name := range workflow.Variables {
		known[name] = true
	}
	for _, step := range steps {
		for _, contextKey := range step.Outputs {
			known[contextKey] = true
		}
	}
	for _, step := range steps {
		for _, template := range step.Templates() {
			for _, reference := range resolver.References(template) {
				if known[reference.Root] || reservedNamespaces[reference.Root] {
					continue
				}
				if reference.Dotted {
					result.AddError("step %q references unknown step or namespace %q in ${%s}", step.Name, reference.Root, reference.Path)
				} else {
					result.AddWarning("step %q references undeclared variable %q", step.Name, reference.Root)
				}
			}
		}
	}
}

// validateDependencies infers a dependency graph (A depends on B when any of
// A's templates references ${B....}) and rejects cycles, reporting the full
// cycle path.
func (s *Service) validateDependencies(workflow *model.Workflow, steps []*model.Step, result *model.ValidationResult) {
	stepNames := map[string]bool{}
	for _, step := range steps {
		stepNames[step.Name] = true
	}
	edges := map[string][]string{}
	for _, step := range steps {
		for _, template := range step.Templates() {
			for _, reference := range resolver.References(template) {
				if reference.Root == step.Name || !stepNames[reference.Root] {
					continue
				}
				edges[step.Name] = append(edges[step.Name], reference.Root)
			}
		}
	}

	// DFS with colour set (white/grey/black) to detect back-edge cycles
	const (
		white = 0
		grey  = 1
		black = 2
	)
	state := map[string]int{}
	var path []string
	reported := map[string]bool{}

	var dfs func(name string)
	dfs = func(name string) {
		state[name] = grey
		path = append(path, name)
		for _, next := range edges[name] {
			switch state[next] {
			case grey:
				cycle := cyclePath(path, next)
				key := strings.Join(cycle, "->")
				if !reported[key] {
					reported[key] = true
					result.AddError("circular step dependency: %s", strings.Join(cycle, " -> "))
				}
			case white:
				dfs(next)
			}
		}
		path = path[:len(path)-1]
		state[name] = black
	}
	for _, step := range steps {
		if state[step.Name] == white {
			dfs(step.Name)
		}
	}
}

// cyclePath slices the DFS path from the back-edge target onwards and closes
// the loop.
func cyclePath(path []string, target string) []string {
	for i, name := range path {
		if name == target {
			cycle := append([]string{}, path[i:]...)
			return append(cycle, target)
		}
	}
	return []string{target, target}
}
