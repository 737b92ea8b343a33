package model

// Workflow represents a workflow definition
type Workflow struct {

	// Source provides information about the origin of the workflow
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`

	// Name is the unique identifier for the workflow
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description of the workflow
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version specifies the workflow version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Variables declares the initial runtime context entries
	Variables map[string]interface{} `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Prerequisites guard the run; the first failing one aborts before any step
	Prerequisites []*Prerequisite `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`

	// Steps is the ordered execution list
	Steps []*Step `json:"steps" yaml:"steps"`

	// ErrorHandling carries informational error-handling notes (for example
	// escalation contacts or runbook links). The entries are preserved for
	// tooling and round-tripping; the engine acts only on per-step OnError
	// policies.
	ErrorHandling map[string]string `json:"errorHandling,omitempty" yaml:"error_handling,omitempty"`

	// SuccessCriteria override the default "all executed steps succeeded" rule
	SuccessCriteria []*Criterion `json:"successCriteria,omitempty" yaml:"success_criteria,omitempty"`

	// PostExecution entries are applied to the final context after the run
	PostExecution map[string]interface{} `json:"postExecution,omitempty" yaml:"post_execution,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Prerequisite is a guard evaluated before any step runs.
type Prerequisite struct {
	Condition    string `json:"condition" yaml:"condition"`
	ErrorMessage string `json:"errorMessage,omitempty" yaml:"error_message,omitempty"`
}

// Criterion is a guard evaluated after the last step to decide overall success.
type Criterion struct {
	Condition   string `json:"condition" yaml:"condition"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Source describes where a workflow definition was loaded from.
type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// NewWorkflow creates a new workflow with the given name
func NewWorkflow(name string) *Workflow {
	return &Workflow{Name: name}
}

// WithDescription sets the description of the workflow
func (w *Workflow) WithDescription(description string) *Workflow {
	w.Description = description
	return w
}

// WithVersion sets the version of the workflow
func (w *Workflow) WithVersion(version string) *Workflow {
	w.Version = version
	return w
}

// WithVariable declares a workflow variable
func (w *Workflow) WithVariable(name string, value interface{}) *Workflow {
	if w.Variables == nil {
		w.Variables = make(map[string]interface{})
	}
	w.Variables[name] = value
	return w
}

// WithPrerequisite adds a prerequisite guard
func (w *Workflow) WithPrerequisite(condition, errorMessage string) *Workflow {
	w.Prerequisites = append(w.Prerequisites, &Prerequisite{Condition: condition, ErrorMessage: errorMessage})
	return w
}

// WithCriterion adds a success criterion
func (w *Workflow) WithCriterion(condition, description string) *Workflow {
	w.SuccessCriteria = append(w.SuccessCriteria, &Criterion{Condition: condition, Description: description})
	return w
}

// NewStep creates a new step with the given name and appends it to the workflow
func (w *Workflow) NewStep(name string) *Step {
	step := &Step{Name: name}
	w.Steps = append(w.Steps, step)
	return step
}

// AllSteps returns every step in the workflow keyed by name, including
// children of parallel groups.
func (w *Workflow) AllSteps() map[string]*Step {
	steps := make(map[string]*Step)
	for _, step := range w.Steps {
		traverseStep(step, steps)
	}
	return steps
}

func traverseStep(step *Step, steps map[string]*Step) {
	if step == nil {
		return
	}
	if _, exists := steps[step.Name]; !exists {
		steps[step.Name] = step
	}
	for _, child := range step.Steps {
		traverseStep(child, steps)
	}
}

// LookupStep returns the step with the given name or nil.
func (w *Workflow) LookupStep(name string) *Step {
	return w.AllSteps()[name]
}

// Clone creates a deep copy of the workflow
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	clone := &Workflow{
		Name:        w.Name,
		Description: w.Description,
		Version:     w.Version,
		Author:      w.Author,
	}
	if w.Source != nil {
		clone.Source = &Source{URL: w.Source.URL}
	}
	if w.Tags != nil {
		clone.Tags = append([]string(nil), w.Tags...)
	}
	if w.Variables != nil {
		clone.Variables = make(map[string]interface{}, len(w.Variables))
		for k, v := range w.Variables {
			clone.Variables[k] = v
		}
	}
	if w.Prerequisites != nil {
		clone.Prerequisites = make([]*Prerequisite, len(w.Prerequisites))
		for i, p := range w.Prerequisites {
			cp := *p
			clone.Prerequisites[i] = &cp
		}
	}
	if w.Steps != nil {
		clone.Steps = make([]*Step, len(w.Steps))
		for i, step := range w.Steps {
			clone.Steps[i] = step.Clone()
		}
	}
	if w.ErrorHandling != nil {
		clone.ErrorHandling = make(map[string]string, len(w.ErrorHandling))
		for k, v := range w.ErrorHandling {
			clone.ErrorHandling[k] = v
		}
	}
	if w.SuccessCriteria != nil {
		clone.SuccessCriteria = make([]*Criterion, len(w.SuccessCriteria))
		for i, c := range w.SuccessCriteria {
			cc := *c
			clone.SuccessCriteria[i] = &cc
		}
	}
	if w.PostExecution != nil {
		clone.PostExecution = make(map[string]interface{}, len(w.PostExecution))
		for k, v := range w.PostExecution {
			clone.PostExecution[k] = v
		}
	}
	if w.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(w.Metadata))
		for k, v := range w.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}
