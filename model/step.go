package model

import (
	"fmt"
	"strings"
	"time"
)

// StepType identifies how a step is dispatched.
type StepType string

const (
	// StepTypePlugin invokes a named capability provider.
	StepTypePlugin StepType = "plugin"
	// StepTypeAI invokes the AI text backend provider.
	StepTypeAI StepType = "ai"
	// StepTypeSystem invokes the built-in system provider.
	StepTypeSystem StepType = "system"
	// StepTypeParallel fans nested child steps out as concurrent units.
	StepTypeParallel StepType = "parallel"
)

// ParseStepType maps a wire value onto a StepType.
func ParseStepType(text string) (StepType, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "plugin":
		return StepTypePlugin, nil
	case "ai":
		return StepTypeAI, nil
	case "system":
		return StepTypeSystem, nil
	case "parallel":
		return StepTypeParallel, nil
	}
	return "", fmt.Errorf("unknown step type %q", text)
}

// ErrorPolicy controls workflow behaviour when a step fails.
type ErrorPolicy string

const (
	// ErrorPolicyFail halts the run immediately.
	ErrorPolicyFail ErrorPolicy = "fail"
	// ErrorPolicyRetry retries non-timeout failures within the attempt budget.
	ErrorPolicyRetry ErrorPolicy = "retry"
	// ErrorPolicyContinue records the failure and proceeds with later steps.
	ErrorPolicyContinue ErrorPolicy = "continue"
	// ErrorPolicyRollback invokes the compensation collaborator, then halts.
	ErrorPolicyRollback ErrorPolicy = "rollback"
)

// ParseErrorPolicy maps a wire value onto an ErrorPolicy.
func ParseErrorPolicy(text string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "fail":
		return ErrorPolicyFail, nil
	case "retry":
		return ErrorPolicyRetry, nil
	case "continue":
		return ErrorPolicyContinue, nil
	case "rollback":
		return ErrorPolicyRollback, nil
	}
	return "", fmt.Errorf("unknown error policy %q", text)
}

// Step represents one schedulable unit of work within a workflow.
type Step struct {
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Type        StepType               `json:"type,omitempty" yaml:"type,omitempty"`
	Plugin      string                 `json:"plugin,omitempty" yaml:"plugin,omitempty"`
	Action      string                 `json:"action,omitempty" yaml:"action,omitempty"`
	Inputs      map[string]interface{} `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs     map[string]string      `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Condition   string                 `json:"condition,omitempty" yaml:"condition,omitempty"`
	OnError     ErrorPolicy            `json:"onError,omitempty" yaml:"on_error,omitempty"`
	Timeout     time.Duration          `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RetryCount  int                    `json:"retryCount,omitempty" yaml:"retry_count,omitempty"`
	RetryDelay  time.Duration          `json:"retryDelay,omitempty" yaml:"retry_delay,omitempty"`

	// Steps holds the nested children of a parallel group.
	Steps []*Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// IsParallel returns true for a parallel-group step.
func (s *Step) IsParallel() bool {
	return s.Type == StepTypeParallel
}

// WithAction sets the capability and action for the step.
func (s *Step) WithAction(plugin, action string) *Step {
	s.Plugin = plugin
	s.Action = action
	return s
}

// WithInput adds an input value to the step.
func (s *Step) WithInput(name string, value interface{}) *Step {
	if s.Inputs == nil {
		s.Inputs = make(map[string]interface{})
	}
	s.Inputs[name] = value
	return s
}

// WithOutput maps a capability-result key onto a context key.
func (s *Step) WithOutput(resultKey, contextKey string) *Step {
	if s.Outputs == nil {
		s.Outputs = make(map[string]string)
	}
	s.Outputs[resultKey] = contextKey
	return s
}

// WithCondition sets the guard condition template.
func (s *Step) WithCondition(condition string) *Step {
	s.Condition = condition
	return s
}

// WithOnError sets the step error policy.
func (s *Step) WithOnError(policy ErrorPolicy) *Step {
	s.OnError = policy
	return s
}

// WithRetry sets the retry budget and inter-attempt delay.
func (s *Step) WithRetry(count int, delay time.Duration) *Step {
	s.RetryCount = count
	s.RetryDelay = delay
	return s
}

// WithTimeout sets the per-attempt timeout.
func (s *Step) WithTimeout(timeout time.Duration) *Step {
	s.Timeout = timeout
	return s
}

// AddStep appends a child step to a parallel group and returns the child.
func (s *Step) AddStep(name string) *Step {
	child := &Step{Name: name}
	s.Steps = append(s.Steps, child)
	return child
}

// Templates returns every template string carried by the step: the guard
// condition plus all string values nested in its inputs. Used by static
// validation to infer step dependencies.
func (s *Step) Templates() []string {
	var result []string
	if s.Condition != "" {
		result = append(result, s.Condition)
	}
	result = append(result, collectTemplates(s.Inputs)...)
	return result
}

func collectTemplates(value interface{}) []string {
	var result []string
	switch actual := value.(type) {
	case string:
		if strings.Contains(actual, "${") {
			result = append(result, actual)
		}
	case map[string]interface{}:
		for _, item := range actual {
			result = append(result, collectTemplates(item)...)
		}
	case []interface{}:
		for _, item := range actual {
			result = append(result, collectTemplates(item)...)
		}
	}
	return result
}

// Clone creates a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	clone := &Step{
		Name:        s.Name,
		Description: s.Description,
		Type:        s.Type,
		Plugin:      s.Plugin,
		Action:      s.Action,
		Condition:   s.Condition,
		OnError:     s.OnError,
		Timeout:     s.Timeout,
		RetryCount:  s.RetryCount,
		RetryDelay:  s.RetryDelay,
	}
	if s.Inputs != nil {
		clone.Inputs = make(map[string]interface{}, len(s.Inputs))
		for k, v := range s.Inputs {
			clone.Inputs[k] = v
		}
	}
	if s.Outputs != nil {
		clone.Outputs = make(map[string]string, len(s.Outputs))
		for k, v := range s.Outputs {
			clone.Outputs[k] = v
		}
	}
	if s.Steps != nil {
		clone.Steps = make([]*Step, len(s.Steps))
		for i, child := range s.Steps {
			clone.Steps[i] = child.Clone()
		}
	}
	return clone
}
