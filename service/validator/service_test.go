package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/stepflow/capability"
	"github.com/viant/stepflow/capability/nop"
	"github.com/viant/stepflow/capability/printer"
	"github.com/viant/stepflow/model"
)

func newRegistry() *capability.Registry {
	registry := capability.NewRegistry()
	registry.Register(nop.New())
	registry.Register(printer.New())
	return registry
}

func TestService_Validate_Valid(t *testing.T) {
	workflow := model.NewWorkflow("release").WithVariable("branch", "main")
	workflow.NewStep("checkout").WithAction("printer", "print").
		WithInput("message", "checking out ${branch}")
	workflow.NewStep("announce").WithAction("printer", "print").
		WithInput("message", "done: ${checkout.message}")

	result := New(newRegistry()).Validate(workflow)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestService_Validate_DuplicateStepNames(t *testing.T) {
	workflow := model.NewWorkflow("demo")
	workflow.NewStep("build").WithAction("printer", "print")
	workflow.NewStep("build").WithAction("printer", "print")

	result := New(newRegistry()).Validate(workflow)
	assert.False(t, result.Valid)
	assert.True(t, containsMatch(result.Errors, "build"), "%v", result.Errors)
}

func TestService_Validate_CircularDependency(t *testing.T) {
	workflow := model.NewWorkflow("demo")
	workflow.NewStep("A").WithAction("printer", "print").
		WithInput("message", "${B.output}")
	workflow.NewStep("B").WithAction("printer", "print").
		WithInput("message", "${A.output}")

	result := New(newRegistry()).Validate(workflow)
	assert.False(t, result.Valid)
	assert.True(t, containsMatch(result.Errors, "circular"), "%v", result.Errors)
	assert.True(t, containsMatch(result.Errors, "A -> B -> A") || containsMatch(result.Errors, "B -> A -> B"), "%v", result.Errors)
}

func TestService_Validate_Structure(t *testing.T) {
	testCases := []struct {
		description string
		workflow    func() *model.Workflow
		errorMatch  string
	}{
		{
			description: "missing plugin and action",
			workflow: func() *model.Workflow {
				workflow := model.NewWorkflow("demo")
				workflow.NewStep("bare")
				return workflow
			},
			errorMatch: "no plugin",
		},
		{
			description: "parallel group without children",
			workflow: func() *model.Workflow {
				workflow := model.NewWorkflow("demo")
				step := workflow.NewStep("group")
				step.Type = model.StepTypeParallel
				return workflow
			},
			errorMatch: "no child steps",
		},
		{
			description: "negative retry count",
			workflow: func() *model.Workflow {
				workflow := model.NewWorkflow("demo")
				workflow.NewStep("build").WithAction("printer", "print").WithRetry(-1, 0)
				return workflow
			},
			errorMatch: "negative retry",
		},
		{
			description: "unknown dotted root",
			workflow: func() *model.Workflow {
				workflow := model.NewWorkflow("demo")
				workflow.NewStep("build").WithAction("printer", "print").
					WithInput("message", "${ghost.output}")
				return workflow
			},
			errorMatch: "unknown step or namespace",
		},
		{
			description: "zero steps",
			workflow: func() *model.Workflow {
				return model.NewWorkflow("demo")
			},
			errorMatch: "no steps",
		},
	}
	srv := New(newRegistry())
	for _, testCase := range testCases {
		result := srv.Validate(testCase.workflow())
		assert.False(t, result.Valid, testCase.description)
		assert.True(t, containsMatch(result.Errors, testCase.errorMatch), "%v: %v", testCase.description, result.Errors)
	}
}

func TestService_Validate_Warnings(t *testing.T) {
	workflow := model.NewWorkflow("demo")
	workflow.NewStep("build").WithAction("maven", "package").
		WithInput("message", "${undeclared}")
	workflow.NewStep("ping").WithAction("printer", "scan")

	result := New(newRegistry()).Validate(workflow)
	assert.True(t, result.Valid)
	assert.True(t, containsMatch(result.Warnings, "unknown capability"), "%v", result.Warnings)
	assert.True(t, containsMatch(result.Warnings, "undeclared variable"), "%v", result.Warnings)
	assert.True(t, containsMatch(result.Warnings, "does not appear to support"), "%v", result.Warnings)

	noRegistry := New(nil).Validate(workflow)
	assert.True(t, containsMatch(noRegistry.Warnings, "registry unavailable"), "%v", noRegistry.Warnings)
}

func TestService_Validate_ReservedNamespaces(t *testing.T) {
	workflow := model.NewWorkflow("demo")
	workflow.NewStep("report").WithAction("printer", "print").
		WithInput("message", "${workflow.name} at ${system.timestamp} for ${task.id}")

	result := New(newRegistry()).Validate(workflow)
	assert.True(t, result.Valid, "%v", result.Errors)
}

func containsMatch(items []string, fragment string) bool {
	for _, item := range items {
		if strings.Contains(item, fragment) {
			return true
		}
	}
	return false
}
