// Package parser decodes YAML workflow definitions into the immutable model.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/stepflow/internal/yml"
	"github.com/viant/stepflow/model"
	"gopkg.in/yaml.v3"
)

// Service parses workflow definitions.
type Service struct {
	fs afs.Service
}

// New creates a parser service.
func New() *Service {
	return &Service{fs: afs.New()}
}

// Parse decodes a workflow from YAML
func (s *Service) Parse(encoded []byte) (*model.Workflow, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	return s.parseDocument("", &node)
}

// Load loads a workflow from YAML at the specified URL; ".yaml" is appended
// when the URL carries no extension.
func (s *Service) Load(ctx context.Context, URL string) (*model.Workflow, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow from %s: %w", URL, err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse workflow from %s: %w", URL, err)
	}
	return s.parseDocument(URL, &node)
}

func (s *Service) parseDocument(URL string, node *yaml.Node) (*model.Workflow, error) {
	workflow := &model.Workflow{}
	if URL != "" {
		workflow.Source = &model.Source{URL: URL}
	}
	rootNode := (*yml.Node)(node)
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, fmt.Errorf("workflow document is empty")
		}
		rootNode = (*yml.Node)(node.Content[0])
	}
	if rootNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("workflow document should be a mapping")
	}
	if err := s.parseWorkflow(rootNode, workflow); err != nil {
		return nil, err
	}
	if strings.TrimSpace(workflow.Name) == "" {
		return nil, fmt.Errorf("workflow name is required")
	}
	if len(workflow.Steps) == 0 {
		return nil, fmt.Errorf("workflow %q has no steps", workflow.Name)
	}
	return workflow, nil
}

func (s *Service) parseWorkflow(node *yml.Node, workflow *model.Workflow) error {
	return node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			workflow.Name = valueNode.Value
		case "description":
			workflow.Description = valueNode.Value
		case "version":
			workflow.Version = valueNode.Value
		case "author":
			workflow.Author = valueNode.Value
		case "tags":
			workflow.Tags = asStrings(valueNode)
		case "variables":
			variables, ok := valueNode.Interface().(map[string]interface{})
			if !ok {
				return fmt.Errorf("variables should be a mapping")
			}
			workflow.Variables = variables
		case "prerequisites":
			prerequisites, err := parsePrerequisites(valueNode)
			if err != nil {
				return err
			}
			workflow.Prerequisites = prerequisites
		case "steps":
			steps, err := s.parseSteps(valueNode)
			if err != nil {
				return err
			}
			workflow.Steps = steps
		case "error_handling":
			handling := map[string]string{}
			if err := valueNode.Pairs(func(name string, handlerNode *yml.Node) error {
				handling[name] = handlerNode.Value
				return nil
			}); err != nil {
				return fmt.Errorf("failed to parse error_handling: %w", err)
			}
			workflow.ErrorHandling = handling
		case "success_criteria":
			criteria, err := parseCriteria(valueNode)
			if err != nil {
				return err
			}
			workflow.SuccessCriteria = criteria
		case "post_execution":
			post, ok := valueNode.Interface().(map[string]interface{})
			if !ok {
				return fmt.Errorf("post_execution should be a mapping")
			}
			workflow.PostExecution = post
		case "metadata":
			metadata, ok := valueNode.Interface().(map[string]interface{})
			if !ok {
				return fmt.Errorf("metadata should be a mapping")
			}
			workflow.Metadata = metadata
		}
		return nil
	})
}

func (s *Service) parseSteps(node *yml.Node) ([]*model.Step, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("steps should be a sequence")
	}
	var steps []*model.Step
	err := node.Items(func(index int, stepNode *yml.Node) error {
		step, err := s.parseStep(stepNode)
		if err != nil {
			return fmt.Errorf("failed to parse step %d: %w", index, err)
		}
		steps = append(steps, step)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (s *Service) parseStep(node *yml.Node) (*model.Step, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("step should be a mapping")
	}
	step := &model.Step{
		Type:    model.StepTypePlugin,
		OnError: model.ErrorPolicyFail,
	}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			step.Name = valueNode.Value
		case "description":
			step.Description = valueNode.Value
		case "type":
			stepType, err := model.ParseStepType(valueNode.Value)
			if err != nil {
				return err
			}
			step.Type = stepType
		case "plugin":
			step.Plugin = valueNode.Value
		case "action":
			step.Action = valueNode.Value
		case "inputs":
			inputs, ok := valueNode.Interface().(map[string]interface{})
			if !ok {
				return fmt.Errorf("inputs should be a mapping")
			}
			step.Inputs = inputs
		case "outputs":
			outputs := map[string]string{}
			if err := valueNode.Pairs(func(resultKey string, contextNode *yml.Node) error {
				outputs[resultKey] = contextNode.Value
				return nil
			}); err != nil {
				return fmt.Errorf("outputs should be a mapping: %w", err)
			}
			step.Outputs = outputs
		case "condition":
			step.Condition = valueNode.Value
		case "on_error":
			policy, err := model.ParseErrorPolicy(valueNode.Value)
			if err != nil {
				return err
			}
			step.OnError = policy
		case "timeout":
			timeout, err := parseDuration(valueNode)
			if err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			if timeout <= 0 {
				return fmt.Errorf("timeout must be positive, got %q", valueNode.Value)
			}
			step.Timeout = timeout
		case "retry_count":
			count, err := strconv.Atoi(valueNode.Value)
			if err != nil {
				return fmt.Errorf("invalid retry_count %q", valueNode.Value)
			}
			step.RetryCount = count
		case "retry_delay":
			delay, err := parseDuration(valueNode)
			if err != nil {
				return fmt.Errorf("invalid retry_delay: %w", err)
			}
			step.RetryDelay = delay
		case "steps":
			children, err := s.parseSteps(valueNode)
			if err != nil {
				return err
			}
			step.Steps = children
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(step.Name) == "" {
		return nil, fmt.Errorf("step name is required")
	}
	return step, nil
}

func parsePrerequisites(node *yml.Node) ([]*model.Prerequisite, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("prerequisites should be a sequence")
	}
	var prerequisites []*model.Prerequisite
	err := node.Items(func(index int, itemNode *yml.Node) error {
		prerequisite := &model.Prerequisite{}
		if err := itemNode.Pairs(func(key string, valueNode *yml.Node) error {
			switch strings.ToLower(key) {
			case "condition":
				prerequisite.Condition = valueNode.Value
			case "error_message":
				prerequisite.ErrorMessage = valueNode.Value
			}
			return nil
		}); err != nil {
			return err
		}
		if prerequisite.Condition == "" {
			return fmt.Errorf("prerequisite %d has no condition", index)
		}
		prerequisites = append(prerequisites, prerequisite)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prerequisites, nil
}

func parseCriteria(node *yml.Node) ([]*model.Criterion, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("success_criteria should be a sequence")
	}
	var criteria []*model.Criterion
	err := node.Items(func(index int, itemNode *yml.Node) error {
		criterion := &model.Criterion{}
		if err := itemNode.Pairs(func(key string, valueNode *yml.Node) error {
			switch strings.ToLower(key) {
			case "condition":
				criterion.Condition = valueNode.Value
			case "description":
				criterion.Description = valueNode.Value
			}
			return nil
		}); err != nil {
			return err
		}
		if criterion.Condition == "" {
			return fmt.Errorf("success criterion %d has no condition", index)
		}
		criteria = append(criteria, criterion)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return criteria, nil
}

// parseDuration accepts an integer (seconds) or a Go duration string.
func parseDuration(node *yml.Node) (time.Duration, error) {
	if node.Tag == "!!int" {
		seconds, err := strconv.Atoi(node.Value)
		if err != nil {
			return 0, err
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if seconds, err := strconv.Atoi(node.Value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(node.Value)
}

func asStrings(node *yml.Node) []string {
	var result []string
	_ = node.Items(func(index int, itemNode *yml.Node) error {
		result = append(result, itemNode.Value)
		return nil
	})
	return result
}
