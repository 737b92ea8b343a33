package stepflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/stepflow/capability"
	"github.com/viant/stepflow/capability/nop"
	"github.com/viant/stepflow/capability/printer"
	"github.com/viant/stepflow/capability/system/exec"
	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/policy"
	"github.com/viant/stepflow/runtime/resolver"
	"github.com/viant/stepflow/service/engine"
	"github.com/viant/stepflow/service/parser"
	"github.com/viant/stepflow/service/validator"
	"github.com/viant/x"
	"go.uber.org/zap"
)

// Service is the high-level facade bundling the parser, validator, capability
// registry, template resolver and execution engine behind one API.
type Service struct {
	config          *Config
	logger          *zap.Logger
	registry        *capability.Registry
	providers       []capability.Provider
	extensionTypes  []*x.Type
	compensator     engine.Compensator
	policy          *policy.Policy
	resolverOptions []resolver.Option

	parser    *parser.Service
	validator *validator.Service
	resolver  *resolver.Service
	engine    *engine.Service
}

// New creates a service with the supplied options. Unless a registry is
// supplied, the built-in providers (nop, printer, system/exec) are registered.
func New(options ...Option) *Service {
	s := &Service{
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}
	s.init()
	return s
}

func (s *Service) init() {
	if s.registry == nil {
		s.registry = capability.NewRegistry(s.extensionTypes...)
		s.registry.Register(nop.New())
		s.registry.Register(printer.New())
		s.registry.Register(exec.New())
	}
	for _, provider := range s.providers {
		s.registry.Register(provider)
	}

	resolverOptions := append([]resolver.Option{
		resolver.WithMaxPasses(s.config.Resolver.MaxPasses),
	}, s.resolverOptions...)
	s.resolver = resolver.New(resolverOptions...)

	s.parser = parser.New()
	s.validator = validator.New(s.registry)
	s.engine = engine.New(s.registry,
		engine.WithLogger(s.logger),
		engine.WithResolver(s.resolver),
		engine.WithCompensator(s.compensator),
		engine.WithMaxParallel(s.config.Engine.MaxParallel),
		engine.WithDefaultTimeout(s.config.Engine.DefaultTimeout),
	)
}

// Registry exposes the capability registry so callers can register providers
// after construction.
func (s *Service) Registry() *capability.Registry {
	return s.registry
}

// Resolver exposes the template resolver.
func (s *Service) Resolver() *resolver.Service {
	return s.resolver
}

// Parse decodes a YAML workflow definition.
func (s *Service) Parse(encoded []byte) (*model.Workflow, error) {
	return s.parser.Parse(encoded)
}

// Load reads and decodes a workflow definition from the supplied URL; an
// extension-less URL is resolved with a ".yaml" suffix.
func (s *Service) Load(ctx context.Context, URL string) (*model.Workflow, error) {
	return s.parser.Load(ctx, URL)
}

// Validate statically checks the workflow against the capability registry.
func (s *Service) Validate(workflow *model.Workflow) *model.ValidationResult {
	return s.validator.Validate(workflow)
}

// Execute runs a parsed workflow with the supplied initial context values.
func (s *Service) Execute(ctx context.Context, workflow *model.Workflow, initial map[string]interface{}) (*model.WorkflowResult, error) {
	return s.engine.Execute(s.withPolicy(ctx), workflow, initial)
}

// withPolicy attaches the configured execution policy unless the context
// already carries one.
func (s *Service) withPolicy(ctx context.Context) context.Context {
	if s.policy == nil || policy.FromContext(ctx) != nil {
		return ctx
	}
	return policy.WithPolicy(ctx, s.policy)
}

// Run loads, validates and executes the workflow at the supplied URL.
// Validation errors abort the run; warnings are logged and execution
// proceeds.
func (s *Service) Run(ctx context.Context, URL string, initial map[string]interface{}) (*model.WorkflowResult, error) {
	workflow, err := s.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	validation := s.Validate(workflow)
	if !validation.Valid {
		return nil, fmt.Errorf("invalid workflow %v: %v", workflow.Name, strings.Join(validation.Errors, "; "))
	}
	for _, warning := range validation.Warnings {
		s.logger.Warn("workflow validation", zap.String("workflow", workflow.Name), zap.String("warning", warning))
	}
	return s.Execute(ctx, workflow, initial)
}
