package stepflow

import (
	"github.com/viant/stepflow/capability"
	"github.com/viant/stepflow/policy"
	"github.com/viant/stepflow/runtime/resolver"
	"github.com/viant/stepflow/service/engine"
	"github.com/viant/stepflow/tracing"
	"github.com/viant/x"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the service facade.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithLogger injects a structured logger shared by the facade and the engine.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry replaces the default capability registry. The built-in
// providers are not registered on a caller-supplied registry.
func WithRegistry(registry *capability.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithProviders registers additional capability providers.
func WithProviders(providers ...capability.Provider) Option {
	return func(s *Service) {
		s.providers = append(s.providers, providers...)
	}
}

// WithExtensionTypes registers Go types for capability input/output
// conversion.
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) {
		s.extensionTypes = append(s.extensionTypes, types...)
	}
}

// WithCompensator installs the rollback collaborator invoked when a step with
// the rollback policy fails.
func WithCompensator(compensator engine.Compensator) Option {
	return func(s *Service) {
		s.compensator = compensator
	}
}

// WithPolicyConfig installs a declarative execution policy (mode plus
// allow/block lists) applied to every run started through the facade. A
// policy already carried by the caller's context takes precedence.
func WithPolicyConfig(config *policy.Config) Option {
	return func(s *Service) {
		s.policy = policy.FromConfig(config)
	}
}

// WithPolicy installs a runtime execution policy; unlike WithPolicyConfig it
// can carry an AskFunc for interactive approval.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithResolverOptions passes extra options to the template resolver, for
// example custom functions via resolver.WithFunction.
func WithResolverOptions(options ...resolver.Option) Option {
	return func(s *Service) {
		s.resolverOptions = append(s.resolverOptions, options...)
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. The function is safe to call multiple times – the first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter. This enables integrations with exporters other than the
// built-in stdout exporter, for example OTLP, Jaeger or Zipkin. The function
// is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
