// Package stepflow provides a declarative workflow engine.
//
// Workflows are defined in YAML: named steps invoke capability providers
// (plugins) with templated inputs, guard conditions, retries, timeouts and
// error policies, and fold their outputs back into a shared run context via
// ${...} templates. Sub-packages supply the building blocks:
//
//   - service/parser    – YAML definition decoding
//   - service/validator – static structure, reference and cycle checks
//   - service/engine    – step orchestration, retries and parallel groups
//   - runtime/resolver  – ${...} template resolution
//   - capability        – provider registry and built-in providers
//
// Stepflow is designed to be embedded in host applications. End-users
// typically interact via the high-level Service facade exposed by the root
// package:
//
//	srv := stepflow.New()
//	result, err := srv.Run(ctx, "deploy.yaml", map[string]interface{}{"env": "staging"})
//
// For more details see the README and individual sub-packages.
package stepflow
