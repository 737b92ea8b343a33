// Package model contains the in-memory representation of workflow
// definitions and execution results used by the stepflow engine.
//
// A workflow is typically loaded from a YAML document into the Workflow and
// Step structures; once parsed the definition is immutable - only the runtime
// context mutates during execution.
package model
