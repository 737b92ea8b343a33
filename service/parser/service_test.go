package parser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/stepflow/model"
)

const demoWorkflow = `
name: Demo
description: demo workflow
version: "1.0"
author: dev
tags:
  - ci
  - demo
variables:
  branch: main
  retries: 2
prerequisites:
  - condition: ${branch}
    error_message: branch is required
steps:
  - name: checkout
    plugin: git
    action: clone
    inputs:
      repo: github.com/acme/app
      branch: ${branch}
    outputs:
      path: checkout_path
    timeout: 30
    retry_count: 2
    retry_delay: 1s
  - name: verify
    type: parallel
    steps:
      - name: test
        plugin: ci
        action: test
        on_error: continue
      - name: lint
        plugin: ci
        action: lint
success_criteria:
  - condition: ${checkout_path}
    description: sources are present
post_execution:
  notified: "true"
metadata:
  team: platform
`

func TestService_Parse(t *testing.T) {
	srv := New()
	workflow, err := srv.Parse([]byte(demoWorkflow))
	if !assert.Nil(t, err) {
		return
	}
	assert.EqualValues(t, "Demo", workflow.Name)
	assert.EqualValues(t, "1.0", workflow.Version)
	assert.EqualValues(t, []string{"ci", "demo"}, workflow.Tags)
	assert.EqualValues(t, map[string]interface{}{"branch": "main", "retries": 2}, workflow.Variables)
	if assert.EqualValues(t, 1, len(workflow.Prerequisites)) {
		assert.EqualValues(t, "branch is required", workflow.Prerequisites[0].ErrorMessage)
	}
	if !assert.EqualValues(t, 2, len(workflow.Steps)) {
		return
	}
	checkout := workflow.Steps[0]
	assert.EqualValues(t, model.StepTypePlugin, checkout.Type)
	assert.EqualValues(t, model.ErrorPolicyFail, checkout.OnError)
	assert.EqualValues(t, "git", checkout.Plugin)
	assert.EqualValues(t, 30*time.Second, checkout.Timeout)
	assert.EqualValues(t, 2, checkout.RetryCount)
	assert.EqualValues(t, time.Second, checkout.RetryDelay)
	assert.EqualValues(t, map[string]string{"path": "checkout_path"}, checkout.Outputs)

	verify := workflow.Steps[1]
	assert.True(t, verify.IsParallel())
	if assert.EqualValues(t, 2, len(verify.Steps)) {
		assert.EqualValues(t, model.ErrorPolicyContinue, verify.Steps[0].OnError)
	}
	if assert.EqualValues(t, 1, len(workflow.SuccessCriteria)) {
		assert.EqualValues(t, "sources are present", workflow.SuccessCriteria[0].Description)
	}
	assert.EqualValues(t, map[string]interface{}{"team": "platform"}, workflow.Metadata)
}

func TestService_Parse_Errors(t *testing.T) {
	testCases := []struct {
		description string
		input       string
	}{
		{
			description: "malformed yaml",
			input:       "name: [unclosed",
		},
		{
			description: "missing name",
			input: `
steps:
  - name: one
    plugin: p
    action: a
`,
		},
		{
			description: "blank name",
			input: `
name: "  "
steps:
  - name: one
    plugin: p
    action: a
`,
		},
		{
			description: "zero steps",
			input: `
name: Demo
steps: []
`,
		},
		{
			description: "step without name",
			input: `
name: Demo
steps:
  - plugin: p
    action: a
`,
		},
		{
			description: "step not a mapping",
			input: `
name: Demo
steps:
  - just-a-string
`,
		},
		{
			description: "unknown error policy",
			input: `
name: Demo
steps:
  - name: one
    plugin: p
    action: a
    on_error: explode
`,
		},
		{
			description: "unknown step type",
			input: `
name: Demo
steps:
  - name: one
    type: cron
`,
		},
		{
			description: "invalid timeout",
			input: `
name: Demo
steps:
  - name: one
    plugin: p
    action: a
    timeout: soon
`,
		},
		{
			description: "explicit zero timeout",
			input: `
name: Demo
steps:
  - name: one
    plugin: p
    action: a
    timeout: 0
`,
		},
		{
			description: "negative timeout",
			input: `
name: Demo
steps:
  - name: one
    plugin: p
    action: a
    timeout: -5s
`,
		},
	}
	srv := New()
	for _, testCase := range testCases {
		_, err := srv.Parse([]byte(testCase.input))
		assert.NotNil(t, err, testCase.description)
	}
}

func TestService_Load(t *testing.T) {
	fs := afs.New()
	ctx := context.Background()
	URL := "mem://localhost/workflows/demo.yaml"
	err := fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(demoWorkflow))
	if !assert.Nil(t, err) {
		return
	}
	srv := New()
	workflow, err := srv.Load(ctx, "mem://localhost/workflows/demo")
	if !assert.Nil(t, err) {
		return
	}
	assert.EqualValues(t, "Demo", workflow.Name)
	assert.EqualValues(t, URL, workflow.Source.URL)
}
