// Package policy provides optional declarative rules that can be applied on
// top of a workflow run – for example to require human approval for selected
// capability invocations or to block them outright.
package policy
