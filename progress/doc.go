// Package progress defines primitives for reporting and aggregating the
// progress of a running workflow.  It abstracts away the delivery mechanism
// so that callers can consume progress updates in a uniform way, whether they
// render a CLI progress bar or forward snapshots to an external observer.
package progress
