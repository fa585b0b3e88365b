package engine

import (
	"fmt"
	"strings"
)

// IssueKind classifies a pre-flight validation issue.
type IssueKind string

const (
	IssueEnv   IssueKind = "env"
	IssueInput IssueKind = "input"
)

// ValidationIssue is one problem found by the validation gate.
type ValidationIssue struct {
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// ValidationError aggregates every validation issue found before a run so
// the caller can surface them all at once.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		messages = append(messages, issue.Message)
	}
	return fmt.Sprintf("workflow validation failed: %s", strings.Join(messages, "; "))
}

// MissingInputError reports a required input that resolved to nothing at
// execution time.
type MissingInputError struct {
	NodeID string
	PortID string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("node %s: required input %q is not connected and has no value", e.NodeID, e.PortID)
}

// AdapterError wraps a failed generation call. The adapter-supplied
// message is surfaced verbatim on the node.
type AdapterError struct {
	NodeID string
	Kind   string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s generation failed: %s", e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
