package engine

import (
	"github.com/fabricworks/fabric"
)

// Resolver gathers a node's effective input values from the live output
// store, pinned global inputs, or the node's own literal configuration.
type Resolver struct {
	Workflow *fabric.WorkflowState
	Catalog  *fabric.Catalog

	// Outputs is the live output store for the current or most recent
	// run, keyed by node id. Partial-run modes read unrelated nodes'
	// last-known values from here.
	Outputs map[string]fabric.Value
}

// Resolve returns the value feeding the given input port of a node.
// Resolution order, first match wins:
//
//  1. a connection targeting this exact port: the source node's current
//     resolved output, sub-indexed by source port for multi-field sources
//  2. a pinned global input for this port
//  3. the node's own literal value, when it is an input-category tool
//
// The second return value reports whether the port resolved at all.
func (r *Resolver) Resolve(node *fabric.WorkflowNode, portID string) (fabric.Value, bool) {
	if conn, ok := r.Workflow.ConnectionTo(node.ID, portID); ok {
		if upstream, ok := r.Outputs[conn.SourceNodeID]; ok {
			if value, ok := upstream.Field(conn.SourcePortID); ok && !fabric.IsEmptyValue(value) {
				return fabric.TextValue(value), true
			}
		}
		// A connection exists but the upstream has produced nothing; a
		// pinned input must not shadow an explicit connection, so the
		// port is unresolved.
		return fabric.Value{}, false
	}

	if pinned, ok := r.Workflow.GlobalInput(node.ID, portID); ok && pinned != "" {
		return fabric.TextValue(pinned), true
	}

	if tool, ok := r.Catalog.Tool(node.ToolID); ok && tool.Category == fabric.CategoryInput {
		if value := node.DataString("value"); !fabric.IsEmptyValue(value) {
			return fabric.TextValue(value), true
		}
	}

	return fabric.Value{}, false
}

// CanResolve reports whether the port would resolve to a usable value,
// treating an existing connection as resolvable regardless of whether the
// upstream node has produced output yet. The validation gate uses this
// before anything has executed.
func (r *Resolver) CanResolve(node *fabric.WorkflowNode, portID string) bool {
	if _, ok := r.Workflow.ConnectionTo(node.ID, portID); ok {
		return true
	}
	if pinned, ok := r.Workflow.GlobalInput(node.ID, portID); ok && pinned != "" {
		return true
	}
	if tool, ok := r.Catalog.Tool(node.ToolID); ok && tool.Category == fabric.CategoryInput {
		return !fabric.IsEmptyValue(node.DataString("value"))
	}
	return false
}
