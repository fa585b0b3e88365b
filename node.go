package fabric

import (
	"time"

	"github.com/google/uuid"
)

// NodeStatus is the lifecycle state of a node within a run.
type NodeStatus string

const (
	StatusIdle    NodeStatus = "idle"
	StatusRunning NodeStatus = "running"
	StatusSuccess NodeStatus = "success"
	StatusError   NodeStatus = "error"
)

// Position is a node's location on the editor canvas.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// WorkflowNode is an instantiated, configured use of a tool within a
// workflow. Node identity is stable across runs; only the status and the
// derived timing and error fields reset.
type WorkflowNode struct {
	ID            string         `json:"id" yaml:"id"`
	ToolID        string         `json:"tool_id" yaml:"tool_id"`
	Position      Position       `json:"position" yaml:"position"`
	Status        NodeStatus     `json:"status" yaml:"status"`
	Data          map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Error         string         `json:"error,omitempty" yaml:"error,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time,omitempty" yaml:"execution_time,omitempty"`
	StartTime     time.Time      `json:"start_time,omitempty" yaml:"start_time,omitempty"`
}

// NewNode creates an idle node for the given tool.
func NewNode(toolID string, pos Position) *WorkflowNode {
	return &WorkflowNode{
		ID:       uuid.NewString(),
		ToolID:   toolID,
		Position: pos,
		Status:   StatusIdle,
		Data:     map[string]any{},
	}
}

// DataString returns the node's configuration value for the given key as
// a string, or "" if unset or not a string.
func (n *WorkflowNode) DataString(key string) string {
	if n.Data == nil {
		return ""
	}
	value, _ := n.Data[key].(string)
	return value
}

// DataBool returns the node's configuration value for the given key as a
// bool, or false if unset or not a bool.
func (n *WorkflowNode) DataBool(key string) bool {
	if n.Data == nil {
		return false
	}
	value, _ := n.Data[key].(bool)
	return value
}

// SetData writes one configuration value. Use WorkflowState.UpdateNodeData
// instead when the node belongs to a workflow, so the status reset and
// running-edit rejection apply.
func (n *WorkflowNode) SetData(key string, value any) {
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	n.Data[key] = value
}

// CustomOutputs decodes the node's configured output field descriptors.
// The list survives JSON round-trips, so both the typed form and the
// generic map form are accepted.
func (n *WorkflowNode) CustomOutputs() []CustomOutput {
	raw, ok := n.Data["custom_outputs"]
	if !ok {
		return nil
	}
	switch value := raw.(type) {
	case []CustomOutput:
		return value
	case []any:
		outputs := make([]CustomOutput, 0, len(value))
		for _, item := range value {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out := CustomOutput{}
			out.ID, _ = entry["id"].(string)
			out.Label, _ = entry["label"].(string)
			out.Description, _ = entry["description"].(string)
			if out.ID != "" {
				outputs = append(outputs, out)
			}
		}
		return outputs
	default:
		return nil
	}
}

// ResetStatus returns the node to idle and clears run-derived fields.
func (n *WorkflowNode) ResetStatus() {
	n.Status = StatusIdle
	n.Error = ""
	n.ExecutionTime = 0
	n.StartTime = time.Time{}
}

// Clone returns a deep copy of the node.
func (n *WorkflowNode) Clone() *WorkflowNode {
	clone := *n
	if n.Data != nil {
		clone.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			clone.Data[k] = v
		}
	}
	return &clone
}
