package fabric

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Connection is a directed edge from one node's output port to another
// node's input port. At most one connection may target a given
// (node, port) pair; fan-out from an output port is unrestricted.
type Connection struct {
	ID           string `json:"id" yaml:"id"`
	SourceNodeID string `json:"source_node_id" yaml:"source_node_id"`
	SourcePortID string `json:"source_port_id" yaml:"source_port_id"`
	TargetNodeID string `json:"target_node_id" yaml:"target_node_id"`
	TargetPortID string `json:"target_port_id" yaml:"target_port_id"`
}

// Env holds the external task-service configuration required by tools and
// models flagged with RequiresTaskService.
type Env struct {
	TaskServiceURL   string `json:"task_service_url,omitempty" yaml:"task_service_url,omitempty"`
	TaskServiceToken string `json:"task_service_token,omitempty" yaml:"task_service_token,omitempty"`
}

// GlobalInputKey builds the pinned-input key for a (node, port) pair.
func GlobalInputKey(nodeID, portID string) string {
	return nodeID + "-" + portID
}

// WorkflowState is the aggregate root: the node list, connection list,
// pinned global inputs, environment configuration, and the append-only run
// history. The in-memory instance is the single mutable copy; persistence
// writes full snapshots. It is not safe for concurrent use — the engine
// serializes run-time mutation and rejects configuration edits while a
// run is active.
type WorkflowState struct {
	ID                      string            `json:"id" yaml:"id"`
	Name                    string            `json:"name" yaml:"name"`
	Nodes                   []*WorkflowNode   `json:"nodes" yaml:"nodes"`
	Connections             []*Connection     `json:"connections" yaml:"connections"`
	GlobalInputs            map[string]string `json:"global_inputs,omitempty" yaml:"global_inputs,omitempty"`
	Env                     Env               `json:"env" yaml:"env"`
	History                 []*GenerationRun  `json:"history,omitempty" yaml:"history,omitempty"`
	ShowIntermediateResults bool              `json:"show_intermediate_results,omitempty" yaml:"show_intermediate_results,omitempty"`
	UpdatedAt               time.Time         `json:"updated_at" yaml:"updated_at"`
	Dirty                   bool              `json:"-" yaml:"-"`
	Running                 bool              `json:"-" yaml:"-"`
}

// NewWorkflow creates an empty workflow.
func NewWorkflow(name string) *WorkflowState {
	return &WorkflowState{
		ID:           uuid.NewString(),
		Name:         name,
		GlobalInputs: map[string]string{},
		UpdatedAt:    time.Now(),
	}
}

// Node returns the node with the given id.
func (w *WorkflowState) Node(id string) (*WorkflowNode, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return nil, false
}

// AddNode appends a node to the workflow.
func (w *WorkflowState) AddNode(node *WorkflowNode) error {
	if w.Running {
		return ErrWorkflowRunning
	}
	if node.ID == "" {
		return fmt.Errorf("node id required")
	}
	if _, exists := w.Node(node.ID); exists {
		return fmt.Errorf("duplicate node id: %s", node.ID)
	}
	w.Nodes = append(w.Nodes, node)
	w.touch()
	return nil
}

// RemoveNode deletes a node, cascading to every connection touching it
// and to its pinned global inputs.
func (w *WorkflowState) RemoveNode(id string) error {
	if w.Running {
		return ErrWorkflowRunning
	}
	found := false
	nodes := w.Nodes[:0]
	for _, node := range w.Nodes {
		if node.ID == id {
			found = true
			continue
		}
		nodes = append(nodes, node)
	}
	if !found {
		return fmt.Errorf("unknown node: %s", id)
	}
	w.Nodes = nodes

	connections := w.Connections[:0]
	for _, conn := range w.Connections {
		if conn.SourceNodeID == id || conn.TargetNodeID == id {
			continue
		}
		connections = append(connections, conn)
	}
	w.Connections = connections

	prefix := id + "-"
	for key := range w.GlobalInputs {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(w.GlobalInputs, key)
		}
	}
	w.touch()
	return nil
}

// Connect adds a connection between two existing nodes. A prior
// connection targeting the same input port is replaced, preserving the
// single-source invariant.
func (w *WorkflowState) Connect(sourceNodeID, sourcePortID, targetNodeID, targetPortID string) (*Connection, error) {
	if w.Running {
		return nil, ErrWorkflowRunning
	}
	if _, ok := w.Node(sourceNodeID); !ok {
		return nil, fmt.Errorf("unknown source node: %s", sourceNodeID)
	}
	if _, ok := w.Node(targetNodeID); !ok {
		return nil, fmt.Errorf("unknown target node: %s", targetNodeID)
	}
	if sourceNodeID == targetNodeID {
		return nil, fmt.Errorf("node cannot connect to itself: %s", sourceNodeID)
	}

	connections := w.Connections[:0]
	for _, conn := range w.Connections {
		if conn.TargetNodeID == targetNodeID && conn.TargetPortID == targetPortID {
			continue
		}
		connections = append(connections, conn)
	}
	conn := &Connection{
		ID:           uuid.NewString(),
		SourceNodeID: sourceNodeID,
		SourcePortID: sourcePortID,
		TargetNodeID: targetNodeID,
		TargetPortID: targetPortID,
	}
	w.Connections = append(connections, conn)
	w.touch()
	return conn, nil
}

// Disconnect removes the connection with the given id.
func (w *WorkflowState) Disconnect(connectionID string) error {
	if w.Running {
		return ErrWorkflowRunning
	}
	for i, conn := range w.Connections {
		if conn.ID == connectionID {
			w.Connections = append(w.Connections[:i], w.Connections[i+1:]...)
			w.touch()
			return nil
		}
	}
	return fmt.Errorf("unknown connection: %s", connectionID)
}

// ConnectionTo returns the unique connection targeting the given input
// port, if one exists.
func (w *WorkflowState) ConnectionTo(nodeID, portID string) (*Connection, bool) {
	for _, conn := range w.Connections {
		if conn.TargetNodeID == nodeID && conn.TargetPortID == portID {
			return conn, true
		}
	}
	return nil, false
}

// SetGlobalInput pins a value for an otherwise-unconnected input port.
// An empty value removes the pin.
func (w *WorkflowState) SetGlobalInput(nodeID, portID, value string) {
	if w.GlobalInputs == nil {
		w.GlobalInputs = map[string]string{}
	}
	key := GlobalInputKey(nodeID, portID)
	if value == "" {
		delete(w.GlobalInputs, key)
	} else {
		w.GlobalInputs[key] = value
	}
	w.touch()
}

// GlobalInput returns the pinned value for the given input port.
func (w *WorkflowState) GlobalInput(nodeID, portID string) (string, bool) {
	value, ok := w.GlobalInputs[GlobalInputKey(nodeID, portID)]
	return value, ok
}

// UpdateNodeData writes one configuration value on a node. The node drops
// back to idle, invalidating its cached output contribution. Edits are
// rejected while a run is active.
func (w *WorkflowState) UpdateNodeData(nodeID, key string, value any) error {
	if w.Running {
		return ErrWorkflowRunning
	}
	node, ok := w.Node(nodeID)
	if !ok {
		return fmt.Errorf("unknown node: %s", nodeID)
	}
	node.SetData(key, value)
	node.ResetStatus()
	w.touch()
	return nil
}

// AppendRun records a completed run in the append-only history.
func (w *WorkflowState) AppendRun(run *GenerationRun) {
	w.History = append(w.History, run)
	w.touch()
}

// Run returns the historical run with the given id.
func (w *WorkflowState) Run(id string) (*GenerationRun, bool) {
	for _, run := range w.History {
		if run.ID == id {
			return run, true
		}
	}
	return nil, false
}

// SnapshotNodes deep-copies the node list for a run record.
func (w *WorkflowState) SnapshotNodes() []*WorkflowNode {
	nodes := make([]*WorkflowNode, 0, len(w.Nodes))
	for _, node := range w.Nodes {
		nodes = append(nodes, node.Clone())
	}
	return nodes
}

func (w *WorkflowState) touch() {
	w.Dirty = true
	w.UpdatedAt = time.Now()
}
