package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(id, toolID string) *WorkflowNode {
	return &WorkflowNode{ID: id, ToolID: toolID, Status: StatusIdle, Data: map[string]any{}}
}

func TestAddNode(t *testing.T) {
	wf := NewWorkflow("test")
	require.NoError(t, wf.AddNode(newTestNode("a", "text-input")))
	require.Error(t, wf.AddNode(newTestNode("a", "text-input")), "duplicate id rejected")
	require.Error(t, wf.AddNode(&WorkflowNode{}), "empty id rejected")

	node, ok := wf.Node("a")
	require.True(t, ok)
	assert.Equal(t, "text-input", node.ToolID)
	assert.True(t, wf.Dirty)
}

func TestConnectReplacesPriorConnection(t *testing.T) {
	wf := NewWorkflow("test")
	require.NoError(t, wf.AddNode(newTestNode("a", "text-input")))
	require.NoError(t, wf.AddNode(newTestNode("b", "text-input")))
	require.NoError(t, wf.AddNode(newTestNode("c", "llm")))

	first, err := wf.Connect("a", "value", "c", "prompt")
	require.NoError(t, err)
	second, err := wf.Connect("b", "value", "c", "prompt")
	require.NoError(t, err)

	require.Len(t, wf.Connections, 1)
	assert.NotEqual(t, first.ID, second.ID)

	conn, ok := wf.ConnectionTo("c", "prompt")
	require.True(t, ok)
	assert.Equal(t, "b", conn.SourceNodeID)
}

func TestConnectValidation(t *testing.T) {
	wf := NewWorkflow("test")
	require.NoError(t, wf.AddNode(newTestNode("a", "text-input")))

	_, err := wf.Connect("a", "value", "missing", "prompt")
	require.Error(t, err)
	_, err = wf.Connect("missing", "value", "a", "prompt")
	require.Error(t, err)
	_, err = wf.Connect("a", "value", "a", "prompt")
	require.Error(t, err, "self-loop rejected")
}

func TestConnectFanOutAllowed(t *testing.T) {
	wf := NewWorkflow("test")
	require.NoError(t, wf.AddNode(newTestNode("a", "text-input")))
	require.NoError(t, wf.AddNode(newTestNode("b", "llm")))
	require.NoError(t, wf.AddNode(newTestNode("c", "llm")))

	_, err := wf.Connect("a", "value", "b", "prompt")
	require.NoError(t, err)
	_, err = wf.Connect("a", "value", "c", "prompt")
	require.NoError(t, err)
	assert.Len(t, wf.Connections, 2)
}

func TestRemoveNodeCascades(t *testing.T) {
	wf := NewWorkflow("test")
	require.NoError(t, wf.AddNode(newTestNode("a", "text-input")))
	require.NoError(t, wf.AddNode(newTestNode("b", "llm")))
	require.NoError(t, wf.AddNode(newTestNode("c", "llm")))
	_, err := wf.Connect("a", "value", "b", "prompt")
	require.NoError(t, err)
	_, err = wf.Connect("b", "text", "c", "prompt")
	require.NoError(t, err)
	wf.SetGlobalInput("b", "prompt", "pinned")
	wf.SetGlobalInput("c", "prompt", "kept")

	require.NoError(t, wf.RemoveNode("b"))

	_, ok := wf.Node("b")
	assert.False(t, ok)
	assert.Empty(t, wf.Connections, "connections touching the node removed")
	_, ok = wf.GlobalInput("b", "prompt")
	assert.False(t, ok, "pinned inputs for the node removed")
	_, ok = wf.GlobalInput("c", "prompt")
	assert.True(t, ok, "other nodes' pins untouched")

	require.Error(t, wf.RemoveNode("b"), "second removal fails")
}

func TestDisconnect(t *testing.T) {
	wf := NewWorkflow("test")
	require.NoError(t, wf.AddNode(newTestNode("a", "text-input")))
	require.NoError(t, wf.AddNode(newTestNode("b", "llm")))
	conn, err := wf.Connect("a", "value", "b", "prompt")
	require.NoError(t, err)

	require.NoError(t, wf.Disconnect(conn.ID))
	assert.Empty(t, wf.Connections)
	require.Error(t, wf.Disconnect(conn.ID))
}

func TestSetGlobalInput(t *testing.T) {
	wf := NewWorkflow("test")
	wf.SetGlobalInput("n", "p", "v")

	value, ok := wf.GlobalInput("n", "p")
	require.True(t, ok)
	assert.Equal(t, "v", value)

	// Empty value removes the pin.
	wf.SetGlobalInput("n", "p", "")
	_, ok = wf.GlobalInput("n", "p")
	assert.False(t, ok)
}

func TestUpdateNodeDataResetsStatus(t *testing.T) {
	wf := NewWorkflow("test")
	node := newTestNode("a", "llm")
	node.Status = StatusSuccess
	node.Error = "old"
	require.NoError(t, wf.AddNode(node))

	require.NoError(t, wf.UpdateNodeData("a", "model", "gpt-4o"))
	assert.Equal(t, StatusIdle, node.Status)
	assert.Empty(t, node.Error)
	assert.Equal(t, "gpt-4o", node.DataString("model"))

	require.Error(t, wf.UpdateNodeData("missing", "model", "x"))
}

func TestEditsRejectedWhileRunning(t *testing.T) {
	wf := NewWorkflow("test")
	require.NoError(t, wf.AddNode(newTestNode("a", "text-input")))
	require.NoError(t, wf.AddNode(newTestNode("b", "llm")))
	conn, err := wf.Connect("a", "value", "b", "prompt")
	require.NoError(t, err)

	wf.Running = true
	assert.ErrorIs(t, wf.AddNode(newTestNode("c", "llm")), ErrWorkflowRunning)
	assert.ErrorIs(t, wf.RemoveNode("a"), ErrWorkflowRunning)
	assert.ErrorIs(t, wf.UpdateNodeData("a", "value", "x"), ErrWorkflowRunning)
	assert.ErrorIs(t, wf.Disconnect(conn.ID), ErrWorkflowRunning)
	_, err = wf.Connect("b", "text", "a", "prompt")
	assert.ErrorIs(t, err, ErrWorkflowRunning)
}

func TestAppendRunAndLookup(t *testing.T) {
	wf := NewWorkflow("test")
	run := NewGenerationRun(map[string]Value{"a": TextValue("out")}, nil, 0)
	wf.AppendRun(run)

	found, ok := wf.Run(run.ID)
	require.True(t, ok)
	assert.Equal(t, "out", found.Outputs["a"].Scalar)

	_, ok = wf.Run("missing")
	assert.False(t, ok)
}

func TestSnapshotNodesIsDeepCopy(t *testing.T) {
	wf := NewWorkflow("test")
	node := newTestNode("a", "llm")
	node.SetData("model", "gpt-4o")
	require.NoError(t, wf.AddNode(node))

	snapshot := wf.SnapshotNodes()
	require.Len(t, snapshot, 1)

	node.SetData("model", "changed")
	node.Status = StatusError
	assert.Equal(t, "gpt-4o", snapshot[0].DataString("model"))
	assert.Equal(t, StatusIdle, snapshot[0].Status)
}

func TestGenerationRunCopiesOutputs(t *testing.T) {
	outputs := map[string]Value{
		"a": FieldsValue(map[string]string{"k": "v"}),
	}
	run := NewGenerationRun(outputs, nil, 0)

	outputs["a"].Fields["k"] = "mutated"
	assert.Equal(t, "v", run.Outputs["a"].Fields["k"])
}
