package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueField(t *testing.T) {
	scalar := TextValue("payload")
	value, ok := scalar.Field("anything")
	require.True(t, ok)
	assert.Equal(t, "payload", value)

	fields := FieldsValue(map[string]string{"title": "Dawn", "body": "A story."})
	value, ok = fields.Field("title")
	require.True(t, ok)
	assert.Equal(t, "Dawn", value)

	_, ok = fields.Field("missing")
	assert.False(t, ok)

	_, ok = Value{}.Field("anything")
	assert.False(t, ok)
}

func TestValueIsZero(t *testing.T) {
	assert.True(t, Value{}.IsZero())
	assert.False(t, TextValue("x").IsZero())
	assert.False(t, FieldsValue(map[string]string{"a": ""}).IsZero())
}

func TestValueClone(t *testing.T) {
	original := FieldsValue(map[string]string{"a": "1"})
	clone := original.Clone()
	original.Fields["a"] = "2"
	assert.Equal(t, "1", clone.Fields["a"])
}

func TestIsEmptyValue(t *testing.T) {
	assert.True(t, IsEmptyValue(nil))
	assert.True(t, IsEmptyValue(""))
	assert.True(t, IsEmptyValue([]string{}))
	assert.True(t, IsEmptyValue([]any{}))
	assert.False(t, IsEmptyValue("x"))
	assert.False(t, IsEmptyValue([]string{"x"}))
	assert.False(t, IsEmptyValue(0), "numbers are never empty")
	assert.False(t, IsEmptyValue(false))
}

func TestCustomOutputsDecoding(t *testing.T) {
	node := NewNode("llm", Position{})

	assert.Nil(t, node.CustomOutputs())

	node.SetData("custom_outputs", []CustomOutput{{ID: "a", Label: "A"}})
	outputs := node.CustomOutputs()
	require.Len(t, outputs, 1)
	assert.Equal(t, "a", outputs[0].ID)

	// The generic form appears after a JSON round-trip of node data.
	node.SetData("custom_outputs", []any{
		map[string]any{"id": "b", "label": "B", "description": "second"},
		map[string]any{"label": "no id, skipped"},
		"not a map, skipped",
	})
	outputs = node.CustomOutputs()
	require.Len(t, outputs, 1)
	assert.Equal(t, "b", outputs[0].ID)
	assert.Equal(t, "second", outputs[0].Description)
}

func TestNodeDataAccessors(t *testing.T) {
	node := &WorkflowNode{ID: "n", ToolID: "llm"}
	assert.Empty(t, node.DataString("model"))
	assert.False(t, node.DataBool("flag"))

	node.SetData("model", "gpt-4o")
	node.SetData("flag", true)
	node.SetData("number", 7)
	assert.Equal(t, "gpt-4o", node.DataString("model"))
	assert.True(t, node.DataBool("flag"))
	assert.Empty(t, node.DataString("number"), "non-string reads as empty")
}

func TestResetStatus(t *testing.T) {
	node := NewNode("llm", Position{})
	node.Status = StatusError
	node.Error = "boom"
	node.ExecutionTime = 5

	node.ResetStatus()
	assert.Equal(t, StatusIdle, node.Status)
	assert.Empty(t, node.Error)
	assert.Zero(t, node.ExecutionTime)
	assert.True(t, node.StartTime.IsZero())
}
