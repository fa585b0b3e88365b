package engine

import (
	"testing"

	"github.com/fabricworks/fabric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConnection(t *testing.T) {
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(textInputNode("src", "hello")))
	require.NoError(t, wf.AddNode(llmNode("dst")))
	_, err := wf.Connect("src", "value", "dst", "prompt")
	require.NoError(t, err)

	resolver := &Resolver{
		Workflow: wf,
		Catalog:  fabric.DefaultCatalog(),
		Outputs:  map[string]fabric.Value{"src": fabric.TextValue("hello")},
	}

	dst, _ := wf.Node("dst")
	value, ok := resolver.Resolve(dst, "prompt")
	require.True(t, ok)
	assert.Equal(t, "hello", value.Scalar)
}

func TestResolveConnectionSubIndexesFields(t *testing.T) {
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(llmNode("src")))
	require.NoError(t, wf.AddNode(llmNode("dst")))
	_, err := wf.Connect("src", "style", "dst", "prompt")
	require.NoError(t, err)

	resolver := &Resolver{
		Workflow: wf,
		Catalog:  fabric.DefaultCatalog(),
		Outputs: map[string]fabric.Value{
			"src": fabric.FieldsValue(map[string]string{"subject": "a fox", "style": "ink wash"}),
		},
	}

	dst, _ := wf.Node("dst")
	value, ok := resolver.Resolve(dst, "prompt")
	require.True(t, ok)
	assert.Equal(t, "ink wash", value.Scalar)
}

func TestResolveConnectionBeatsPinnedInput(t *testing.T) {
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(textInputNode("src", "from wire")))
	require.NoError(t, wf.AddNode(llmNode("dst")))
	_, err := wf.Connect("src", "value", "dst", "prompt")
	require.NoError(t, err)
	wf.SetGlobalInput("dst", "prompt", "from pin")

	resolver := &Resolver{
		Workflow: wf,
		Catalog:  fabric.DefaultCatalog(),
		Outputs:  map[string]fabric.Value{"src": fabric.TextValue("from wire")},
	}

	dst, _ := wf.Node("dst")
	value, ok := resolver.Resolve(dst, "prompt")
	require.True(t, ok)
	assert.Equal(t, "from wire", value.Scalar)
}

func TestResolveConnectionWithoutOutputStaysUnresolved(t *testing.T) {
	// A connected port never falls back to a pinned value.
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(textInputNode("src", "")))
	require.NoError(t, wf.AddNode(llmNode("dst")))
	_, err := wf.Connect("src", "value", "dst", "prompt")
	require.NoError(t, err)
	wf.SetGlobalInput("dst", "prompt", "shadow")

	resolver := &Resolver{
		Workflow: wf,
		Catalog:  fabric.DefaultCatalog(),
		Outputs:  map[string]fabric.Value{},
	}

	dst, _ := wf.Node("dst")
	_, ok := resolver.Resolve(dst, "prompt")
	assert.False(t, ok)
}

func TestResolvePinnedInput(t *testing.T) {
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(llmNode("dst")))
	wf.SetGlobalInput("dst", "prompt", "pinned prompt")

	resolver := &Resolver{Workflow: wf, Catalog: fabric.DefaultCatalog()}

	dst, _ := wf.Node("dst")
	value, ok := resolver.Resolve(dst, "prompt")
	require.True(t, ok)
	assert.Equal(t, "pinned prompt", value.Scalar)
}

func TestResolveSelfLiteral(t *testing.T) {
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(textInputNode("in", "literal")))

	resolver := &Resolver{Workflow: wf, Catalog: fabric.DefaultCatalog()}

	in, _ := wf.Node("in")
	value, ok := resolver.Resolve(in, "value")
	require.True(t, ok)
	assert.Equal(t, "literal", value.Scalar)
}

func TestResolveMissing(t *testing.T) {
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(llmNode("dst")))

	resolver := &Resolver{Workflow: wf, Catalog: fabric.DefaultCatalog()}

	dst, _ := wf.Node("dst")
	_, ok := resolver.Resolve(dst, "prompt")
	assert.False(t, ok)
	assert.False(t, resolver.CanResolve(dst, "prompt"))
}

func TestCanResolveConnectedPortBeforeExecution(t *testing.T) {
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(llmNode("src")))
	require.NoError(t, wf.AddNode(llmNode("dst")))
	_, err := wf.Connect("src", "text", "dst", "prompt")
	require.NoError(t, err)

	resolver := &Resolver{Workflow: wf, Catalog: fabric.DefaultCatalog()}

	dst, _ := wf.Node("dst")
	assert.True(t, resolver.CanResolve(dst, "prompt"))
}

func TestCanResolveEmptyLiteralFails(t *testing.T) {
	wf := fabric.NewWorkflow("r")
	require.NoError(t, wf.AddNode(textInputNode("in", "")))

	resolver := &Resolver{Workflow: wf, Catalog: fabric.DefaultCatalog()}

	in, _ := wf.Node("in")
	assert.False(t, resolver.CanResolve(in, "value"))
}
