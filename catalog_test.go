package fabric

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	tools := catalog.Tools()
	require.Len(t, tools, 8)

	llm, ok := catalog.Tool("llm")
	require.True(t, ok)
	assert.Equal(t, CategoryModel, llm.Category)
	assert.Equal(t, KindText, llm.Kind)
	assert.True(t, llm.DynamicOutputs)

	prompt, ok := llm.Input("prompt")
	require.True(t, ok)
	assert.Equal(t, TypeText, prompt.Type)

	_, ok = catalog.Tool("nonexistent")
	assert.False(t, ok)
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]*ToolDefinition{
		{ID: "a", Name: "A"},
		{ID: "a", Name: "A again"},
	})
	require.Error(t, err)

	_, err = NewCatalog([]*ToolDefinition{{Name: "no id"}})
	require.Error(t, err)
}

func TestEffectiveOutputsStatic(t *testing.T) {
	catalog := DefaultCatalog()
	node := NewNode("image-generator", Position{})

	ports, err := catalog.EffectiveOutputs(node)
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "image", ports[0].ID)
	assert.Equal(t, TypeImage, ports[0].Type)
}

func TestEffectiveOutputsCustom(t *testing.T) {
	catalog := DefaultCatalog()
	node := NewNode("llm", Position{})
	node.SetData("custom_outputs", []CustomOutput{
		{ID: "title", Label: "Title"},
		{ID: "body", Label: "Body"},
	})

	ports, err := catalog.EffectiveOutputs(node)
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, "title", ports[0].ID)
	assert.Equal(t, TypeText, ports[0].Type, "custom outputs are always text")
	assert.Equal(t, "body", ports[1].ID)
}

func TestEffectiveOutputsDynamicWithoutCustomFallsBack(t *testing.T) {
	catalog := DefaultCatalog()
	node := NewNode("llm", Position{})

	ports, err := catalog.EffectiveOutputs(node)
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "text", ports[0].ID)
}

func TestEffectiveOutputsUnknownTool(t *testing.T) {
	catalog := DefaultCatalog()
	node := NewNode("mystery", Position{})
	_, err := catalog.EffectiveOutputs(node)
	require.Error(t, err)
}

func TestRequiresTaskService(t *testing.T) {
	catalog := DefaultCatalog()

	regular := NewNode("speech-generator", Position{})
	regular.SetData("model", "gpt-4o-mini-tts")
	assert.False(t, catalog.RequiresTaskService(regular))

	cloned := NewNode("speech-generator", Position{})
	cloned.SetData("model", "cloned-voice")
	assert.True(t, catalog.RequiresTaskService(cloned))

	// Tool-level flag wins regardless of model selection.
	flagged, err := NewCatalog([]*ToolDefinition{{
		ID:                  "always-remote",
		Name:                "Remote",
		Kind:                KindVideo,
		RequiresTaskService: true,
	}})
	require.NoError(t, err)
	node := NewNode("always-remote", Position{})
	assert.True(t, flagged.RequiresTaskService(node))
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")
	doc := `tools:
  - id: sketcher
    name: Sketcher
    category: model
    kind: image
    inputs:
      - id: prompt
        type: text
        label: Prompt
    outputs:
      - id: image
        type: image
        label: Image
    models:
      - id: pencil-v1
        name: Pencil V1
      - id: remote-ink
        name: Remote Ink
        requires_task_service: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	tool, ok := catalog.Tool("sketcher")
	require.True(t, ok)
	assert.Equal(t, KindImage, tool.Kind)
	require.Len(t, tool.Models, 2)

	model, ok := tool.Model("remote-ink")
	require.True(t, ok)
	assert.True(t, model.RequiresTaskService)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
