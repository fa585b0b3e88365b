package fabric

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Catalog is the immutable set of tool definitions available to a
// workflow. Build one at process start with NewCatalog or LoadCatalog.
type Catalog struct {
	tools map[string]*ToolDefinition
	order []string
}

// NewCatalog creates a catalog from a list of tool definitions.
func NewCatalog(tools []*ToolDefinition) (*Catalog, error) {
	c := &Catalog{tools: make(map[string]*ToolDefinition, len(tools))}
	for _, tool := range tools {
		if tool.ID == "" {
			return nil, fmt.Errorf("tool id required")
		}
		if _, exists := c.tools[tool.ID]; exists {
			return nil, fmt.Errorf("duplicate tool id: %s", tool.ID)
		}
		c.tools[tool.ID] = tool
		c.order = append(c.order, tool.ID)
	}
	return c, nil
}

// LoadCatalog reads tool definitions from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var doc struct {
		Tools []*ToolDefinition `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewCatalog(doc.Tools)
}

// Tool returns the definition for the given tool id.
func (c *Catalog) Tool(id string) (*ToolDefinition, bool) {
	tool, ok := c.tools[id]
	return tool, ok
}

// Tools returns all definitions in registration order.
func (c *Catalog) Tools() []*ToolDefinition {
	result := make([]*ToolDefinition, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.tools[id])
	}
	return result
}

// EffectiveOutputs resolves a node's output port set: the node-local
// custom outputs for dynamic-output tools (each a text port), otherwise
// the tool's static output list.
func (c *Catalog) EffectiveOutputs(node *WorkflowNode) ([]Port, error) {
	tool, ok := c.Tool(node.ToolID)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", node.ToolID)
	}
	if tool.DynamicOutputs {
		custom := node.CustomOutputs()
		if len(custom) > 0 {
			ports := make([]Port, 0, len(custom))
			for _, out := range custom {
				ports = append(ports, Port{ID: out.ID, Type: TypeText, Label: out.Label})
			}
			return ports, nil
		}
	}
	return tool.Outputs, nil
}

// RequiresTaskService reports whether the node routes through the
// external task-based backend, either because the tool always does or
// because the selected model does.
func (c *Catalog) RequiresTaskService(node *WorkflowNode) bool {
	tool, ok := c.Tool(node.ToolID)
	if !ok {
		return false
	}
	if tool.RequiresTaskService {
		return true
	}
	if model, ok := tool.Model(node.DataString("model")); ok {
		return model.RequiresTaskService
	}
	return false
}

// DefaultCatalog returns the built-in tool set: one literal input tool
// per data type and the four model-backed generation tools.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog([]*ToolDefinition{
		{
			ID:       "text-input",
			Name:     "Text",
			Category: CategoryInput,
			Kind:     KindInput,
			Outputs:  []Port{{ID: "value", Type: TypeText, Label: "Text"}},
		},
		{
			ID:       "image-input",
			Name:     "Image",
			Category: CategoryInput,
			Kind:     KindInput,
			Outputs:  []Port{{ID: "value", Type: TypeImage, Label: "Image"}},
		},
		{
			ID:       "audio-input",
			Name:     "Audio",
			Category: CategoryInput,
			Kind:     KindInput,
			Outputs:  []Port{{ID: "value", Type: TypeAudio, Label: "Audio"}},
		},
		{
			ID:       "video-input",
			Name:     "Video",
			Category: CategoryInput,
			Kind:     KindInput,
			Outputs:  []Port{{ID: "value", Type: TypeVideo, Label: "Video"}},
		},
		{
			ID:             "llm",
			Name:           "Language Model",
			Category:       CategoryModel,
			Kind:           KindText,
			Inputs:         []Port{{ID: "prompt", Type: TypeText, Label: "Prompt"}},
			Outputs:        []Port{{ID: "text", Type: TypeText, Label: "Text"}},
			DynamicOutputs: true,
			Models: []ModelOption{
				{ID: "gpt-4o", Name: "GPT-4o"},
				{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
			},
		},
		{
			ID:       "image-generator",
			Name:     "Image Generator",
			Category: CategoryModel,
			Kind:     KindImage,
			Inputs: []Port{
				{ID: "prompt", Type: TypeText, Label: "Prompt"},
				{ID: "reference", Type: TypeImage, Label: "Reference Image", Optional: true},
			},
			Outputs: []Port{{ID: "image", Type: TypeImage, Label: "Image"}},
			Models: []ModelOption{
				{ID: "gpt-image-1", Name: "GPT Image 1"},
				{ID: "imagen-4.0-generate-001", Name: "Imagen 4"},
			},
		},
		{
			ID:       "speech-generator",
			Name:     "Speech Generator",
			Category: CategoryModel,
			Kind:     KindSpeech,
			Inputs:   []Port{{ID: "text", Type: TypeText, Label: "Text"}},
			Outputs:  []Port{{ID: "audio", Type: TypeAudio, Label: "Audio"}},
			Models: []ModelOption{
				{ID: "gpt-4o-mini-tts", Name: "GPT-4o Mini TTS"},
				{ID: "cloned-voice", Name: "Cloned Voice", RequiresTaskService: true},
			},
		},
		{
			ID:       "video-generator",
			Name:     "Video Generator",
			Category: CategoryModel,
			Kind:     KindVideo,
			Inputs: []Port{
				{ID: "prompt", Type: TypeText, Label: "Prompt"},
				{ID: "start", Type: TypeImage, Label: "Start Image", Optional: true},
				{ID: "reference", Type: TypeVideo, Label: "Reference Video", Optional: true},
			},
			Outputs: []Port{{ID: "video", Type: TypeVideo, Label: "Video"}},
			Models: []ModelOption{
				{ID: "veo-2.0-generate-001", Name: "Veo 2"},
				{ID: "kling-v2", Name: "Kling V2", RequiresTaskService: true},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return catalog
}
