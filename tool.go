package fabric

// ToolCategory distinguishes literal input tools from model-backed tools.
type ToolCategory string

const (
	CategoryInput ToolCategory = "input"
	CategoryModel ToolCategory = "model"
)

// ToolKind selects the generation adapter a node is dispatched to.
type ToolKind string

const (
	KindInput  ToolKind = "input"
	KindText   ToolKind = "text"
	KindImage  ToolKind = "image"
	KindSpeech ToolKind = "speech"
	KindVideo  ToolKind = "video"
)

// ModelOption is one selectable underlying model for a tool.
type ModelOption struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// RequiresTaskService marks models served by the external task-based
	// backend, which needs an endpoint URL and access token configured on
	// the workflow environment.
	RequiresTaskService bool `json:"requires_task_service,omitempty" yaml:"requires_task_service,omitempty"`
}

// ToolDefinition is a catalog entry describing a callable capability. It
// is immutable and loaded once at process start; the catalog is the single
// source of truth mapping a tool id to its contract.
type ToolDefinition struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Category ToolCategory `json:"category" yaml:"category"`
	Kind     ToolKind     `json:"kind" yaml:"kind"`
	Inputs   []Port       `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs  []Port       `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Models   []ModelOption `json:"models,omitempty" yaml:"models,omitempty"`

	// DynamicOutputs marks tools whose output port list is derived from the
	// node's configured custom outputs rather than the static Outputs list.
	DynamicOutputs bool `json:"dynamic_outputs,omitempty" yaml:"dynamic_outputs,omitempty"`

	// RequiresTaskService marks tools that always route through the external
	// task-based backend, regardless of the selected model.
	RequiresTaskService bool `json:"requires_task_service,omitempty" yaml:"requires_task_service,omitempty"`
}

// Model returns the model option with the given id, if the tool has one.
func (t *ToolDefinition) Model(id string) (ModelOption, bool) {
	for _, m := range t.Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelOption{}, false
}

// Input returns the declared input port with the given id.
func (t *ToolDefinition) Input(id string) (Port, bool) {
	for _, p := range t.Inputs {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// CustomOutput is a user-defined named output field on a dynamic-output
// node. Each becomes a text-typed output port keyed by the chosen id.
type CustomOutput struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}
