package fabric

// DataType identifies the kind of payload carried by a port.
type DataType string

const (
	TypeText  DataType = "text"
	TypeImage DataType = "image"
	TypeAudio DataType = "audio"
	TypeVideo DataType = "video"
)

// Port is a named, typed socket on a tool. Ports are static definitions
// and are never mutated at runtime. The one exception is the output port
// list of dynamic-output tools, which is derived per node from its
// configured custom outputs (see Catalog.EffectiveOutputs).
type Port struct {
	ID       string   `json:"id" yaml:"id"`
	Type     DataType `json:"type" yaml:"type"`
	Label    string   `json:"label" yaml:"label"`
	Optional bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Value is the resolved output of a node: either a single scalar payload
// (text, an image URL or data string, an audio payload, a video URL) or a
// map of named fields produced by a dynamic-output model step.
type Value struct {
	Scalar string            `json:"scalar,omitempty" yaml:"scalar,omitempty"`
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// TextValue returns a scalar Value holding the given payload.
func TextValue(s string) Value {
	return Value{Scalar: s}
}

// FieldsValue returns a multi-field Value.
func FieldsValue(fields map[string]string) Value {
	return Value{Fields: fields}
}

// IsZero reports whether the value carries no payload at all.
func (v Value) IsZero() bool {
	return v.Scalar == "" && len(v.Fields) == 0
}

// Field returns the payload routed through the given output port. For
// multi-field values the port id selects a field; scalar values ignore
// the port id entirely.
func (v Value) Field(portID string) (string, bool) {
	if v.Fields != nil {
		value, ok := v.Fields[portID]
		return value, ok
	}
	if v.Scalar == "" {
		return "", false
	}
	return v.Scalar, true
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	if v.Fields == nil {
		return v
	}
	fields := make(map[string]string, len(v.Fields))
	for k, val := range v.Fields {
		fields[k] = val
	}
	return Value{Scalar: v.Scalar, Fields: fields}
}

// IsEmptyValue implements the emptiness rule used by input resolution and
// validation: nil, an empty string, and a zero-length slice all count as
// empty. Everything else is a usable value.
func IsEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
