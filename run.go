package fabric

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrWorkflowRunning is returned when a configuration edit is attempted
// while a run is active.
var ErrWorkflowRunning = errors.New("workflow is running")

// GenerationRun is a point-in-time capture of a completed run: the
// outputs of every node that executed and a snapshot of all nodes as of
// run completion. Immutable once appended to a workflow's history.
type GenerationRun struct {
	ID            string           `json:"id" yaml:"id"`
	Timestamp     time.Time        `json:"timestamp" yaml:"timestamp"`
	Outputs       map[string]Value `json:"outputs" yaml:"outputs"`
	NodesSnapshot []*WorkflowNode  `json:"nodes_snapshot" yaml:"nodes_snapshot"`
	TotalTime     time.Duration    `json:"total_time" yaml:"total_time"`
}

// NewGenerationRun assembles an immutable run record. Outputs are
// deep-copied so later live-store mutation cannot leak into history.
func NewGenerationRun(outputs map[string]Value, nodes []*WorkflowNode, totalTime time.Duration) *GenerationRun {
	copied := make(map[string]Value, len(outputs))
	for nodeID, value := range outputs {
		copied[nodeID] = value.Clone()
	}
	return &GenerationRun{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		Outputs:       copied,
		NodesSnapshot: nodes,
		TotalTime:     totalTime,
	}
}
