package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fabricworks/fabric"
	"github.com/fabricworks/fabric/gen"
	"github.com/fabricworks/fabric/graph"
	"github.com/fabricworks/fabric/slogger"
	"github.com/google/uuid"
)

// RunMode selects which nodes a run targets.
type RunMode string

const (
	// RunFull executes every node in the workflow.
	RunFull RunMode = "full"

	// RunThisOnly executes a single node, resolving its inputs from
	// last-known outputs without re-running upstream nodes.
	RunThisOnly RunMode = "this_only"

	// RunFromHere executes a node and every node reachable forward from
	// it, leaving unrelated branches and strictly-upstream nodes alone.
	RunFromHere RunMode = "from_here"
)

// ErrRunInProgress is returned when Run is called while another run is
// active on the same Runner.
var ErrRunInProgress = errors.New("a run is already in progress")

// StatusCallback observes node status transitions during a run.
type StatusCallback func(nodeID string, status fabric.NodeStatus, errorMessage string)

// Options configures a Runner.
type Options struct {
	Workflow   *fabric.WorkflowState
	Catalog    *fabric.Catalog
	Adapters   *gen.AdapterSet
	Logger     slogger.Logger
	EventStore RunEventStore

	// OnNodeStatus, when set, is invoked after every node status
	// transition.
	OnNodeStatus StatusCallback
}

// Runner drives workflow execution: it schedules the target node set,
// resolves each node's inputs, dispatches to the matching generation
// adapter, tracks per-node status and timing, and assembles immutable
// run records.
//
// Execution is strictly sequential in topological order. Downstream
// nodes of a multi-output model step may not know which fields they need
// until the step completes, and output caching favors simplicity over
// throughput, so independent branches are not run in parallel.
type Runner struct {
	workflow   *fabric.WorkflowState
	catalog    *fabric.Catalog
	adapters   *gen.AdapterSet
	logger     slogger.Logger
	eventStore RunEventStore
	onStatus   StatusCallback

	// outputs is the live output store, keyed by node id. It survives
	// across runs so partial modes can read unrelated nodes' last-known
	// values.
	outputs map[string]fabric.Value

	mutex    sync.Mutex
	running  bool
	paused   bool
	resumeCh chan struct{}
}

// New creates a Runner for the given workflow.
func New(opts Options) (*Runner, error) {
	if opts.Workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if opts.Adapters == nil {
		return nil, fmt.Errorf("adapters are required")
	}
	if opts.Catalog == nil {
		opts.Catalog = fabric.DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.EventStore == nil {
		opts.EventStore = NewNullEventStore()
	}
	return &Runner{
		workflow:   opts.Workflow,
		catalog:    opts.Catalog,
		adapters:   opts.Adapters,
		logger:     opts.Logger,
		eventStore: opts.EventStore,
		onStatus:   opts.OnNodeStatus,
		outputs:    make(map[string]fabric.Value),
	}, nil
}

// Outputs returns a copy of the live output store.
func (r *Runner) Outputs() map[string]fabric.Value {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	outputs := make(map[string]fabric.Value, len(r.outputs))
	for nodeID, value := range r.outputs {
		outputs[nodeID] = value.Clone()
	}
	return outputs
}

// InvalidateNode drops a node's cached output contribution. Call after a
// configuration edit so a later partial run recomputes it. Rejected
// while a run is active, like every other mutation.
func (r *Runner) InvalidateNode(nodeID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.running {
		return ErrRunInProgress
	}
	delete(r.outputs, nodeID)
	return nil
}

// outputsSnapshot copies the live store under the mutex. The run path
// works from snapshots so concurrent Outputs calls never observe its map
// reads.
func (r *Runner) outputsSnapshot() map[string]fabric.Value {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	outputs := make(map[string]fabric.Value, len(r.outputs))
	for nodeID, value := range r.outputs {
		outputs[nodeID] = value
	}
	return outputs
}

// Pause withholds scheduling of further nodes once the in-flight adapter
// call settles. The in-flight call itself is not aborted.
func (r *Runner) Pause() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if !r.paused {
		r.paused = true
		r.resumeCh = make(chan struct{})
	}
}

// Resume continues a paused run from where it stopped.
func (r *Runner) Resume() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.paused {
		r.paused = false
		close(r.resumeCh)
	}
}

// Run executes the target node set. The target node id is ignored for
// RunFull. Validation failures, dependency cycles, and node failures all
// abort the run; only a fully completed run appends a GenerationRun to
// the workflow history.
func (r *Runner) Run(ctx context.Context, targetNodeID string, mode RunMode) (*fabric.GenerationRun, error) {
	r.mutex.Lock()
	if r.running {
		r.mutex.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.workflow.Running = true
	r.mutex.Unlock()

	defer func() {
		r.mutex.Lock()
		r.running = false
		r.workflow.Running = false
		r.mutex.Unlock()
	}()

	g := r.buildGraph()
	target, err := r.targetSet(g, targetNodeID, mode)
	if err != nil {
		return nil, err
	}

	if issues := Validate(r.workflow, r.catalog, target, r.outputsSnapshot()); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	order, err := g.Sort(target)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	rec := newRecorder(runID, r.eventStore)
	logger := r.logger.With("run_id", runID, "mode", string(mode))
	logger.Info("run started", "nodes", len(order))
	rec.record(ctx, EventRunStarted, "", map[string]any{"mode": string(mode), "order": order})

	// Every targeted node recomputes: reset statuses and drop cached
	// outputs up front so nothing from a prior run leaks in.
	r.mutex.Lock()
	for _, nodeID := range order {
		if node, ok := r.workflow.Node(nodeID); ok {
			node.ResetStatus()
		}
		delete(r.outputs, nodeID)
	}
	r.mutex.Unlock()

	startTime := time.Now()
	ranNodes := make([]string, 0, len(order))

	for _, nodeID := range order {
		if err := r.awaitResume(ctx, rec); err != nil {
			rec.record(ctx, EventRunFailed, "", map[string]any{"error": err.Error()})
			return nil, err
		}

		node, ok := r.workflow.Node(nodeID)
		if !ok {
			continue
		}
		if err := r.executeNode(ctx, node, rec, logger); err != nil {
			logger.Error("run halted", "node_id", nodeID, "error", err)
			rec.record(ctx, EventRunFailed, nodeID, map[string]any{"error": err.Error()})
			return nil, err
		}
		ranNodes = append(ranNodes, nodeID)
	}

	r.mutex.Lock()
	outputs := make(map[string]fabric.Value, len(ranNodes))
	for _, nodeID := range ranNodes {
		if value, ok := r.outputs[nodeID]; ok {
			outputs[nodeID] = value
		}
	}
	r.mutex.Unlock()
	run := fabric.NewGenerationRun(outputs, r.workflow.SnapshotNodes(), time.Since(startTime))
	run.ID = runID
	r.workflow.AppendRun(run)

	logger.Info("run completed", "total_time", run.TotalTime)
	rec.record(ctx, EventRunCompleted, "", map[string]any{"total_time": run.TotalTime.String()})
	return run, nil
}

// buildGraph translates the workflow's connections into dependency edges.
func (r *Runner) buildGraph() *graph.Graph {
	nodeIDs := make([]string, 0, len(r.workflow.Nodes))
	for _, node := range r.workflow.Nodes {
		nodeIDs = append(nodeIDs, node.ID)
	}
	edges := make([]graph.Edge, 0, len(r.workflow.Connections))
	for _, conn := range r.workflow.Connections {
		edges = append(edges, graph.Edge{From: conn.SourceNodeID, To: conn.TargetNodeID})
	}
	return graph.New(nodeIDs, edges)
}

func (r *Runner) targetSet(g *graph.Graph, targetNodeID string, mode RunMode) (map[string]bool, error) {
	switch mode {
	case RunFull, "":
		return nil, nil
	case RunThisOnly:
		if !g.Contains(targetNodeID) {
			return nil, fmt.Errorf("unknown node: %s", targetNodeID)
		}
		return map[string]bool{targetNodeID: true}, nil
	case RunFromHere:
		if !g.Contains(targetNodeID) {
			return nil, fmt.Errorf("unknown node: %s", targetNodeID)
		}
		target := g.Descendants(targetNodeID)
		target[targetNodeID] = true
		return target, nil
	default:
		return nil, fmt.Errorf("unknown run mode: %s", mode)
	}
}

// awaitResume blocks while the run is paused. Suspension happens only at
// node boundaries, so an in-flight adapter call always settles first.
func (r *Runner) awaitResume(ctx context.Context, rec *recorder) error {
	reported := false
	for {
		r.mutex.Lock()
		paused := r.paused
		resumeCh := r.resumeCh
		r.mutex.Unlock()
		if !paused {
			if reported {
				rec.record(ctx, EventRunResumed, "", nil)
			}
			return ctx.Err()
		}
		if !reported {
			rec.record(ctx, EventRunPaused, "", nil)
			reported = true
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resumeCh:
		}
	}
}

func (r *Runner) executeNode(ctx context.Context, node *fabric.WorkflowNode, rec *recorder, logger slogger.Logger) error {
	tool, ok := r.catalog.Tool(node.ToolID)
	if !ok {
		return fmt.Errorf("node %s uses unknown tool %q", node.ID, node.ToolID)
	}

	node.Status = fabric.StatusRunning
	node.StartTime = time.Now()
	node.Error = ""
	r.notify(node)
	rec.record(ctx, EventNodeStarted, node.ID, map[string]any{"tool_id": node.ToolID})
	logger.Info("node started", "node_id", node.ID, "tool_id", node.ToolID)

	value, err := r.dispatch(ctx, node, tool)
	node.ExecutionTime = time.Since(node.StartTime)

	if err != nil {
		node.Status = fabric.StatusError
		node.Error = err.Error()
		r.notify(node)
		rec.record(ctx, EventNodeFailed, node.ID, map[string]any{"error": err.Error()})
		return err
	}

	r.mutex.Lock()
	r.outputs[node.ID] = value
	r.mutex.Unlock()

	node.Status = fabric.StatusSuccess
	r.notify(node)
	rec.record(ctx, EventNodeCompleted, node.ID, map[string]any{
		"execution_time": node.ExecutionTime.String(),
	})
	logger.Info("node completed", "node_id", node.ID, "execution_time", node.ExecutionTime)
	return nil
}

// resolveInputs gathers every declared input port. Validation has already
// approved the run; a miss here means an upstream produced nothing, so
// the node fails with a MissingInputError.
func (r *Runner) resolveInputs(node *fabric.WorkflowNode, tool *fabric.ToolDefinition) (map[string]string, error) {
	resolver := &Resolver{Workflow: r.workflow, Catalog: r.catalog, Outputs: r.outputsSnapshot()}
	resolved := make(map[string]string, len(tool.Inputs))
	for _, port := range tool.Inputs {
		value, ok := resolver.Resolve(node, port.ID)
		if !ok {
			if port.Optional {
				continue
			}
			return nil, &MissingInputError{NodeID: node.ID, PortID: port.ID}
		}
		resolved[port.ID] = value.Scalar
	}
	return resolved, nil
}

func (r *Runner) dispatch(ctx context.Context, node *fabric.WorkflowNode, tool *fabric.ToolDefinition) (fabric.Value, error) {
	inputs, err := r.resolveInputs(node, tool)
	if err != nil {
		return fabric.Value{}, err
	}

	switch tool.Kind {
	case fabric.KindInput:
		return fabric.TextValue(node.DataString("value")), nil
	case fabric.KindText:
		return r.dispatchText(ctx, node, inputs)
	case fabric.KindImage:
		return r.dispatchImage(ctx, node, tool, inputs)
	case fabric.KindSpeech:
		return r.dispatchSpeech(ctx, node, tool, inputs)
	case fabric.KindVideo:
		return r.dispatchVideo(ctx, node, tool, inputs)
	default:
		return fabric.Value{}, fmt.Errorf("tool %s has unknown kind %q", tool.ID, tool.Kind)
	}
}

func (r *Runner) dispatchText(ctx context.Context, node *fabric.WorkflowNode, inputs map[string]string) (fabric.Value, error) {
	if r.adapters.Text == nil {
		return fabric.Value{}, fmt.Errorf("no text adapter configured")
	}
	var fields []gen.OutputField
	for _, out := range node.CustomOutputs() {
		fields = append(fields, gen.OutputField{ID: out.ID, Description: out.Description})
	}
	resp, err := r.adapters.Text.GenerateText(ctx, &gen.TextRequest{
		Prompt:             inputs["prompt"],
		Model:              node.DataString("model"),
		Mode:               node.DataString("mode"),
		CustomInstruction:  node.DataString("custom_instruction"),
		UseSearchGrounding: node.DataBool("use_search_grounding"),
		OutputFields:       fields,
	})
	if err != nil {
		return fabric.Value{}, &AdapterError{NodeID: node.ID, Kind: "text", Err: err}
	}
	if resp.Fields != nil {
		return fabric.FieldsValue(resp.Fields), nil
	}
	return fabric.TextValue(resp.Text), nil
}

func (r *Runner) dispatchImage(ctx context.Context, node *fabric.WorkflowNode, tool *fabric.ToolDefinition, inputs map[string]string) (fabric.Value, error) {
	if r.catalog.RequiresTaskService(node) {
		return r.dispatchTask(ctx, node, tool, inputs)
	}
	if r.adapters.Image == nil {
		return fabric.Value{}, fmt.Errorf("no image adapter configured")
	}
	req := &gen.ImageRequest{
		Prompt:      inputs["prompt"],
		AspectRatio: node.DataString("aspect_ratio"),
		Model:       node.DataString("model"),
	}
	if reference := inputs["reference"]; reference != "" {
		req.ReferenceImages = []string{reference}
	}
	resp, err := r.adapters.Image.GenerateImage(ctx, req)
	if err != nil {
		return fabric.Value{}, &AdapterError{NodeID: node.ID, Kind: "image", Err: err}
	}
	return fabric.TextValue(resp.Image), nil
}

func (r *Runner) dispatchSpeech(ctx context.Context, node *fabric.WorkflowNode, tool *fabric.ToolDefinition, inputs map[string]string) (fabric.Value, error) {
	if r.catalog.RequiresTaskService(node) {
		return r.dispatchTask(ctx, node, tool, inputs)
	}
	if r.adapters.Speech == nil {
		return fabric.Value{}, fmt.Errorf("no speech adapter configured")
	}
	resp, err := r.adapters.Speech.GenerateSpeech(ctx, &gen.SpeechRequest{
		Text:            inputs["text"],
		Voice:           node.DataString("voice"),
		Model:           node.DataString("model"),
		ToneInstruction: node.DataString("tone_instruction"),
	})
	if err != nil {
		return fabric.Value{}, &AdapterError{NodeID: node.ID, Kind: "speech", Err: err}
	}
	return fabric.TextValue(resp.Audio), nil
}

func (r *Runner) dispatchVideo(ctx context.Context, node *fabric.WorkflowNode, tool *fabric.ToolDefinition, inputs map[string]string) (fabric.Value, error) {
	if r.catalog.RequiresTaskService(node) {
		return r.dispatchTask(ctx, node, tool, inputs)
	}
	if r.adapters.Video == nil {
		return fabric.Value{}, fmt.Errorf("no video adapter configured")
	}
	resp, err := r.adapters.Video.GenerateVideo(ctx, &gen.VideoRequest{
		Prompt:         inputs["prompt"],
		StartImage:     inputs["start"],
		AspectRatio:    node.DataString("aspect_ratio"),
		Resolution:     node.DataString("resolution"),
		ReferenceVideo: inputs["reference"],
		Model:          node.DataString("model"),
	})
	if err != nil {
		return fabric.Value{}, &AdapterError{NodeID: node.ID, Kind: "video", Err: err}
	}
	return fabric.TextValue(resp.URL), nil
}

// dispatchTask routes a node through the external task-based service.
func (r *Runner) dispatchTask(ctx context.Context, node *fabric.WorkflowNode, tool *fabric.ToolDefinition, inputs map[string]string) (fabric.Value, error) {
	if r.adapters.Tasks == nil {
		return fabric.Value{}, fmt.Errorf("no task service adapter configured")
	}
	req := &gen.TaskRequest{
		Endpoint:    r.workflow.Env.TaskServiceURL,
		Token:       r.workflow.Env.TaskServiceToken,
		TaskKind:    string(tool.Kind),
		ModelClass:  node.DataString("model"),
		Prompt:      inputs["prompt"],
		OutputName:  node.ID,
		AspectRatio: node.DataString("aspect_ratio"),
	}
	switch tool.Kind {
	case fabric.KindSpeech:
		req.Prompt = inputs["text"]
		req.InputAudio = node.DataString("voice_sample")
	case fabric.KindVideo:
		req.InputImage = inputs["start"]
		req.InputVideo = inputs["reference"]
		req.LastFrameImage = node.DataString("last_frame")
	case fabric.KindImage:
		req.InputImage = inputs["reference"]
	}
	url, err := r.adapters.Tasks.RunTask(ctx, req)
	if err != nil {
		return fabric.Value{}, &AdapterError{NodeID: node.ID, Kind: string(tool.Kind), Err: err}
	}
	return fabric.TextValue(url), nil
}

func (r *Runner) notify(node *fabric.WorkflowNode) {
	if r.onStatus != nil {
		r.onStatus(node.ID, node.Status, node.Error)
	}
}
