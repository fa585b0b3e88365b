package engine

import (
	"fmt"

	"github.com/fabricworks/fabric"
)

// Validate runs the pre-flight checks for the given target node set and
// returns every issue found. A non-empty result blocks execution; the
// caller surfaces all issues together.
//
// Two checks run:
//
//   - env: any target node routing through the external task service
//     requires both the service URL and access token on the workflow
//     environment
//   - input: every required declared input port of every target node must
//     be resolvable (connected, pinned, or self-satisfied)
func Validate(wf *fabric.WorkflowState, catalog *fabric.Catalog, target map[string]bool, outputs map[string]fabric.Value) []ValidationIssue {
	var issues []ValidationIssue
	resolver := &Resolver{Workflow: wf, Catalog: catalog, Outputs: outputs}

	needsTaskService := false
	for _, node := range wf.Nodes {
		if target != nil && !target[node.ID] {
			continue
		}
		if catalog.RequiresTaskService(node) {
			needsTaskService = true
			break
		}
	}
	if needsTaskService {
		var missing []string
		if wf.Env.TaskServiceURL == "" {
			missing = append(missing, "service URL")
		}
		if wf.Env.TaskServiceToken == "" {
			missing = append(missing, "access token")
		}
		if len(missing) > 0 {
			message := "task service configuration incomplete: missing " + missing[0]
			if len(missing) == 2 {
				message = "task service configuration incomplete: missing " + missing[0] + " and " + missing[1]
			}
			issues = append(issues, ValidationIssue{Kind: IssueEnv, Message: message})
		}
	}

	for _, node := range wf.Nodes {
		if target != nil && !target[node.ID] {
			continue
		}
		tool, ok := catalog.Tool(node.ToolID)
		if !ok {
			issues = append(issues, ValidationIssue{
				Kind:    IssueInput,
				Message: fmt.Sprintf("node %s uses unknown tool %q", node.ID, node.ToolID),
			})
			continue
		}
		for _, port := range tool.Inputs {
			if port.Optional {
				continue
			}
			if !resolver.CanResolve(node, port.ID) {
				issues = append(issues, ValidationIssue{
					Kind:    IssueInput,
					Message: fmt.Sprintf("%s (%s): input %q is not connected and has no value", tool.Name, node.ID, port.Label),
				})
			}
		}
	}
	return issues
}
