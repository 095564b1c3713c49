// Package manager assembles the session workflow: reconcile the session
// against its issue, then hand off to message classification. Downstream
// stages (planner, programmer) run in separate services and plug in as
// injected nodes.
package manager

import (
	"context"

	"openswe.dev/manager/internal/graph"
	"openswe.dev/manager/internal/model"
)

const (
	NodeInitializeIssue = "initialize-issue"
	NodeClassifyMessage = "classify-message"
)

// Nodes holds the pluggable stages of the workflow. InitializeIssue is
// required; ClassifyMessage defaults to a terminal no-op when the downstream
// classifier is not deployed alongside the manager.
type Nodes struct {
	InitializeIssue graph.NodeFunc
	ClassifyMessage graph.NodeFunc
}

// NewGraph builds the manager workflow.
func NewGraph(nodes Nodes) *graph.Graph {
	classify := nodes.ClassifyMessage
	if classify == nil {
		classify = terminal
	}

	return graph.New("manager").
		AddNode(NodeInitializeIssue, nodes.InitializeIssue).
		AddNode(NodeClassifyMessage, classify).
		AddEdge(graph.Start, NodeInitializeIssue).
		AddEdge(NodeInitializeIssue, NodeClassifyMessage).
		AddEdge(NodeClassifyMessage, graph.End)
}

func terminal(ctx context.Context, state *model.SessionState, cfg graph.Config) (graph.Result, error) {
	return graph.Result{}, nil
}
