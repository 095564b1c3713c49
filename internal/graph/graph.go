// Package graph is a minimal node/edge engine for workflow runs. A graph is
// a set of named nodes, static edges, and declared routing targets; nodes
// return partial state updates that the engine merges into the run's session
// state (messages append, other fields last-write-wins).
package graph

import (
	"context"
	"fmt"

	"openswe.dev/manager/internal/model"
)

// Reserved node names.
const (
	Start = "__start__"
	End   = "__end__"
)

// Config is the per-run configuration handed to every node. Credentials are
// threaded explicitly rather than read from the process environment so runs
// are deterministic and testable.
type Config struct {
	Provider     model.Provider
	LinearAPIKey string
	GitHubToken  string

	// LocalMode runs without tracker access; the triggering message is
	// assumed to already be in session state.
	LocalMode bool

	// Model overrides applied when a run was triggered by an escalated
	// label.
	PlannerModelName    string
	ProgrammerModelName string
}

// Result is a node's outcome: a partial state update plus an optional
// routing decision. An empty Goto follows the node's static edge.
type Result struct {
	Update model.StateUpdate
	Goto   string
}

// NodeFunc executes one workflow step against the run's session state.
type NodeFunc func(ctx context.Context, state *model.SessionState, cfg Config) (Result, error)

type node struct {
	fn   NodeFunc
	ends map[string]bool // declared routing targets; empty = static edge only
}

// Graph is an executable workflow. Build with AddNode/AddEdge, then Run.
type Graph struct {
	name  string
	nodes map[string]node
	edges map[string]string
}

func New(name string) *Graph {
	return &Graph{
		name:  name,
		nodes: make(map[string]node),
		edges: make(map[string]string),
	}
}

func (g *Graph) Name() string { return g.name }

// AddNode registers a node. ends lists the targets the node may route to via
// Result.Goto; a node without ends follows its static edge.
func (g *Graph) AddNode(name string, fn NodeFunc, ends ...string) *Graph {
	n := node{fn: fn}
	if len(ends) > 0 {
		n.ends = make(map[string]bool, len(ends))
		for _, e := range ends {
			n.ends[e] = true
		}
	}
	g.nodes[name] = n
	return g
}

// AddEdge registers the static successor of a node. Start may appear as from
// to set the entrypoint.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

// maxSteps bounds a run so a routing bug cannot loop forever.
const maxSteps = 64

// Run executes the graph to completion, merging each node's update into
// state. The state is owned by the caller for the duration of the run.
func (g *Graph) Run(ctx context.Context, state *model.SessionState, cfg Config) error {
	current, ok := g.edges[Start]
	if !ok {
		return fmt.Errorf("graph %s has no entrypoint", g.name)
	}

	for steps := 0; current != End; steps++ {
		if steps >= maxSteps {
			return fmt.Errorf("graph %s exceeded %d steps at node %s", g.name, maxSteps, current)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("graph %s routed to unknown node %s", g.name, current)
		}

		result, err := n.fn(ctx, state, cfg)
		if err != nil {
			return fmt.Errorf("node %s: %w", current, err)
		}
		state.Apply(result.Update)

		next := result.Goto
		if next == "" {
			next, ok = g.edges[current]
			if !ok {
				return fmt.Errorf("node %s has no successor", current)
			}
		} else if !n.ends[next] {
			return fmt.Errorf("node %s routed to undeclared target %s", current, next)
		}
		current = next
	}

	return nil
}
