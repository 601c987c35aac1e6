// Package graph implements a small state-graph orchestrator: named nodes
// connected by static and conditional edges, threading a typed state record
// from an entry point to END. Execution is strictly sequential; each node
// returns a state update that is merged into the running state before the
// next node is chosen.
package graph

import (
	"context"
	"errors"
)

// END is a special constant used to represent the terminal node in the graph.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrStepLimit is returned when an invocation exceeds the graph's step limit.
	ErrStepLimit = errors.New("step limit exceeded")
)

// Node represents a node in the graph.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function receives the current state and returns a state update.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge represents a static edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// Schema defines the state structure and update logic. When a graph has a
// schema, every node result is treated as a partial update and merged into
// the running state via Update; without one, a node result replaces the
// state wholesale.
type Schema[S any] interface {
	// Init returns the initial state.
	Init() S

	// Update merges the new state into the current state.
	Update(current, new S) (S, error)
}
