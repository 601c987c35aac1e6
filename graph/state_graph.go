package graph

import (
	"context"
	"fmt"
)

// defaultStepLimit bounds runaway cycles when the caller does not set one.
const defaultStepLimit = 25

// StateGraph represents a state-based graph with compile-time type safety.
// The type parameter S is the state type, typically a struct.
//
// Example usage:
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    state.Count++
//	    return state, nil
//	})
//	g.SetEntryPoint("increment")
//	g.AddEdge("increment", graph.END)
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]Node[S]

	// edges is a slice of Edge objects representing the connections between nodes
	edges []Edge

	// conditionalEdges maps a "From" node to a function deriving the "To" node at runtime
	conditionalEdges map[string]func(ctx context.Context, state S) string

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	// stepLimit bounds the number of node executions per invocation
	stepLimit int

	// schema defines the state structure and update logic
	schema Schema[S]
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
		stepLimit:        defaultStepLimit,
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetStepLimit bounds the number of node executions per invocation.
// A non-positive limit disables the bound.
func (g *StateGraph[S]) SetStepLimit(limit int) {
	g.stepLimit = limit
}

// SetSchema sets the state schema for the graph.
func (g *StateGraph[S]) SetSchema(schema Schema[S]) {
	g.schema = schema
}

// Runnable represents a compiled state graph that can be invoked.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Compile compiles the state graph and returns a Runnable instance.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}

	return &Runnable[S]{graph: g}, nil
}

// Invoke executes the compiled state graph with the given input state and
// returns the final state once END is reached. Exactly one node runs at a
// time; node errors abort the invocation.
func (r *Runnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	var zero S

	state := initialState
	if r.graph.schema != nil {
		var err error
		state, err = r.graph.schema.Update(r.graph.schema.Init(), initialState)
		if err != nil {
			return zero, fmt.Errorf("failed to initialize state with schema: %w", err)
		}
	}

	current := r.graph.entryPoint
	for steps := 0; current != END; steps++ {
		if r.graph.stepLimit > 0 && steps >= r.graph.stepLimit {
			return zero, fmt.Errorf("%w: %d node executions", ErrStepLimit, steps)
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return zero, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		update, err := node.Function(ctx, state)
		if err != nil {
			return zero, fmt.Errorf("error in node %s: %w", current, err)
		}

		state, err = r.mergeState(state, update)
		if err != nil {
			return zero, err
		}

		current, err = r.nextNode(ctx, current, state)
		if err != nil {
			return zero, err
		}
	}

	return state, nil
}

// mergeState merges a node's update into the current state.
func (r *Runnable[S]) mergeState(currentState S, update S) (S, error) {
	if r.graph.schema == nil {
		return update, nil
	}

	state, err := r.graph.schema.Update(currentState, update)
	if err != nil {
		var zero S
		return zero, fmt.Errorf("schema update failed: %w", err)
	}
	return state, nil
}

// nextNode determines the successor of a node from its conditional edge if
// present, otherwise from the first matching static edge.
func (r *Runnable[S]) nextNode(ctx context.Context, current string, state S) (string, error) {
	if condition, ok := r.graph.conditionalEdges[current]; ok {
		next := condition(ctx, state)
		if next == "" {
			return "", fmt.Errorf("conditional edge returned empty next node from %s", current)
		}
		if next != END {
			if _, ok := r.graph.nodes[next]; !ok {
				return "", fmt.Errorf("%w: %s (from conditional edge of %s)", ErrNodeNotFound, next, current)
			}
		}
		return next, nil
	}

	for _, edge := range r.graph.edges {
		if edge.From == current {
			return edge.To, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current)
}
