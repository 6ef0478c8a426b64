package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonathan/career-navigator/internal/logging"
)

// END is the terminal pseudo-node.
const END = "__end__"

// DefaultMaxSteps bounds the number of node executions in one run.
const DefaultMaxSteps = 64

// StepFunc is a node body. It mutates the state in place.
type StepFunc func(ctx context.Context, s *State) error

// RouteFunc picks the label of the next edge from the current state.
type RouteFunc func(s *State) string

type branch struct {
	route   RouteFunc
	targets map[string]string
}

// Graph is a mutable node and edge table. Compile freezes it into a Runnable.
type Graph struct {
	nodes    map[string]StepFunc
	order    []string
	edges    map[string]string
	branches map[string]branch
	entry    string
	errNode  string
	errs     []error
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]StepFunc),
		edges:    make(map[string]string),
		branches: make(map[string]branch),
	}
}

// AddNode registers a node. Registering a name twice is a compile error.
func (g *Graph) AddNode(name string, fn StepFunc) *Graph {
	switch {
	case name == "" || name == END:
		g.errs = append(g.errs, fmt.Errorf("invalid node name %q", name))
	case fn == nil:
		g.errs = append(g.errs, fmt.Errorf("node %q has no step function", name))
	default:
		if _, dup := g.nodes[name]; dup {
			g.errs = append(g.errs, fmt.Errorf("node %q registered twice", name))
			return g
		}
		g.nodes[name] = fn
		g.order = append(g.order, name)
	}
	return g
}

// AddEdge adds an unconditional transition.
func (g *Graph) AddEdge(from, to string) *Graph {
	if _, dup := g.edges[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an edge", from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdges adds a branch: route's return value selects a target
// from targets.
func (g *Graph) AddConditionalEdges(from string, route RouteFunc, targets map[string]string) *Graph {
	if route == nil {
		g.errs = append(g.errs, fmt.Errorf("node %q has a nil route", from))
		return g
	}
	if _, dup := g.branches[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has conditional edges", from))
		return g
	}
	copied := make(map[string]string, len(targets))
	for label, to := range targets {
		copied[label] = to
	}
	g.branches[from] = branch{route: route, targets: copied}
	return g
}

// SetEntryPoint sets the node a fresh run starts at.
func (g *Graph) SetEntryPoint(name string) *Graph {
	g.entry = name
	return g
}

// SetErrorNode sets the node every failure is routed to.
func (g *Graph) SetErrorNode(name string) *Graph {
	g.errNode = name
	return g
}

// Option configures a Runnable.
type Option func(*Runnable)

// WithCheckpointer records the final state of every run.
func WithCheckpointer(s Saver) Option {
	return func(r *Runnable) { r.saver = s }
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(r *Runnable) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// WithLogger sets the logger used for node tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runnable) { r.logger = l }
}

// WithTracer sets the OpenTelemetry tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runnable) { r.tracer = t }
}

// Compile validates the graph and returns an executable copy.
func (g *Graph) Compile(opts ...Option) (*Runnable, error) {
	errs := append([]error(nil), g.errs...)

	known := func(name string) bool {
		if name == END {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}

	if g.entry == "" {
		errs = append(errs, errors.New("entry point not set"))
	} else if _, ok := g.nodes[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("entry point %q is not a node", g.entry))
	}
	if g.errNode == "" {
		errs = append(errs, errors.New("error node not set"))
	} else if _, ok := g.nodes[g.errNode]; !ok {
		errs = append(errs, fmt.Errorf("error node %q is not a node", g.errNode))
	}

	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("edge from unknown node %q", from))
		}
		if !known(to) {
			errs = append(errs, fmt.Errorf("edge %s -> %s targets an unknown node", from, to))
		}
		if _, both := g.branches[from]; both {
			errs = append(errs, fmt.Errorf("node %q has both an edge and conditional edges", from))
		}
	}
	for from, b := range g.branches {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("conditional edges from unknown node %q", from))
		}
		for label, to := range b.targets {
			if !known(to) {
				errs = append(errs, fmt.Errorf("branch %s[%s] -> %s targets an unknown node", from, label, to))
			}
		}
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, fmt.Errorf("compile graph: %w", errors.Join(errs...))
	}

	r := &Runnable{
		nodes:    make(map[string]StepFunc, len(g.nodes)),
		order:    append([]string(nil), g.order...),
		edges:    make(map[string]string, len(g.edges)),
		branches: make(map[string]branch, len(g.branches)),
		entry:    g.entry,
		errNode:  g.errNode,
		maxSteps: DefaultMaxSteps,
	}
	for k, v := range g.nodes {
		r.nodes[k] = v
	}
	for k, v := range g.edges {
		r.edges[k] = v
	}
	for k, v := range g.branches {
		r.branches[k] = v
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Logger()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r, nil
}

// Saver persists the last state of a run.
type Saver interface {
	Save(ctx context.Context, runID string, s *State) error
}

// Runnable executes a compiled graph. It is safe for concurrent use by
// runs on different states.
type Runnable struct {
	nodes    map[string]StepFunc
	order    []string
	edges    map[string]string
	branches map[string]branch
	entry    string
	errNode  string
	maxSteps int
	saver    Saver
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Invoke runs s from the entry point until END or a pause. It never
// returns an error: failures are recorded on the state.
func (r *Runnable) Invoke(ctx context.Context, s *State, runID string) *State {
	return r.run(ctx, s, runID, r.entry)
}

// Resume runs s from its ResumeAt node, or from the entry point when unset.
func (r *Runnable) Resume(ctx context.Context, s *State, runID string) *State {
	start := r.entry
	if s.ResumeAt != "" {
		if _, ok := r.nodes[s.ResumeAt]; ok {
			start = s.ResumeAt
		}
	}
	s.ResumeAt = ""
	return r.run(ctx, s, runID, start)
}

func (r *Runnable) run(ctx context.Context, s *State, runID, start string) *State {
	ctx, span := startInvokeSpan(ctx, r.tracer, runID, start)
	defer span.End()

	node := start
	for steps := 0; node != END; steps++ {
		if steps >= r.maxSteps && node != r.errNode {
			r.fail(s, node, fmt.Errorf("run exceeded %d steps", r.maxSteps))
			node = r.errNode
			continue
		}
		if s.Failed() && node != r.errNode {
			node = r.errNode
			continue
		}

		s.CurrentStep = node
		r.logger.Debug("entering node", "run_id", runID, "node", node)
		if err := r.exec(ctx, runID, node, s); err != nil {
			r.logger.Warn("node failed", "run_id", runID, "node", node, "error", err)
			r.fail(s, node, err)
			node = r.errNode
			continue
		}
		if s.Failed() && node != r.errNode {
			if s.FailedStep == "" {
				s.FailedStep = node
			}
			s.CurrentStep = "error"
			node = r.errNode
			continue
		}
		if s.Paused() && s.ResumeAt == node {
			r.logger.Debug("run paused", "run_id", runID, "node", node)
			break
		}

		next, err := r.next(node, s)
		if err != nil {
			r.fail(s, node, err)
			node = r.errNode
			continue
		}
		node = next
	}

	s.Completed = node == END && !s.Failed() && !s.Paused()
	if r.saver != nil {
		if err := r.saver.Save(ctx, runID, s); err != nil {
			r.logger.Error("failed to save checkpoint", "run_id", runID, "error", err)
		}
	}
	endInvokeSpan(span, s)
	return s
}

// exec runs one node inside its span and converts panics into errors.
func (r *Runnable) exec(ctx context.Context, runID, node string, s *State) (err error) {
	ctx, span := startNodeSpan(ctx, r.tracer, runID, node)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		endNodeSpan(span, err)
	}()
	return r.nodes[node](ctx, s)
}

func (r *Runnable) next(node string, s *State) (to string, err error) {
	if to, ok := r.edges[node]; ok {
		return to, nil
	}
	if b, ok := r.branches[node]; ok {
		defer func() {
			if p := recover(); p != nil {
				to, err = "", fmt.Errorf("route panic: %v", p)
			}
		}()
		label := b.route(s)
		to, ok := b.targets[label]
		if !ok {
			return "", fmt.Errorf("route returned unknown label %q", label)
		}
		return to, nil
	}
	return END, nil
}

func (r *Runnable) fail(s *State, node string, err error) {
	s.Error = (&stepFailure{step: node, err: err}).Error()
	s.ErrorKind = classify(err)
	s.FailedStep = node
	s.CurrentStep = "error"
}

// Nodes lists node names in registration order.
func (r *Runnable) Nodes() []string {
	return append([]string(nil), r.order...)
}

// Mermaid renders the graph as a Mermaid flowchart.
func (r *Runnable) Mermaid() string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	b.WriteString("    __start__([start]) --> " + r.entry + "\n")

	target := func(to string) string {
		if to == END {
			return "__end__([end])"
		}
		return to
	}
	for _, name := range r.order {
		if to, ok := r.edges[name]; ok {
			fmt.Fprintf(&b, "    %s --> %s\n", name, target(to))
			continue
		}
		br, ok := r.branches[name]
		if !ok {
			continue
		}
		labels := make([]string, 0, len(br.targets))
		for label := range br.targets {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(&b, "    %s -. %s .-> %s\n", name, label, target(br.targets[label]))
		}
	}
	return b.String()
}
