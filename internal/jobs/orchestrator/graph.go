package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/bizplan-backend/internal/platform/httpx"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
	"github.com/yungbote/bizplan-backend/internal/platform/observability"
)

const (
	Start = "__start__"
	End   = "__end__"
)

// NodeFunc mutates the shared state in place. S is normally a pointer type.
type NodeFunc[S any] func(ctx context.Context, st S) error

// Router inspects the state after a node ran and returns a route key.
type Router[S any] func(st S) string

type Node[S any] struct {
	Name    string
	Timeout time.Duration
	Retry   RetryPolicy
	Run     NodeFunc[S]
}

type branch[S any] struct {
	route   Router[S]
	targets map[string]string
}

// Graph is a registry of named nodes plus a declarative edge list. Each node
// has at most one outgoing plain edge or one conditional edge set.
type Graph[S any] struct {
	name     string
	nodes    map[string]Node[S]
	order    []string
	edges    map[string]string
	branches map[string]branch[S]
	errs     []error
}

func New[S any](name string) *Graph[S] {
	return &Graph[S]{
		name:     strings.TrimSpace(name),
		nodes:    map[string]Node[S]{},
		edges:    map[string]string{},
		branches: map[string]branch[S]{},
	}
}

func (g *Graph[S]) AddNode(n Node[S]) *Graph[S] {
	name := strings.TrimSpace(n.Name)
	switch {
	case name == "":
		g.errs = append(g.errs, fmt.Errorf("node missing Name"))
	case name == Start || name == End:
		g.errs = append(g.errs, fmt.Errorf("node name %q is reserved", name))
	case n.Run == nil:
		g.errs = append(g.errs, fmt.Errorf("node %q: Run is nil", name))
	case g.nodes[name].Run != nil:
		g.errs = append(g.errs, fmt.Errorf("duplicate node name %q", name))
	default:
		n.Name = name
		g.nodes[name] = n
		g.order = append(g.order, name)
	}
	return g
}

func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	if _, dup := g.edges[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an edge", from))
		return g
	}
	if _, dup := g.branches[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has conditional edges", from))
		return g
	}
	g.edges[from] = to
	return g
}

func (g *Graph[S]) AddConditionalEdges(from string, route Router[S], targets map[string]string) *Graph[S] {
	if route == nil || len(targets) == 0 {
		g.errs = append(g.errs, fmt.Errorf("node %q: conditional edges need a router and targets", from))
		return g
	}
	if _, dup := g.edges[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an edge", from))
		return g
	}
	cp := make(map[string]string, len(targets))
	for k, v := range targets {
		cp[k] = v
	}
	g.branches[from] = branch[S]{route: route, targets: cp}
	return g
}

type Option func(*options)

type options struct {
	log      *logger.Logger
	maxSteps int
}

func WithLogger(log *logger.Logger) Option { return func(o *options) { o.log = log } }

// WithMaxSteps bounds one invocation; a route loop past the limit fails the run.
func WithMaxSteps(n int) Option { return func(o *options) { o.maxSteps = n } }

// Compile validates the topology: every edge endpoint exists, Start has an
// edge, every node is reachable from Start and can reach End.
func (g *Graph[S]) Compile(opts ...Option) (*Runnable[S], error) {
	if len(g.errs) > 0 {
		return nil, fmt.Errorf("graph %q: %w", g.name, errors.Join(g.errs...))
	}
	o := options{maxSteps: 50}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if _, ok := g.edges[Start]; !ok {
		return nil, fmt.Errorf("graph %q: no edge from %s", g.name, Start)
	}
	known := func(n string) bool {
		if n == End {
			return true
		}
		_, ok := g.nodes[n]
		return ok
	}
	succ := map[string][]string{}
	for from, to := range g.edges {
		if from != Start && !known(from) {
			return nil, fmt.Errorf("graph %q: edge from unknown node %q", g.name, from)
		}
		if !known(to) {
			return nil, fmt.Errorf("graph %q: edge %q -> unknown node %q", g.name, from, to)
		}
		succ[from] = append(succ[from], to)
	}
	for from, b := range g.branches {
		if !known(from) || from == End {
			return nil, fmt.Errorf("graph %q: conditional edges from unknown node %q", g.name, from)
		}
		keys := make([]string, 0, len(b.targets))
		for k := range b.targets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			to := b.targets[k]
			if !known(to) {
				return nil, fmt.Errorf("graph %q: route %q from %q -> unknown node %q", g.name, k, from, to)
			}
			succ[from] = append(succ[from], to)
		}
	}
	reach := walk(Start, succ)
	for _, n := range g.order {
		if !reach[n] {
			return nil, fmt.Errorf("graph %q: node %q unreachable from %s", g.name, n, Start)
		}
		if _, ok := succ[n]; !ok {
			return nil, fmt.Errorf("graph %q: node %q has no outgoing edge", g.name, n)
		}
		if !walk(n, succ)[End] {
			return nil, fmt.Errorf("graph %q: node %q cannot reach %s", g.name, n, End)
		}
	}
	return &Runnable[S]{g: g, opts: o}, nil
}

func walk(from string, succ map[string][]string) map[string]bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range succ[n] {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	return seen
}

// Runnable is a compiled graph. It holds no per-run state and is safe for
// concurrent use across different state values.
type Runnable[S any] struct {
	g    *Graph[S]
	opts options
}

func (r *Runnable[S]) Name() string { return r.g.name }

// Invoke runs nodes sequentially from Start until End and returns the visited
// node names in order.
func (r *Runnable[S]) Invoke(ctx context.Context, st S) ([]string, error) {
	visited := make([]string, 0, 8)
	cur := r.g.edges[Start]
	for steps := 0; cur != End; steps++ {
		if steps >= r.opts.maxSteps {
			return visited, fmt.Errorf("graph %q: exceeded %d steps", r.g.name, r.opts.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return visited, err
		}
		node := r.g.nodes[cur]
		visited = append(visited, cur)
		if err := r.runNode(ctx, node, st); err != nil {
			return visited, err
		}
		next, err := r.next(cur, st)
		if err != nil {
			return visited, err
		}
		cur = next
	}
	return visited, nil
}

func (r *Runnable[S]) next(cur string, st S) (string, error) {
	if to, ok := r.g.edges[cur]; ok {
		return to, nil
	}
	b := r.g.branches[cur]
	key := b.route(st)
	to, ok := b.targets[key]
	if !ok {
		return "", fmt.Errorf("graph %q: node %q routed to unknown key %q", r.g.name, cur, key)
	}
	return to, nil
}

func (r *Runnable[S]) runNode(ctx context.Context, node Node[S], st S) error {
	ctx, span := observability.Tracer().Start(ctx, "graph."+r.g.name+"."+node.Name)
	defer span.End()
	span.SetAttributes(attribute.String("graph.name", r.g.name), attribute.String("graph.node", node.Name))

	started := time.Now()
	var err error
	for attempt := 1; ; attempt++ {
		err = safeRun(ctx, node, st)
		if err == nil || !shouldRetry(node.Retry, attempt, err) {
			break
		}
		wait := computeBackoff(node.Retry, attempt)
		r.opts.log.Warn("graph node retry", "graph", r.g.name, "node", node.Name, "attempt", attempt, "wait", wait.String(), "error", err)
		if serr := httpx.Sleep(ctx, wait); serr != nil {
			err = serr
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.opts.log.Warn("graph node failed", "graph", r.g.name, "node", node.Name, "elapsed_ms", time.Since(started).Milliseconds(), "error", err)
		return fmt.Errorf("node %q: %w", node.Name, err)
	}
	r.opts.log.Debug("graph node done", "graph", r.g.name, "node", node.Name, "elapsed_ms", time.Since(started).Milliseconds())
	return nil
}

// safeRun turns panics into errors and applies the node timeout. The node
// runs on the caller's goroutine so a timed-out node cannot race the next one;
// nodes are expected to honour ctx.
func safeRun[S any](ctx context.Context, node Node[S], st S) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	if node.Timeout <= 0 {
		return node.Run(ctx, st)
	}
	tctx, cancel := context.WithTimeout(ctx, node.Timeout)
	defer cancel()
	err = node.Run(tctx, st)
	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("timed out after %s: %w", node.Timeout, err)
	}
	return err
}
