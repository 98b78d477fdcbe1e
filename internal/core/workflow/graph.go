package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

var stepNodes = []domain.Node{
	domain.NodeNeedsContext,
	domain.NodePullFromStore,
	domain.NodeCheckRelevance,
	domain.NodeSearchExternal,
	domain.NodeFilterPapers,
	domain.NodeAddToStore,
	domain.NodeGenerateAnswer,
}

// Observer receives per-node and per-run outcomes.
type Observer interface {
	NodeCompleted(node domain.Node, duration time.Duration, err error)
	RunCompleted(state *domain.State, duration time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) NodeCompleted(domain.Node, time.Duration, error) {}
func (noopObserver) RunCompleted(*domain.State, time.Duration, error) {}

type Option func(*Graph)

func WithObserver(observer Observer) Option {
	return func(g *Graph) {
		if observer != nil {
			g.observer = observer
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(g *Graph) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

func WithMaxIterations(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxIterations = n
		}
	}
}

// Graph executes bound steps along the routing table until the answer is produced.
type Graph struct {
	steps         map[domain.Node]Step
	maxIterations int
	observer      Observer
	tracer        trace.Tracer
}

// New validates that every node has a step.
func New(steps map[domain.Node]Step, opts ...Option) (*Graph, error) {
	missing := make([]string, 0)
	for _, node := range stepNodes {
		if steps[node] == nil {
			missing = append(missing, node.String())
		}
	}
	if len(missing) > 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "build graph",
			fmt.Errorf("missing steps for nodes [%s]", strings.Join(missing, ", ")))
	}

	g := &Graph{
		steps:         make(map[domain.Node]Step, len(steps)),
		maxIterations: defaultMaxIterations,
		observer:      noopObserver{},
		tracer:        otel.Tracer("github.com/kirillkom/scholar-rag/workflow"),
	}
	for node, step := range steps {
		g.steps[node] = step
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Build binds every step's collaborators from the registry.
// The registry must hold a Settings value plus the step collaborators.
func Build(r *Registry, opts ...Option) (*Graph, error) {
	cfg, err := Resolve[Settings](r)
	if err != nil {
		return nil, err
	}

	steps := make(map[domain.Node]Step, len(stepNodes))
	bind := func(node domain.Node, step Step, err error) error {
		if err != nil {
			return fmt.Errorf("bind %s: %w", node, err)
		}
		steps[node] = step
		return nil
	}

	needs, err := Bind2(r, CheckNeedsContext)
	if err := bind(domain.NodeNeedsContext, needs, err); err != nil {
		return nil, err
	}
	pull, err := Bind1(r, PullFromStore)
	if err := bind(domain.NodePullFromStore, pull, err); err != nil {
		return nil, err
	}
	relevance, err := Bind2(r, CheckRelevance)
	if err := bind(domain.NodeCheckRelevance, relevance, err); err != nil {
		return nil, err
	}
	search, err := Bind2(r, SearchExternal)
	if err := bind(domain.NodeSearchExternal, search, err); err != nil {
		return nil, err
	}
	filter, err := Bind2(r, FilterOnTopic)
	if err := bind(domain.NodeFilterPapers, filter, err); err != nil {
		return nil, err
	}
	add, err := Bind3(r, AddToStore)
	if err := bind(domain.NodeAddToStore, add, err); err != nil {
		return nil, err
	}
	answer, err := Bind2(r, GenerateAnswer)
	if err := bind(domain.NodeGenerateAnswer, answer, err); err != nil {
		return nil, err
	}

	opts = append([]Option{WithMaxIterations(cfg.normalize().MaxIterations)}, opts...)
	return New(steps, opts...)
}

// Run drives state from the entry node to the end.
func (g *Graph) Run(ctx context.Context, state *domain.State) error {
	if state == nil {
		return domain.WrapError(domain.ErrInvalidInput, "run graph", fmt.Errorf("state is required"))
	}
	if state.SeenPaperIDs == nil {
		state.SeenPaperIDs = make(map[string]struct{})
	}

	ctx, span := g.tracer.Start(ctx, "graph.run")
	defer span.End()

	started := time.Now()
	err := g.run(ctx, state)
	g.observer.RunCompleted(state, time.Since(started), err)

	span.SetAttributes(
		attribute.Int("graph.iterations", state.Iterations),
		attribute.Int("graph.papers_seen", len(state.SeenPaperIDs)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (g *Graph) run(ctx context.Context, state *domain.State) error {
	node := domain.NodeNeedsContext
	for node != domain.NodeEnd {
		if err := g.Exec(ctx, node, state); err != nil {
			return err
		}

		following := next(node, state)
		if node == domain.NodeAddToStore {
			if state.Iterations >= g.maxIterations {
				return domain.WrapError(domain.ErrIterationLimit, "run graph",
					fmt.Errorf("retrieval retried %d times without a relevant context", state.Iterations))
			}
			state.Iterations++
		}
		node = following
	}
	return nil
}

// Exec runs a single node against state.
func (g *Graph) Exec(ctx context.Context, node domain.Node, state *domain.State) error {
	step, ok := g.steps[node]
	if !ok {
		return domain.WrapError(domain.ErrConfiguration, "exec node", fmt.Errorf("unknown node %q", node))
	}

	ctx, span := g.tracer.Start(ctx, "graph."+node.String(),
		trace.WithAttributes(attribute.String("graph.node", node.String())))
	defer span.End()

	state.Path = append(state.Path, node)
	started := time.Now()
	err := step(ctx, state)
	duration := time.Since(started)
	g.observer.NodeCompleted(node, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "graph_node_failed", "node", node.String(), "error", err.Error())
		return fmt.Errorf("node %s: %w", node, err)
	}
	slog.DebugContext(ctx, "graph_node", "node", node.String(), "duration_ms", duration.Milliseconds())
	return nil
}

// MaxIterations reports the feedback-loop bound.
func (g *Graph) MaxIterations() int {
	return g.maxIterations
}

// Mermaid renders the routing table as a mermaid flowchart.
func (g *Graph) Mermaid() string {
	return Mermaid()
}

func Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	fmt.Fprintf(&b, "    __start__ --> %s\n", domain.NodeNeedsContext)
	for _, e := range edges {
		to := e.To.String()
		if e.To == domain.NodeEnd {
			to = "__end__"
		}
		if e.Label == "" {
			fmt.Fprintf(&b, "    %s --> %s\n", e.From, to)
			continue
		}
		fmt.Fprintf(&b, "    %s -. %s .-> %s\n", e.From, e.Label, to)
	}
	return b.String()
}
