package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

// Step is a graph node body with its collaborators already bound.
type Step func(ctx context.Context, state *domain.State) error

// Registry holds the collaborators available to graph steps, keyed by role.
type Registry struct {
	mu    sync.RWMutex
	items map[string]any
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]any)}
}

// Register makes instance available to steps. A repeated role replaces the previous instance.
func (r *Registry) Register(role string, instance any) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return domain.WrapError(domain.ErrConfiguration, "register collaborator", fmt.Errorf("role is required"))
	}
	if instance == nil {
		return domain.WrapError(domain.ErrConfiguration, "register collaborator", fmt.Errorf("role %q has nil instance", role))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[role] = instance
	return nil
}

// MustRegister is Register for static wiring code.
func (r *Registry) MustRegister(role string, instance any) *Registry {
	if err := r.Register(role, instance); err != nil {
		panic(err)
	}
	return r
}

// Roles returns registered role names in lexical order.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.items))
	for role := range r.items {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Resolve finds the single registered collaborator assignable to T.
func Resolve[T any](r *Registry) (T, error) {
	var zero T
	typeName := strings.TrimPrefix(fmt.Sprintf("%T", &zero), "*")
	if _, untyped := any(&zero).(*any); untyped {
		return zero, domain.WrapError(domain.ErrConfiguration, "resolve collaborator",
			fmt.Errorf("parameter type %s is untyped; declare the collaborator interface", typeName))
	}

	roles := r.Roles()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found   T
		matched []string
	)
	for _, role := range roles {
		if v, ok := r.items[role].(T); ok {
			found = v
			matched = append(matched, role)
		}
	}

	switch len(matched) {
	case 1:
		return found, nil
	case 0:
		return zero, domain.WrapError(domain.ErrConfiguration, "resolve collaborator",
			fmt.Errorf("missing dependency %s; available roles: [%s]", typeName, strings.Join(roles, ", ")))
	default:
		return zero, domain.WrapError(domain.ErrConfiguration, "resolve collaborator",
			fmt.Errorf("ambiguous dependency %s matches roles [%s]", typeName, strings.Join(matched, ", ")))
	}
}

// Bind1 resolves the collaborator of a one-dependency step.
func Bind1[A any](r *Registry, fn func(context.Context, *domain.State, A) error) (Step, error) {
	a, err := Resolve[A](r)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, state *domain.State) error {
		return fn(ctx, state, a)
	}, nil
}

// Bind2 resolves the collaborators of a two-dependency step.
func Bind2[A, B any](r *Registry, fn func(context.Context, *domain.State, A, B) error) (Step, error) {
	a, err := Resolve[A](r)
	if err != nil {
		return nil, err
	}
	b, err := Resolve[B](r)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, state *domain.State) error {
		return fn(ctx, state, a, b)
	}, nil
}

// Bind3 resolves the collaborators of a three-dependency step.
func Bind3[A, B, C any](r *Registry, fn func(context.Context, *domain.State, A, B, C) error) (Step, error) {
	a, err := Resolve[A](r)
	if err != nil {
		return nil, err
	}
	b, err := Resolve[B](r)
	if err != nil {
		return nil, err
	}
	c, err := Resolve[C](r)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, state *domain.State) error {
		return fn(ctx, state, a, b, c)
	}, nil
}
