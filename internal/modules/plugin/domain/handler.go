package domain

import (
	"context"
	"fmt"
)

// SelectorFunc adapts a plain function to a selector-only Plugin.
type SelectorFunc func(ctx context.Context, payload map[string]any) (any, error)

func (fn SelectorFunc) SelectTemplate(ctx context.Context, payload map[string]any) (any, error) {
	return fn(ctx, payload)
}

func (SelectorFunc) PreProcess(context.Context, map[string]any, any) (map[string]any, error) {
	return nil, fmt.Errorf("%w: %s", ErrRoleUnsupported, RolePreProcessor)
}

func (SelectorFunc) PostProcess(context.Context, map[string]any, any, any) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrRoleUnsupported, RolePostProcessor)
}

// PreProcessorFunc adapts a plain function to a preprocessor-only Plugin.
type PreProcessorFunc func(ctx context.Context, payload map[string]any, template any) (map[string]any, error)

func (PreProcessorFunc) SelectTemplate(context.Context, map[string]any) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrRoleUnsupported, RoleSelector)
}

func (fn PreProcessorFunc) PreProcess(ctx context.Context, payload map[string]any, template any) (map[string]any, error) {
	return fn(ctx, payload, template)
}

func (PreProcessorFunc) PostProcess(context.Context, map[string]any, any, any) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrRoleUnsupported, RolePostProcessor)
}

// PostProcessorFunc adapts a plain function to a postprocessor-only Plugin.
type PostProcessorFunc func(ctx context.Context, payload map[string]any, template any, card any) (any, error)

func (PostProcessorFunc) SelectTemplate(context.Context, map[string]any) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrRoleUnsupported, RoleSelector)
}

func (PostProcessorFunc) PreProcess(context.Context, map[string]any, any) (map[string]any, error) {
	return nil, fmt.Errorf("%w: %s", ErrRoleUnsupported, RolePreProcessor)
}

func (fn PostProcessorFunc) PostProcess(ctx context.Context, payload map[string]any, template any, card any) (any, error) {
	return fn(ctx, payload, template, card)
}

// Restrict limits p to the given roles.
func Restrict(p Plugin, roles []Role) Plugin {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return restricted{inner: p, roles: allowed}
}

type restricted struct {
	inner Plugin
	roles map[Role]struct{}
}

func (r restricted) allow(role Role) error {
	if _, ok := r.roles[role]; !ok {
		return fmt.Errorf("%w: %s", ErrRoleUnsupported, role)
	}
	return nil
}

func (r restricted) SelectTemplate(ctx context.Context, payload map[string]any) (any, error) {
	if err := r.allow(RoleSelector); err != nil {
		return nil, err
	}
	return r.inner.SelectTemplate(ctx, payload)
}

func (r restricted) PreProcess(ctx context.Context, payload map[string]any, template any) (map[string]any, error) {
	if err := r.allow(RolePreProcessor); err != nil {
		return nil, err
	}
	return r.inner.PreProcess(ctx, payload, template)
}

func (r restricted) PostProcess(ctx context.Context, payload map[string]any, template any, card any) (any, error) {
	if err := r.allow(RolePostProcessor); err != nil {
		return nil, err
	}
	return r.inner.PostProcess(ctx, payload, template, card)
}
