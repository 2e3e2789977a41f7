package service

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"cardadapter/internal/modules/pipeline/domain"
	pipelineout "cardadapter/internal/modules/pipeline/port/out"
	plugindomain "cardadapter/internal/modules/plugin/domain"
	"cardadapter/internal/platform/id"
	"cardadapter/internal/platform/logging"
)

// Orchestrator runs selector, optional pre-processor, expansion and optional
// post-processor in that order. Stages never overlap and the first failure
// ends the run.
type Orchestrator struct {
	resolver pipelineout.Resolver
	expander pipelineout.Expander
	ids      id.Generator
	logger   hclog.Logger
}

func NewOrchestrator(resolver pipelineout.Resolver, expander pipelineout.Expander, ids id.Generator, logger hclog.Logger) *Orchestrator {
	if ids == nil {
		ids = id.RandomHex{}
	}
	return &Orchestrator{
		resolver: resolver,
		expander: expander,
		ids:      ids,
		logger:   logging.OrDiscard(logger).Named("pipeline"),
	}
}

// Run returns the card document for payload. Only a failed selector
// invocation is wrapped (in *domain.AdapterError); resolution, expansion and
// pre/post-processor failures are returned as they are.
func (o *Orchestrator) Run(ctx context.Context, payload map[string]any, cfg domain.Config) (any, error) {
	log := o.logger.With("run", o.ids.New())

	log.Debug("stage start", "stage", domain.StageSelector, "plugin", cfg.TemplateSelector.String())
	selector, release, err := o.resolve(ctx, cfg.TemplateSelector, cfg.ForceReinstall)
	if err != nil {
		return nil, err
	}
	template, err := selector.SelectTemplate(ctx, payload)
	release()
	if err != nil {
		log.Debug("stage failed", "stage", domain.StageSelector, "error", err)
		return nil, &domain.AdapterError{Stage: domain.StageSelector, Err: err}
	}
	log.Debug("stage done", "stage", domain.StageSelector)

	if ref := cfg.PreProcessor; ref != nil {
		log.Debug("stage start", "stage", domain.StagePreProcessor, "plugin", ref.String())
		pre, release, err := o.resolve(ctx, *ref, cfg.ForceReinstall)
		if err != nil {
			return nil, err
		}
		payload, err = pre.PreProcess(ctx, payload, template)
		release()
		if err != nil {
			return nil, err
		}
		log.Debug("stage done", "stage", domain.StagePreProcessor)
	}

	card, err := o.expander.Expand(payload, template)
	if err != nil {
		return nil, err
	}
	log.Debug("stage done", "stage", domain.StageExpand)

	if ref := cfg.PostProcessor; ref != nil {
		log.Debug("stage start", "stage", domain.StagePostProcessor, "plugin", ref.String())
		post, release, err := o.resolve(ctx, *ref, cfg.ForceReinstall)
		if err != nil {
			return nil, err
		}
		card, err = post.PostProcess(ctx, payload, template, card)
		release()
		if err != nil {
			return nil, err
		}
		log.Debug("stage done", "stage", domain.StagePostProcessor)
	}
	return card, nil
}

// resolve leases the stage's handler. Each stage releases it right after its
// single invocation.
func (o *Orchestrator) resolve(ctx context.Context, ref domain.PluginRef, force bool) (plugindomain.Plugin, func(), error) {
	return o.resolver.Resolve(ctx, ref.InstallPath, ref.PackageName, force)
}
