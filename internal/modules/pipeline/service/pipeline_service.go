package service

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"cardadapter/internal/modules/pipeline/domain"
	"cardadapter/internal/modules/pipeline/dto"
	pipelineout "cardadapter/internal/modules/pipeline/port/out"
	"cardadapter/internal/platform/logging"
)

type PipelineService struct {
	orchestrator *Orchestrator
	payloads     pipelineout.PayloadReader
	logger       hclog.Logger
}

func NewPipelineService(orchestrator *Orchestrator, payloads pipelineout.PayloadReader, logger hclog.Logger) *PipelineService {
	return &PipelineService{
		orchestrator: orchestrator,
		payloads:     payloads,
		logger:       logging.OrDiscard(logger).Named("pipeline"),
	}
}

func (s *PipelineService) Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error) {
	cfg, skipped, err := domain.NewConfig(input.Pipeline)
	if err != nil {
		return dto.RunOutput{}, err
	}
	for _, stage := range skipped {
		s.logger.Warn("stage disabled: install path and package name must both be set", "stage", stage)
	}
	card, err := s.orchestrator.Run(ctx, input.Payload, cfg)
	if err != nil {
		return dto.RunOutput{}, err
	}
	return dto.RunOutput{Card: card}, nil
}

func (s *PipelineService) RunFile(ctx context.Context, input dto.RunFileInput) (dto.RunOutput, error) {
	payload, err := s.payloads.Read(ctx, input.PayloadPath)
	if err != nil {
		return dto.RunOutput{}, err
	}
	return s.Run(ctx, dto.RunInput{Payload: payload, Pipeline: input.Pipeline})
}
