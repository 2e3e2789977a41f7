package usecase

import (
	"context"

	"cardadapter/internal/modules/pipeline/dto"
	pipelinein "cardadapter/internal/modules/pipeline/port/in"
	"cardadapter/internal/modules/pipeline/service"
)

type Interactor struct {
	svc *service.PipelineService
}

func NewInteractor(svc *service.PipelineService) pipelinein.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error) {
	return i.svc.Run(ctx, input)
}

func (i *Interactor) RunFile(ctx context.Context, input dto.RunFileInput) (dto.RunOutput, error) {
	return i.svc.RunFile(ctx, input)
}
