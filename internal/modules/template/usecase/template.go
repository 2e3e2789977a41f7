package usecase

import (
	"context"

	"cardadapter/internal/modules/template/dto"
	templatein "cardadapter/internal/modules/template/port/in"
	"cardadapter/internal/modules/template/service"
)

type Interactor struct {
	svc *service.TemplateService
}

func NewInteractor(svc *service.TemplateService) templatein.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Expand(ctx context.Context, input dto.ExpandInput) (dto.ExpandOutput, error) {
	return i.svc.Expand(ctx, input)
}

func (i *Interactor) ExpandFiles(ctx context.Context, input dto.ExpandFileInput) (dto.ExpandOutput, error) {
	return i.svc.ExpandFiles(ctx, input)
}
