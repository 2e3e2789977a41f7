package usecase

import (
	"context"

	"cardadapter/internal/modules/plugin/dto"
	pluginin "cardadapter/internal/modules/plugin/port/in"
	"cardadapter/internal/modules/plugin/service"
)

type Interactor struct {
	svc *service.PluginService
}

func NewInteractor(svc *service.PluginService) pluginin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Install(ctx context.Context, input dto.InstallInput) (dto.PluginInfo, error) {
	return i.svc.Install(ctx, input)
}

func (i *Interactor) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return i.svc.List(ctx)
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}

func (i *Interactor) Resolve(ctx context.Context, input dto.ResolveInput) (dto.ResolveOutput, error) {
	return i.svc.Resolve(ctx, input)
}
