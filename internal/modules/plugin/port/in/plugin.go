package in

import (
	"context"

	"cardadapter/internal/modules/plugin/dto"
)

type Usecase interface {
	Install(ctx context.Context, input dto.InstallInput) (dto.PluginInfo, error)
	List(ctx context.Context) ([]dto.PluginInfo, error)
	Doctor(ctx context.Context) ([]dto.DoctorResult, error)
	Resolve(ctx context.Context, input dto.ResolveInput) (dto.ResolveOutput, error)
}
