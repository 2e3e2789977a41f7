package in

import (
	"context"

	"cardadapter/internal/modules/plugin/dto"
	pluginin "cardadapter/internal/modules/plugin/port/in"
)

type CLIHandler struct {
	usecase pluginin.Usecase
}

func NewCLIHandler(usecase pluginin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Install(ctx context.Context, path string, force bool) (dto.PluginInfo, error) {
	return h.usecase.Install(ctx, dto.InstallInput{Path: path, Force: force})
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}

func (h CLIHandler) Resolve(ctx context.Context, path, packageName string, force bool) (dto.ResolveOutput, error) {
	return h.usecase.Resolve(ctx, dto.ResolveInput{Path: path, Package: packageName, Force: force})
}
