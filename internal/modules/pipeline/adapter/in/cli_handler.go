package in

import (
	"context"

	"cardadapter/internal/modules/pipeline/dto"
	pipelinein "cardadapter/internal/modules/pipeline/port/in"
	"cardadapter/internal/platform/config"
)

type CLIHandler struct {
	usecase pipelinein.Usecase
}

func NewCLIHandler(usecase pipelinein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) RunFile(ctx context.Context, payloadPath string, pipeline config.Pipeline) (any, error) {
	out, err := h.usecase.RunFile(ctx, dto.RunFileInput{PayloadPath: payloadPath, Pipeline: pipeline})
	if err != nil {
		return nil, err
	}
	return out.Card, nil
}
