package in

import (
	"context"

	"cardadapter/internal/modules/pipeline/dto"
)

type Usecase interface {
	Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error)
	RunFile(ctx context.Context, input dto.RunFileInput) (dto.RunOutput, error)
}
