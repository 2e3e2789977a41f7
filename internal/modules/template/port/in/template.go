package in

import (
	"context"

	"cardadapter/internal/modules/template/dto"
)

type Usecase interface {
	Expand(ctx context.Context, input dto.ExpandInput) (dto.ExpandOutput, error)
	ExpandFiles(ctx context.Context, input dto.ExpandFileInput) (dto.ExpandOutput, error)
}
