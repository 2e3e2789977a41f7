package in

import (
	"context"

	"cardadapter/internal/modules/template/dto"
	templatein "cardadapter/internal/modules/template/port/in"
)

type CLIHandler struct {
	usecase templatein.Usecase
}

func NewCLIHandler(usecase templatein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) ExpandFiles(ctx context.Context, templatePath, dataPath string, lenient bool) (any, error) {
	out, err := h.usecase.ExpandFiles(ctx, dto.ExpandFileInput{TemplatePath: templatePath, DataPath: dataPath, Lenient: lenient})
	if err != nil {
		return nil, err
	}
	return out.Document, nil
}
