package service

import (
	"context"

	"cardadapter/internal/modules/template/domain"
	"cardadapter/internal/modules/template/dto"
	templateout "cardadapter/internal/modules/template/port/out"
)

type TemplateService struct {
	reader  templateout.DocumentReader
	strict  *Expander
	lenient *Expander
}

func NewTemplateService(reader templateout.DocumentReader) *TemplateService {
	return &TemplateService{
		reader:  reader,
		strict:  NewExpander(domain.Options{}),
		lenient: NewExpander(domain.Options{Lenient: true}),
	}
}

func (s *TemplateService) Expand(_ context.Context, input dto.ExpandInput) (dto.ExpandOutput, error) {
	doc, err := s.expander(input.Lenient).Expand(input.Data, input.Template)
	if err != nil {
		return dto.ExpandOutput{}, err
	}
	return dto.ExpandOutput{Document: doc}, nil
}

func (s *TemplateService) ExpandFiles(ctx context.Context, input dto.ExpandFileInput) (dto.ExpandOutput, error) {
	template, err := s.reader.Read(ctx, input.TemplatePath)
	if err != nil {
		return dto.ExpandOutput{}, err
	}
	data, err := s.reader.Read(ctx, input.DataPath)
	if err != nil {
		return dto.ExpandOutput{}, err
	}
	return s.Expand(ctx, dto.ExpandInput{Data: data, Template: template, Lenient: input.Lenient})
}

func (s *TemplateService) expander(lenient bool) *Expander {
	if lenient {
		return s.lenient
	}
	return s.strict
}
