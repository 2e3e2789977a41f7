package dto

import "cardadapter/internal/platform/config"

type RunInput struct {
	Payload  map[string]any
	Pipeline config.Pipeline
}

type RunFileInput struct {
	PayloadPath string
	Pipeline    config.Pipeline
}

type RunOutput struct {
	Card any
}
