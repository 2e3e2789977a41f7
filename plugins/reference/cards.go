package main

import (
	"context"
	"embed"
	"fmt"
	"path"
	"strings"

	json "github.com/goccy/go-json"
)

//go:embed templates/*.json
var templateFS embed.FS

const defaultCardType = "textOnly"

// selectTemplate picks the embedded template named by cardTemplateType.
func selectTemplate(_ context.Context, payload map[string]any) (any, error) {
	cardType, _ := payload["cardTemplateType"].(string)
	if strings.TrimSpace(cardType) == "" {
		cardType = defaultCardType
	}
	raw, err := templateFS.ReadFile(path.Join("templates", cardType+".json"))
	if err != nil {
		return nil, fmt.Errorf("no template for card type %q", cardType)
	}
	var template any
	if err := json.Unmarshal(raw, &template); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", cardType, err)
	}
	return template, nil
}

// fillChoiceValues gives every choice without a value its position.
func fillChoiceValues(_ context.Context, payload map[string]any, _ any) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	choices, ok := payload["choices"].([]any)
	if !ok {
		return out, nil
	}
	filled := make([]any, len(choices))
	for i, c := range choices {
		choice, ok := c.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("choice %d is not an object", i)
		}
		next := make(map[string]any, len(choice)+1)
		for k, v := range choice {
			next[k] = v
		}
		if _, ok := next["value"]; !ok {
			next["value"] = i
		}
		filled[i] = next
	}
	out["choices"] = filled
	return out, nil
}

// enlargeFirstTextBlock sets size "Large" on the first TextBlock of the body.
func enlargeFirstTextBlock(_ context.Context, _ map[string]any, _ any, card any) (any, error) {
	doc, ok := card.(map[string]any)
	if !ok {
		return card, nil
	}
	body, _ := doc["body"].([]any)
	for _, item := range body {
		block, ok := item.(map[string]any)
		if ok && block["type"] == "TextBlock" {
			block["size"] = "Large"
			break
		}
	}
	return doc, nil
}
