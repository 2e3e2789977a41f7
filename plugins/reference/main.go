package main

import (
	pluginrpc "cardadapter/internal/modules/plugin/adapter/out/rpc"
)

func main() {
	pluginrpc.Serve(pluginrpc.Descriptor{
		Name:    "reference",
		Version: "1.0.0",
		Roles:   []string{"selector", "preprocessor", "postprocessor"},
	}, pluginrpc.Handlers{
		SelectTemplate: selectTemplate,
		PreProcess:     fillChoiceValues,
		PostProcess:    enlargeFirstTextBlock,
	})
}
