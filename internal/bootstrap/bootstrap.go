package bootstrap

import (
	"fmt"
	"io"

	hclog "github.com/hashicorp/go-hclog"

	pipelineinadapter "cardadapter/internal/modules/pipeline/adapter/in"
	pipelineoutadapter "cardadapter/internal/modules/pipeline/adapter/out"
	pipelineservice "cardadapter/internal/modules/pipeline/service"
	pipelineusecase "cardadapter/internal/modules/pipeline/usecase"
	plugininadapter "cardadapter/internal/modules/plugin/adapter/in"
	pluginoutadapter "cardadapter/internal/modules/plugin/adapter/out"
	plugindomain "cardadapter/internal/modules/plugin/domain"
	pluginout "cardadapter/internal/modules/plugin/port/out"
	pluginservice "cardadapter/internal/modules/plugin/service"
	pluginusecase "cardadapter/internal/modules/plugin/usecase"
	templateinadapter "cardadapter/internal/modules/template/adapter/in"
	templateoutadapter "cardadapter/internal/modules/template/adapter/out"
	templatedomain "cardadapter/internal/modules/template/domain"
	templateservice "cardadapter/internal/modules/template/service"
	templateusecase "cardadapter/internal/modules/template/usecase"
	"cardadapter/internal/platform/clock"
	"cardadapter/internal/platform/config"
	"cardadapter/internal/platform/id"
	"cardadapter/internal/platform/logging"
)

// Options carries process-level collaborators that do not come from config.
type Options struct {
	LogOutput io.Writer
	// Builtins are in-process plugins addressable by manifests with
	// runtime "builtin".
	Builtins map[string]plugindomain.Plugin
}

type App struct {
	PipelineCLI pipelineinadapter.CLIHandler
	TemplateCLI templateinadapter.CLIHandler
	PluginCLI   plugininadapter.CLIHandler
	Logger      hclog.Logger

	registry *pluginservice.Registry
}

// New wires the application. The plugin registry it creates is shared by
// every pipeline run until Close.
func New(cfg config.Config, opts Options) (*App, error) {
	logger := logging.New(cfg.LogLevel, opts.LogOutput)

	builtins := pluginoutadapter.NewBuiltinHost()
	for entry, p := range opts.Builtins {
		if err := builtins.Register(entry, p); err != nil {
			return nil, fmt.Errorf("register builtin plugin: %w", err)
		}
	}
	installs, err := pluginoutadapter.NewSQLiteInstallStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("new install store: %w", err)
	}
	registry := pluginservice.NewRegistry(
		pluginoutadapter.NewFileManifestStore(),
		installs,
		map[plugindomain.Runtime]pluginout.Host{
			plugindomain.RuntimeGRPC:    pluginoutadapter.NewGRPCHost(logger),
			plugindomain.RuntimeBuiltin: builtins,
		},
		cfg.PluginDir,
		clock.SystemClock{},
		logger,
	)
	resolver := pluginservice.NewResolver(registry, cfg.ProjectRoot)
	pluginUC := pluginusecase.NewInteractor(pluginservice.NewPluginService(registry, resolver))

	templateUC := templateusecase.NewInteractor(templateservice.NewTemplateService(templateoutadapter.NewJSONDocumentReader()))

	expander := templateservice.NewExpander(templatedomain.Options{Lenient: !cfg.StrictTemplates})
	orchestrator := pipelineservice.NewOrchestrator(resolver, expander, id.RandomHex{}, logger)
	pipelineUC := pipelineusecase.NewInteractor(pipelineservice.NewPipelineService(
		orchestrator,
		pipelineoutadapter.NewJSONPayloadReader(),
		logger,
	))

	return &App{
		PipelineCLI: pipelineinadapter.NewCLIHandler(pipelineUC),
		TemplateCLI: templateinadapter.NewCLIHandler(templateUC),
		PluginCLI:   plugininadapter.NewCLIHandler(pluginUC),
		Logger:      logger,
		registry:    registry,
	}, nil
}

// Close stops every plugin process and releases the install store.
func (a *App) Close() error {
	return a.registry.Close()
}
