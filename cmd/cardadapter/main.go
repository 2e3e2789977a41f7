package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"cardadapter/internal/bootstrap"
	plugindto "cardadapter/internal/modules/plugin/dto"
	"cardadapter/internal/platform/config"
	"cardadapter/internal/ui/theme"
)

const defaultConfigFile = "cardadapter.yaml"

type rootOptions struct {
	configPath  string
	projectRoot string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "cardadapter",
		Short:         "Adaptive Card pipeline adapter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./"+defaultConfigFile+" when present)")
	root.PersistentFlags().StringVar(&opts.projectRoot, "project", ".", "project root used when no config file is loaded")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level: trace|debug|info|warn|error")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newExpandCmd(opts))
	root.AddCommand(newPluginCmd(opts))
	return root
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.New(opts.projectRoot)
	}
	if err != nil {
		return config.Config{}, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

func loadApp(opts *rootOptions) (*bootstrap.App, config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, config.Config{}, err
	}
	app, err := bootstrap.New(cfg, bootstrap.Options{LogOutput: os.Stderr})
	if err != nil {
		return nil, config.Config{}, err
	}
	return app, cfg, nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var payloadPath string
	cmd := &cobra.Command{
		Use:   "run --payload <file>",
		Short: "Run the configured plugin pipeline on a dialog payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(payloadPath) == "" {
				return fmt.Errorf("--payload is required")
			}
			app, cfg, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			card, err := app.PipelineCLI.RunFile(context.Background(), payloadPath, cfg.Pipeline)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), card)
		},
	}
	cmd.Flags().StringVar(&payloadPath, "payload", "", "dialog payload JSON file")
	return cmd
}

func newExpandCmd(opts *rootOptions) *cobra.Command {
	var templatePath, dataPath string
	var lenient bool
	cmd := &cobra.Command{
		Use:   "expand --template <file> --data <file>",
		Short: "Expand a card template with a data document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(templatePath) == "" || strings.TrimSpace(dataPath) == "" {
				return fmt.Errorf("--template and --data are required")
			}
			app, cfg, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			if !cmd.Flags().Changed("lenient") {
				lenient = !cfg.StrictTemplates
			}
			doc, err := app.TemplateCLI.ExpandFiles(context.Background(), templatePath, dataPath, lenient)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringVar(&templatePath, "template", "", "card template JSON file")
	cmd.Flags().StringVar(&dataPath, "data", "", "data JSON file")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "leave unresolved bindings in place instead of failing")
	return cmd
}

func newPluginCmd(opts *rootOptions) *cobra.Command {
	plugin := &cobra.Command{Use: "plugin", Short: "Plugin package operations"}

	var installPath string
	var force bool
	install := &cobra.Command{
		Use:   "install --path <dir>",
		Short: "Install the plugin package found at a location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(installPath) == "" {
				return fmt.Errorf("--path is required")
			}
			app, _, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			info, err := app.PluginCLI.Install(context.Background(), installPath, force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "installed %s@%s (%s)\n", info.Name, info.Version, info.Runtime)
			return nil
		},
	}
	install.Flags().StringVar(&installPath, "path", "", "plugin location, absolute or relative to the project root")
	install.Flags().BoolVar(&force, "force", false, "reinstall even when already installed")
	plugin.AddCommand(install)

	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			plugins, err := app.PluginCLI.List(context.Background())
			if err != nil {
				return err
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render("no plugins installed"))
				return nil
			}
			for _, p := range plugins {
				writePluginInfo(cmd.OutOrStdout(), p)
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate installed plugin checksums and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			results, err := app.PluginCLI.Doctor(context.Background())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render("no plugins installed"))
				return nil
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s  %s  %s\n",
					theme.Title.Render(r.Name),
					theme.Muted.Render("("+r.Runtime+")"),
					theme.Check(r.BinaryReachable, "binary"),
					theme.Check(r.ChecksumValid, "checksum"),
					theme.Check(r.LifecycleOK, "lifecycle"),
				)
				if r.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", theme.Hot.Render(r.Error))
				}
			}
			return nil
		},
	})

	var resolvePath, resolveName string
	var resolveForce bool
	resolve := &cobra.Command{
		Use:   "resolve --path <dir> --name <package>",
		Short: "Install if needed and load a plugin package",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(resolvePath) == "" || strings.TrimSpace(resolveName) == "" {
				return fmt.Errorf("--path and --name are required")
			}
			app, _, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.PluginCLI.Resolve(context.Background(), resolvePath, resolveName, resolveForce)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", theme.Check(true, out.Package), theme.Muted.Render("roles="+strings.Join(out.Roles, ",")))
			return nil
		},
	}
	resolve.Flags().StringVar(&resolvePath, "path", "", "plugin location, absolute or relative to the project root")
	resolve.Flags().StringVar(&resolveName, "name", "", "package name")
	resolve.Flags().BoolVar(&resolveForce, "force", false, "reinstall before loading")
	plugin.AddCommand(resolve)

	return plugin
}

func writePluginInfo(w io.Writer, p plugindto.PluginInfo) {
	target := p.Binary
	if target == "" {
		target = "entry=" + p.Entry
	}
	_, _ = fmt.Fprintf(w, "%s%s %s %s\n",
		theme.Title.Render(p.Name),
		theme.Muted.Render("@"+p.Version),
		strings.Join(p.Roles, ","),
		theme.Muted.Render(target),
	)
}

func printJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
