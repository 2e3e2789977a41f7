package domain

import (
	"errors"
	"fmt"
	"strings"

	"cardadapter/internal/platform/config"
	apperrors "cardadapter/internal/platform/errors"
)

type Stage string

const (
	StageSelector      Stage = "template selector"
	StagePreProcessor  Stage = "pre-processor"
	StageExpand        Stage = "expand"
	StagePostProcessor Stage = "post-processor"
)

var ErrSelectorInvocation = errors.New("template selector invocation failed")

// PluginRef names a package and where to install it from. Both fields are
// always set.
type PluginRef struct {
	InstallPath string
	PackageName string
}

func (r PluginRef) String() string {
	return r.PackageName + "@" + r.InstallPath
}

// Config is the immutable plugin configuration of one run. A nil optional
// stage is disabled.
type Config struct {
	TemplateSelector PluginRef
	PreProcessor     *PluginRef
	PostProcessor    *PluginRef
	ForceReinstall   bool
}

// NewConfig builds a Config from the flat file form. An optional stage with
// only one half of its pair set is disabled and reported in skipped.
func NewConfig(p config.Pipeline) (cfg Config, skipped []Stage, err error) {
	selector, _ := pair(p.TemplateSelectorInstallPath, p.TemplateSelectorPackageName)
	if selector == nil {
		return Config{}, nil, fmt.Errorf("%w: templateSelectorInstallPath and templateSelectorPackageName are required", apperrors.ErrInvalidInput)
	}
	cfg = Config{TemplateSelector: *selector, ForceReinstall: p.ForceReinstall}

	var ok bool
	cfg.PreProcessor, ok = pair(p.PreProcessorInstallPath, p.PreProcessorPackageName)
	if !ok {
		skipped = append(skipped, StagePreProcessor)
	}
	cfg.PostProcessor, ok = pair(p.PostProcessorInstallPath, p.PostProcessorPackageName)
	if !ok {
		skipped = append(skipped, StagePostProcessor)
	}
	return cfg, skipped, nil
}

// pair returns nil for an unset stage. consistent is false when only one half
// of the pair is set.
func pair(installPath, packageName string) (ref *PluginRef, consistent bool) {
	installPath = strings.TrimSpace(installPath)
	packageName = strings.TrimSpace(packageName)
	switch {
	case installPath != "" && packageName != "":
		return &PluginRef{InstallPath: installPath, PackageName: packageName}, true
	case installPath == "" && packageName == "":
		return nil, true
	default:
		return nil, false
	}
}

// AdapterError reports a failed template selector invocation. It is the only
// stage failure the orchestrator wraps.
type AdapterError struct {
	Stage Stage
	Err   error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter: %s: %v", e.Stage, e.Err)
}

func (e *AdapterError) Unwrap() []error {
	return []error{ErrSelectorInvocation, e.Err}
}
