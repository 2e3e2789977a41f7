package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	apperrors "cardadapter/internal/platform/errors"
)

type Role string

const (
	RoleSelector      Role = "selector"
	RolePreProcessor  Role = "preprocessor"
	RolePostProcessor Role = "postprocessor"
)

type Runtime string

const (
	RuntimeGRPC    Runtime = "grpc"
	RuntimeBuiltin Runtime = "builtin"
)

var (
	ErrManifestNotFound = fmt.Errorf("plugin manifest %w", apperrors.ErrNotFound)
	ErrManifestInvalid  = errors.New("plugin manifest invalid")
	ErrChecksumMismatch = errors.New("plugin checksum mismatch")
	ErrPackageNotFound  = fmt.Errorf("plugin package %w", apperrors.ErrNotFound)
	ErrRoleUnsupported  = errors.New("plugin role unsupported")
	ErrRuntimeMissing   = errors.New("plugin runtime unavailable")
	ErrRegistryClosed   = errors.New("plugin registry closed")
)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Plugin is the invocable entry point of an installed package. A package only
// answers for the roles its manifest declares; the rest return
// ErrRoleUnsupported.
type Plugin interface {
	SelectTemplate(ctx context.Context, payload map[string]any) (any, error)
	PreProcess(ctx context.Context, payload map[string]any, template any) (map[string]any, error)
	PostProcess(ctx context.Context, payload map[string]any, template any, card any) (any, error)
}

// Manifest describes the package found at an install location.
type Manifest struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Runtime Runtime `json:"runtime"`
	Binary  string  `json:"binary,omitempty"`
	Entry   string  `json:"entry,omitempty"`
	SHA256  string  `json:"sha256,omitempty"`
	Roles   []Role  `json:"roles"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrManifestInvalid)
	}
	if m.Version == "" {
		return fmt.Errorf("%w: version is required", ErrManifestInvalid)
	}
	if err := m.Runtime.Validate(); err != nil {
		return err
	}
	switch m.Runtime {
	case RuntimeGRPC:
		if m.Binary == "" {
			return fmt.Errorf("%w: binary is required for grpc runtime", ErrManifestInvalid)
		}
	case RuntimeBuiltin:
		if m.Entry == "" {
			return fmt.Errorf("%w: entry is required for builtin runtime", ErrManifestInvalid)
		}
	}
	if m.SHA256 != "" && !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("%w: sha256 must be lowercase 64-char hex", ErrManifestInvalid)
	}
	if len(m.Roles) == 0 {
		return fmt.Errorf("%w: roles are required", ErrManifestInvalid)
	}
	seen := map[Role]struct{}{}
	for _, role := range m.Roles {
		if err := role.Validate(); err != nil {
			return err
		}
		if _, ok := seen[role]; ok {
			return fmt.Errorf("%w: duplicate role %s", ErrManifestInvalid, role)
		}
		seen[role] = struct{}{}
	}
	return nil
}

func (r Role) Validate() error {
	switch r {
	case RoleSelector, RolePreProcessor, RolePostProcessor:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %s", ErrManifestInvalid, r)
	}
}

func (r Runtime) Validate() error {
	switch r {
	case RuntimeGRPC, RuntimeBuiltin:
		return nil
	default:
		return fmt.Errorf("%w: unknown runtime %q", ErrManifestInvalid, r)
	}
}

// Installation is the persisted outcome of installing a package.
type Installation struct {
	Name        string
	Version     string
	Runtime     Runtime
	Location    string
	Binary      string
	Entry       string
	SHA256      string
	Roles       []Role
	InstalledAt time.Time
}

func (i Installation) HasRole(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ResolutionError reports an install or lookup failure for a named package.
type ResolutionError struct {
	Package  string
	Location string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve plugin %q from %s: %v", e.Package, e.Location, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
