package out

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"cardadapter/internal/modules/plugin/domain"
	pluginout "cardadapter/internal/modules/plugin/port/out"
)

const ManifestFile = "plugin.json"

type FileManifestStore struct{}

func NewFileManifestStore() pluginout.ManifestStore {
	return FileManifestStore{}
}

// Read decodes <location>/plugin.json. A relative binary path is resolved
// against the location.
func (FileManifestStore) Read(_ context.Context, location string) (domain.Manifest, error) {
	info, err := os.Stat(location)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Manifest{}, fmt.Errorf("%w: location %s does not exist", domain.ErrManifestNotFound, location)
		}
		return domain.Manifest{}, fmt.Errorf("stat plugin location: %w", err)
	}
	if !info.IsDir() {
		return domain.Manifest{}, fmt.Errorf("%w: location %s is not a directory", domain.ErrManifestNotFound, location)
	}
	b, err := os.ReadFile(filepath.Join(location, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Manifest{}, fmt.Errorf("%w: %s has no %s", domain.ErrManifestNotFound, location, ManifestFile)
		}
		return domain.Manifest{}, fmt.Errorf("read plugin manifest: %w", err)
	}
	var manifest domain.Manifest
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&manifest); err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: decode %s: %v", domain.ErrManifestInvalid, ManifestFile, err)
	}
	if manifest.Binary != "" && !filepath.IsAbs(manifest.Binary) {
		manifest.Binary = filepath.Clean(filepath.Join(location, manifest.Binary))
	}
	return manifest, nil
}
