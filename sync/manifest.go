package sync

import (
	"encoding/json"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/afero"

	"github.com/beam-connectivity/grafana-dashboard-manager/models"
)

// ManifestName is the folder identity snapshot written next to the
// downloaded dashboard tree and read back on upload to keep folder
// uids stable across installs.
const ManifestName = "folders.json"

func manifestPath(dir string) string {
	return filepath.Join(dir, ManifestName)
}

// ReadManifest parses a folders.json manifest into a FolderMap.
func ReadManifest(fsys afero.Fs, path string) (models.FolderMap, error) {
	oopsBuilder := oops.In("ReadManifest").With("path", path)

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, oopsBuilder.Wrap(err)
	}

	folders := make(models.FolderMap, len(raw))
	for key, entry := range raw {
		folder, err := models.ParseFolder(entry)
		if err != nil {
			return nil, oopsBuilder.With("key", key).Wrap(err)
		}
		folders[key] = folder
	}
	return folders, nil
}

// WriteManifest persists a FolderMap as folders.json.
func WriteManifest(fsys afero.Fs, path string, folders models.FolderMap) error {
	oopsBuilder := oops.In("WriteManifest").With("path", path)

	data, err := json.MarshalIndent(folders, "", "  ")
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return oopsBuilder.Wrap(err)
	}
	return nil
}
