package sync

import (
	"encoding/json"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/samber/oops"
	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"

	"github.com/beam-connectivity/grafana-dashboard-manager/models"
)

// Downloader snapshots a Grafana install into a local tree: one
// directory per folder, one JSON file per dashboard, plus the
// folders.json manifest that a later upload uses to keep uids stable.
type Downloader struct {
	Fs      afero.Fs
	Grafana Grafana
	Log     *log.Logger
}

func (d *Downloader) Run(destDir string) error {
	oopsBuilder := oops.In("Downloader::Run").With("destDir", destDir)
	logger := d.Log.WithPrefix("download")

	remote, err := d.Grafana.ListFolders()
	if err != nil {
		return oopsBuilder.Wrap(err)
	}

	folderInfo := make(models.FolderMap, len(remote))
	for _, f := range remote {
		folderInfo.Put(f)
	}

	if err := d.Fs.MkdirAll(destDir, 0o755); err != nil {
		return oopsBuilder.Wrap(err)
	}
	if err := WriteManifest(d.Fs, manifestPath(destDir), folderInfo); err != nil {
		return oopsBuilder.Wrap(err)
	}
	logger.Info("Wrote folder manifest", "folders", len(folderInfo))

	for _, folder := range remote {
		if err := d.downloadFolder(destDir, folder, logger); err != nil {
			return oopsBuilder.With("folder", folder.Title).Wrap(err)
		}
	}
	return nil
}

type fetched struct {
	ref models.DashboardRef
	doc models.Document
}

func (d *Downloader) downloadFolder(destDir string, folder models.Folder, logger *log.Logger) error {
	refs, err := d.Grafana.ListDashboards(folder.UID)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		logger.Debug("Folder has no dashboards", "folder", folder.Title)
		return nil
	}

	dir := filepath.Join(destDir, folder.Title)
	if err := d.Fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Definitions fetch in parallel; writes stay on this goroutine.
	docs, err := iter.MapErr(refs, func(refPtr *models.DashboardRef) (fetched, error) {
		ref := *refPtr
		doc, err := d.Grafana.GetDashboard(ref.UID)
		if err != nil {
			return fetched{}, oops.With("uid", ref.UID).Wrap(err)
		}
		return fetched{ref: ref, doc: doc}, nil
	})
	if err != nil {
		return err
	}

	for _, f := range docs {
		name := f.ref.Slug
		if name == "" {
			name = f.ref.UID
		}
		data, err := json.MarshalIndent(f.doc, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(dir, name+".json")
		if err := afero.WriteFile(d.Fs, path, data, 0o644); err != nil {
			return err
		}
		logger.Info("Saved dashboard", "folder", folder.Title, "file", name+".json")
	}
	return nil
}
