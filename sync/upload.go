package sync

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/spf13/afero"

	"github.com/beam-connectivity/grafana-dashboard-manager/models"
)

// Uploader writes a local dashboard tree to Grafana, creating the
// folder per top-level directory and one dashboard per JSON file.
type Uploader struct {
	Fs      afero.Fs
	Grafana Grafana
	Log     *log.Logger
}

// Run uploads everything under sourceDir. Folder identities come from
// the folders.json manifest when present, falling back to the live
// install otherwise. A failed remote call aborts the run.
func (u *Uploader) Run(sourceDir string) (*Report, error) {
	oopsBuilder := oops.In("Uploader::Run").With("sourceDir", sourceDir)
	logger := u.Log.WithPrefix("upload")
	report := &Report{}

	folderInfo, err := u.resolveFolders(sourceDir, logger)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	logger.Debug("Resolved folders", "titles", lo.Keys(folderInfo))

	entries, err := afero.ReadDir(u.Fs, sourceDir)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()

		// Reuse the known uid when we have one so links survive the
		// round trip. Otherwise Grafana assigns a uid and we record it
		// for the panel rewriting below.
		if known, ok := folderInfo.Lookup(name); ok {
			if _, err := u.Grafana.CreateFolder(name, known.UID); err != nil {
				return nil, oopsBuilder.With("folder", name).Wrap(err)
			}
			report.FoldersReused++
		} else {
			folder, err := u.Grafana.CreateFolder(name, "")
			if err != nil {
				return nil, oopsBuilder.With("folder", name).Wrap(err)
			}
			folderInfo.Put(folder)
			report.FoldersCreated++
		}

		if err := u.uploadFolder(sourceDir, name, folderInfo, report, logger); err != nil {
			return nil, oopsBuilder.With("folder", name).Wrap(err)
		}
	}

	if err := u.setHomeDashboard(sourceDir, folderInfo, report, logger); err != nil {
		return nil, oopsBuilder.Wrap(err)
	}

	logger.Info("Upload complete", "summary", report.Summary())
	return report, nil
}

// resolveFolders builds the title to folder-identity mapping, from the
// manifest when present and from the live folder list otherwise.
func (u *Uploader) resolveFolders(sourceDir string, logger *log.Logger) (models.FolderMap, error) {
	path := manifestPath(sourceDir)

	ok, err := afero.Exists(u.Fs, path)
	if err != nil {
		return nil, oops.In("resolveFolders").Wrap(err)
	}
	if !ok {
		logger.Warn("Manifest file is missing, it is created when downloading dashboards", "path", path)
		logger.Warn("Folders will not keep the same folderUid and links/bookmarks will break")

		existing, err := u.Grafana.ListFolders()
		if err != nil {
			return nil, oops.In("resolveFolders").Wrap(err)
		}
		folders := make(models.FolderMap, len(existing))
		for _, f := range existing {
			folders.Put(f)
		}
		return folders, nil
	}

	return ReadManifest(u.Fs, path)
}

func (u *Uploader) uploadFolder(sourceDir, name string, folderInfo models.FolderMap, report *Report, logger *log.Logger) error {
	dir := filepath.Join(sourceDir, name)
	files, err := afero.ReadDir(u.Fs, dir)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		logger.Info("Adding dashboard", "folder", name, "file", file.Name())

		data, err := afero.ReadFile(u.Fs, filepath.Join(dir, file.Name()))
		if err != nil {
			return err
		}
		doc, err := models.ParseDocument(data)
		if err != nil {
			return oops.With("file", file.Name()).Wrap(err)
		}

		report.PanelsPatched += UpdateDashlistFolderIDs(doc, folderInfo, logger)

		if err := u.Grafana.CreateDashboard(doc, folderInfo[name].UID); err != nil {
			return err
		}
		report.Dashboards++
	}
	return nil
}

// setHomeDashboard uploads home.json, when present, via the dedicated
// home-dashboard call and marks it as the org landing page. Absence is
// a warning, not a failure.
func (u *Uploader) setHomeDashboard(sourceDir string, folderInfo models.FolderMap, report *Report, logger *log.Logger) error {
	if sourceDir == "" {
		logger.Warn("No source directory, cannot find home.json file")
		return nil
	}

	path := filepath.Join(sourceDir, "home.json")
	ok, err := afero.Exists(u.Fs, path)
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("Not a file, skipping home dashboard", "path", path)
		return nil
	}

	data, err := afero.ReadFile(u.Fs, path)
	if err != nil {
		return err
	}
	doc, err := models.ParseDocument(data)
	if err != nil {
		return err
	}

	report.PanelsPatched += UpdateDashlistFolderIDs(doc, folderInfo, logger)
	logger.Debug("Home dashboard", "doc", spew.Sdump(doc))

	uid, err := u.Grafana.CreateHomeDashboard(doc)
	if err != nil {
		return err
	}
	logger.Info("Set home dashboard", "title", doc.Title())

	if err := u.Grafana.SetHomeDashboard(uid); err != nil {
		return err
	}
	report.HomeSet = true
	return nil
}
