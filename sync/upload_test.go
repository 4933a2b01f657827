package sync

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beam-connectivity/grafana-dashboard-manager/models"
)

type createdFolder struct {
	Title string
	UID   string
}

type createdDashboard struct {
	Doc       models.Document
	FolderUID string
}

// fakeGrafana records every call the pipeline makes.
type fakeGrafana struct {
	existing []models.Folder
	docs     map[string]models.Document
	refs     map[string][]models.DashboardRef

	listCalls      int
	createdFolders []createdFolder
	dashboards     []createdDashboard
	homeDoc        models.Document
	homeCreates    int
	homeSetUID     string
	nextID         int64
}

func (f *fakeGrafana) ListFolders() ([]models.Folder, error) {
	f.listCalls++
	return f.existing, nil
}

func (f *fakeGrafana) CreateFolder(title string, uid string) (models.Folder, error) {
	f.createdFolders = append(f.createdFolders, createdFolder{Title: title, UID: uid})
	f.nextID++
	if uid == "" {
		uid = fmt.Sprintf("gen-%d", f.nextID)
	}
	return models.Folder{Title: title, UID: uid, ID: f.nextID}, nil
}

func (f *fakeGrafana) CreateDashboard(doc models.Document, folderUID string) error {
	f.dashboards = append(f.dashboards, createdDashboard{Doc: doc, FolderUID: folderUID})
	return nil
}

func (f *fakeGrafana) CreateHomeDashboard(doc models.Document) (string, error) {
	f.homeCreates++
	f.homeDoc = doc
	return "home-uid", nil
}

func (f *fakeGrafana) SetHomeDashboard(uid string) error {
	f.homeSetUID = uid
	return nil
}

func (f *fakeGrafana) ListDashboards(folderUID string) ([]models.DashboardRef, error) {
	return f.refs[folderUID], nil
}

func (f *fakeGrafana) GetDashboard(uid string) (models.Document, error) {
	doc, ok := f.docs[uid]
	if !ok {
		return nil, fmt.Errorf("no dashboard %s", uid)
	}
	return doc, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newUploader(fsys afero.Fs, grafana Grafana) *Uploader {
	return &Uploader{Fs: fsys, Grafana: grafana, Log: testLogger()}
}

const teamManifest = `{"Team A": {"title": "Team A", "uid": "abc", "id": 1}}`

const teamDashboard = `{
	"title": "Overview",
	"panels": [
		{"type": "dashlist", "title": "Team A", "options": {"folderId": 99, "folderUID": "stale"}},
		{"type": "graph", "title": "CPU"}
	]
}`

func TestUploadWithManifest(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "src/folders.json", []byte(teamManifest), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "src/Team A/dash1.json", []byte(teamDashboard), 0o644))

	grafana := &fakeGrafana{}
	report, err := newUploader(fsys, grafana).Run("src")
	require.NoError(t, err)

	// Known folder is recreated with the manifest uid
	require.Len(t, grafana.createdFolders, 1)
	assert.Equal(t, createdFolder{Title: "Team A", UID: "abc"}, grafana.createdFolders[0])
	assert.Zero(t, grafana.listCalls, "manifest present, no live folder query expected")

	require.Len(t, grafana.dashboards, 1)
	uploaded := grafana.dashboards[0]
	assert.Equal(t, "abc", uploaded.FolderUID)

	panels, ok := uploaded.Doc.Panels()
	require.True(t, ok)
	dashlist, ok := models.AsPanel(panels[0])
	require.True(t, ok)
	opts, ok := dashlist.Options()
	require.True(t, ok)
	assert.EqualValues(t, 1, opts["folderId"])
	assert.Equal(t, "abc", opts["folderUID"])

	assert.Equal(t, 1, report.FoldersReused)
	assert.Equal(t, 0, report.FoldersCreated)
	assert.Equal(t, 1, report.Dashboards)
	assert.Equal(t, 1, report.PanelsPatched)
}

func TestUploadWithoutManifestFallsBackToLiveFolders(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "src/NewTeam/dash1.json", []byte(`{"title": "Fresh", "panels": []}`), 0o644))

	grafana := &fakeGrafana{}
	report, err := newUploader(fsys, grafana).Run("src")
	require.NoError(t, err)

	assert.Equal(t, 1, grafana.listCalls)

	// No known identity, so the folder is created without a uid and the
	// service-assigned one is used for the dashboards inside it.
	require.Len(t, grafana.createdFolders, 1)
	assert.Equal(t, createdFolder{Title: "NewTeam", UID: ""}, grafana.createdFolders[0])

	require.Len(t, grafana.dashboards, 1)
	assert.Equal(t, "gen-1", grafana.dashboards[0].FolderUID)

	assert.Equal(t, 1, report.FoldersCreated)
}

func TestUploadNewFolderResolvableByLaterDashlists(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "src/folders.json", []byte(`{}`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "src/Alpha/a.json", []byte(`{"title": "A", "panels": []}`), 0o644))
	linking := `{"title": "B", "panels": [{"type": "dashlist", "title": "Alpha", "options": {"folderId": 0, "folderUID": "x"}}]}`
	require.NoError(t, afero.WriteFile(fsys, "src/Beta/b.json", []byte(linking), 0o644))

	grafana := &fakeGrafana{}
	_, err := newUploader(fsys, grafana).Run("src")
	require.NoError(t, err)

	// Alpha was created first with a generated uid; Beta's dashlist
	// resolves against the freshly recorded identity.
	var betaDoc models.Document
	for _, d := range grafana.dashboards {
		if d.Doc.Title() == "B" {
			betaDoc = d.Doc
		}
	}
	require.NotNil(t, betaDoc)
	panels, _ := betaDoc.Panels()
	panel, _ := models.AsPanel(panels[0])
	opts, _ := panel.Options()
	assert.Equal(t, "gen-1", opts["folderUID"])
	assert.EqualValues(t, 1, opts["folderId"])
}

func TestUploadIgnoresLooseFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "src/folders.json", []byte(`{}`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "src/README.md", []byte("notes"), 0o644))

	grafana := &fakeGrafana{}
	report, err := newUploader(fsys, grafana).Run("src")
	require.NoError(t, err)

	assert.Empty(t, grafana.createdFolders)
	assert.Equal(t, 0, report.Dashboards)
}

func TestUploadSkipsHomeWhenAbsent(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "src/folders.json", []byte(`{}`), 0o644))

	grafana := &fakeGrafana{}
	report, err := newUploader(fsys, grafana).Run("src")
	require.NoError(t, err)

	assert.Zero(t, grafana.homeCreates)
	assert.Empty(t, grafana.homeSetUID)
	assert.False(t, report.HomeSet)
}

func TestUploadSetsHomeDashboard(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "src/folders.json", []byte(teamManifest), 0o644))
	home := `{"title": "Welcome", "panels": [{"type": "dashlist", "title": "Team A", "options": {"folderId": 5, "folderUID": "nope"}}]}`
	require.NoError(t, afero.WriteFile(fsys, "src/home.json", []byte(home), 0o644))

	grafana := &fakeGrafana{}
	report, err := newUploader(fsys, grafana).Run("src")
	require.NoError(t, err)

	require.Equal(t, 1, grafana.homeCreates)
	assert.Equal(t, "home-uid", grafana.homeSetUID)
	assert.True(t, report.HomeSet)

	// The home dashboard gets the same dashlist fixups
	panels, ok := grafana.homeDoc.Panels()
	require.True(t, ok)
	panel, _ := models.AsPanel(panels[0])
	opts, _ := panel.Options()
	assert.EqualValues(t, 1, opts["folderId"])
	assert.Equal(t, "abc", opts["folderUID"])
}

func TestUploadRowsDashboard(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "src/folders.json", []byte(teamManifest), 0o644))
	legacy := `{
		"title": "Legacy",
		"rows": [
			{"panels": [{"type": "dashlist", "title": "Team A", "options": {"folderId": 42, "folderUID": "zzz"}}]}
		]
	}`
	require.NoError(t, afero.WriteFile(fsys, "src/Team A/legacy.json", []byte(legacy), 0o644))

	grafana := &fakeGrafana{}
	report, err := newUploader(fsys, grafana).Run("src")
	require.NoError(t, err)

	require.Len(t, grafana.dashboards, 1)
	doc := grafana.dashboards[0].Doc

	rows, ok := doc.Rows()
	require.True(t, ok)
	row := rows[0].(map[string]interface{})
	panels := row["panels"].([]interface{})
	panel, _ := models.AsPanel(panels[0])
	opts, _ := panel.Options()
	assert.EqualValues(t, 1, opts["folderId"])
	assert.Equal(t, "abc", opts["folderUID"])

	// Rewriting a rows dashboard must not invent a top-level panels key
	_, hasPanels := doc["panels"]
	assert.False(t, hasPanels)

	assert.Equal(t, 1, report.PanelsPatched)
}

func TestUploadPropagatesMalformedJSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "src/folders.json", []byte(`{}`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "src/Team A/broken.json", []byte(`{not json`), 0o644))

	grafana := &fakeGrafana{}
	_, err := newUploader(fsys, grafana).Run("src")
	require.Error(t, err)
	assert.Empty(t, grafana.dashboards)
}
