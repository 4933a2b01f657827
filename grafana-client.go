package main

import (
	"net/url"

	"github.com/go-openapi/strfmt"
	grafana "github.com/grafana/grafana-openapi-client-go/client"
	client_folders "github.com/grafana/grafana-openapi-client-go/client/folders"
	"github.com/grafana/grafana-openapi-client-go/client/search"
	"github.com/grafana/grafana-openapi-client-go/models"
	"github.com/samber/lo"
	"github.com/samber/oops"

	mymodels "github.com/beam-connectivity/grafana-dashboard-manager/models"
	"github.com/beam-connectivity/grafana-dashboard-manager/tools"
)

type GrafanaClient struct {
	client *grafana.GrafanaHTTPAPI
}

func MakeGrafanaClient(baseUrl string, username string, password string) (*GrafanaClient, error) {
	gurl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, oops.
			In("MakeGrafanaClient").
			User(username).
			With("baseUrl", baseUrl).
			Wrap(err)
	}
	cfg := &grafana.TransportConfig{
		Host:      gurl.Host,
		BasePath:  gurl.Path,
		BasicAuth: url.UserPassword(username, password),
	}
	client := grafana.NewHTTPClientWithConfig(strfmt.Default, cfg)
	return &GrafanaClient{client}, nil
}

func (c *GrafanaClient) IsOK() (bool, error) {
	oopsBuilder := oops.In("IsOK")
	ok, err := c.client.Health.GetHealth()
	if err != nil {
		return false, oopsBuilder.Wrap(err)
	}
	if !ok.IsSuccess() {
		return false, oopsBuilder.Errorf("health request was not successful")
	}
	return true, nil
}

func (c *GrafanaClient) ListFolders() ([]mymodels.Folder, error) {
	oopsBuilder := oops.In("ListFolders")
	params := &client_folders.GetFoldersParams{Limit: tools.PtrOf(int64(1000))}

	folders, err := c.client.Folders.GetFolders(params, nil)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	if !folders.IsSuccess() {
		return nil, oopsBuilder.
			With("folders", folders).
			Errorf("folder listing was not successful")
	}

	return lo.Map(folders.GetPayload(), func(hit *models.FolderSearchHit, _ int) mymodels.Folder {
		return mymodels.Folder{
			Title: hit.Title,
			UID:   hit.UID,
			ID:    hit.ID,
		}
	}), nil
}

// CreateFolder creates (or upserts) a folder. An empty uid lets
// Grafana assign one; the returned Folder carries whatever identity
// the install settled on.
func (c *GrafanaClient) CreateFolder(title string, uid string) (mymodels.Folder, error) {
	oopsBuilder := oops.
		In("CreateFolder").
		With("title", title).
		With("uid", uid)

	cmd := &models.CreateFolderCommand{Title: title}
	if uid != "" {
		cmd.UID = uid
	}

	created, err := c.client.Folders.CreateFolder(cmd)
	if err != nil {
		return mymodels.Folder{}, oopsBuilder.Wrap(err)
	}
	if !created.IsSuccess() {
		return mymodels.Folder{}, oopsBuilder.
			With("created", created).
			Errorf("folder creation was not successful")
	}

	payload := created.GetPayload()
	return mymodels.Folder{
		Title: payload.Title,
		UID:   payload.UID,
		ID:    payload.ID,
	}, nil
}

func (c *GrafanaClient) CreateDashboard(doc mymodels.Document, folderUID string) error {
	oopsBuilder := oops.
		In("CreateDashboard").
		With("title", doc.Title()).
		With("folderUID", folderUID)

	cmd := &models.SaveDashboardCommand{
		Dashboard: models.JSON(map[string]interface{}(doc)),
		FolderUID: folderUID,
		Overwrite: true,
	}
	saved, err := c.client.Dashboards.PostDashboard(cmd)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	if !saved.IsSuccess() {
		return oopsBuilder.
			With("saved", saved).
			Errorf("dashboard save was not successful")
	}
	return nil
}

// CreateHomeDashboard saves a dashboard outside any folder and returns
// the uid Grafana assigned, for the preferences call that follows. The
// document's own id is dropped so the save never collides with an
// existing dashboard id on the target install.
func (c *GrafanaClient) CreateHomeDashboard(doc mymodels.Document) (string, error) {
	oopsBuilder := oops.
		In("CreateHomeDashboard").
		With("title", doc.Title())

	delete(doc, "id")
	cmd := &models.SaveDashboardCommand{
		Dashboard: models.JSON(map[string]interface{}(doc)),
		Overwrite: true,
	}
	saved, err := c.client.Dashboards.PostDashboard(cmd)
	if err != nil {
		return "", oopsBuilder.Wrap(err)
	}
	if !saved.IsSuccess() {
		return "", oopsBuilder.
			With("saved", saved).
			Errorf("home dashboard save was not successful")
	}

	payload := saved.GetPayload()
	if payload == nil || payload.UID == nil {
		return "", oopsBuilder.Errorf("dashboard save response carried no uid")
	}
	return *payload.UID, nil
}

func (c *GrafanaClient) SetHomeDashboard(uid string) error {
	oopsBuilder := oops.In("SetHomeDashboard").With("uid", uid)

	prefs, err := c.client.OrgPreferences.PatchOrgPreferences(&models.PatchPrefsCmd{
		HomeDashboardUID: uid,
	})
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	if !prefs.IsSuccess() {
		return oopsBuilder.
			With("prefs", prefs).
			Errorf("preferences patch was not successful")
	}
	return nil
}

func (c *GrafanaClient) ListDashboards(folderUID string) ([]mymodels.DashboardRef, error) {
	oopsBuilder := oops.In("ListDashboards").With("folderUID", folderUID)
	params := &search.SearchParams{
		Type:       tools.PtrOf("dash-db"),
		FolderUIDs: []string{folderUID},
	}

	hits, err := c.client.Search.Search(params, nil)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	if !hits.IsSuccess() {
		return nil, oopsBuilder.
			With("hits", hits).
			Errorf("dashboard search was not successful")
	}

	var refs []mymodels.DashboardRef
	for _, hit := range hits.GetPayload() {
		if string(hit.Type) == "dash-folder" {
			continue
		}
		refs = append(refs, mymodels.DashboardRef{
			ID:          hit.ID,
			UID:         hit.UID,
			Title:       hit.Title,
			FolderTitle: hit.FolderTitle,
			FolderUID:   hit.FolderUID,
			Slug:        hit.Slug,
		})
	}
	return refs, nil
}

func (c *GrafanaClient) GetDashboard(uid string) (mymodels.Document, error) {
	oopsBuilder := oops.In("GetDashboard").With("uid", uid)

	dashReq, err := c.client.Dashboards.GetDashboardByUID(uid)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	if !dashReq.IsSuccess() {
		return nil, oopsBuilder.
			With("dashReq", dashReq).
			Errorf("dashboard fetch was not successful")
	}

	doc, ok := dashReq.GetPayload().Dashboard.(map[string]interface{})
	if !ok {
		return nil, oopsBuilder.Errorf("dashboard payload is not a JSON object")
	}
	return mymodels.Document(doc), nil
}
