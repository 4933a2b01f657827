// Package sync moves dashboard trees between a local directory and a
// Grafana install: upload materialises local folders and dashboards on
// the remote, download snapshots the remote into a local tree plus a
// folders.json manifest.
package sync

import (
	"github.com/beam-connectivity/grafana-dashboard-manager/models"
)

// Grafana is the remote surface the pipeline needs. Implemented by the
// OpenAPI-backed GrafanaClient in package main; tests substitute an
// in-memory fake.
type Grafana interface {
	ListFolders() ([]models.Folder, error)
	CreateFolder(title string, uid string) (models.Folder, error)
	CreateDashboard(doc models.Document, folderUID string) error
	CreateHomeDashboard(doc models.Document) (string, error)
	SetHomeDashboard(uid string) error
	ListDashboards(folderUID string) ([]models.DashboardRef, error)
	GetDashboard(uid string) (models.Document, error)
}
