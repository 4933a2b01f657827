package models

import (
	"encoding/json"

	"github.com/samber/oops"
)

// Document is a dashboard definition as an untyped JSON object.
// Grafana dashboards are open-ended, so beyond the few keys the sync
// pipeline touches the contents are passed through unmodified.
type Document map[string]interface{}

// ParseDocument decodes a dashboard JSON document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oops.In("ParseDocument").Wrap(err)
	}
	return doc, nil
}

func (d Document) Title() string {
	title, _ := d["title"].(string)
	return title
}

// Panels returns the top-level panels list, the modern dashboard shape.
func (d Document) Panels() ([]interface{}, bool) {
	panels, ok := d["panels"].([]interface{})
	return panels, ok && len(panels) > 0
}

// Rows returns the legacy rows list; each row carries its own nested
// panels list.
func (d Document) Rows() ([]interface{}, bool) {
	rows, ok := d["rows"].([]interface{})
	return rows, ok && len(rows) > 0
}

// Panel is one entry of a panels list. Same untyped representation as
// Document, with accessors for the keys dashlist rewriting cares about.
type Panel map[string]interface{}

func AsPanel(v interface{}) (Panel, bool) {
	m, ok := v.(map[string]interface{})
	return Panel(m), ok
}

func (p Panel) Type() string {
	t, _ := p["type"].(string)
	return t
}

func (p Panel) Title() string {
	title, _ := p["title"].(string)
	return title
}

func (p Panel) Options() (map[string]interface{}, bool) {
	opts, ok := p["options"].(map[string]interface{})
	return opts, ok
}

// DashboardRef is a search hit for an existing dashboard, used when
// downloading a Grafana install into a local tree.
type DashboardRef struct {
	ID          int64
	UID         string
	Title       string
	FolderTitle string
	FolderUID   string
	Slug        string
}
