package models

import (
	"encoding/json"

	"github.com/samber/oops"
)

// Folder is a Grafana folder identity. Title doubles as the lookup key
// for local directories and dashlist panel titles; ID and UID are
// assigned by Grafana.
type Folder struct {
	Title string `json:"title"`
	UID   string `json:"uid"`
	ID    int64  `json:"id"`
}

// ParseFolder decodes and validates a single folder record. A folder
// without a title is unusable as a mapping key.
func ParseFolder(raw json.RawMessage) (Folder, error) {
	oopsBuilder := oops.In("ParseFolder")
	var f Folder
	if err := json.Unmarshal(raw, &f); err != nil {
		return Folder{}, oopsBuilder.Wrap(err)
	}
	if f.Title == "" {
		return Folder{}, oopsBuilder.
			With("raw", string(raw)).
			Errorf("folder record has no title")
	}
	return f, nil
}

// FolderMap maps a folder title to its Grafana identity. Titles are
// assumed unique per sync run; a duplicate title overwrites the
// earlier entry.
type FolderMap map[string]Folder

func (m FolderMap) Lookup(title string) (Folder, bool) {
	f, ok := m[title]
	return f, ok
}

func (m FolderMap) Put(f Folder) {
	m[f.Title] = f
}
