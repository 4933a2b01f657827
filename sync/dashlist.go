package sync

import (
	"github.com/charmbracelet/log"

	"github.com/beam-connectivity/grafana-dashboard-manager/models"
)

// UpdateDashlistFolderIDs walks a dashboard's panels and patches any
// dashlist panel whose title names a known folder, so the widget keeps
// pointing at the right folder after upload. Dashboards either carry a
// top-level "panels" list or a legacy "rows" list with panels nested
// per row; in the legacy shape the rewritten panels go back into the
// same row they came from. Returns the number of panels patched.
func UpdateDashlistFolderIDs(dash models.Document, folders models.FolderMap, logger *log.Logger) int {
	if panels, ok := dash.Panels(); ok {
		updated, patched := updatePanels(panels, folders, logger)
		dash["panels"] = updated
		return patched
	}

	if rows, ok := dash.Rows(); ok {
		patched := 0
		for _, r := range rows {
			row, ok := r.(map[string]interface{})
			if !ok {
				continue
			}
			panels, ok := row["panels"].([]interface{})
			if !ok {
				continue
			}
			updated, n := updatePanels(panels, folders, logger)
			row["panels"] = updated
			patched += n
		}
		return patched
	}

	logger.Info("Dashboard does not have any panels", "title", dash.Title())
	return 0
}

func updatePanels(panels []interface{}, folders models.FolderMap, logger *log.Logger) ([]interface{}, int) {
	updated := make([]interface{}, len(panels))
	patched := 0
	for i, p := range panels {
		updated[i] = p
		panel, ok := models.AsPanel(p)
		if !ok {
			continue
		}
		if updatePanelDashlist(panel, folders, logger) {
			patched++
		}
	}
	return updated, patched
}

// updatePanelDashlist fixes the folder id/uid of a single dashlist
// panel. Panels whose title does not resolve to a folder are left
// alone; dashlists can also reference recent dashboards, alerts and
// the like. Reports whether anything changed.
func updatePanelDashlist(panel models.Panel, folders models.FolderMap, logger *log.Logger) bool {
	if panel.Type() != "dashlist" {
		return false
	}

	folder, ok := folders.Lookup(panel.Title())
	if !ok {
		logger.Debug("Panel title not found in folders", "title", panel.Title())
		return false
	}

	opts, ok := panel.Options()
	if !ok {
		return false
	}

	changed := false
	if _, ok := opts["folderId"]; ok && !idEqual(opts["folderId"], folder.ID) {
		logger.Info("Updating folderId", "panel", panel.Title(), "folderId", folder.ID)
		opts["folderId"] = folder.ID
		changed = true
	}
	if uid, ok := opts["folderUID"].(string); ok && uid != folder.UID {
		logger.Info("Updating folderUID", "panel", panel.Title(), "folderUID", folder.UID)
		opts["folderUID"] = folder.UID
		changed = true
	}
	return changed
}

// idEqual compares a folder id from decoded JSON, which arrives as
// float64, against the resolved folder's int64 id.
func idEqual(v interface{}, id int64) bool {
	switch n := v.(type) {
	case float64:
		return int64(n) == id
	case int64:
		return n == id
	default:
		return false
	}
}
