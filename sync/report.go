package sync

import "fmt"

// Report summarises a sync run for the final log line and the optional
// summary email.
type Report struct {
	FoldersReused  int
	FoldersCreated int
	Dashboards     int
	PanelsPatched  int
	HomeSet        bool
}

func (r *Report) Summary() string {
	home := "not set"
	if r.HomeSet {
		home = "set"
	}
	return fmt.Sprintf(
		"folders: %d reused, %d created; dashboards uploaded: %d; dashlist panels patched: %d; home dashboard %s",
		r.FoldersReused, r.FoldersCreated, r.Dashboards, r.PanelsPatched, home,
	)
}
