package tui

import (
	"fmt"
	"slices"
)

// View names accepted by Run.
const (
	ViewInspectManifest = "inspect_manifest"
	ViewInspectTimeline = "inspect_timeline"
	ViewStatsRuns       = "stats_runs"
)

// views maps each interactive view to the program that shows it. Commands
// that write manifests or list runs have no entry.
var views = map[string]func(data any) error{
	ViewInspectManifest: func(data any) error { return RunInspectTUI(ViewInspectManifest, data) },
	ViewInspectTimeline: RunTimelineTUI,
	ViewStatsRuns:       func(data any) error { return RunStatsTUI(ViewStatsRuns, data) },
}

// Run shows data in the view registered as viewType and blocks until the
// user quits.
func Run(viewType string, data any) error {
	run, ok := views[viewType]
	if !ok {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	return run(data)
}

// IsTUISupported reports whether viewType has an interactive view.
func IsTUISupported(viewType string) bool {
	_, ok := views[viewType]
	return ok
}

// SupportedTUIViews lists the interactive views in name order.
func SupportedTUIViews() []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
