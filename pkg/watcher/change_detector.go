package watcher

// ReloadPlan describes what a batch of config file changes requires
type ReloadPlan struct {
	Reload       bool   // reread the config and rebuild every diagram
	Reason       string // why, for the log
	ChangedFiles []string
}

// AnalyzeChanges decides whether a debounced event should reload the page
func AnalyzeChanges(event ChangeEvent) *ReloadPlan {
	plan := &ReloadPlan{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeModified:
		plan.Reload = true
		plan.Reason = "config file changed"

	case ChangeRemoved:
		// A removed file would drop every configured diagram in favour of
		// the presets. Keep what is shown until the file comes back.
		plan.Reason = "config file removed, keeping current diagrams"
	}

	return plan
}
