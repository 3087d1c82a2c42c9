package model

// BuildLogEntry is one published build in the build history shown on the
// web build landing page. Field names are part of the JSON format consumed by
// that page.
type BuildLogEntry struct {
	// Version tag of the build
	Ver string `json:"Ver"`
	// Timestamp of the build, formatted for display
	Date string `json:"Date"`
	// Display label
	Label string `json:"Label"`
	// Hyperlink target of the published build
	HRef string `json:"HRef"`
	// Free-text release notes
	Notes string `json:"Notes"`
}

// BuildHistory is the persisted build history, newest entry first.
type BuildHistory struct {
	Builds []BuildLogEntry `json:"Builds"`
}

// Prepend adds entry as the newest build.
func (h *BuildHistory) Prepend(entry BuildLogEntry) {
	h.Builds = append([]BuildLogEntry{entry}, h.Builds...)
}
