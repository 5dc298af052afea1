package config

import "os"

// SettingSource represents where a setting comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
	SourceNone    SettingSource = "none"
)

// PathStatus represents the status of a configured data path.
type PathStatus struct {
	Name   string        `json:"name"`
	Path   string        `json:"path,omitempty"`
	Source SettingSource `json:"source"`
	Exists bool          `json:"exists"`
}

// CheckPaths reports where the snapshot settings came from and whether
// the files they point at exist.
func CheckPaths(cfg *Config) []PathStatus {
	manifest := ""
	if cfg.Snapshot.Dir != "" {
		manifest = cfg.Snapshot.Dir + string(os.PathSeparator) + "manifest.json"
	}
	return []PathStatus{
		checkPath("Snapshot file", cfg.Snapshot.Path, "", "REPORATE_SNAPSHOT_PATH"),
		checkPath("Data directory", cfg.Snapshot.Dir, "./data", "REPORATE_SNAPSHOT_DIR"),
		checkPath("Manifest", manifest, "./data"+string(os.PathSeparator)+"manifest.json", "REPORATE_SNAPSHOT_DIR"),
	}
}

// checkPath checks if a path is set, where it came from, and whether it exists.
func checkPath(name, value, def, envVar string) PathStatus {
	status := PathStatus{Name: name, Path: value}

	switch {
	case value == "":
		status.Source = SourceNone
		return status
	case os.Getenv(envVar) != "":
		status.Source = SourceEnv
	case value == def:
		status.Source = SourceDefault
	default:
		status.Source = SourceConfig
	}

	_, err := os.Stat(value)
	status.Exists = err == nil
	return status
}
