package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDirEnv names the variable that overrides the default store directory.
const DataDirEnv = "HYPERKV_DATA_DIR"

// DefaultDataDir returns the store directory used when none is given on the
// command line: $HYPERKV_DATA_DIR when set, otherwise a per-user
// application data directory for the host OS.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return dataDir(runtime.GOOS, os.Getenv, home)
}

func dataDir(goos string, getenv func(string) string, home string) string {
	if dir := getenv(DataDirEnv); dir != "" {
		return filepath.Clean(dir)
	}
	if xdg := getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "hyperkv")
	}
	switch goos {
	case "windows":
		if local := getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "hyperkv")
		}
		if home != "" {
			return filepath.Join(home, "AppData", "Local", "hyperkv")
		}
	case "darwin":
		if home != "" {
			return filepath.Join(home, "Library", "Application Support", "hyperkv")
		}
	default:
		if home != "" {
			return filepath.Join(home, ".local", "share", "hyperkv")
		}
	}
	return filepath.Join(".", "hyperkv-data")
}
