package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataDir(t *testing.T) {
	home := filepath.FromSlash("/home/ann")
	tests := []struct {
		name string
		goos string
		env  map[string]string
		home string
		want string
	}{
		{
			name: "explicit override wins",
			goos: "linux",
			env:  map[string]string{DataDirEnv: "/srv/kv/", "XDG_DATA_HOME": "/xdg"},
			home: home,
			want: filepath.Clean("/srv/kv/"),
		},
		{
			name: "xdg data home",
			goos: "linux",
			env:  map[string]string{"XDG_DATA_HOME": "/xdg"},
			home: home,
			want: filepath.Join("/xdg", "hyperkv"),
		},
		{
			name: "linux home",
			goos: "linux",
			home: home,
			want: filepath.Join(home, ".local", "share", "hyperkv"),
		},
		{
			name: "macos",
			goos: "darwin",
			home: home,
			want: filepath.Join(home, "Library", "Application Support", "hyperkv"),
		},
		{
			name: "windows local app data",
			goos: "windows",
			env:  map[string]string{"LOCALAPPDATA": "/appdata"},
			home: home,
			want: filepath.Join("/appdata", "hyperkv"),
		},
		{
			name: "windows without local app data",
			goos: "windows",
			home: home,
			want: filepath.Join(home, "AppData", "Local", "hyperkv"),
		},
		{
			name: "no home",
			goos: "linux",
			want: filepath.Join(".", "hyperkv-data"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			require.Equal(t, tt.want, dataDir(tt.goos, getenv, tt.home))
		})
	}
}

func TestDefaultDataDirHonorsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DataDirEnv, dir)
	require.Equal(t, filepath.Clean(dir), DefaultDataDir())

	t.Setenv(DataDirEnv, "")
	t.Setenv("XDG_DATA_HOME", dir)
	require.Equal(t, filepath.Join(dir, "hyperkv"), DefaultDataDir())
}
