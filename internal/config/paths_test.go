package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGetInstancePathsDefaults(t *testing.T) {
	t.Parallel()

	paths := GetInstancePaths("")
	if !strings.Contains(paths.Home, filepath.Join(".fabriclens", "instances", DefaultInstance)) {
		t.Errorf("unexpected default instance home: %s", paths.Home)
	}
	if filepath.Dir(paths.ConfigDB) != paths.Home {
		t.Errorf("config db not under instance home: %s", paths.ConfigDB)
	}
	if filepath.Dir(paths.Lock) != paths.Home {
		t.Errorf("lock file not under instance home: %s", paths.Lock)
	}
}

func TestGetProfilePathsNesting(t *testing.T) {
	t.Parallel()

	paths := GetProfilePaths("prod", "viewer")
	if paths.Name != "viewer" {
		t.Errorf("expected profile name viewer, got %q", paths.Name)
	}
	if filepath.Dir(paths.Home) != paths.Instance.ProfilesDir {
		t.Errorf("profile home not under profiles dir: %s", paths.Home)
	}
	if !strings.HasSuffix(paths.State, filepath.Join("viewer", "state")) {
		t.Errorf("unexpected state dir: %s", paths.State)
	}
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want func(string) bool
	}{
		{"empty", "", func(got string) bool { return got == "" }},
		{"no tilde", "/tmp/x", func(got string) bool { return got == "/tmp/x" }},
		{"tilde slash", "~/data", func(got string) bool {
			return filepath.IsAbs(got) && strings.HasSuffix(got, "data") && !strings.Contains(got, "~")
		}},
		{"tilde only", "~", func(got string) bool { return filepath.IsAbs(got) }},
		{"tilde user", "~other/data", func(got string) bool { return got == "~other/data" }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExpandPath(tc.in); !tc.want(got) {
				t.Errorf("ExpandPath(%q) = %q", tc.in, got)
			}
		})
	}
}
