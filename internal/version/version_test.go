package version

import (
	"strings"
	"testing"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare version gets v prefix", in: "0.3.0", want: "v0.3.0"},
		{name: "prefixed version unchanged", in: "v1.2.3", want: "v1.2.3"},
		{name: "dev unchanged", in: "dev", want: "dev"},
		{name: "empty unchanged", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatVersion(tt.in); got != tt.want {
				t.Errorf("FormatVersion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	tests := []struct {
		name     string
		client   string
		daemon   string
		wantWarn bool
	}{
		{name: "matching versions", client: "0.3.0", daemon: "0.3.0", wantWarn: false},
		{name: "v prefix difference tolerated", client: "v0.3.0", daemon: "0.3.0", wantWarn: false},
		{name: "git describe suffix tolerated", client: "0.3.0-5-gabcdef", daemon: "0.3.0", wantWarn: false},
		{name: "dev client suppresses warning", client: "dev", daemon: "0.3.0", wantWarn: false},
		{name: "dev daemon suppresses warning", client: "0.3.0", daemon: "dev", wantWarn: false},
		{name: "real mismatch warns", client: "0.3.0", daemon: "0.4.0", wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restore := ForTesting(tt.client)
			defer restore()

			warn := CheckVersionMismatch(tt.daemon)
			if tt.wantWarn && warn == "" {
				t.Fatalf("expected warning for client %q daemon %q, got none", tt.client, tt.daemon)
			}
			if !tt.wantWarn && warn != "" {
				t.Fatalf("unexpected warning: %q", warn)
			}
			if tt.wantWarn && !strings.Contains(warn, "version mismatch") {
				t.Fatalf("warning does not mention mismatch: %q", warn)
			}
		})
	}
}
