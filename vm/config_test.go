package vm

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
		kind errors.Kind
	}{
		{"1.6", Version16, ""},
		{"v1.4", Version14, ""},
		{"1.2.0", Version12, ""},
		{" 1.1 ", Version11, ""},
		{"6", Version16, ""},
		{"v4", Version14, ""},
		{"1.3", 0, errors.KindUnsupported},
		{"1.8", 0, errors.KindUnsupported},
		{"latest", 0, errors.KindInvalidInput},
		{"", 0, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if tt.kind != "" {
			if errors.KindOf(err) != tt.kind {
				t.Errorf("ParseVersion(%q) error = %v, want kind %v", tt.in, err, tt.kind)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseVersion(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVersion(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		reported, requested Version
		want                bool
	}{
		{Version16, Version16, true},
		{Version16, Version12, true},
		{Version12, Version16, false},
		{Version14, Version11, true},
	}
	for _, tt := range tests {
		got, err := satisfies(tt.reported, tt.requested)
		if err != nil {
			t.Fatalf("satisfies(%v, %v): %v", tt.reported, tt.requested, err)
		}
		if got != tt.want {
			t.Errorf("satisfies(%v, %v) = %v, want %v", tt.reported, tt.requested, got, tt.want)
		}
	}
}

func TestLoadOptions(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Options
		kind errors.Kind
	}{
		{
			name: "full",
			doc: `
version: "1.4"
ignore_unrecognized: true
options:
  - -Dapp.name=demo
  - -verbose:jni
`,
			want: Options{
				Version:            Version14,
				IgnoreUnrecognized: true,
				Options:            []string{"-Dapp.name=demo", "-verbose:jni"},
			},
		},
		{name: "empty", doc: "", want: Options{}},
		{name: "bad yaml", doc: "options: [unterminated", kind: errors.KindInvalidInput},
		{name: "bad version", doc: `version: "9.9"`, kind: errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadOptions([]byte(tt.doc))
			if tt.kind != "" {
				if errors.KindOf(err) != tt.kind {
					t.Fatalf("error = %v, want kind %v", err, tt.kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadOptions: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInitArgs(t *testing.T) {
	args := Options{Options: []string{"-Da=1"}}.initArgs()
	want := &jvmbridge.InitArgs{
		Version: DefaultVersion,
		Options: []jvmbridge.VMOption{{OptionString: "-Da=1"}},
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("initArgs mismatch (-want +got):\n%s", diff)
	}
}
