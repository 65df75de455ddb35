package settings

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
[default]
data_file = product.msidb
format = json
code_page = 1252
debug = true

[readonly]
data_file = /srv/setup.msidb
read_only = true
`

func TestLoadConfigString(t *testing.T) {
	args := &Arguments{Format: FormatPretty}
	if err := LoadConfigString(sampleConfig, "default", args); err != nil {
		t.Fatal(err)
	}
	if args.DataFile != "product.msidb" || args.Format != FormatJSON || args.CodePage != 1252 || !args.Debug {
		t.Errorf("unexpected settings: %+v", args)
	}
	if args.ReadOnly {
		t.Error("read_only set without a key")
	}
}

func TestLoadConfigProfileOverlays(t *testing.T) {
	args := &Arguments{Format: FormatPretty, LogDir: "logs"}
	if err := LoadConfigString(sampleConfig, "readonly", args); err != nil {
		t.Fatal(err)
	}
	if args.DataFile != "/srv/setup.msidb" || !args.ReadOnly {
		t.Errorf("unexpected settings: %+v", args)
	}
	if args.Format != FormatPretty || args.LogDir != "logs" {
		t.Errorf("keys missing from the profile changed: %+v", args)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name    string
		source  string
		profile string
	}{
		{"missing profile", sampleConfig, "other"},
		{"bad format", "[default]\nformat = xml\n", "default"},
		{"bad bool", "[default]\ndebug = maybe\n", "default"},
		{"bad code page", "[default]\ncode_page = latin\n", "default"},
	}
	for _, c := range cases {
		if err := LoadConfigString(c.source, c.profile, &Arguments{}); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(fname, []byte(sampleConfig), 0644); err != nil {
		t.Fatal(err)
	}
	args := &Arguments{}
	if err := LoadConfigFile(fname, "default", args); err != nil {
		t.Fatal(err)
	}
	if args.DataFile != "product.msidb" {
		t.Errorf("DataFile = %q", args.DataFile)
	}
	if err := LoadConfigFile(filepath.Join(t.TempDir(), "missing"), "default", args); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestGetSettingsIsShared(t *testing.T) {
	a, b := GetSettings(), GetSettings()
	if a != b {
		t.Fatal("GetSettings returned different instances")
	}
	if a.Profile != DefaultConfigProfile {
		t.Errorf("Profile = %q", a.Profile)
	}
}
