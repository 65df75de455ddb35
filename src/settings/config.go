package settings

import (
	"os/user"
	"path"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const DefaultConfigFile = "~/.msidb/config"
const DefaultConfigProfile = "default"

const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// ExpandUser expands the given file path if it starts with a ~/
func ExpandUser(fname string) (string, error) {
	if strings.HasPrefix(fname, "~/") {
		usr, err := user.Current()
		if err != nil {
			return "", err
		}
		return path.Join(usr.HomeDir, fname[2:]), nil
	}
	return fname, nil
}

// Load the named stanza from the source.
// Source can be either filename or config bytes
func loadStanza(source interface{}, profile string) (*ini.Section, error) {
	info, err := ini.Load(source)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading config")
	}
	if !info.HasSection(profile) {
		return nil, errors.Errorf("config profile '%s' not found", profile)
	}
	return info.Section(profile), nil
}

// parseConfigStanza copies the keys present in stanza over args.
func parseConfigStanza(stanza *ini.Section, args *Arguments) error {
	if v := stanza.Key("data_file").String(); v != "" {
		args.DataFile = v
	}
	if v := stanza.Key("log_dir").String(); v != "" {
		args.LogDir = v
	}
	if v := stanza.Key("format").String(); v != "" {
		if v != FormatPretty && v != FormatJSON {
			return errors.Errorf("unknown output format '%s'", v)
		}
		args.Format = v
	}
	if stanza.HasKey("code_page") {
		cp, err := stanza.Key("code_page").Int()
		if err != nil {
			return errors.Wrapf(err, "bad code_page")
		}
		args.CodePage = cp
	}
	for _, b := range []struct {
		key string
		dst *bool
	}{
		{"read_only", &args.ReadOnly},
		{"debug", &args.Debug},
		{"verbose", &args.Verbose},
	} {
		if !stanza.HasKey(b.key) {
			continue
		}
		v, err := stanza.Key(b.key).Bool()
		if err != nil {
			return errors.Wrapf(err, "bad %s", b.key)
		}
		*b.dst = v
	}
	return nil
}

// Load settings from the given profile of the provided config source.
func LoadConfigString(source, profile string, args *Arguments) error {
	stanza, err := loadStanza([]byte(source), profile)
	if err != nil {
		return err
	}
	return parseConfigStanza(stanza, args)
}

// Load settings from the given profile of the named config file.
func LoadConfigFile(fname, profile string, args *Arguments) error {
	fname, err := ExpandUser(fname)
	if err != nil {
		return err
	}
	stanza, err := loadStanza(fname, profile)
	if err != nil {
		return err
	}
	return parseConfigStanza(stanza, args)
}
