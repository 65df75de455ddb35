package settings

import (
	"sync"
)

type Arguments struct {
	// The database container file
	DataFile string

	// Directory for log files; empty logs to stderr only
	LogDir string

	ConfigFile string

	// The stanza of ConfigFile to read
	Profile string

	// Row output format: pretty, json
	Format string

	// The code page recorded in a new database
	CodePage int

	ReadOnly bool

	// Trace failing view operations
	Debug bool

	// Strongly verbose logging
	Verbose bool
}

var (
	instance *Arguments
	once     sync.Once
)

// GetSettings returns the process wide settings.
func GetSettings() *Arguments {
	once.Do(func() {
		instance = &Arguments{
			Profile: DefaultConfigProfile,
			Format:  FormatPretty,
		}
	})
	return instance
}
