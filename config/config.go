// config/config.go
package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DefaultFile is read by LoadConfig
const DefaultFile = "config.json"

var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns the configuration used when config.json is missing
func Default() Config {
	return Config{
		Width:  32,
		Passes: 1,
		Base:   "0x8c100000",
		Tests:  append([]string(nil), AllTests...),
	}
}

// LoadConfig loads configuration from config.json
func LoadConfig() (Config, error) {
	return LoadConfigFile(DefaultFile)
}

// LoadConfigFile loads configuration from the named file. Fields missing
// from the file keep their defaults.
func LoadConfigFile(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Default(), errors.Wrapf(err, "parsing %s", path)
	}

	return config, config.Validate()
}

// Validate checks the configuration and normalises test names
func (c *Config) Validate() error {
	switch c.Width {
	case 8, 16, 32, 64:
	default:
		return errors.Wrapf(ErrInvalidConfig, "word width %d", c.Width)
	}
	if c.Passes < 1 {
		return errors.Wrapf(ErrInvalidConfig, "passes %d", c.Passes)
	}
	if len(c.Faults) > 0 && !c.Sim {
		return errors.Wrap(ErrInvalidConfig, "faults can only be injected into a simulated memory")
	}
	if len(c.Tests) == 0 {
		c.Tests = append([]string(nil), AllTests...)
	}
	for i, t := range c.Tests {
		t = strings.ToLower(strings.TrimSpace(t))
		switch t {
		case DataBus, AddressBus, Device:
		default:
			return errors.Wrapf(ErrInvalidConfig, "unknown test %q", t)
		}
		c.Tests[i] = t
	}
	return nil
}

// Enabled is true if test is one of tests
func Enabled(tests []string, test string) bool {
	for _, t := range tests {
		if t == test {
			return true
		}
	}
	return false
}
