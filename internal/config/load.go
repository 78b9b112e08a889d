package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/conn-castle/maintd/internal/messages"
	"github.com/conn-castle/maintd/internal/templates"
)

// ErrConfigValidation is a sentinel that wraps config validation failures
// (as opposed to TOML syntax, filesystem, or other loading errors).
var ErrConfigValidation = errors.New(messages.ConfigValidationFailed)

// Load reads the config file at path on top of the defaults. A missing file
// yields the embedded template unless required is set.
func Load(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return LoadTemplate()
		}
		return nil, fmt.Errorf(messages.ConfigMissingFileFmt, path, err)
	}
	return Parse(data, path)
}

// LoadTemplate returns the embedded config template as a validated Config.
func LoadTemplate() (*Config, error) {
	data, err := templates.Read(templates.ConfigName)
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigFailedReadTemplateFmt, err)
	}
	return Parse(data, "template "+templates.ConfigName)
}

// Parse decodes TOML data over the defaults and validates the result.
// source is used in error messages.
func Parse(data []byte, source string) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidConfigFmt, source, err)
	}
	if err := decodeStrict(data); err != nil {
		return nil, fmt.Errorf("%w: "+messages.ConfigUnrecognizedKeysFmt, ErrConfigValidation, source, err)
	}
	if err := cfg.expandPaths(source); err != nil {
		return nil, err
	}
	if err := cfg.Validate(source); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	return cfg, nil
}

// decodeStrict re-decodes the TOML data with strict unknown-field rejection.
func decodeStrict(data []byte) error {
	var cfg Config
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(&cfg)
}

// expandPaths resolves a leading ~ in every path setting.
func (c *Config) expandPaths(source string) error {
	targets := []struct {
		name  string
		value *string
	}{
		{"paths.defs_dir", &c.Paths.DefsDir},
		{"paths.flash_dir", &c.Paths.FlashDir},
		{"paths.tmp_dir", &c.Paths.TmpDir},
		{"paths.computing_module_file", &c.Paths.ComputingModuleFile},
		{"paths.password_file", &c.Paths.PasswordFile},
		{"metrics.textfile", &c.Metrics.Textfile},
	}
	for _, target := range targets {
		expanded, err := homedir.Expand(*target.value)
		if err != nil {
			return fmt.Errorf(messages.ConfigExpandPathFmt, source, target.name, err)
		}
		*target.value = expanded
	}
	return nil
}
