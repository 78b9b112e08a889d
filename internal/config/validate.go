package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conn-castle/maintd/internal/messages"
)

// Syslog-style log level bounds.
const (
	MinLogLevel = 0
	MaxLogLevel = 7
)

// Validate ensures the config is complete and consistent.
func (c *Config) Validate(path string) error {
	requiredPaths := []struct {
		name  string
		value string
	}{
		{"defs_dir", c.Paths.DefsDir},
		{"flash_dir", c.Paths.FlashDir},
		{"tmp_dir", c.Paths.TmpDir},
		{"password_file", c.Paths.PasswordFile},
	}
	for _, p := range requiredPaths {
		if strings.TrimSpace(p.value) == "" {
			return fmt.Errorf(messages.ConfigPathRequiredFmt, path, p.name)
		}
	}

	if !filepath.IsAbs(c.Tools.Shell) {
		return fmt.Errorf(messages.ConfigShellAbsoluteFmt, path)
	}
	requiredTools := []struct {
		name  string
		value string
	}{
		{"restart", c.Tools.Restart},
		{"poweroff", c.Tools.Poweroff},
		{"ipconf", c.Tools.IPConf},
		{"wificonf", c.Tools.WifiConf},
		{"uci", c.Tools.UCI},
		{"password", c.Tools.Password},
		{"config_backup", c.Tools.ConfigBackup},
		{"config_restore", c.Tools.ConfigRestore},
		{"factory_reset", c.Tools.FactoryReset},
	}
	for _, tool := range requiredTools {
		if strings.TrimSpace(tool.value) == "" {
			return fmt.Errorf(messages.ConfigToolRequiredFmt, path, tool.name)
		}
	}

	if c.Identity.CopyrightFirstYear <= 0 {
		return fmt.Errorf(messages.ConfigCopyrightYearFmt, path)
	}
	for key := range c.Identity.Fixed {
		if key == "" || strings.ContainsAny(key, "= \t\n#") {
			return fmt.Errorf(messages.ConfigFixedKeyInvalidFmt, path, key)
		}
	}

	if c.Logging.Level < MinLogLevel || c.Logging.Level > MaxLogLevel {
		return fmt.Errorf(messages.ConfigLogLevelRangeFmt, path, MinLogLevel, MaxLogLevel)
	}
	return nil
}
