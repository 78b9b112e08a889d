// Package config loads the maintd daemon configuration from TOML.
package config

// Config is the full maintd configuration.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools"`
	Identity Identity `toml:"identity"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`
}

// Paths locates the files maintd reads and writes.
type Paths struct {
	DefsDir             string `toml:"defs_dir"`
	FlashDir            string `toml:"flash_dir"`
	TmpDir              string `toml:"tmp_dir"`
	ComputingModuleFile string `toml:"computing_module_file"`
	PasswordFile        string `toml:"password_file"`
}

// Tools holds the command lines of the helper programs.
type Tools struct {
	Shell         string `toml:"shell"`
	Restart       string `toml:"restart"`
	Poweroff      string `toml:"poweroff"`
	IPConf        string `toml:"ipconf"`
	IPConfCommit  *bool  `toml:"ipconf_commit"`
	WifiConf      string `toml:"wificonf"`
	UCI           string `toml:"uci"`
	Password      string `toml:"password"`
	ConfigBackup  string `toml:"config_backup"`
	ConfigRestore string `toml:"config_restore"`
	FactoryReset  string `toml:"factory_reset"`
}

// Identity tunes identity resolution.
type Identity struct {
	Interface          string            `toml:"interface"`
	CopyrightHolder    string            `toml:"copyright_holder"`
	CopyrightFirstYear int               `toml:"copyright_first_year"`
	Fixed              map[string]string `toml:"fixed"`
}

// Logging configures diagnostics on stderr.
type Logging struct {
	Level           int  `toml:"level"`
	DeltaTimestamps bool `toml:"delta_timestamps"`
}

// Metrics configures the node_exporter textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	commit := true
	return &Config{
		Paths: Paths{
			DefsDir:             "/etc/",
			FlashDir:            "/flash/",
			TmpDir:              "/tmp/",
			ComputingModuleFile: "/tmp/p44-computing-module",
			PasswordFile:        "/flash/webui_authfile",
		},
		Tools: Tools{
			Shell:         "/bin/sh",
			Restart:       "sv stop p44mbrd vdcd mg44; sync; reboot",
			Poweroff:      "sv stop p44mbrd vdcd mg44; sync; poweroff",
			IPConf:        "p44ipconf",
			IPConfCommit:  &commit,
			WifiConf:      "p44wificonf",
			UCI:           "uci",
			Password:      "/usr/bin/mg44 -A",
			ConfigBackup:  "p44configbackup",
			ConfigRestore: "p44configrestore",
			FactoryReset:  "p44factoryreset",
		},
		Identity: Identity{
			CopyrightHolder:    "plan44.ch",
			CopyrightFirstYear: 2013,
		},
	}
}

// CommitIPConf reports whether network settings are committed after setting them.
func (t Tools) CommitIPConf() bool {
	return t.IPConfCommit == nil || *t.IPConfCommit
}
