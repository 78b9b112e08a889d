// Package templates holds files embedded into the maintd binary.
package templates

import (
	"embed"
	"io/fs"
)

//go:embed maintd.toml
var files embed.FS

// ConfigName is the embedded default configuration.
const ConfigName = "maintd.toml"

// Read returns the embedded file at path.
func Read(path string) ([]byte, error) {
	return fs.ReadFile(files, path)
}
