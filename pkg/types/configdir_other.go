//go:build !windows
// +build !windows

package types

import (
	"os"
	"path/filepath"
)

// GetConfigDir honours XDG_CONFIG_HOME, then $HOME/.config.
func GetConfigDir() string {
	def := os.Getenv("XDG_CONFIG_HOME")
	if def == "" {
		def = os.Getenv("HOME")
		if def != "" {
			def = filepath.Join(def, ".config")
		} else {
			def = "./"
		}
	}
	return filepath.Join(def, "kml2cot")
}
