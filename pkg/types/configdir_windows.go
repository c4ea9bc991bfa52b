//go:build windows
// +build windows

package types

import (
	"os"
	"path/filepath"
)

func checkdirs(p string) string {
	def := os.Getenv("LOCALAPPDATA")
	if def == "" {
		def = os.Getenv("APPDATA")
	}
	nfp := filepath.Join(def, p)
	if _, err := os.Stat(nfp); os.IsNotExist(err) {
		os.MkdirAll(nfp, 0755)
	}
	return nfp
}

func GetConfigDir() string {
	return checkdirs("kml2cot")
}
