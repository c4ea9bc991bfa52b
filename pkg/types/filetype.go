package types

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

const (
	IS_UNKNOWN = -1
	IS_KML     = 1
	IS_KMZ     = 2
)

var zipSig = []byte{'P', 'K', 0x03, 0x04}

// EvinceFileType sniffs a file's leading bytes; extension is not trusted.
func EvinceFileType(fn string) (int, error) {
	file, err := os.Open(fn)
	if err != nil {
		return IS_UNKNOWN, err
	}
	defer file.Close()
	fh := bufio.NewReader(file)
	sig, err := fh.Peek(512) //read a few bytes without consuming
	if err != nil && err != io.EOF {
		return IS_UNKNOWN, err
	}
	return EvinceType(sig), nil
}

func EvinceType(sig []byte) int {
	res := IS_UNKNOWN
	switch {
	case bytes.HasPrefix(sig, zipSig):
		res = IS_KMZ
	case bytes.Contains(sig, []byte("<kml")), bytes.Contains(sig, []byte("<?xml")),
		bytes.Contains(sig, []byte("<Document")), bytes.Contains(sig, []byte("<Placemark")):
		res = IS_KML
	}
	return res
}
