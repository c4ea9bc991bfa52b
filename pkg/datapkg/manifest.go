package datapkg

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	ManifestDir     = "MANIFEST"
	ManifestFile    = "manifest.xml"
	ManifestVersion = "2"
	CotContentType  = "application/cot+xml"
)

type Parameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type Content struct {
	Ignore     bool        `xml:"ignore,attr"`
	ZipEntry   string      `xml:"zipEntry,attr"`
	Parameters []Parameter `xml:"Parameter"`
}

// Manifest is MANIFEST/manifest.xml of a TAK mission package.
type Manifest struct {
	XMLName       xml.Name    `xml:"MissionPackageManifest"`
	Version       string      `xml:"version,attr"`
	Configuration []Parameter `xml:"Configuration>Parameter"`
	Contents      []Content   `xml:"Contents>Content"`

	// Dir is the package directory, Zip the archive when one was made.
	Dir  string `xml:"-"`
	Zip  string `xml:"-"`
	Size int64  `xml:"-"`
}

func param(ps []Parameter, name string) string {
	for _, p := range ps {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func (m *Manifest) Param(name string) string {
	return param(m.Configuration, name)
}

func (c Content) Param(name string) string {
	return param(c.Parameters, name)
}

func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "   ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func ReadManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}
