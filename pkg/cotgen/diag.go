package cotgen

import (
	"io"

	"gopkg.in/yaml.v3"

	types "github.com/stronnag/kml2cot/pkg/types"
)

// Mapping records how one placemark became an event.
type Mapping struct {
	Index        int                `yaml:"index"`
	Name         string             `yaml:"name,omitempty"`
	File         string             `yaml:"file"`
	UID          string             `yaml:"uid"`
	Type         string             `yaml:"type"`
	TypeRule     string             `yaml:"type_rule"`
	How          string             `yaml:"how"`
	Geometry     types.GeometryKind `yaml:"geometry"`
	Anchor       types.Coord        `yaml:"anchor"`
	Vertices     int                `yaml:"vertices"`
	Simplified   int                `yaml:"simplified_from,omitempty"`
	InnerRings   int                `yaml:"inner_rings,omitempty"`
	Callsign     string             `yaml:"callsign"`
	Data         []string           `yaml:"data,omitempty"`
	StyleRef     string             `yaml:"style,omitempty"`
	Colour       string             `yaml:"colour"`
	Fill         string             `yaml:"fill,omitempty"`
	ColourSource string             `yaml:"colour_source"`
	Folder       []string           `yaml:"folder,omitempty"`
}

// Diagnostic is the debug record written next to one input's events.
type Diagnostic struct {
	Source   string          `yaml:"source"`
	Document string          `yaml:"document,omitempty"`
	Warnings []types.Warning `yaml:"warnings"`
	Events   []Mapping       `yaml:"events"`
}

func (d *Diagnostic) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

func ReadDiagnostic(r io.Reader) (*Diagnostic, error) {
	var d Diagnostic
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}
