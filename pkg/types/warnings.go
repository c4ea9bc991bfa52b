package types

import (
	"fmt"
)

type WarningKind int

const (
	EscapedAmpersand WarningKind = iota + 1
	ClosedTags
	RecodedUTF8
	DroppedVertex
	PlacemarkDiscarded
	PlacemarkSkipped
	MultiGeometryReduced
)

var warningNames = [...]string{"None", "escape-ampersand", "close-tags", "utf8", "dropped-vertex",
	"placemark-discarded", "placemark-skipped", "multigeometry-reduced"}

func (k WarningKind) String() string {
	names := warningNames
	if k < 0 || int(k) >= len(names) {
		k = 0
	}
	return names[k]
}

func (k WarningKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *WarningKind) UnmarshalText(b []byte) error {
	for i, n := range warningNames[1:] {
		if n == string(b) {
			*k = WarningKind(i + 1)
			return nil
		}
	}
	return fmt.Errorf("unknown warning kind %q", b)
}

// Warning is a recovered problem. Placemark is -1 for document level
// repairs.
type Warning struct {
	Kind      WarningKind `yaml:"kind"`
	Source    string      `yaml:"source,omitempty"`
	Placemark int         `yaml:"placemark"`
	Name      string      `yaml:"name,omitempty"`
	Message   string      `yaml:"message"`
	Err       error       `yaml:"-"`
}

func (w Warning) String() string {
	s := w.Kind.String()
	if w.Source != "" {
		s = w.Source + ": " + s
	}
	if w.Placemark >= 0 {
		s += fmt.Sprintf(" [placemark %d", w.Placemark)
		if w.Name != "" {
			s += " " + w.Name
		}
		s += "]"
	}
	return s + ": " + w.Message
}

func (w Warning) Unwrap() error {
	return w.Err
}
