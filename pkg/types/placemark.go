package types

import (
	"image/color"
	"strings"
)

type KV struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// ExtendedData keeps keys in first-seen order; a repeated key replaces the
// value but not the position.
type ExtendedData []KV

func (e *ExtendedData) Set(k, v string) {
	for i := range *e {
		if (*e)[i].Key == k {
			(*e)[i].Value = v
			return
		}
	}
	*e = append(*e, KV{Key: k, Value: v})
}

func (e ExtendedData) Get(k string) (string, bool) {
	for _, kv := range e {
		if kv.Key == k {
			return kv.Value, true
		}
	}
	return "", false
}

func (e ExtendedData) Keys() []string {
	keys := make([]string, 0, len(e))
	for _, kv := range e {
		keys = append(keys, kv.Key)
	}
	return keys
}

type IconStyle struct {
	Color *color.RGBA
	Scale float64
	Href  string
}

type LineStyle struct {
	Color *color.RGBA
	Width float64
}

type PolyStyle struct {
	Color   *color.RGBA
	Fill    bool
	Outline bool
}

type LabelStyle struct {
	Color *color.RGBA
	Scale float64
}

// Style holds the subset of KML styling carried through conversion.
type Style struct {
	ID    string
	Icon  *IconStyle
	Line  *LineStyle
	Poly  *PolyStyle
	Label *LabelStyle
}

type StylePair struct {
	Key      string
	StyleURL string
}

type StyleMap struct {
	ID    string
	Pairs []StylePair
}

// Normal returns the style id of the "normal" pair, without the leading '#'.
func (m StyleMap) Normal() string {
	for _, p := range m.Pairs {
		if p.Key == "normal" {
			return TrimRef(p.StyleURL)
		}
	}
	if len(m.Pairs) > 0 {
		return TrimRef(m.Pairs[0].StyleURL)
	}
	return ""
}

// TrimRef returns the document-local style id of a styleUrl, without the
// '#'. A reference into another document ("shared.kml#red") gives "".
func TrimRef(s string) string {
	if len(s) > 0 && s[0] == '#' {
		return s[1:]
	}
	if strings.ContainsAny(s, "#/") {
		return ""
	}
	return s
}

type Placemark struct {
	// Index is the ordinal of the <Placemark> element in the source, counted
	// over every placemark including skipped ones.
	Index        int
	Name         string
	Description  string
	Geometry     Geometry
	ExtendedData ExtendedData
	// StyleURL is the styleUrl as written; StyleRef its local id, empty
	// for an external reference.
	StyleURL    string
	StyleRef    string
	InlineStyle *Style
	Style       *Style
	FolderPath  []string
}

// TopFolder is the outermost enclosing folder name, or "".
func (p Placemark) TopFolder() string {
	if len(p.FolderPath) > 0 {
		return p.FolderPath[0]
	}
	return ""
}

type Document struct {
	Source     string
	Name       string
	Placemarks []Placemark
	Styles     []Style
	StyleMaps  []StyleMap
}

func (d *Document) StyleByID(id string) (*Style, bool) {
	for i := range d.Styles {
		if d.Styles[i].ID == id {
			return &d.Styles[i], true
		}
	}
	return nil, false
}

func (d *Document) StyleMapByID(id string) (*StyleMap, bool) {
	for i := range d.StyleMaps {
		if d.StyleMaps[i].ID == id {
			return &d.StyleMaps[i], true
		}
	}
	return nil, false
}

// ResolveStyle finds the effective style for a placemark: inline, then a
// shared Style, then the normal pair of a StyleMap.
func (d *Document) ResolveStyle(p Placemark) *Style {
	if p.InlineStyle != nil {
		return p.InlineStyle
	}
	if p.StyleRef == "" {
		return nil
	}
	if s, ok := d.StyleByID(p.StyleRef); ok {
		return s
	}
	if m, ok := d.StyleMapByID(p.StyleRef); ok {
		if s, ok := d.StyleByID(m.Normal()); ok {
			return s
		}
	}
	return nil
}
