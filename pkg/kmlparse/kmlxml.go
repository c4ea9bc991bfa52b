package kmlparse

import (
	"encoding/xml"
	"image/color"
	"strconv"
	"strings"

	"github.com/stronnag/kml2cot/pkg/styles"
	"github.com/stronnag/kml2cot/pkg/types"
)

type xmlCoords struct {
	Coordinates *string `xml:"coordinates"`
}

type xmlBoundary struct {
	Ring *xmlCoords `xml:"LinearRing"`
}

type xmlPolygon struct {
	Outer *xmlBoundary  `xml:"outerBoundaryIs"`
	Inner []xmlBoundary `xml:"innerBoundaryIs"`
}

type xmlMulti struct {
	Points   []xmlCoords  `xml:"Point"`
	Lines    []xmlCoords  `xml:"LineString"`
	Rings    []xmlCoords  `xml:"LinearRing"`
	Polygons []xmlPolygon `xml:"Polygon"`
}

func (m *xmlMulti) members() int {
	return len(m.Points) + len(m.Lines) + len(m.Rings) + len(m.Polygons)
}

// xmlExtended keeps <Data> and <SchemaData><SimpleData> in document order.
type xmlExtended struct {
	Items types.ExtendedData
}

func (x *xmlExtended) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		t, err := d.Token()
		if err != nil {
			return err
		}
		switch se := t.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "Data":
				var dv struct {
					Value string `xml:"value"`
				}
				if err := d.DecodeElement(&dv, &se); err != nil {
					return err
				}
				if k := attr(se, "name"); k != "" {
					x.Items.Set(k, strings.TrimSpace(dv.Value))
				}
			case "SimpleData":
				var v string
				if err := d.DecodeElement(&v, &se); err != nil {
					return err
				}
				if k := attr(se, "name"); k != "" {
					x.Items.Set(k, strings.TrimSpace(v))
				}
			case "SchemaData":
				// descend; SimpleData children are picked up above
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if se.Name.Local == start.Name.Local {
				return nil
			}
		}
	}
}

type xmlIconStyle struct {
	Color string `xml:"color"`
	Scale string `xml:"scale"`
	Href  string `xml:"Icon>href"`
}

type xmlLineStyle struct {
	Color string `xml:"color"`
	Width string `xml:"width"`
}

type xmlPolyStyle struct {
	Color   string `xml:"color"`
	Fill    string `xml:"fill"`
	Outline string `xml:"outline"`
}

type xmlLabelStyle struct {
	Color string `xml:"color"`
	Scale string `xml:"scale"`
}

type xmlStyle struct {
	ID    string         `xml:"id,attr"`
	Icon  *xmlIconStyle  `xml:"IconStyle"`
	Line  *xmlLineStyle  `xml:"LineStyle"`
	Poly  *xmlPolyStyle  `xml:"PolyStyle"`
	Label *xmlLabelStyle `xml:"LabelStyle"`
}

type xmlStyleMap struct {
	ID    string `xml:"id,attr"`
	Pairs []struct {
		Key      string `xml:"key"`
		StyleURL string `xml:"styleUrl"`
	} `xml:"Pair"`
}

type xmlPlacemark struct {
	Name          string       `xml:"name"`
	Description   string       `xml:"description"`
	StyleURL      string       `xml:"styleUrl"`
	Style         *xmlStyle    `xml:"Style"`
	ExtendedData  *xmlExtended `xml:"ExtendedData"`
	Point         *xmlCoords   `xml:"Point"`
	LineString    *xmlCoords   `xml:"LineString"`
	LinearRing    *xmlCoords   `xml:"LinearRing"`
	Polygon       *xmlPolygon  `xml:"Polygon"`
	MultiGeometry *xmlMulti    `xml:"MultiGeometry"`
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func kmlColour(s string) *color.RGBA {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	c, err := styles.ParseKMLColor(s)
	if err != nil {
		return nil
	}
	return &c
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

// parseBool follows KML: "0" and "false" are false, anything else true.
func parseBool(s string, def bool) bool {
	switch strings.TrimSpace(s) {
	case "":
		return def
	case "0", "false":
		return false
	}
	return true
}

func (x *xmlStyle) style() types.Style {
	s := types.Style{ID: x.ID}
	if x.Icon != nil {
		s.Icon = &types.IconStyle{Color: kmlColour(x.Icon.Color), Scale: parseFloat(x.Icon.Scale), Href: strings.TrimSpace(x.Icon.Href)}
	}
	if x.Line != nil {
		s.Line = &types.LineStyle{Color: kmlColour(x.Line.Color), Width: parseFloat(x.Line.Width)}
	}
	if x.Poly != nil {
		s.Poly = &types.PolyStyle{Color: kmlColour(x.Poly.Color), Fill: parseBool(x.Poly.Fill, true), Outline: parseBool(x.Poly.Outline, true)}
	}
	if x.Label != nil {
		s.Label = &types.LabelStyle{Color: kmlColour(x.Label.Color), Scale: parseFloat(x.Label.Scale)}
	}
	return s
}

func (x *xmlStyleMap) styleMap() types.StyleMap {
	m := types.StyleMap{ID: x.ID}
	for _, p := range x.Pairs {
		m.Pairs = append(m.Pairs, types.StylePair{Key: strings.TrimSpace(p.Key), StyleURL: strings.TrimSpace(p.StyleURL)})
	}
	return m
}
