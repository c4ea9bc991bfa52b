package kmlsplit

import (
	"encoding/xml"

	kml "github.com/twpayne/go-kml"

	styles "github.com/stronnag/kml2cot/pkg/styles"
	types "github.com/stronnag/kml2cot/pkg/types"
)

type folderNode struct {
	el   *kml.CompoundElement
	kids map[string]*folderNode
}

func newNode(el *kml.CompoundElement) *folderNode {
	return &folderNode{el: el, kids: map[string]*folderNode{}}
}

// folder returns the element for a path, creating folders in first seen
// order.
func (n *folderNode) folder(path []string) *kml.CompoundElement {
	for _, name := range path {
		k, ok := n.kids[name]
		if !ok {
			f := kml.Folder()
			if name != "" {
				f.Add(kml.Name(name))
			}
			k = newNode(f)
			n.kids[name] = k
			n.el.Add(f)
		}
		n = k
	}
	return n.el
}

func coords(cs []types.Coord) *kml.CoordinatesElement {
	kc := make([]kml.Coordinate, len(cs))
	for i, c := range cs {
		kc[i] = kml.Coordinate{Lon: c.Lon, Lat: c.Lat, Alt: c.Alt}
	}
	return kml.Coordinates(kc...)
}

func geometry(g types.Geometry) kml.Element {
	switch v := g.(type) {
	case types.Point:
		return kml.Point(coords([]types.Coord{v.Coord}))
	case types.Line:
		return kml.LineString(coords(v.Points))
	case types.Polygon:
		p := kml.Polygon(kml.OuterBoundaryIs(kml.LinearRing(coords(v.Outer))))
		for _, r := range v.Inner {
			p.Add(kml.InnerBoundaryIs(kml.LinearRing(coords(r))))
		}
		return p
	}
	return nil
}

func extendedData(ed types.ExtendedData) kml.Element {
	e := kml.ExtendedData()
	for _, kv := range ed {
		d := kml.Data(kml.Value(kv.Value))
		d.Attr = append(d.Attr, xml.Attr{Name: xml.Name{Local: "name"}, Value: kv.Key})
		e.Add(d)
	}
	return e
}

func placemark(pm types.Placemark) kml.Element {
	p := kml.Placemark()
	if pm.Name != "" {
		p.Add(kml.Name(pm.Name))
	}
	if pm.Description != "" {
		p.Add(kml.Description(pm.Description))
	}
	switch {
	case pm.StyleRef != "":
		p.Add(kml.StyleURL("#" + pm.StyleRef))
	case pm.StyleURL != "":
		p.Add(kml.StyleURL(pm.StyleURL))
	}
	if pm.InlineStyle != nil {
		p.Add(styles.InlineStyle(*pm.InlineStyle))
	}
	if len(pm.ExtendedData) > 0 {
		p.Add(extendedData(pm.ExtendedData))
	}
	if g := geometry(pm.Geometry); g != nil {
		p.Add(g)
	}
	return p
}

// Build renders a document as a KML <Document>: shared styles first, then
// the placemarks inside their rebuilt folders.
func Build(doc *types.Document) *kml.CompoundElement {
	d := kml.Document()
	if doc.Name != "" {
		d.Add(kml.Name(doc.Name))
	}
	for _, s := range doc.Styles {
		d.Add(styles.SharedStyle(s))
	}
	for _, m := range doc.StyleMaps {
		d.Add(styles.SharedStyleMap(m))
	}
	root := newNode(d)
	for _, pm := range doc.Placemarks {
		root.folder(pm.FolderPath).Add(placemark(pm))
	}
	return d
}
