package kmlparse

import (
	"github.com/stronnag/kml2cot/pkg/types"
)

type rawRing struct {
	coords []types.Coord
	bad    []badTuple
}

type rawShape struct {
	kind    types.GeometryKind
	present bool
	rings   []rawRing
}

func ringOf(c *xmlCoords) (rawRing, bool) {
	if c == nil || c.Coordinates == nil {
		return rawRing{}, false
	}
	coords, bad := parseCoordinates(*c.Coordinates)
	return rawRing{coords: coords, bad: bad}, true
}

func polygonShape(xp *xmlPolygon) rawShape {
	s := rawShape{kind: types.KindPolygon}
	if xp.Outer == nil {
		return s
	}
	outer, ok := ringOf(xp.Outer.Ring)
	if !ok {
		return s
	}
	s.present = true
	s.rings = append(s.rings, outer)
	for i := range xp.Inner {
		if r, ok := ringOf(xp.Inner[i].Ring); ok {
			s.rings = append(s.rings, r)
		}
	}
	return s
}

func coordsShape(kind types.GeometryKind, c *xmlCoords) rawShape {
	s := rawShape{kind: kind}
	if r, ok := ringOf(c); ok {
		s.present = true
		s.rings = []rawRing{r}
	}
	return s
}

// rawGeometry picks the placemark's geometry. A MultiGeometry is reduced to
// its first polygon, else line, else point.
func (p *parser) rawGeometry(idx int, name string, xp *xmlPlacemark) (rawShape, bool) {
	switch {
	case xp.Point != nil:
		return coordsShape(types.KindPoint, xp.Point), true
	case xp.LineString != nil:
		return coordsShape(types.KindLine, xp.LineString), true
	case xp.Polygon != nil:
		return polygonShape(xp.Polygon), true
	case xp.LinearRing != nil:
		return coordsShape(types.KindPolygon, xp.LinearRing), true
	case xp.MultiGeometry != nil:
		m := xp.MultiGeometry
		var s rawShape
		switch {
		case len(m.Polygons) > 0:
			s = polygonShape(&m.Polygons[0])
		case len(m.Rings) > 0:
			s = coordsShape(types.KindPolygon, &m.Rings[0])
		case len(m.Lines) > 0:
			s = coordsShape(types.KindLine, &m.Lines[0])
		case len(m.Points) > 0:
			s = coordsShape(types.KindPoint, &m.Points[0])
		default:
			return rawShape{}, false
		}
		if n := m.members(); n > 1 {
			p.warn(types.MultiGeometryReduced, idx, name, nil, "kept first %s of %d geometries", s.kind, n)
		}
		return s, true
	}
	return rawShape{}, false
}
