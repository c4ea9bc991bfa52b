package types

import (
	"fmt"
)

// Minimum vertex counts per geometry.
const (
	MinLineVertices = 2
	MinRingVertices = 4
)

type GeometryKind int

const (
	KindPoint GeometryKind = iota
	KindLine
	KindPolygon
)

func (k GeometryKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k GeometryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *GeometryKind) UnmarshalText(b []byte) error {
	v, err := ParseGeometryKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseGeometryKind accepts the names produced by String.
func ParseGeometryKind(s string) (GeometryKind, error) {
	switch s {
	case "point":
		return KindPoint, nil
	case "line":
		return KindLine, nil
	case "polygon":
		return KindPolygon, nil
	}
	return 0, fmt.Errorf("unknown geometry kind %q", s)
}

// Coord is a position in the internal lat,lon,alt order.
type Coord struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
	Alt float64 `yaml:"alt"`
}

func (c Coord) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Geometry is closed over Point, Line and Polygon.
type Geometry interface {
	Kind() GeometryKind
	// Vertices returns the point, the line points or the outer ring.
	Vertices() []Coord
	sealed()
}

type Point struct {
	Coord
}

type Line struct {
	Points []Coord
}

type Polygon struct {
	Outer []Coord
	Inner [][]Coord
}

func (Point) Kind() GeometryKind   { return KindPoint }
func (Line) Kind() GeometryKind    { return KindLine }
func (Polygon) Kind() GeometryKind { return KindPolygon }

func (p Point) Vertices() []Coord   { return []Coord{p.Coord} }
func (l Line) Vertices() []Coord    { return l.Points }
func (p Polygon) Vertices() []Coord { return p.Outer }

func (Point) sealed()   {}
func (Line) sealed()    {}
func (Polygon) sealed() {}

// RawGeometry is a geometry element as found in the document, before any
// vertex count checks. Rings[0] holds the point, the line or the outer
// boundary; further rings are polygon inner boundaries.
type RawGeometry struct {
	Kind    GeometryKind
	Present bool
	Rings   [][]Coord
}

// Classify turns a raw geometry into one of the concrete variants.
func Classify(raw RawGeometry) (Geometry, error) {
	var first []Coord
	if len(raw.Rings) > 0 {
		first = raw.Rings[0]
	}
	if !raw.Present {
		return nil, NewParseError(MissingCoordinates, Position{}, "%s has no coordinates", raw.Kind)
	}

	switch raw.Kind {
	case KindPoint:
		if len(first) == 0 {
			return nil, NewParseError(MissingCoordinates, Position{}, "point has no coordinates")
		}
		return Point{Coord: first[0]}, nil

	case KindLine:
		if len(first) < MinLineVertices {
			return nil, NewParseError(InsufficientVertices, Position{},
				"line has %d vertices, need at least %d", len(first), MinLineVertices)
		}
		return Line{Points: append([]Coord(nil), first...)}, nil

	case KindPolygon:
		if len(first) < MinRingVertices {
			return nil, NewParseError(InsufficientVertices, Position{},
				"polygon outer ring has %d vertices, need at least %d", len(first), MinRingVertices)
		}
		p := Polygon{Outer: append([]Coord(nil), first...)}
		for i, r := range raw.Rings[1:] {
			if len(r) < MinRingVertices {
				return nil, NewParseError(InsufficientVertices, Position{},
					"polygon inner ring %d has %d vertices, need at least %d", i+1, len(r), MinRingVertices)
			}
			p.Inner = append(p.Inner, append([]Coord(nil), r...))
		}
		return p, nil
	}
	return nil, NewParseError(MissingCoordinates, Position{}, "unsupported geometry %s", raw.Kind)
}

// MinVertices is the smallest vertex count accepted for the first ring of kind.
func MinVertices(k GeometryKind) int {
	switch k {
	case KindLine:
		return MinLineVertices
	case KindPolygon:
		return MinRingVertices
	}
	return 1
}
